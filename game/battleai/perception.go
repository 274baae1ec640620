package battleai

import (
	"github.com/kiriha/wanderlight/server/game/combat"
)

// NearestTarget resolves the closest eligible target for one NPC over the
// player and all active allied characters. Candidates are excluded when
// inactive, defeated, or (for the player) downed. Ties break to the first
// candidate found at the minimum distance, in roster order.
//
// Returns false when no eligible target exists; the caller zeroes the
// NPC's velocity and skips it for the tick.
func NearestTarget(npc *combat.Combatant, roster *combat.Roster) (*combat.Combatant, float64, bool) {
	var best *combat.Combatant
	bestDist := 0.0
	for _, cand := range roster.TargetPool() {
		if !cand.Targetable() {
			continue
		}
		d := npc.DistanceTo(cand)
		if best == nil || d < bestDist {
			best = cand
			bestDist = d
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestDist, true
}
