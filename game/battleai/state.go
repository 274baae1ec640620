package battleai

import (
	"github.com/kiriha/wanderlight/server/game/combat"
)

// Mode is the behavioral mode of one NPC. Transitions are one-directional:
// idle→combat, idle→defensive, combat→defensive. There is no path back up.
type Mode int

const (
	ModeIdle Mode = iota
	ModeCombat
	ModeDefensive
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeCombat:
		return "combat"
	case ModeDefensive:
		return "defensive"
	}
	return "unknown"
}

const (
	defensiveThreshold = 0.5 // health fraction at or below: sticky defensive
	panicThreshold     = 0.3 // health fraction below: sticky panic flag
	aggressivenessStep = 0.1 // bump per damage instance, capped at 1.0
)

// AIState is the per-NPC decision state. One instance per registered NPC,
// keyed by combatant handle, owned and mutated exclusively by the engine.
type AIState struct {
	Mode             Mode    `json:"mode"`
	Panicking        bool    `json:"panicking"` // sticky; recorded, not consumed
	HasBeenAttacked  bool    `json:"has_been_attacked"`
	Aggressiveness   float64 `json:"aggressiveness"`
	TargetID         int64   `json:"target_id"` // re-resolved every tick, never owned
	Direction        float64 `json:"direction"` // ±1 toward current target
	LastAttackAt     float64 `json:"last_attack_at"` // engine clock, ms
	ConsecutiveMelee int     `json:"consecutive_melee"`
	Disengaging      bool    `json:"disengaging"` // melee streak repositioning in progress

	// Remaining cooldowns in ms, decayed every processed tick.
	attackCooldown float64
	dodgeCooldown  float64

	// Defensive-mode melee milling: current drift sign and the engine-clock
	// deadline at which it is re-rolled.
	millDirection float64
	millUntil     float64

	profile combat.Profile
}

// newAIState derives the spawn state from the archetype profile and the
// global difficulty factor. Cautious archetypes open in defensive mode.
func newAIState(profile combat.Profile, aggressivenessFactor float64) *AIState {
	mode := ModeIdle
	if profile.Style == combat.StyleCautious {
		mode = ModeDefensive
	}
	aggr := profile.AttackFrequency * aggressivenessFactor
	if aggr > 1.0 {
		aggr = 1.0
	}
	if aggr <= 0 {
		aggr = aggressivenessStep
	}
	return &AIState{
		Mode:           mode,
		Aggressiveness: aggr,
		Direction:      1,
		LastAttackAt:   -1,
		profile:        profile,
	}
}

// advance applies the per-tick mode transition rules, in order:
//  1. health ≤ 50% forces defensive (overrides everything else this tick)
//  2. else a previously-hit idle NPC promotes to combat
//
// Panic is evaluated independently of the mode chain and never clears.
func (s *AIState) advance(healthFraction float64) {
	if healthFraction <= defensiveThreshold && s.Mode != ModeDefensive {
		s.Mode = ModeDefensive
	} else if s.HasBeenAttacked && s.Mode == ModeIdle {
		s.Mode = ModeCombat
	}
	if healthFraction < panicThreshold && !s.Panicking {
		s.Panicking = true
	}
}

// decayCooldowns counts attack and dodge cooldowns down, floored at zero.
// Runs every processed tick regardless of mode.
func (s *AIState) decayCooldowns(elapsedMs float64) {
	s.attackCooldown -= elapsedMs
	if s.attackCooldown < 0 {
		s.attackCooldown = 0
	}
	s.dodgeCooldown -= elapsedMs
	if s.dodgeCooldown < 0 {
		s.dodgeCooldown = 0
	}
}

// canAttack reports whether the fixed attack cooldown has elapsed.
func (s *AIState) canAttack() bool {
	return s.attackCooldown <= 0
}

// markAttacked records the first successful hit against this NPC and
// promotes idle→combat immediately, without waiting for the tick scan.
func (s *AIState) markAttacked() {
	s.HasBeenAttacked = true
	if s.Mode == ModeIdle {
		s.Mode = ModeCombat
	}
}

// onDamage bumps aggressiveness (capped) and re-evaluates panic against
// the victim's live health fraction.
func (s *AIState) onDamage(healthFraction float64) {
	s.Aggressiveness += aggressivenessStep
	if s.Aggressiveness > 1.0 {
		s.Aggressiveness = 1.0
	}
	if healthFraction < panicThreshold && !s.Panicking {
		s.Panicking = true
	}
}
