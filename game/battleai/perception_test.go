package battleai

import (
	"testing"

	"github.com/kiriha/wanderlight/server/game/combat"
)

func perceptionRoster() (*combat.Roster, *combat.Combatant) {
	npc := combat.NewCombatant("villager", combat.ArchetypeVillager, 1, 60, 0, 0)
	player := combat.NewCombatant("hero", "", 3, 100, 300, 0)
	player.IsPlayer = true
	return &combat.Roster{Player: player, NPCs: []*combat.Combatant{npc}}, npc
}

func TestNearestTarget_MinimumEligible(t *testing.T) {
	roster, npc := perceptionRoster()
	near := combat.NewCombatant("ally-near", "", 1, 80, 120, 0)
	inactive := combat.NewCombatant("ally-gone", "", 1, 80, 10, 0)
	inactive.Active = false
	dead := combat.NewCombatant("ally-dead", "", 1, 80, 40, 0)
	dead.HP = 0
	roster.Allies = []*combat.Combatant{inactive, dead, near}

	got, dist, ok := NearestTarget(npc, roster)
	if !ok {
		t.Fatal("no target found")
	}
	if got.Name != "ally-near" {
		t.Errorf("target = %s, want ally-near (10 and 40 are ineligible)", got.Name)
	}
	if dist != 120 {
		t.Errorf("dist = %v, want 120", dist)
	}
}

func TestNearestTarget_DownedPlayerExcluded(t *testing.T) {
	roster, npc := perceptionRoster()
	roster.Player.Downed = true

	if _, _, ok := NearestTarget(npc, roster); ok {
		t.Error("downed player with no allies must yield no target")
	}

	ally := combat.NewCombatant("ally", "", 1, 80, 500, 0)
	roster.Allies = []*combat.Combatant{ally}
	got, _, ok := NearestTarget(npc, roster)
	if !ok || got.Name != "ally" {
		t.Errorf("target = %v, want remaining ally", got)
	}
}

func TestNearestTarget_TieBreaksToRosterOrder(t *testing.T) {
	roster, npc := perceptionRoster()
	// ally at exactly the player's distance: strict less-than keeps the
	// first candidate scanned, which is the player
	ally := combat.NewCombatant("ally", "", 1, 80, 300, 0)
	roster.Allies = []*combat.Combatant{ally}

	got, _, ok := NearestTarget(npc, roster)
	if !ok || !got.IsPlayer {
		t.Errorf("tie at equal distance must keep the player (first in pool), got %v", got.Name)
	}
}

func TestNearestTarget_EmptyRoster(t *testing.T) {
	npc := combat.NewCombatant("villager", combat.ArchetypeVillager, 1, 60, 0, 0)
	if _, _, ok := NearestTarget(npc, &combat.Roster{}); ok {
		t.Error("empty roster must yield no target")
	}
}
