package combat

import "testing"

func TestTargetableExcludesDownedPlayer(t *testing.T) {
	p := NewCombatant("hero", "", 1, 100, 0, 0)
	p.IsPlayer = true

	if !p.Targetable() {
		t.Fatal("healthy player should be targetable")
	}
	p.Downed = true
	if p.Targetable() {
		t.Fatal("downed player should not be targetable")
	}
	if !p.Alive() {
		t.Fatal("downed player is still alive")
	}
}

func TestAliveChecks(t *testing.T) {
	c := NewCombatant("g", ArchetypeGuard, 1, 50, 0, 0)
	if !c.Alive() {
		t.Fatal("fresh combatant should be alive")
	}
	c.HP = 0
	if c.Alive() {
		t.Fatal("zero HP combatant should not be alive")
	}
	c.HP = 10
	c.Active = false
	if c.Alive() {
		t.Fatal("inactive combatant should not be alive")
	}
	var nilC *Combatant
	if nilC.Alive() {
		t.Fatal("nil combatant should not be alive")
	}
}

func TestHealthFraction(t *testing.T) {
	c := NewCombatant("m", ArchetypeMerchant, 1, 80, 0, 0)
	c.HP = 40
	if got := c.HealthFraction(); got != 0.5 {
		t.Fatalf("HealthFraction = %v, want 0.5", got)
	}
}

func TestTargetPoolOrder(t *testing.T) {
	r := &Roster{}
	r.Player = NewCombatant("hero", "", 1, 100, 0, 0)
	r.Player.IsPlayer = true
	a1 := NewCombatant("ally1", "", 1, 100, 10, 0)
	a2 := NewCombatant("ally2", "", 1, 100, 20, 0)
	r.Allies = []*Combatant{a1, a2}

	pool := r.TargetPool()
	if len(pool) != 3 {
		t.Fatalf("pool size = %d, want 3", len(pool))
	}
	if pool[0] != r.Player || pool[1] != a1 || pool[2] != a2 {
		t.Fatal("pool order should be player then allies in roster order")
	}
}

func TestFindByID(t *testing.T) {
	r := &Roster{}
	n := NewCombatant("npc", ArchetypeVillager, 1, 60, 0, 0)
	r.NPCs = []*Combatant{n}

	if r.FindByID(n.ID) != n {
		t.Fatal("FindByID should locate roster NPCs")
	}
	if r.FindByID(-1) != nil {
		t.Fatal("FindByID should return nil for unknown handles")
	}
}

func TestProfileForUnknownFallsBack(t *testing.T) {
	p := ProfileFor("dragon")
	if p.Archetype != "dragon" {
		t.Fatalf("fallback profile keeps the requested archetype, got %q", p.Archetype)
	}
	if p.Ranged != RangedWhileCharging || p.Style != StyleNeutral {
		t.Fatalf("fallback should use the neutral villager template, got %+v", p)
	}
}

func TestRangedCapable(t *testing.T) {
	guard := ProfileFor(ArchetypeGuard)
	if !guard.RangedCapable(false) || !guard.RangedCapable(true) {
		t.Fatal("guard is ranged-capable regardless of charging")
	}
	villager := ProfileFor(ArchetypeVillager)
	if villager.RangedCapable(false) {
		t.Fatal("villager has no ranged attack while player is not charging")
	}
	if !villager.RangedCapable(true) {
		t.Fatal("villager gains ranged attack while player charges")
	}
}
