package combat

import (
	"math"
	"sync/atomic"
)

// idCounter generates unique combatant handles.
var idCounter int64

func nextID() int64 {
	return atomic.AddInt64(&idCounter, 1)
}

// HalfExtent is the half-width of a combatant's body used in overlap tests.
const HalfExtent = 30.0

// Combatant is the battle-scene view of a single fighter. The AI engine
// reads position/health/archetype, writes velocity, and writes health only
// on its own damage-application path. Everything else (sprites, input,
// physics integration) belongs to the host scene.
type Combatant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Archetype Archetype `json:"archetype"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	VX        float64   `json:"vx"`
	VY        float64   `json:"vy"`
	HP        int       `json:"hp"`
	MaxHP     int       `json:"max_hp"`
	Level     int       `json:"level"`
	Facing    int       `json:"facing"` // ±1
	Active    bool      `json:"active"`
	Downed    bool      `json:"downed"` // human player only
	IsPlayer  bool      `json:"is_player"`
}

// NewCombatant creates an active combatant with a fresh handle.
func NewCombatant(name string, arch Archetype, level, maxHP int, x, y float64) *Combatant {
	return &Combatant{
		ID:        nextID(),
		Name:      name,
		Archetype: arch,
		X:         x,
		Y:         y,
		HP:        maxHP,
		MaxHP:     maxHP,
		Level:     level,
		Facing:    1,
		Active:    true,
	}
}

// Alive reports whether the combatant is still a valid battle participant.
func (c *Combatant) Alive() bool {
	return c != nil && c.Active && c.HP > 0
}

// Targetable reports whether the combatant is a valid attack target.
// A downed player is excluded even while technically alive.
func (c *Combatant) Targetable() bool {
	if !c.Alive() {
		return false
	}
	if c.IsPlayer && c.Downed {
		return false
	}
	return true
}

// HealthFraction returns HP as a fraction of MaxHP in [0,1].
func (c *Combatant) HealthFraction() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP)
}

// DistanceTo returns the Euclidean distance between two combatants.
func (c *Combatant) DistanceTo(other *Combatant) float64 {
	return math.Hypot(other.X-c.X, other.Y-c.Y)
}

// Roster is the shared set of battle participants for one encounter.
// NPCs are processed in slice order; there is no fairness guarantee.
type Roster struct {
	Player *Combatant
	Allies []*Combatant
	NPCs   []*Combatant
}

// TargetPool returns the candidates NPC attacks can resolve against:
// the player followed by the allied characters, in roster order.
func (r *Roster) TargetPool() []*Combatant {
	pool := make([]*Combatant, 0, len(r.Allies)+1)
	if r.Player != nil {
		pool = append(pool, r.Player)
	}
	pool = append(pool, r.Allies...)
	return pool
}

// FindByID scans the whole roster for a combatant handle. Returns nil if
// the handle is stale (removed between decision and execution).
func (r *Roster) FindByID(id int64) *Combatant {
	if r.Player != nil && r.Player.ID == id {
		return r.Player
	}
	for _, a := range r.Allies {
		if a.ID == id {
			return a
		}
	}
	for _, n := range r.NPCs {
		if n.ID == id {
			return n
		}
	}
	return nil
}
