package battleai

// BattleEvent is emitted by the engine for the host scene to consume.
// The scene translates these into sound, HUD flashes, and persistence;
// the engine never calls those systems directly.
type BattleEvent interface {
	EventType() string
}

// EventAttack is emitted when an NPC commits an attack (hitbox or
// projectile spawn). Damage, if any, follows as separate EventDamage.
type EventAttack struct {
	AttackerID int64   `json:"attacker_id"`
	Kind       string  `json:"kind"` // "melee" | "ranged"
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

func (EventAttack) EventType() string { return "attack" }

// EventDamage is emitted once per victim a hitbox or projectile connects
// with. Knockback is true only for melee hits.
type EventDamage struct {
	AttackerID int64  `json:"attacker_id"`
	VictimID   int64  `json:"victim_id"`
	Amount     int    `json:"amount"`
	HPAfter    int    `json:"hp_after"`
	Knockback  bool   `json:"knockback"`
	Kind       string `json:"kind"`
}

func (EventDamage) EventType() string { return "damage" }

// EventDefeat is emitted when a victim's health reaches zero. The host
// scene decides what defeat means (downed player, removed ally).
type EventDefeat struct {
	VictimID int64  `json:"victim_id"`
	Name     string `json:"name"`
}

func (EventDefeat) EventType() string { return "defeat" }
