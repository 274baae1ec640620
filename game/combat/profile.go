package combat

// Archetype is the fixed NPC type tag. Each archetype carries a default
// combat style, a ranged-capability tag, and an attack-frequency weight.
type Archetype string

const (
	ArchetypeGuard    Archetype = "guard"
	ArchetypeMerchant Archetype = "merchant"
	ArchetypeVillager Archetype = "villager"
)

// CombatStyle is the archetype's default disposition. Cautious NPCs start
// the encounter in defensive mode instead of idle.
type CombatStyle string

const (
	StyleAggressive CombatStyle = "aggressive"
	StyleNeutral    CombatStyle = "neutral"
	StyleCautious   CombatStyle = "cautious"
)

// RangedUsage says when an archetype may fire ranged attacks.
type RangedUsage string

const (
	RangedNever  RangedUsage = "never"
	RangedAlways RangedUsage = "always"
	// RangedWhileCharging grants ranged attacks only during the player's
	// charging window (the situational archetype).
	RangedWhileCharging RangedUsage = "while_charging"
)

// Profile is the combat-behavior template for an archetype, supplied to
// the AI engine when an NPC is registered.
type Profile struct {
	Archetype       Archetype   `json:"archetype"`
	Style           CombatStyle `json:"style"`
	Ranged          RangedUsage `json:"ranged"`
	AttackFrequency float64     `json:"attack_frequency"` // weight in (0,1]
	// MeleeStrong marks a ranged-capable archetype that abandons its
	// stand-off and pushes into melee while the player is charging.
	MeleeStrong bool `json:"melee_strong"`
}

// RangedCapable reports whether this profile may fire ranged attacks right
// now, given whether the player is charging.
func (p Profile) RangedCapable(playerCharging bool) bool {
	switch p.Ranged {
	case RangedAlways:
		return true
	case RangedWhileCharging:
		return playerCharging
	}
	return false
}

// defaultProfiles is the closed archetype set.
var defaultProfiles = map[Archetype]Profile{
	ArchetypeGuard: {
		Archetype:       ArchetypeGuard,
		Style:           StyleAggressive,
		Ranged:          RangedAlways,
		AttackFrequency: 0.8,
		MeleeStrong:     true,
	},
	ArchetypeMerchant: {
		Archetype:       ArchetypeMerchant,
		Style:           StyleCautious,
		Ranged:          RangedAlways,
		AttackFrequency: 0.5,
	},
	ArchetypeVillager: {
		Archetype:       ArchetypeVillager,
		Style:           StyleNeutral,
		Ranged:          RangedWhileCharging,
		AttackFrequency: 0.4,
	},
}

// ProfileFor returns the profile for an archetype. Unknown archetypes fall
// back to the villager profile so a bad spawn degrades to harmless melee.
func ProfileFor(arch Archetype) Profile {
	if p, ok := defaultProfiles[arch]; ok {
		return p
	}
	p := defaultProfiles[ArchetypeVillager]
	p.Archetype = arch
	return p
}
