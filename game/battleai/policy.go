package battleai

// Engagement distances and movement multipliers. Distances are in world
// pixels, speeds are fractions of baseSpeed × aggressiveness.
const (
	meleeReach         = 180.0 // ideal distance for melee-only NPCs
	rangedIdeal        = 400.0 // ideal distance for ranged-capable NPCs
	safeDistanceOffset = 150.0 // defensive ranged NPCs add this to ideal

	idleBand      = 40.0 // stand-off tolerance while idle
	combatBand    = 25.0 // narrower in combat
	defensiveBand = 60.0 // widest for the defensive safe-distance hold

	patrolMult            = 0.35 // idle drift when the player is not charging
	chargingBoost         = 1.15 // urgency while the player charges
	retreatMult           = 0.5  // ranged back-off below minimum range
	defensiveApproachMult = 0.9
	defensiveRetreatMult  = 0.6
	cautiousApproachMult  = 0.6  // defensive melee creep
	pressureMult          = 1.3  // guard close-in during the charging window
	pressureDriftMult     = 0.25 // guard forward drift inside melee reach

	meleeStreakLimit = 3   // consecutive melee hits before forced disengage
	disengageFactor  = 1.5 // break off until distance > factor × reach

	millApproachChance = 0.7 // defensive melee milling: P(approach)
	millMinMs          = 1000.0
	millMaxMs          = 2500.0
)

// capability classifies an NPC for the current tick. An NPC whose profile
// grants ranged attacks only while the player charges flips between the
// two classes as the charging window opens and closes.
type capability int

const (
	capMelee capability = iota
	capRanged
)

type attackKind int

const (
	attackNone attackKind = iota
	attackMelee
	attackRanged
)

func (k attackKind) String() string {
	switch k {
	case attackMelee:
		return "melee"
	case attackRanged:
		return "ranged"
	}
	return "none"
}

// policyInput is the per-tick context a policy decides on.
type policyInput struct {
	st       *AIState
	dist     float64
	charging bool
}

// decision is a horizontal velocity plus an optional attack request. The
// engine applies the cooldown gate before any attack actually fires.
type decision struct {
	vx     float64
	attack attackKind
}

type policyFunc func(e *Engine, in policyInput) decision

type policyKey struct {
	mode Mode
	cap  capability
}

// policyTable dispatches on (mode, capability). The guard-style pressure
// override is layered on top by policyFor, not inlined here.
var policyTable = map[policyKey]policyFunc{
	{ModeIdle, capMelee}:       idlePolicy(capMelee),
	{ModeIdle, capRanged}:      idlePolicy(capRanged),
	{ModeCombat, capMelee}:     combatMeleePolicy,
	{ModeCombat, capRanged}:    combatRangedPolicy,
	{ModeDefensive, capMelee}:  defensiveMeleePolicy,
	{ModeDefensive, capRanged}: defensiveRangedPolicy,
}

// standoffParams parameterize the shared maintain-stand-off primitive.
// retreat == 0 marks a melee-reach hold: no minimum-range behavior, and
// the far-side tolerance collapses so the NPC never parks just out of
// reach of a stationary target.
type standoffParams struct {
	ideal    float64
	band     float64
	approach float64
	retreat  float64
}

// maintainStandoff closes, opens, or holds distance around params.ideal.
// Inside melee reach an attack at arm's length always beats repositioning,
// whichever class the NPC currently is.
func (e *Engine) maintainStandoff(in policyInput, p standoffParams) decision {
	speed := e.cfg.BaseSpeed * in.st.Aggressiveness
	if p.retreat <= 0 {
		if in.dist > p.ideal {
			return decision{vx: in.st.Direction * speed * p.approach}
		}
		return decision{attack: attackMelee}
	}
	switch {
	case in.dist > p.ideal+p.band:
		return decision{vx: in.st.Direction * speed * p.approach}
	case in.dist <= meleeReach:
		return decision{attack: attackMelee}
	case in.dist < p.ideal-p.band:
		return decision{vx: -in.st.Direction * speed * p.retreat}
	default:
		return decision{attack: attackRanged}
	}
}

// idlePolicy: while the player is not charging, idle NPCs drift slowly
// toward their target regardless of archetype. The moment the player
// starts charging, the full stand-off logic wakes up with urgency.
func idlePolicy(cap capability) policyFunc {
	return func(e *Engine, in policyInput) decision {
		if !in.charging {
			return decision{vx: in.st.Direction * e.cfg.BaseSpeed * in.st.Aggressiveness * patrolMult}
		}
		p := standoffParams{ideal: meleeReach, band: idleBand, approach: chargingBoost}
		if cap == capRanged {
			p.ideal = rangedIdeal
			p.retreat = retreatMult
		}
		return e.maintainStandoff(in, p)
	}
}

// combatMeleePolicy adds the melee-streak bookkeeping on top of the
// stand-off hold: three uninterrupted melee hits force a disengage until
// distance exceeds 1.5× reach, so a melee NPC can't turret forever on a
// stationary target.
func combatMeleePolicy(e *Engine, in policyInput) decision {
	st := in.st
	speed := e.cfg.BaseSpeed * st.Aggressiveness

	if st.ConsecutiveMelee >= meleeStreakLimit {
		st.Disengaging = true
	}
	if st.Disengaging {
		if in.dist > meleeReach*disengageFactor {
			st.Disengaging = false
			st.ConsecutiveMelee = 0
		} else {
			return decision{vx: -st.Direction * speed}
		}
	}
	if in.dist > meleeReach {
		// out of reach: the streak is interrupted
		st.ConsecutiveMelee = 0
	}

	approach := 1.0
	if in.charging {
		approach = chargingBoost
	}
	return e.maintainStandoff(in, standoffParams{ideal: meleeReach, band: combatBand, approach: approach})
}

func combatRangedPolicy(e *Engine, in policyInput) decision {
	approach := 1.0
	if in.charging {
		approach = chargingBoost
	}
	return e.maintainStandoff(in, standoffParams{
		ideal:    rangedIdeal,
		band:     combatBand,
		approach: approach,
		retreat:  retreatMult,
	})
}

// defensiveMeleePolicy creeps cautiously at close range. Far from the
// target it mills semi-randomly (70% approach / 30% retreat, re-rolled
// on a 1 to 2.5s timer from the engine's injected random source) so the
// pacing reads organic instead of deterministic.
func defensiveMeleePolicy(e *Engine, in policyInput) decision {
	st := in.st
	speed := e.cfg.BaseSpeed * st.Aggressiveness

	if in.dist > meleeReach+defensiveBand {
		if st.millDirection == 0 || e.clock >= st.millUntil {
			if e.rng.Float64() < millApproachChance {
				st.millDirection = 1
			} else {
				st.millDirection = -1
			}
			st.millUntil = e.clock + millMinMs + e.rng.Float64()*(millMaxMs-millMinMs)
		}
		return decision{vx: st.millDirection * st.Direction * speed * cautiousApproachMult}
	}
	return e.maintainStandoff(in, standoffParams{ideal: meleeReach, band: defensiveBand, approach: cautiousApproachMult})
}

// defensiveRangedPolicy holds a safe distance beyond the normal ideal.
func defensiveRangedPolicy(e *Engine, in policyInput) decision {
	approach := defensiveApproachMult
	if in.charging {
		approach *= chargingBoost
	}
	return e.maintainStandoff(in, standoffParams{
		ideal:    rangedIdeal + safeDistanceOffset,
		band:     defensiveBand,
		approach: approach,
		retreat:  defensiveRetreatMult,
	})
}

// pressurePolicy is the guard-archetype override, active in every mode
// while the player is charging: close to melee reach at the pressure
// multiplier instead of keeping ranged stand-off, keep a slow forward
// drift once inside reach rather than stopping, and take ranged shots
// only opportunistically: the wrapped base policy decides whether the
// NPC is transiently passing through its ranged band.
func pressurePolicy(base policyFunc) policyFunc {
	return func(e *Engine, in policyInput) decision {
		st := in.st
		speed := e.cfg.BaseSpeed * st.Aggressiveness
		if in.dist > meleeReach+combatBand {
			dec := decision{vx: st.Direction * speed * pressureMult}
			if hit := base(e, in); hit.attack == attackRanged {
				dec.attack = attackRanged
			}
			return dec
		}
		return decision{vx: st.Direction * speed * pressureDriftMult, attack: attackMelee}
	}
}
