package battleai

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/game/combat"
)

// Melee hitbox geometry and damage scaling.
const (
	meleeOffset = 90.0 // hitbox center, ahead of the NPC toward the target
	meleeHalfW  = 60.0
	meleeHalfH  = 40.0

	baseMeleeDamage  = 15
	meleeLevelScale  = 2
	baseRangedDamage = 10
	rangedLevelScale = 1

	projectileHalf = 12.0

	knockbackBase       = 200.0 // horizontal impulse, px/s
	knockbackLevelScale = 20.0
	knockbackPop        = 250.0 // fixed upward pop
)

// effect is a live hitbox or projectile. Attacks are positional: an effect
// overlaps whoever is standing in it, not just the target it was aimed at.
type effect struct {
	id      string
	kind    attackKind
	ownerID int64
	x, y    float64
	vx, vy  float64 // projectiles only
	halfW   float64
	halfH   float64
}

// fire commits an attack: stamps the cooldown, spawns the hitbox or
// projectile, emits the attack event, and schedules the deferred expiry
// callback. Melee hitboxes are overlap-tested immediately on spawn.
func (e *Engine) fire(npc *combat.Combatant, st *AIState, target *combat.Combatant, kind attackKind, roster *combat.Roster) {
	st.attackCooldown = e.cfg.AttackCooldownMs
	st.LastAttackAt = e.clock

	fx := &effect{
		id:      uuid.New().String(),
		kind:    kind,
		ownerID: npc.ID,
	}
	var lifetimeMs float64
	switch kind {
	case attackMelee:
		fx.x = npc.X + st.Direction*meleeOffset
		fx.y = npc.Y
		fx.halfW, fx.halfH = meleeHalfW, meleeHalfH
		lifetimeMs = e.cfg.HitboxLifetimeMs
		st.ConsecutiveMelee++
	case attackRanged:
		fx.x, fx.y = npc.X, npc.Y
		dx, dy := target.X-npc.X, target.Y-npc.Y
		if d := math.Hypot(dx, dy); d > 0 {
			fx.vx = dx / d * e.cfg.ProjectileSpeed
			fx.vy = dy / d * e.cfg.ProjectileSpeed
		} else {
			fx.vx = st.Direction * e.cfg.ProjectileSpeed
		}
		fx.halfW, fx.halfH = projectileHalf, projectileHalf
		lifetimeMs = e.cfg.ProjectileLifetimeMs
		st.ConsecutiveMelee = 0
	default:
		return
	}

	e.effects[fx.id] = fx
	e.emit(EventAttack{AttackerID: npc.ID, Kind: kind.String(), X: fx.x, Y: fx.y})
	e.logger.Debug("attack fired",
		zap.Int64("attacker", npc.ID),
		zap.String("kind", kind.String()),
		zap.Float64("dist", npc.DistanceTo(target)))

	id := fx.id
	e.deferrer.AddDelay(effectTask(id), time.Duration(lifetimeMs)*time.Millisecond, func() {
		delete(e.effects, id)
	})

	if kind == attackMelee && e.resolveEffect(fx, roster) {
		e.removeEffect(id)
	}
}

// stepEffects advances projectiles and overlap-tests every live effect
// against the current roster. Runs only on processed ticks, so a frozen
// encounter also freezes in-flight attacks.
func (e *Engine) stepEffects(roster *combat.Roster, elapsedMs float64) {
	dt := elapsedMs / 1000
	for id, fx := range e.effects {
		if fx.kind == attackRanged {
			fx.x += fx.vx * dt
			fx.y += fx.vy * dt
		}
		if e.resolveEffect(fx, roster) {
			e.removeEffect(id)
		}
	}
}

// resolveEffect tests one effect against every eligible roster member and
// applies damage on the first overlap. Returns true when the effect is
// spent. A stale owner (removed between decision and execution) fizzles
// the effect without touching anyone.
func (e *Engine) resolveEffect(fx *effect, roster *combat.Roster) bool {
	attacker := roster.FindByID(fx.ownerID)
	if attacker == nil || !attacker.Alive() {
		return true
	}
	for _, cand := range roster.TargetPool() {
		if !cand.Targetable() {
			continue
		}
		if overlaps(fx, cand) {
			e.applyHit(attacker, fx, cand)
			return true
		}
	}
	return false
}

// overlaps is an AABB test between an effect and a combatant body.
func overlaps(fx *effect, c *combat.Combatant) bool {
	return math.Abs(fx.x-c.X) <= fx.halfW+combat.HalfExtent &&
		math.Abs(fx.y-c.Y) <= fx.halfH+combat.HalfExtent
}

// applyHit writes damage (and melee knockback) to the victim and emits
// the damage/defeat events. Health writes are plain assignments; the
// per-encounter tick is the only writer in flight.
func (e *Engine) applyHit(attacker *combat.Combatant, fx *effect, victim *combat.Combatant) {
	var dmg int
	knock := false
	switch fx.kind {
	case attackMelee:
		dmg = baseMeleeDamage + attacker.Level*meleeLevelScale
		knock = true
		dir := 1.0
		if victim.X < fx.x {
			dir = -1
		}
		victim.VX = dir * (knockbackBase + float64(attacker.Level)*knockbackLevelScale)
		victim.VY = -knockbackPop
	case attackRanged:
		dmg = baseRangedDamage + attacker.Level*rangedLevelScale
	}

	victim.HP -= dmg
	if victim.HP < 0 {
		victim.HP = 0
	}
	e.emit(EventDamage{
		AttackerID: attacker.ID,
		VictimID:   victim.ID,
		Amount:     dmg,
		HPAfter:    victim.HP,
		Knockback:  knock,
		Kind:       fx.kind.String(),
	})
	if victim.HP == 0 {
		e.emit(EventDefeat{VictimID: victim.ID, Name: victim.Name})
		e.logger.Info("combatant defeated",
			zap.Int64("victim", victim.ID),
			zap.Int64("attacker", attacker.ID))
	}
}

// removeEffect drops a spent effect and cancels its pending expiry task.
func (e *Engine) removeEffect(id string) {
	delete(e.effects, id)
	e.deferrer.Remove(effectTask(id))
}

func effectTask(id string) string {
	return "fx_" + id
}
