package battleai

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/game/combat"
)

// Deferrer schedules cancellable one-shot callbacks for effect expiry.
// The encounter backs this with the scheduler; tests use a manual one.
// Callbacks must run serialized with Update; the encounter wraps them
// in its own lock.
type Deferrer interface {
	AddDelay(name string, delay time.Duration, fn func())
	Remove(name string)
}

type nopDeferrer struct{}

func (nopDeferrer) AddDelay(string, time.Duration, func()) {}
func (nopDeferrer) Remove(string)                          {}

// Config holds the engine tunables. Passed in explicitly (never read from
// a global) so difficulty and timing are testable in isolation.
type Config struct {
	BaseSpeed            float64
	AttackCooldownMs     float64
	HitboxLifetimeMs     float64
	ProjectileLifetimeMs float64
	ProjectileSpeed      float64
	AggressivenessFactor float64
}

// DefaultConfig mirrors the shipped config defaults.
func DefaultConfig() Config {
	return Config{
		BaseSpeed:            220,
		AttackCooldownMs:     1500,
		HitboxLifetimeMs:     200,
		ProjectileLifetimeMs: 1200,
		ProjectileSpeed:      600,
		AggressivenessFactor: 1.0,
	}
}

// TickInput carries the encounter-level flags and player-action flags the
// activation gate evaluates every tick.
type TickInput struct {
	ElapsedMs       float64
	PlayerActing    bool
	PlayerCharging  bool
	DialogueActive  bool
	SelectionActive bool
	VictoryActive   bool
	PlayerTurn      bool
}

// blocked reports whether an encounter-level flag freezes the tick
// outright (dialogue, target selection, victory sequence, or not the
// player's turn).
func (in TickInput) blocked() bool {
	return in.DialogueActive || in.SelectionActive || in.VictoryActive || !in.PlayerTurn
}

// Engine is the per-encounter NPC combat decision core. It owns the
// AIState arena exclusively; external systems reach it only through
// InitEnemy, Update, MarkAttacked, OnDamageTaken, RemoveEnemy and Cleanup.
// The engine is not goroutine-safe; the owning encounter serializes it.
type Engine struct {
	cfg      Config
	states   map[int64]*AIState
	effects  map[string]*effect
	clock    float64 // ms, advances only on processed ticks
	rng      *rand.Rand
	deferrer Deferrer
	logger   *zap.Logger
	pending  []BattleEvent
}

// NewEngine creates an engine. rng seeds the defensive-mill randomness
// (pass a seeded source in tests); deferrer may be nil when the caller
// manages effect lifetimes through Cleanup alone.
func NewEngine(cfg Config, rng *rand.Rand, deferrer Deferrer, logger *zap.Logger) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deferrer == nil {
		deferrer = nopDeferrer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		states:   make(map[int64]*AIState),
		effects:  make(map[string]*effect),
		rng:      rng,
		deferrer: deferrer,
		logger:   logger,
	}
}

// InitEnemy registers an AIState for a combatant entering the encounter.
// Re-registering an existing handle resets its state.
func (e *Engine) InitEnemy(c *combat.Combatant, profile combat.Profile) {
	e.states[c.ID] = newAIState(profile, e.cfg.AggressivenessFactor)
	e.logger.Debug("enemy registered",
		zap.Int64("id", c.ID),
		zap.String("archetype", string(profile.Archetype)),
		zap.String("mode", e.states[c.ID].Mode.String()))
}

// MarkAttacked is the external hook for a successful player hit landing on
// this NPC. Promotes idle→combat immediately, without waiting for the
// next tick scan.
func (e *Engine) MarkAttacked(c *combat.Combatant) {
	if st, ok := e.states[c.ID]; ok {
		st.markAttacked()
	}
}

// OnDamageTaken is the external hook for health loss: bumps
// aggressiveness and re-checks the panic threshold against live health.
// The health write itself belongs to the caller.
func (e *Engine) OnDamageTaken(c *combat.Combatant, amount int) {
	st, ok := e.states[c.ID]
	if !ok {
		return
	}
	st.onDamage(c.HealthFraction())
	e.logger.Debug("npc damaged",
		zap.Int64("id", c.ID),
		zap.Int("amount", amount),
		zap.Float64("aggressiveness", st.Aggressiveness),
		zap.Bool("panicking", st.Panicking))
}

// RemoveEnemy discards one NPC's state when it leaves combat.
func (e *Engine) RemoveEnemy(id int64) {
	delete(e.states, id)
}

// Cleanup tears the encounter down: clears the state arena and cancels
// every pending effect-expiry callback so nothing fires against
// destroyed state.
func (e *Engine) Cleanup() {
	for id := range e.effects {
		e.deferrer.Remove(effectTask(id))
	}
	e.effects = make(map[string]*effect)
	e.states = make(map[int64]*AIState)
	e.pending = nil
}

// Update runs one synchronous tick over the roster, in roster order.
//
// Gate first: any blocking encounter flag, or a player who is neither
// acting nor charging, zeroes all NPC velocities and freezes every
// AIState untouched. Otherwise each live registered NPC runs perception →
// state machine → tactical policy → (cooldown-gated) attack emission.
func (e *Engine) Update(roster *combat.Roster, in TickInput) {
	if in.blocked() || (!in.PlayerActing && !in.PlayerCharging) {
		for _, npc := range roster.NPCs {
			npc.VX, npc.VY = 0, 0
		}
		return
	}

	e.clock += in.ElapsedMs
	e.stepEffects(roster, in.ElapsedMs)

	for _, npc := range roster.NPCs {
		st, ok := e.states[npc.ID]
		if !ok || !npc.Alive() {
			continue
		}
		st.decayCooldowns(in.ElapsedMs)

		target, dist, found := NearestTarget(npc, roster)
		if !found {
			npc.VX, npc.VY = 0, 0
			continue
		}
		st.TargetID = target.ID
		st.advance(npc.HealthFraction())

		if target.X >= npc.X {
			st.Direction = 1
		} else {
			st.Direction = -1
		}
		npc.Facing = int(st.Direction)

		dec := e.policyFor(st, in.PlayerCharging)(e, policyInput{
			st:       st,
			dist:     dist,
			charging: in.PlayerCharging,
		})
		npc.VX = dec.vx
		npc.VY = 0

		if dec.attack != attackNone && st.canAttack() {
			e.fire(npc, st, target, dec.attack, roster)
		}
	}
}

// policyFor resolves the (mode, capability) policy for this tick and
// layers the melee-strong pressure override on top during the player's
// charging window.
func (e *Engine) policyFor(st *AIState, charging bool) policyFunc {
	cap := capMelee
	if st.profile.RangedCapable(charging) {
		cap = capRanged
	}
	pol := policyTable[policyKey{st.Mode, cap}]
	if charging && cap == capRanged && st.profile.MeleeStrong {
		pol = pressurePolicy(pol)
	}
	return pol
}

// Drain returns the events collected since the last call and clears the
// buffer. The host scene translates them into sound/HUD/persistence.
func (e *Engine) Drain() []BattleEvent {
	ev := e.pending
	e.pending = nil
	return ev
}

func (e *Engine) emit(ev BattleEvent) {
	e.pending = append(e.pending, ev)
}

// StateOf returns a copy of an NPC's AIState for inspection. The copy
// shares nothing; external systems can never mutate engine state.
func (e *Engine) StateOf(id int64) (AIState, bool) {
	if st, ok := e.states[id]; ok {
		return *st, true
	}
	return AIState{}, false
}

// LiveEffects reports the number of in-flight hitboxes and projectiles.
func (e *Engine) LiveEffects() int {
	return len(e.effects)
}
