package encounter

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/game/battleai"
	"github.com/kiriha/wanderlight/server/game/combat"
	"github.com/kiriha/wanderlight/server/hook"
	"github.com/kiriha/wanderlight/server/pubsub"
)

// Flags are the encounter-level UI flags the host scene raises. Any of
// dialogue/selection/victory, or the turn not being the player's, freezes
// the AI engine for the tick.
type Flags struct {
	Dialogue   bool `json:"dialogue"`
	Selection  bool `json:"selection"`
	Victory    bool `json:"victory"`
	PlayerTurn bool `json:"player_turn"`
}

// Encounter is one live battle scene: a roster, its engine instance, and
// the event plumbing around them. All access is serialized on mu; the
// engine itself is single-threaded by construction.
type Encounter struct {
	ID string

	mu             sync.Mutex
	roster         *combat.Roster
	flags          Flags
	playerActing   bool
	playerCharging bool
	engine         *battleai.Engine
	closed         bool
	startedAt      time.Time

	deferrer battleai.Deferrer
	bus      *pubsub.Bus
	hooks    *hook.Center
	logger   *zap.Logger
}

type deps struct {
	engineCfg battleai.Config
	deferrer  battleai.Deferrer
	bus       *pubsub.Bus
	hooks     *hook.Center
	logger    *zap.Logger
	seed      int64
}

func newEncounter(id string, roster *combat.Roster, d deps) *Encounter {
	enc := &Encounter{
		ID:        id,
		roster:    roster,
		flags:     Flags{PlayerTurn: true},
		deferrer:  d.deferrer,
		bus:       d.bus,
		hooks:     d.hooks,
		logger:    d.logger.With(zap.String("encounter_id", id)),
		startedAt: time.Now(),
	}
	rng := rand.New(rand.NewSource(d.seed))
	enc.engine = battleai.NewEngine(d.engineCfg, rng, enc, enc.logger)
	for _, npc := range roster.NPCs {
		enc.engine.InitEnemy(npc, combat.ProfileFor(npc.Archetype))
	}
	return enc
}

// AddDelay implements battleai.Deferrer on top of the shared scheduler,
// namespacing task names per encounter and re-taking the encounter lock
// around the callback so expiry never races a tick.
func (e *Encounter) AddDelay(name string, delay time.Duration, fn func()) {
	if e.deferrer == nil {
		return
	}
	e.deferrer.AddDelay(e.ID+":"+name, delay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		fn()
	})
}

// Remove implements battleai.Deferrer.
func (e *Encounter) Remove(name string) {
	if e.deferrer != nil {
		e.deferrer.Remove(e.ID + ":" + name)
	}
}

// Tick advances the encounter by one scheduler interval.
func (e *Encounter) Tick(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	in := battleai.TickInput{
		ElapsedMs:       float64(elapsed.Milliseconds()),
		PlayerActing:    e.playerActing,
		PlayerCharging:  e.playerCharging,
		DialogueActive:  e.flags.Dialogue,
		SelectionActive: e.flags.Selection,
		VictoryActive:   e.flags.Victory,
		PlayerTurn:      e.flags.PlayerTurn,
	}
	e.engine.Update(e.roster, in)
	e.dispatch(e.engine.Drain())
}

// dispatch applies scene-side consequences of engine events, triggers
// hooks, and publishes every event to the encounter's pubsub channel.
// Caller holds mu.
func (e *Encounter) dispatch(events []battleai.BattleEvent) {
	ctx := context.Background()
	for _, ev := range events {
		switch v := ev.(type) {
		case battleai.EventAttack:
			e.hooks.Trigger(ctx, hook.OnAttack, v)
		case battleai.EventDamage:
			e.hooks.Trigger(ctx, hook.AfterDamageApply, v)
		case battleai.EventDefeat:
			e.handleDefeat(ctx, v)
		}
		e.publish(ev.EventType(), ev)
	}
}

// handleDefeat translates an engine defeat into scene state. A downed
// player stays in the roster (untargetable); a downed ally is removed
// from play.
func (e *Encounter) handleDefeat(ctx context.Context, ev battleai.EventDefeat) {
	c := e.roster.FindByID(ev.VictimID)
	if c == nil {
		return
	}
	if c.IsPlayer {
		c.Downed = true
		e.hooks.Trigger(ctx, hook.OnPlayerDown, ev)
	} else {
		c.Active = false
	}
	e.hooks.Trigger(ctx, hook.OnDefeat, ev)
	e.logger.Info("combatant defeated",
		zap.Int64("id", ev.VictimID),
		zap.String("name", ev.Name))
}

type eventEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// publish serializes one event onto the encounter channel. Marshal
// failures are logged and dropped; the battle must not stall on a
// misbehaving consumer.
func (e *Encounter) publish(kind string, data interface{}) {
	if e.bus == nil {
		return
	}
	raw, err := json.Marshal(eventEnvelope{Type: kind, Data: data})
	if err != nil {
		e.logger.Warn("event marshal failed", zap.String("type", kind), zap.Error(err))
		return
	}
	e.bus.Publish(context.Background(), Channel(e.ID), string(raw))
}

// Channel returns the pubsub channel name for an encounter's event stream.
func Channel(id string) string {
	return "encounter:" + id
}

// SetFlags replaces the encounter-level flags.
func (e *Encounter) SetFlags(f Flags) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flags.Victory != f.Victory && f.Victory {
		e.hooks.Trigger(context.Background(), hook.OnEncounterEnd, e.ID)
	}
	e.flags = f
	e.publish("flags", f)
}

// SetPlayerAction records the player's current input state for the next
// activation-gate evaluation.
func (e *Encounter) SetPlayerAction(acting, charging bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playerActing = acting
	e.playerCharging = charging
}

// MovePlayer teleports the player combatant. Position is scene-owned;
// the engine only ever reads it.
func (e *Encounter) MovePlayer(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.roster.Player != nil {
		e.roster.Player.X = x
		e.roster.Player.Y = y
	}
}

// InjectDamage applies player-sourced damage to an NPC. The amount flows
// through the BeforeDamageApply hook first, so plugins can scale or veto
// it (ErrInterrupt vetoes).
func (e *Encounter) InjectDamage(targetID int64, amount int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	target := e.roster.FindByID(targetID)
	if target == nil || !target.Alive() || target.IsPlayer {
		return 0, false
	}

	ctx := context.Background()
	out, err := e.hooks.Trigger(ctx, hook.BeforeDamageApply, amount)
	if err != nil {
		return 0, false
	}
	if v, ok := out.(int); ok {
		amount = v
	}
	if amount < 0 {
		amount = 0
	}

	target.HP -= amount
	if target.HP < 0 {
		target.HP = 0
	}
	e.engine.MarkAttacked(target)
	e.engine.OnDamageTaken(target, amount)

	dmg := battleai.EventDamage{
		VictimID: targetID,
		Amount:   amount,
		HPAfter:  target.HP,
		Kind:     "player",
	}
	e.hooks.Trigger(ctx, hook.AfterDamageApply, dmg)
	e.publish("damage", dmg)

	if target.HP == 0 {
		target.Active = false
		e.engine.RemoveEnemy(targetID)
		defeat := battleai.EventDefeat{VictimID: targetID, Name: target.Name}
		e.hooks.Trigger(ctx, hook.OnDefeat, defeat)
		e.publish("defeat", defeat)
		if e.victoryReached() {
			e.flags.Victory = true
			e.hooks.Trigger(ctx, hook.OnEncounterEnd, e.ID)
			e.publish("victory", e.ID)
		}
	}
	return amount, true
}

// victoryReached reports whether no NPC remains in fighting shape.
// Caller holds mu.
func (e *Encounter) victoryReached() bool {
	for _, npc := range e.roster.NPCs {
		if npc.Alive() {
			return false
		}
	}
	return true
}

// NPCState is the per-NPC slice of a snapshot.
type NPCState struct {
	Combatant *combat.Combatant `json:"combatant"`
	Mode      string            `json:"mode"`
	Panicking bool              `json:"panicking"`
	TargetID  int64             `json:"target_id"`
}

// Snapshot is a point-in-time serializable view of the encounter.
type Snapshot struct {
	ID          string              `json:"id"`
	Flags       Flags               `json:"flags"`
	Player      *combat.Combatant   `json:"player"`
	Allies      []*combat.Combatant `json:"allies"`
	NPCs        []NPCState          `json:"npcs"`
	LiveEffects int                 `json:"live_effects"`
	StartedAt   time.Time           `json:"started_at"`
}

// Snapshot returns a copy-out view for the REST surface. Combatant
// pointers are copied by value so callers cannot mutate scene state.
func (e *Encounter) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		ID:          e.ID,
		Flags:       e.flags,
		LiveEffects: e.engine.LiveEffects(),
		StartedAt:   e.startedAt,
	}
	if e.roster.Player != nil {
		p := *e.roster.Player
		snap.Player = &p
	}
	for _, a := range e.roster.Allies {
		c := *a
		snap.Allies = append(snap.Allies, &c)
	}
	for _, npc := range e.roster.NPCs {
		c := *npc
		ns := NPCState{Combatant: &c}
		if st, ok := e.engine.StateOf(npc.ID); ok {
			ns.Mode = st.Mode.String()
			ns.Panicking = st.Panicking
			ns.TargetID = st.TargetID
		}
		snap.NPCs = append(snap.NPCs, ns)
	}
	return snap
}

// Close tears the encounter down and cancels pending effect expiries.
func (e *Encounter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.engine.Cleanup()
	e.closed = true
}
