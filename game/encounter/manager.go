package encounter

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiriha/wanderlight/server/config"
	"github.com/kiriha/wanderlight/server/game/battleai"
	"github.com/kiriha/wanderlight/server/game/combat"
	"github.com/kiriha/wanderlight/server/hook"
	"github.com/kiriha/wanderlight/server/pubsub"
	"github.com/kiriha/wanderlight/server/scheduler"
)

var ErrNotFound = errors.New("encounter not found")

// CombatantSpec describes one participant in a start request.
type CombatantSpec struct {
	Name      string           `json:"name"`
	Archetype combat.Archetype `json:"archetype"`
	Level     int              `json:"level"`
	MaxHP     int              `json:"max_hp"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
}

// StartRequest is the payload for spawning a new encounter.
type StartRequest struct {
	Player CombatantSpec   `json:"player"`
	Allies []CombatantSpec `json:"allies"`
	NPCs   []CombatantSpec `json:"npcs"`
	// Seed makes NPC defensive milling reproducible; zero means derive
	// one from the clock.
	Seed int64 `json:"seed,omitempty"`
}

// Manager owns the live encounter set, one scheduler ticker per
// encounter.
type Manager struct {
	mu         sync.RWMutex
	encounters map[string]*Encounter

	cfg    *config.Config
	sched  *scheduler.Scheduler
	bus    *pubsub.Bus
	hooks  *hook.Center
	logger *zap.Logger
}

// NewManager wires the encounter manager onto the shared infrastructure.
func NewManager(cfg *config.Config, sched *scheduler.Scheduler, bus *pubsub.Bus, hooks *hook.Center, logger *zap.Logger) *Manager {
	return &Manager{
		encounters: make(map[string]*Encounter),
		cfg:        cfg,
		sched:      sched,
		bus:        bus,
		hooks:      hooks,
		logger:     logger,
	}
}

func (m *Manager) engineConfig() battleai.Config {
	return battleai.Config{
		BaseSpeed:            m.cfg.Battle.BaseSpeed,
		AttackCooldownMs:     m.cfg.Battle.AttackCooldownMs,
		HitboxLifetimeMs:     m.cfg.Battle.HitboxLifetimeMs,
		ProjectileLifetimeMs: m.cfg.Battle.ProjectileLifetimeMs,
		ProjectileSpeed:      m.cfg.Battle.ProjectileSpeed,
		AggressivenessFactor: m.cfg.Difficulty.AggressivenessFactor,
	}
}

func buildCombatant(spec CombatantSpec) *combat.Combatant {
	level := spec.Level
	if level < 1 {
		level = 1
	}
	maxHP := spec.MaxHP
	if maxHP < 1 {
		maxHP = 100
	}
	return combat.NewCombatant(spec.Name, spec.Archetype, level, maxHP, spec.X, spec.Y)
}

// Start creates an encounter, registers its NPCs with a fresh engine, and
// begins ticking it on the shared scheduler.
func (m *Manager) Start(req StartRequest) (*Encounter, error) {
	if len(req.NPCs) == 0 {
		return nil, errors.New("encounter needs at least one npc")
	}

	roster := &combat.Roster{}
	roster.Player = buildCombatant(req.Player)
	roster.Player.IsPlayer = true
	for _, s := range req.Allies {
		roster.Allies = append(roster.Allies, buildCombatant(s))
	}
	for _, s := range req.NPCs {
		roster.NPCs = append(roster.NPCs, buildCombatant(s))
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	id := uuid.NewString()
	enc := newEncounter(id, roster, deps{
		engineCfg: m.engineConfig(),
		deferrer:  m.sched,
		bus:       m.bus,
		hooks:     m.hooks,
		logger:    m.logger,
		seed:      seed,
	})

	m.mu.Lock()
	m.encounters[id] = enc
	m.mu.Unlock()

	interval := m.cfg.Battle.TickInterval()
	m.sched.AddTicker(Channel(id), interval, func() {
		enc.Tick(interval)
	})
	m.hooks.Trigger(context.Background(), hook.OnEncounterStart, id)

	m.logger.Info("encounter started",
		zap.String("encounter_id", id),
		zap.Int("npcs", len(roster.NPCs)),
		zap.Int("allies", len(roster.Allies)))
	return enc, nil
}

// Get returns a live encounter by ID.
func (m *Manager) Get(id string) (*Encounter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	enc, ok := m.encounters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return enc, nil
}

// List returns the IDs of all live encounters, sorted for stable output.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.encounters))
	for id := range m.encounters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live encounters.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.encounters)
}

// End stops ticking and tears an encounter down.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	enc, ok := m.encounters[id]
	if ok {
		delete(m.encounters, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	m.sched.Remove(Channel(id))
	enc.Close()
	m.hooks.Trigger(context.Background(), hook.OnEncounterEnd, id)
	m.logger.Info("encounter ended", zap.String("encounter_id", id))
	return nil
}

// Shutdown ends every live encounter.
func (m *Manager) Shutdown() {
	for _, id := range m.List() {
		m.End(id)
	}
}
