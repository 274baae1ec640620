package hook

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrInterrupt signals that a Hook handler wants to stop further processing.
var ErrInterrupt = errors.New("hook interrupted")

// HookFn is a hook handler function.
// Returns (modified data, nil) to continue, or (data, ErrInterrupt) to stop.
type HookFn func(ctx context.Context, event string, data interface{}) (interface{}, error)

type hookEntry struct {
	priority int
	fn       HookFn
	name     string
}

// Center manages event hook registrations.
type Center struct {
	mu    sync.RWMutex
	hooks map[string][]*hookEntry
}

// NewCenter creates a new Center.
func NewCenter() *Center {
	return &Center{hooks: make(map[string][]*hookEntry)}
}

// Register adds a HookFn for the given event with the given priority (lower runs first).
// name is used for Unregister.
func (c *Center) Register(event string, priority int, name string, fn HookFn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.hooks[event]
	entries = append(entries, &hookEntry{priority: priority, fn: fn, name: name})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	c.hooks[event] = entries
}

// Unregister removes all hooks with the given name for the given event.
func (c *Center) Unregister(event, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.hooks[event]
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	c.hooks[event] = entries[:n]
}

// UnregisterAll removes all hooks registered with the given name across all events.
func (c *Center) UnregisterAll(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for event, entries := range c.hooks {
		n := 0
		for _, e := range entries {
			if e.name != name {
				entries[n] = e
				n++
			}
		}
		c.hooks[event] = entries[:n]
	}
}

// Trigger executes all registered hooks for event in priority order.
// Data flows through each handler, allowing modification.
// If any handler returns ErrInterrupt, execution stops.
func (c *Center) Trigger(ctx context.Context, event string, data interface{}) (interface{}, error) {
	c.mu.RLock()
	entries := make([]*hookEntry, len(c.hooks[event]))
	copy(entries, c.hooks[event])
	c.mu.RUnlock()

	var err error
	for _, e := range entries {
		data, err = e.fn(ctx, event, data)
		if errors.Is(err, ErrInterrupt) {
			return data, err
		}
	}
	return data, nil
}

// Battle hook event names.
const (
	OnEncounterStart  = "on_encounter_start"
	OnEncounterEnd    = "on_encounter_end"
	OnAttack          = "on_attack"
	BeforeDamageApply = "before_damage_apply"
	AfterDamageApply  = "after_damage_apply"
	OnDefeat          = "on_defeat"
	OnModeChange      = "on_mode_change"
	OnPlayerDown      = "on_player_down"
)
