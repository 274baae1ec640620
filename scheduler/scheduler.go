package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks.
type TaskFn func()

// Scheduler manages named periodic tickers (encounter tick loops) and
// cancellable one-shot delays (hitbox/projectile expiry callbacks).
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	delays  map[string]*time.Timer
	logger  *zap.Logger
	stopCh  chan struct{}
}

type tickerEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		delays:  make(map[string]*time.Timer),
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// AddTicker registers a task to run on a fixed interval. A task with the
// same name replaces the old one.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tickers[name]; ok {
		close(old.stopCh)
		delete(s.tickers, name)
	}

	entry := &tickerEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	s.tickers[name] = entry

	go func() {
		for {
			select {
			case <-entry.ticker.C:
				s.run(name, fn)
			case <-entry.stopCh:
				entry.ticker.Stop()
				return
			case <-s.stopCh:
				entry.ticker.Stop()
				return
			}
		}
	}()
	s.logger.Debug("ticker registered", zap.String("name", name), zap.Duration("interval", interval))
}

// AddDelay runs fn once after the given delay. The task can be cancelled
// with Remove until it fires; a same-named pending delay is replaced.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.delays[name]; ok {
		old.Stop()
	}
	s.delays[name] = time.AfterFunc(delay, func() {
		defer func() {
			s.mu.Lock()
			delete(s.delays, name)
			s.mu.Unlock()
		}()
		s.run(name, fn)
	})
}

// run executes a task, recovering panics so one bad tick never kills the
// scheduler goroutine.
func (s *Scheduler) run(name string, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	fn()
}

// Remove stops and removes a ticker or pending delay by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		close(entry.stopCh)
		delete(s.tickers, name)
	}
	if t, ok := s.delays[name]; ok {
		t.Stop()
		delete(s.delays, name)
	}
}

// Stop stops all tasks.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.delays {
		t.Stop()
		delete(s.delays, name)
	}
}

// ListTickers returns the names of all registered ticker tasks.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	return names
}

// PendingDelays returns the number of delay tasks not yet fired.
func (s *Scheduler) PendingDelays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}
