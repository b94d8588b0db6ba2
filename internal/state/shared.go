package state

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StartFunc starts an upstream stream. The returned channel is closed when
// the upstream ends; the returned func stops it.
type StartFunc[T any] func(ctx context.Context) (<-chan T, func())

// Shared is a reference-counted, cached stream over a single upstream.
type Shared[T any] struct {
	name   string
	cell   *Cell[T]
	start  StartFunc[T]
	grace  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	refs    int
	running bool
	closed  bool
	gen     uint64 // bumped on every upstream start and stop
	stop    func()
	timer   *time.Timer
	ready   chan struct{}
	loaded  bool
	armed   uint64 // identifies the armed timer; bumped when it is disarmed
	starts  int

	// onIdle, if set, runs without s.mu held after the last observer's
	// departure stops the upstream.
	onIdle func()
}

// NewShared creates a stream seeded with initial. Values equal to the cached
// one are not rebroadcast.
func NewShared[T any](name string, initial T, equal func(a, b T) bool, start StartFunc[T], grace time.Duration, logger *slog.Logger) *Shared[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shared[T]{
		name:   name,
		cell:   NewCell(initial, equal),
		start:  start,
		grace:  grace,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Observe attaches an observer, starting the upstream if it is not running
// and cancelling a pending grace-period teardown.
func (s *Shared[T]) Observe() *Observer[T] {
	s.mu.Lock()
	s.refs++
	if s.timer != nil {
		s.disarmLocked()
		s.logger.Debug("grace period cancelled", "query", s.name)
	}
	if !s.running && !s.closed {
		s.launchLocked()
	}
	s.mu.Unlock()

	return s.cell.observe(s.release, s.ready)
}

// Value returns the cached value without attaching.
func (s *Shared[T]) Value() T {
	return s.cell.Load()
}

// Running reports whether the upstream is active.
func (s *Shared[T]) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Starts returns how many times the upstream has been started.
func (s *Shared[T]) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Close stops the upstream for good. Attached observers keep their last
// value but receive nothing further.
func (s *Shared[T]) Close() {
	s.mu.Lock()
	s.closed = true
	stop := s.stopLocked()
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (s *Shared[T]) launchLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	ch, stopUpstream := s.start(ctx)

	s.gen++
	gen := s.gen
	s.running = true
	s.starts++
	s.stop = func() {
		cancel()
		stopUpstream()
	}
	s.logger.Debug("upstream started", "query", s.name)

	go s.pump(ch, gen)
}

// pump copies upstream values into the cache. Values from a stopped
// generation are dropped so a restart never sees an older state.
func (s *Shared[T]) pump(ch <-chan T, gen uint64) {
	for v := range ch {
		s.mu.Lock()
		if s.gen == gen {
			s.cell.Store(v)
			if !s.loaded {
				s.loaded = true
				close(s.ready)
			}
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.running {
		// Upstream ended on its own; the next observer restarts it.
		s.running = false
		s.stop = nil
		s.logger.Debug("upstream ended", "query", s.name)
	}
}

func (s *Shared[T]) release() {
	s.mu.Lock()
	s.refs--
	if s.refs > 0 {
		s.mu.Unlock()
		return
	}
	if !s.running {
		// The upstream already ended on its own.
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.idleNotify()
		}
		return
	}

	if s.grace <= 0 {
		stop := s.stopLocked()
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.idleNotify()
		return
	}

	s.armed++
	armed := s.armed
	s.timer = time.AfterFunc(s.grace, func() { s.expire(armed) })
	s.mu.Unlock()
}

// expire tears the upstream down if the timer that fired is still the armed
// one and nobody re-attached in the meantime.
func (s *Shared[T]) expire(armed uint64) {
	s.mu.Lock()
	if s.armed != armed || s.timer == nil || s.refs > 0 {
		s.mu.Unlock()
		return
	}
	stop := s.stopLocked()
	s.mu.Unlock()

	s.logger.Debug("grace period expired", "query", s.name)
	if stop != nil {
		stop()
	}
	s.idleNotify()
}

func (s *Shared[T]) idleNotify() {
	if s.onIdle != nil {
		s.onIdle()
	}
}

// idle reports whether nobody observes s and its upstream is stopped.
func (s *Shared[T]) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs == 0 && !s.running
}

// stopLocked detaches the running upstream and returns its stop func, which
// the caller runs after releasing s.mu.
func (s *Shared[T]) stopLocked() func() {
	if s.timer != nil {
		s.disarmLocked()
	}
	if !s.running {
		return nil
	}
	stop := s.stop
	s.stop = nil
	s.running = false
	s.gen++
	return stop
}

func (s *Shared[T]) disarmLocked() {
	s.timer.Stop()
	s.timer = nil
	s.armed++
}
