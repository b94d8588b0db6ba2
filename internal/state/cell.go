package state

import "sync"

// Cell holds the last known value of a stream and broadcasts changes to its
// observers. Storing a value equal to the current one is a no-op.
type Cell[T any] struct {
	mu        sync.Mutex
	value     T
	equal     func(a, b T) bool
	observers map[*Observer[T]]struct{}
}

// NewCell creates a cell seeded with initial. A nil equal func treats every
// store as a change.
func NewCell[T any](initial T, equal func(a, b T) bool) *Cell[T] {
	return &Cell[T]{
		value:     initial,
		equal:     equal,
		observers: make(map[*Observer[T]]struct{}),
	}
}

// Load returns the current value.
func (c *Cell[T]) Load() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Store replaces the value and notifies observers. It reports whether the
// value changed.
func (c *Cell[T]) Store(v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.equal != nil && c.equal(c.value, v) {
		return false
	}
	c.value = v
	for o := range c.observers {
		o.offer(v)
	}
	return true
}

// Observe attaches a new observer. Its Updates channel already holds the
// current value.
func (c *Cell[T]) Observe() *Observer[T] {
	return c.observe(nil, nil)
}

// closedReady is the Ready channel of observers whose value is always real.
var closedReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (c *Cell[T]) observe(onClose func(), ready <-chan struct{}) *Observer[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ready == nil {
		ready = closedReady
	}
	o := &Observer[T]{
		cell:    c,
		ch:      make(chan T, 1),
		onClose: onClose,
		ready:   ready,
		last:    c.value,
	}
	o.ch <- c.value
	c.observers[o] = struct{}{}
	return o
}

// Len returns the number of attached observers.
func (c *Cell[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

// Observer receives the values of a Cell until it is closed.
type Observer[T any] struct {
	cell    *Cell[T]
	ch      chan T
	onClose func()
	ready   <-chan struct{}
	once    sync.Once

	// last is guarded by cell.mu.
	last T
}

// Value returns the most recent value offered to this observer.
func (o *Observer[T]) Value() T {
	o.cell.mu.Lock()
	defer o.cell.mu.Unlock()
	return o.last
}

// Ready is closed once the observed stream holds a real result rather than
// its seed value. Plain cells are always ready.
func (o *Observer[T]) Ready() <-chan struct{} {
	return o.ready
}

// Updates delivers the value at attach time and then every change. A slow
// reader only misses intermediate values; the newest is always kept. The
// channel is closed by Close.
func (o *Observer[T]) Updates() <-chan T {
	return o.ch
}

// Close detaches the observer. Nothing is delivered after Close returns.
// Safe to call more than once.
func (o *Observer[T]) Close() {
	o.once.Do(func() {
		o.cell.mu.Lock()
		delete(o.cell.observers, o)
		close(o.ch)
		o.cell.mu.Unlock()

		if o.onClose != nil {
			o.onClose()
		}
	})
}

// offer replaces any unread value with v. Called with cell.mu held, so the
// cell is the only sender.
func (o *Observer[T]) offer(v T) {
	o.last = v
	for {
		select {
		case o.ch <- v:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}
