package store

import (
	"sync"
	"sync/atomic"
)

// changeFeed fans a "table changed" signal out to every subscriber.
//
// Each subscriber owns a channel with a buffer of 1. Publishing never blocks:
// a pending signal absorbs later ones, so a slow subscriber sees one wakeup
// for any number of commits and re-reads the latest state.
type changeFeed struct {
	mu      sync.Mutex
	subs    map[uint64]chan struct{}
	nextID  uint64
	closed  bool
	version atomic.Int64
}

func newChangeFeed() *changeFeed {
	return &changeFeed{subs: make(map[uint64]chan struct{})}
}

// subscribe registers a new signal channel. The returned func unregisters it
// and is safe to call more than once.
func (f *changeFeed) subscribe() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan struct{}, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

// publish records a change and wakes every subscriber.
func (f *changeFeed) publish() {
	f.version.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		// Non-blocking - buffer of 1 coalesces multiple signals
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// close ends every subscription by closing its channel.
func (f *changeFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

func (f *changeFeed) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Changes subscribes to table changes. The channel receives a signal after
// every committed insert (coalesced while unread) and is closed when the
// subscription is cancelled or the store is closed.
func (s *Store) Changes() (<-chan struct{}, func()) {
	return s.feed.subscribe()
}

// Version returns the number of changes published since the store was opened.
func (s *Store) Version() int64 {
	return s.feed.version.Load()
}

// NotifyChanged signals subscribers that the table may have changed outside
// this process, forcing live queries to re-evaluate.
func (s *Store) NotifyChanged() {
	s.feed.publish()
}
