// Package testutil provides deterministic helpers for tests and scenarios.
package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first timestamp a MillisClock returns:
// 2024-01-15T09:00:00Z in milliseconds.
const DefaultEpoch int64 = 1705309200000

// MillisClock hands out deterministic, strictly increasing inspection
// timestamps in milliseconds since the epoch.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MillisClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	now   int64
}

// NewMillisClock creates a clock whose first Next() returns start and which
// advances by step on every call.
func NewMillisClock(start int64, step time.Duration) *MillisClock {
	ms := step.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	return &MillisClock{start: start, step: ms, now: start - ms}
}

// Next advances the clock and returns the new timestamp.
func (c *MillisClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Current returns the last timestamp handed out without advancing.
// Before the first Next() it is one step before start.
func (c *MillisClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock so the next call to Next() returns start again.
func (c *MillisClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start - c.step
}
