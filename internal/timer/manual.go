package timer

import (
	"sync"
	"time"
)

// Manual is a deterministic Scheduler. Nothing fires until Tick is called.
type Manual struct {
	mu      sync.Mutex
	handles []*manualHandle
}

// NewManual returns an empty manual scheduler.
func NewManual() *Manual { return &Manual{} }

// Every registers fn. The interval is recorded but not used.
func (m *Manual) Every(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &manualHandle{fn: fn, interval: d}
	m.handles = append(m.handles, h)
	return h
}

// Tick fires every live registration once, in registration order.
func (m *Manual) Tick() {
	for _, h := range m.live() {
		h.fire()
	}
}

// Live reports how many registrations have not been cancelled.
func (m *Manual) Live() int {
	return len(m.live())
}

// Registered reports how many registrations were ever made.
func (m *Manual) Registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

func (m *Manual) live() []*manualHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*manualHandle, 0, len(m.handles))
	for _, h := range m.handles {
		if !h.isCancelled() {
			out = append(out, h)
		}
	}
	return out
}

type manualHandle struct {
	fn       func()
	interval time.Duration

	mu        sync.Mutex
	cancelled bool
}

func (h *manualHandle) fire() {
	if h.isCancelled() {
		return
	}
	h.fn()
}

func (h *manualHandle) isCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

func (h *manualHandle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
}

// FakeClock is a settable Clock for tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts the clock at t.
func NewFakeClock(t time.Time) *FakeClock { return &FakeClock{now: t} }

// Now returns the current fake instant.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
