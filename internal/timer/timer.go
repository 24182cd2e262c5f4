// internal/timer/timer.go
//
// Recurring tick scheduling for the game clock.
// Responsibilities:
//   - Scheduler: register a callback to run every interval, returning a Handle.
//   - Handle: idempotent, synchronous cancellation.
//   - Elapsed: whole seconds between two instants, rounded.
//
// Cancellation contract:
//   Once Cancel returns, no new invocation of the callback begins. An
//   invocation already in flight may still finish, so callers that mutate
//   shared state from the callback must also check, under their own lock,
//   that the handle is still current.

package timer

import (
	"math"
	"sync"
	"time"
)

// Interval is the tick period used by the game clock.
const Interval = time.Second

// Handle is a cancellable registration returned by a Scheduler.
type Handle interface {
	// Cancel stops future ticks. Safe to call more than once.
	Cancel()
}

// Scheduler runs fn every d until the returned Handle is cancelled.
type Scheduler interface {
	Every(d time.Duration, fn func()) Handle
}

// Clock returns the current instant. time.Now satisfies it.
type Clock func() time.Time

// Elapsed returns round((now-start)/1s), never negative.
func Elapsed(start, now time.Time) int {
	d := now.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds()))
}

// Real is a Scheduler backed by time.Ticker goroutines.
type Real struct{}

// NewReal returns the wall-clock scheduler.
func NewReal() Real { return Real{} }

// Every starts a goroutine that calls fn on each tick of a time.Ticker.
func (Real) Every(d time.Duration, fn func()) Handle {
	h := &realHandle{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go h.loop(fn)
	return h
}

type realHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (h *realHandle) loop(fn func()) {
	for {
		select {
		case <-h.done:
			return
		case <-h.ticker.C:
			// select picks randomly when both are ready.
			select {
			case <-h.done:
				return
			default:
			}
			fn()
		}
	}
}

func (h *realHandle) Cancel() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}
