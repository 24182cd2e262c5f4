// internal/game/controller.go
//
// Session controller for a single minesweeper game.
// Responsibilities:
//   - Own the run state machine: stopped → running → won/failed.
//   - Own the current board and replace it on every start/restart.
//   - Run the elapsed-seconds clock, recomputed from the start instant on
//     every tick so late ticks never accumulate drift.
//   - Normalize and store the difficulty level.
//   - Notify subscribers of observable changes.
//
// Notes:
//   - All methods are safe for concurrent use; a single mutex guards state.
//   - Each board gets a Reporter bound to its generation. Win/Fail from a
//     stale board are dropped.
//   - Timer ticks carry the id of the registration that scheduled them and
//     are dropped once stop() has invalidated that id.

package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/level"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/timer"
)

// Controller is the state machine for one game session.
type Controller struct {
	mu           sync.Mutex
	state        State
	elapsed      int
	timerRunning bool
	startTime    time.Time
	level        level.Level
	board        Board
	generation   uint64
	handle       timer.Handle
	timerID      uint64

	newBoard BoardFactory
	sched    timer.Scheduler
	now      timer.Clock
	log      zerolog.Logger

	// notifyMu is taken before mu is released so deliveries keep the order
	// of the mutations that produced them.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[int]func(Change)
	nextSub  int
}

// Option configures a Controller.
type Option func(*Controller)

// WithBoardFactory sets how boards are built.
func WithBoardFactory(f BoardFactory) Option {
	return func(c *Controller) { c.newBoard = f }
}

// WithScheduler replaces the wall-clock tick scheduler.
func WithScheduler(s timer.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithClock replaces time.Now.
func WithClock(now timer.Clock) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger attaches a logger for transition events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New constructs a controller at the beginner level and starts a game.
func New(opts ...Option) *Controller {
	c := &Controller{
		state:    Stopped,
		level:    level.Beginner,
		newBoard: func(Reporter, int, int, int) Board { return nopBoard{} },
		sched:    timer.NewReal(),
		now:      time.Now,
		log:      zerolog.Nop(),
		subs:     make(map[int]func(Change)),
	}
	for _, o := range opts {
		o(c)
	}
	c.Start()
	return c
}

// Start begins a new game with a fresh board. No-op while running.
func (c *Controller) Start() { c.mutate(c.start) }

// Stop cancels the timer and moves to Stopped.
func (c *Controller) Stop() { c.mutate(c.stop) }

// Restart stops and starts again; always ends Running.
func (c *Controller) Restart() {
	c.mutate(func() {
		c.stop()
		c.start()
	})
}

// Win ends the running game as won. No-op unless running.
func (c *Controller) Win() { c.mutate(func() { c.finish(c.generation, Won) }) }

// Fail ends the running game as failed. No-op unless running.
func (c *Controller) Fail() { c.mutate(func() { c.finish(c.generation, Failed) }) }

// StartTimer starts the elapsed-seconds clock, replacing any previous one.
// The input layer calls it on the player's first move.
func (c *Controller) StartTimer() { c.mutate(c.startTimer) }

// SetLevel normalizes candidate, stores it and restarts.
func (c *Controller) SetLevel(candidate level.Level) {
	c.mutate(func() {
		c.level = level.Normalize(candidate)
		c.stop()
		c.start()
	})
}

// IsLevel reports whether l equals the current level.
func (c *Controller) IsLevel(l level.Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level.Equal(l)
}

// Level returns the current level.
func (c *Controller) Level() level.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Board returns the current board.
func (c *Controller) Board() Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Reveal forwards a reveal to the current board, starting the timer on
// the first move. The board may report Win or Fail before Reveal returns.
func (c *Controller) Reveal(x, y int) error {
	b, err := c.prepareMove(x, y, true)
	if err != nil {
		return err
	}
	return b.Reveal(x, y)
}

// ToggleFlag forwards a flag toggle to the current board.
func (c *Controller) ToggleFlag(x, y int) error {
	b, err := c.prepareMove(x, y, false)
	if err != nil {
		return err
	}
	return b.ToggleFlag(x, y)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. Deliveries are serialized in mutation order; fn must
// not call back into the Controller and should hand slow work off.
func (c *Controller) Subscribe(fn func(Change)) (unsubscribe func()) {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

// ----------------------------- internals -----------------------------------

func (c *Controller) prepareMove(x, y int, starts bool) (Board, error) {
	var (
		b   Board
		err error
	)
	c.mutate(func() {
		if c.state != Running {
			err = ErrNotRunning
			return
		}
		if x < 0 || x >= c.level.Width || y < 0 || y >= c.level.Height {
			err = ErrOutOfRange
			return
		}
		if starts && !c.timerRunning {
			c.startTimer()
		}
		b = c.board
	})
	return b, err
}

// mutate runs fn under the lock and publishes a Change if anything
// observable moved.
func (c *Controller) mutate(fn func()) {
	c.mu.Lock()
	before := c.statusLocked()
	fn()
	after := c.statusLocked()
	changed := before.State != after.State ||
		before.ElapsedSeconds != after.ElapsedSeconds ||
		before.TimerRunning != after.TimerRunning ||
		before.Generation != after.Generation
	if !changed {
		c.mu.Unlock()
		return
	}
	if before.State != after.State {
		c.log.Debug().
			Str("from", before.State.String()).
			Str("to", after.State.String()).
			Uint64("generation", after.Generation).
			Msg("state change")
	}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	c.publish(Change{Status: after, Previous: before.State})
}

func (c *Controller) publish(ch Change) {
	c.subsMu.Lock()
	fns := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

func (c *Controller) statusLocked() Status {
	return Status{
		State:          c.state,
		ElapsedSeconds: c.elapsed,
		TimerRunning:   c.timerRunning,
		Level:          c.level,
		LevelName:      level.Name(c.level),
		Generation:     c.generation,
	}
}

func (c *Controller) start() {
	if c.state == Running {
		return
	}
	c.state = Running
	c.elapsed = 0
	c.generation++
	r := reporter{c: c, generation: c.generation}
	c.board = c.newBoard(r, c.level.Width, c.level.Height, c.level.Mines)
}

func (c *Controller) stop() {
	c.cancelTimer()
	c.timerRunning = false
	c.state = Stopped
}

func (c *Controller) finish(generation uint64, outcome State) {
	if generation != c.generation || c.state != Running {
		return
	}
	c.stop()
	c.state = outcome
}

func (c *Controller) startTimer() {
	if c.state != Running {
		return
	}
	c.cancelTimer()
	c.startTime = c.now()
	c.timerRunning = true
	id := c.timerID
	c.handle = c.sched.Every(timer.Interval, func() { c.tick(id) })
}

// cancelTimer cancels the live handle and invalidates any tick already
// queued for it.
func (c *Controller) cancelTimer() {
	if c.handle != nil {
		c.handle.Cancel()
		c.handle = nil
	}
	c.timerID++
}

func (c *Controller) tick(id uint64) {
	c.mutate(func() {
		if id != c.timerID || !c.timerRunning {
			return
		}
		c.elapsed = timer.Elapsed(c.startTime, c.now())
	})
}

// reporter binds Win/Fail to the board generation it was issued for.
type reporter struct {
	c          *Controller
	generation uint64
}

func (r reporter) Win()  { r.c.mutate(func() { r.c.finish(r.generation, Won) }) }
func (r reporter) Fail() { r.c.mutate(func() { r.c.finish(r.generation, Failed) }) }

type nopBoard struct{}

func (nopBoard) Reveal(int, int) error     { return nil }
func (nopBoard) ToggleFlag(int, int) error { return nil }
