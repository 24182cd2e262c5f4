package results

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/game"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/store"
)

// Recorder persists a Result each time a watched session reaches Won or Failed.
type Recorder struct {
	store   *Store
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRecorder(s *Store) *Recorder {
	return &Recorder{store: s, timeout: 5 * time.Second}
}

// Watch subscribes to the session's controller. The returned function
// stops watching.
func (r *Recorder) Watch(sess *store.Session) (stop func()) {
	return sess.Controller.Subscribe(func(ch game.Change) {
		if !ch.StateChanged() || !ch.State.Terminal() {
			return
		}
		res := Result{
			SessionID:      sess.ID,
			Generation:     ch.Generation,
			UserID:         sess.UserID,
			Level:          ch.LevelName,
			Width:          ch.Level.Width,
			Height:         ch.Level.Height,
			Mines:          ch.Level.Mines,
			Outcome:        OutcomeFailed,
			ElapsedSeconds: ch.ElapsedSeconds,
			DailyDate:      sess.DailyDate,
			FinishedAt:     time.Now(),
		}
		if ch.State == game.Won {
			res.Outcome = OutcomeWon
		}
		// Subscribers must not block the controller.
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if err := r.store.Record(ctx, res); err != nil {
				log.Warn().Err(err).Str("session", res.SessionID).Msg("record result")
			}
		}()
	})
}

// Wait blocks until in-flight writes finish.
func (r *Recorder) Wait() { r.wg.Wait() }
