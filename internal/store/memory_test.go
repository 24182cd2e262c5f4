package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/game"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/store"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/timer"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sched := timer.NewManual()
	s := store.NewSession(game.New(game.WithScheduler(sched)), "u1", "")
	if len(s.ID) != 16 {
		t.Fatalf("id %q, want 16 hex chars", s.ID)
	}

	if err := st.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Get(ctx, s.ID)
	if err != nil || got != s {
		t.Fatalf("get = %v, %v", got, err)
	}

	s.Controller.StartTimer()
	if err := st.Delete(ctx, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Get(ctx, s.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
	if s.Controller.Snapshot().State != game.Stopped || sched.Live() != 0 {
		t.Fatal("delete must stop the controller and its timer")
	}
	if err := st.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestDeleteRunsCloseHooksOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	s := store.NewSession(game.New(game.WithScheduler(timer.NewManual())), "", "")
	_ = st.Save(ctx, s)

	changes := 0
	unsubscribe := s.Controller.Subscribe(func(game.Change) { changes++ })
	closed := 0
	s.OnClose(func() {
		closed++
		unsubscribe()
	})

	if err := st.Delete(ctx, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if closed != 1 {
		t.Fatalf("close hooks ran %d times, want 1", closed)
	}
	seen := changes

	// The watcher is gone, so later transitions are not delivered.
	s.Controller.Restart()
	if changes != seen {
		t.Fatalf("subscriber saw %d changes after delete", changes-seen)
	}

	s.Close()
	_ = st.Delete(ctx, s.ID)
	if closed != 1 {
		t.Fatalf("close hooks ran %d times after repeat close", closed)
	}

	late := false
	s.OnClose(func() { late = true })
	if !late {
		t.Fatal("hook registered after close did not run")
	}
}
