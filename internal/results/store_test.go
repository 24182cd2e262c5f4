package results_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/database"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/game"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/results"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/store"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/timer"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addUser(t *testing.T, db *sql.DB, id, name string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, name, "x", time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func TestLeaderboardOrdersFastestWins(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	addUser(t, db, "u1", "alice")
	addUser(t, db, "u2", "bob")
	st := results.NewStore(db)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []results.Result{
		{SessionID: "a", Generation: 1, UserID: "u1", Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 40, FinishedAt: base},
		{SessionID: "b", Generation: 1, UserID: "u2", Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 25, FinishedAt: base},
		{SessionID: "c", Generation: 1, UserID: "u2", Level: "beginner", Outcome: results.OutcomeFailed, ElapsedSeconds: 3, FinishedAt: base},
		{SessionID: "d", Generation: 1, UserID: "u1", Level: "expert", Outcome: results.OutcomeWon, ElapsedSeconds: 10, FinishedAt: base},
		{SessionID: "e", Generation: 1, UserID: "u1", Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 5, DailyDate: "2024-01-01", FinishedAt: base},
		{SessionID: "f", Generation: 1, Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 1, FinishedAt: base},
	}
	for _, r := range rows {
		if err := st.Record(ctx, r); err != nil {
			t.Fatalf("record %s: %v", r.SessionID, err)
		}
	}
	// Duplicate generation is ignored.
	if err := st.Record(ctx, rows[0]); err != nil {
		t.Fatalf("duplicate record: %v", err)
	}

	lb, err := st.Leaderboard(ctx, "beginner", "", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 2 || lb[0].Username != "bob" || lb[1].Username != "alice" {
		t.Fatalf("leaderboard = %+v", lb)
	}

	daily, err := st.Leaderboard(ctx, "beginner", "2024-01-01", 0)
	if err != nil {
		t.Fatalf("daily leaderboard: %v", err)
	}
	if len(daily) != 1 || daily[0].ElapsedSeconds != 5 {
		t.Fatalf("daily leaderboard = %+v", daily)
	}

	stats, err := st.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.GamesPlayed != 3 || stats.Wins != 3 || stats.Losses != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.BestSeconds["beginner"] != 5 || stats.BestSeconds["expert"] != 10 {
		t.Fatalf("best = %+v", stats.BestSeconds)
	}

	for _, tc := range []struct {
		user, date, level string
		want              bool
	}{
		{"u1", "2024-01-01", "beginner", true},
		{"u1", "2024-01-01", "expert", false},
		{"u1", "2024-01-02", "beginner", false},
		{"u2", "2024-01-01", "beginner", false},
	} {
		got, err := st.DailyPlayed(ctx, tc.user, tc.date, tc.level)
		if err != nil || got != tc.want {
			t.Errorf("DailyPlayed(%s, %s, %s) = %v, %v; want %v", tc.user, tc.date, tc.level, got, err, tc.want)
		}
	}

	bob, err := st.UserStats(ctx, "u2")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if bob.GamesPlayed != 2 || bob.Wins != 1 || bob.Losses != 1 {
		t.Fatalf("bob stats = %+v", bob)
	}
}

func TestRecorderPersistsTerminalStates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	addUser(t, db, "u1", "alice")
	st := results.NewStore(db)
	rec := results.NewRecorder(st)

	sched := timer.NewManual()
	clock := timer.NewFakeClock(time.Unix(0, 0))
	c := game.New(game.WithScheduler(sched), game.WithClock(clock.Now))
	sess := store.NewSession(c, "u1", "")
	stop := rec.Watch(sess)
	defer stop()

	c.StartTimer()
	clock.Advance(7 * time.Second)
	sched.Tick()
	c.Win()
	c.Win() // ignored, not running
	c.Restart()
	c.Fail()
	rec.Wait()

	stats, err := st.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.GamesPlayed != 2 || stats.Wins != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.BestSeconds["beginner"] != 7 {
		t.Fatalf("best = %+v, want beginner=7", stats.BestSeconds)
	}
}

func TestDailyLeaderboardCountsFirstAttempt(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	addUser(t, db, "u1", "alice")
	addUser(t, db, "u2", "bob")
	st := results.NewStore(db)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rows := []results.Result{
		{SessionID: "a", Generation: 1, UserID: "u1", Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 30, DailyDate: "2024-06-01", FinishedAt: base},
		{SessionID: "a", Generation: 2, UserID: "u1", Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 4, DailyDate: "2024-06-01", FinishedAt: base.Add(time.Hour)},
		{SessionID: "b", Generation: 1, UserID: "u2", Level: "beginner", Outcome: results.OutcomeFailed, ElapsedSeconds: 2, DailyDate: "2024-06-01", FinishedAt: base},
		{SessionID: "b", Generation: 2, UserID: "u2", Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 3, DailyDate: "2024-06-01", FinishedAt: base.Add(time.Minute)},
		{SessionID: "c", Generation: 1, UserID: "u1", Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 9, FinishedAt: base},
		{SessionID: "c", Generation: 2, UserID: "u1", Level: "beginner", Outcome: results.OutcomeWon, ElapsedSeconds: 8, FinishedAt: base.Add(time.Minute)},
	}
	for _, r := range rows {
		if err := st.Record(ctx, r); err != nil {
			t.Fatalf("record %s/%d: %v", r.SessionID, r.Generation, err)
		}
	}

	lb, err := st.Leaderboard(ctx, "beginner", "2024-06-01", 0)
	if err != nil {
		t.Fatalf("daily leaderboard: %v", err)
	}
	if len(lb) != 1 || lb[0].Username != "alice" || lb[0].ElapsedSeconds != 30 {
		t.Fatalf("daily leaderboard = %+v", lb)
	}

	// Casual games keep every win.
	casual, err := st.Leaderboard(ctx, "beginner", "", 0)
	if err != nil || len(casual) != 2 {
		t.Fatalf("casual leaderboard = %+v, %v", casual, err)
	}

	recent, err := st.Recent(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 || recent[0].SessionID != "a" || recent[0].Generation != 2 {
		t.Fatalf("recent = %+v", recent)
	}
	if !recent[0].FinishedAt.Equal(base.Add(time.Hour)) || recent[0].UserID != "u1" {
		t.Fatalf("recent[0] = %+v", recent[0])
	}
	if none, err := st.Recent(ctx, "nobody", 0); err != nil || len(none) != 0 {
		t.Fatalf("recent for unknown user = %+v, %v", none, err)
	}
}
