// internal/results/store.go
//
// Persistence for finished games.
// Exposes:
//   - Record:      insert one won/failed game (idempotent per session+generation).
//   - Leaderboard: fastest wins for a level, optionally for one daily date.
//   - DailyPlayed: whether a user already finished a daily board.
//   - UserStats:   per-user totals and best times.
//   - Recent:      a user's latest finished games.

package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcomes stored in the results table.
const (
	OutcomeWon    = "won"
	OutcomeFailed = "failed"
)

// Result is one finished game.
type Result struct {
	SessionID      string    `json:"sessionId"`
	Generation     uint64    `json:"generation"`
	UserID         string    `json:"userId,omitempty"`
	Level          string    `json:"level"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	Mines          int       `json:"mines"`
	Outcome        string    `json:"outcome"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	DailyDate      string    `json:"dailyDate,omitempty"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// LBRow is one leaderboard entry.
type LBRow struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	FinishedAt     string `json:"finishedAt"`
}

// Stats summarizes a user's results.
type Stats struct {
	GamesPlayed int            `json:"gamesPlayed"`
	Wins        int            `json:"wins"`
	Losses      int            `json:"losses"`
	BestSeconds map[string]int `json:"bestSeconds"` // fastest win per level name
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Record inserts r. A second record for the same session and generation is
// ignored.
func (s *Store) Record(ctx context.Context, r Result) error {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	var user any
	if r.UserID != "" {
		user = r.UserID
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO results
            (session_id, generation, user_id, level, width, height, mines,
             outcome, elapsed_seconds, daily_date, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Generation, user, r.Level, r.Width, r.Height, r.Mines,
		r.Outcome, r.ElapsedSeconds, r.DailyDate, r.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// DailyPlayed reports whether userID already finished the daily board for
// date at the named level.
func (s *Store) DailyPlayed(ctx context.Context, userID, date, level string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM results WHERE user_id = ? AND daily_date = ? AND level = ?`,
		userID, date, level,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("daily played: %w", err)
	}
	return n > 0, nil
}

// Leaderboard returns the fastest signed-in wins for a level.
//
//   - dailyDate "" ranks casual games only; otherwise that day's daily board.
//   - On a daily board only each user's first finished attempt counts.
//   - Ordered by elapsed seconds ASC, then finish time ASC.
//   - Default limit is 20 if not specified.
func (s *Store) Leaderboard(ctx context.Context, level, dailyDate string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.user_id, u.username, r.elapsed_seconds, r.finished_at
        FROM results r
        JOIN users u ON u.id = r.user_id
        WHERE r.level = ? AND r.daily_date = ? AND r.outcome = 'won'
          AND (r.daily_date = '' OR NOT EXISTS (
                SELECT 1 FROM results p
                WHERE p.user_id = r.user_id
                  AND p.daily_date = r.daily_date
                  AND p.level = r.level
                  AND (p.finished_at < r.finished_at
                       OR (p.finished_at = r.finished_at AND p.id < r.id))))
        ORDER BY r.elapsed_seconds ASC, r.finished_at ASC
        LIMIT ?`, level, dailyDate, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.ElapsedSeconds, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UserStats aggregates every result recorded for userID.
func (s *Store) UserStats(ctx context.Context, userID string) (Stats, error) {
	st := Stats{BestSeconds: map[string]int{}}
	rows, err := s.db.QueryContext(ctx, `
        SELECT level,
               COUNT(1),
               SUM(CASE WHEN outcome = 'won' THEN 1 ELSE 0 END),
               MIN(CASE WHEN outcome = 'won' THEN elapsed_seconds END)
        FROM results
        WHERE user_id = ?
        GROUP BY level`, userID,
	)
	if err != nil {
		return st, fmt.Errorf("user stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			level       string
			played, won int
			best        sql.NullInt64
		)
		if err := rows.Scan(&level, &played, &won, &best); err != nil {
			return st, err
		}
		st.GamesPlayed += played
		st.Wins += won
		if best.Valid {
			st.BestSeconds[level] = int(best.Int64)
		}
	}
	st.Losses = st.GamesPlayed - st.Wins
	return st, rows.Err()
}

// Recent returns userID's latest finished games, newest first.
// Default limit is 50 if not specified.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT session_id, generation, level, width, height, mines,
               outcome, elapsed_seconds, daily_date, finished_at
        FROM results
        WHERE user_id = ?
        ORDER BY finished_at DESC, id DESC
        LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var (
			r        Result
			finished string
		)
		if err := rows.Scan(&r.SessionID, &r.Generation, &r.Level, &r.Width, &r.Height, &r.Mines,
			&r.Outcome, &r.ElapsedSeconds, &r.DailyDate, &finished); err != nil {
			return nil, err
		}
		r.UserID = userID
		if t, err := time.Parse(time.RFC3339, finished); err == nil {
			r.FinishedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
