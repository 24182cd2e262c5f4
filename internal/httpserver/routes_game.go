// internal/httpserver/routes_game.go
//
// HTTP routes for game sessions.
//   - POST   /game/new           → create a session (preset, custom level, or daily board)
//   - GET    /game/{id}          → status + board view
//   - POST   /game/{id}/reveal   → reveal a cell; the first reveal starts the clock
//   - POST   /game/{id}/flag     → toggle a flag
//   - POST   /game/{id}/start    → start (no-op while running)
//   - POST   /game/{id}/stop     → stop
//   - POST   /game/{id}/restart  → restart with a fresh board
//   - POST   /game/{id}/timer    → start the clock explicitly
//   - POST   /game/{id}/level    → change level (normalized) and restart
//   - DELETE /game/{id}          → end the session
//   - GET    /games/mine         → recent finished games (signed in)
//   - GET    /game/{id}/events   → Server-Sent Events stream of changes
//
// Sessions created by a signed-in user can only be driven by that user.
// Daily sessions cannot be restarted or re-levelled; each one is a single attempt.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/auth"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/board"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/daily"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/game"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/level"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/store"
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Use(s.loadSession)
		r.Get("/", s.handleGetGame)
		r.Delete("/", s.handleDeleteGame)
		r.Post("/reveal", s.handleMove((*game.Controller).Reveal))
		r.Post("/flag", s.handleMove((*game.Controller).ToggleFlag))
		r.With(s.dailyLock(true)).Post("/start", s.handleAction((*game.Controller).Start))
		r.Post("/stop", s.handleAction((*game.Controller).Stop))
		r.With(s.dailyLock(false)).Post("/restart", s.handleAction((*game.Controller).Restart))
		r.Post("/timer", s.handleAction((*game.Controller).StartTimer))
		r.With(s.dailyLock(false)).Post("/level", s.handleSetLevel)
	})
}

// levelReq selects a level by preset name or explicit dimensions.
// Dimensions are normalized, never rejected.
type levelReq struct {
	Preset string `json:"preset"`
	Width  *int   `json:"width"`
	Height *int   `json:"height"`
	Mines  *int   `json:"mines"`
}

// resolve returns the requested level, or false if the preset is unknown.
// With no preset and no dimensions at all, absent is returned as is.
func (q levelReq) resolve(absent level.Level) (level.Level, bool) {
	if q.Preset != "" {
		return level.Lookup(strings.ToLower(q.Preset))
	}
	if q.Width == nil && q.Height == nil && q.Mines == nil {
		return absent, true
	}
	return level.Normalize(level.Level{Width: deref(q.Width), Height: deref(q.Height), Mines: deref(q.Mines)}), true
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

type newGameReq struct {
	levelReq
	Daily bool `json:"daily"`
}

type gameRes struct {
	GameID    string      `json:"gameId"`
	DailyDate string      `json:"dailyDate,omitempty"`
	Status    game.Status `json:"status"`
	Board     *board.View `json:"board,omitempty"`
}

type viewer interface{ View() board.View }

func sessionResponse(sess *store.Session) gameRes {
	res := gameRes{
		GameID:    sess.ID,
		DailyDate: sess.DailyDate,
		Status:    sess.Controller.Snapshot(),
	}
	if v, ok := sess.Controller.Board().(viewer); ok {
		bv := v.View()
		res.Board = &bv
	}
	return res
}

// handleNewGame creates a controller, sizes it, and starts watching it
// for results.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	// An empty body means a default beginner game.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	lvl, ok := req.resolve(level.Beginner)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_preset")
		return
	}

	var userID string
	if me := auth.FromContext(r.Context()); me != nil {
		userID = me.ID
	}
	sess, err := s.createSession(r.Context(), lvl, userID, req.Daily)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	c := sess.Controller

	hlog.FromRequest(r).Info().
		Str("gameId", sess.ID).
		Str("level", level.Name(c.Level())).
		Bool("daily", req.Daily).
		Msg("game created")
	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

// createSession builds a controller at lvl, stores it and starts recording
// its results. Daily sessions use today's seeded board.
func (s *Server) createSession(ctx context.Context, lvl level.Level, userID string, isDaily bool) (*store.Session, error) {
	factory := board.Factory()
	var dailyDate string
	if isDaily {
		dailyDate = daily.DateKey(s.now())
		factory = board.SeededFactory(daily.SeedForKey(dailyDate, s.cfg.DailySalt))
	}

	opts := append([]game.Option{
		game.WithBoardFactory(factory),
		game.WithLogger(s.logger),
	}, s.gameOpts...)
	c := game.New(opts...)
	if !c.IsLevel(lvl) {
		c.SetLevel(lvl)
	}

	sess := store.NewSession(c, userID, dailyDate)
	if err := s.store.Save(ctx, sess); err != nil {
		c.Stop()
		return nil, err
	}
	sess.OnClose(s.recorder.Watch(sess))
	return sess, nil
}

// dailyLock rejects transitions that would deal a daily board again.
// With whileRunning set the request passes as long as the game is Running,
// where the transition is a no-op.
func (s *Server) dailyLock(whileRunning bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromContext(r.Context())
			if sess.DailyDate != "" {
				if !whileRunning || sess.Controller.Snapshot().State != game.Running {
					writeError(w, http.StatusConflict, "daily_locked")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ctxSessionKey struct{}

// loadSession resolves {id} and enforces ownership.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessionFor(r)
		if err != nil {
			if errors.Is(err, errForbidden) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithSession(r.Context(), sess)))
	})
}

var errForbidden = errors.New("forbidden")

func contextWithSession(ctx context.Context, sess *store.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey{}, sess)
}

func sessionFromContext(ctx context.Context) *store.Session {
	sess, _ := ctx.Value(ctxSessionKey{}).(*store.Session)
	return sess
}

func (s *Server) sessionFor(r *http.Request) (*store.Session, error) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if sess.UserID != "" {
		me := auth.FromContext(r.Context())
		if me == nil || me.ID != sess.UserID {
			return nil, errForbidden
		}
	}
	return sess, nil
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse(sessionFromContext(r.Context())))
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if err := s.store.Delete(r.Context(), sess.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveReq struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// handleMove decodes {x, y} and applies move to the session's controller.
func (s *Server) handleMove(move func(*game.Controller, int, int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
			writeError(w, http.StatusBadRequest, "bad_move")
			return
		}
		sess := sessionFromContext(r.Context())
		if err := move(sess.Controller, *req.X, *req.Y); err != nil {
			switch {
			case errors.Is(err, game.ErrOutOfRange), errors.Is(err, board.ErrOutOfRange):
				writeError(w, http.StatusBadRequest, "out_of_range")
			case errors.Is(err, game.ErrNotRunning), errors.Is(err, board.ErrFinished):
				writeError(w, http.StatusConflict, "not_running")
			default:
				hlog.FromRequest(r).Error().Err(err).Str("gameId", sess.ID).Msg("apply move")
				writeError(w, http.StatusInternalServerError, "move_failed")
			}
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

// handleAction runs a no-argument controller transition.
func (s *Server) handleAction(action func(*game.Controller)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		action(sess.Controller)
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var req levelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	// Every field missing is the same request as all zeros.
	lvl, ok := req.resolve(level.Normalize(level.Level{}))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_preset")
		return
	}
	sess := sessionFromContext(r.Context())
	sess.Controller.SetLevel(lvl)
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleEvents streams controller changes as Server-Sent Events.
// The first event is the current snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		if errors.Is(err, errForbidden) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}

	changes := make(chan game.Change, 32)
	unsubscribe := sess.Controller.Subscribe(func(ch game.Change) {
		select {
		case changes <- ch:
		default:
			// Slow client; it will catch up on the next change.
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v any) bool {
		b, err := json.Marshal(v)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send("snapshot", sess.Controller.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case ch := <-changes:
			if !send("change", ch) {
				return
			}
		}
	}
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": level.Presets()})
}

// handleLeaderboard returns the fastest wins for ?level= (default beginner).
// ?date=today or ?date=YYYY-MM-DD selects a daily board.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("level")
	if name == "" {
		name = "beginner"
	}
	date := r.URL.Query().Get("date")
	if date == "today" {
		date = daily.DateKey(s.now())
	}
	rows, err := s.results.Leaderboard(r.Context(), name, date, 20)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": name, "date": date, "top": rows})
}
