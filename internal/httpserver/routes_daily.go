// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Board" mode.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start (or resume) today's seeded board
//   - GET  /daily/leaderboard → fastest daily wins for today (or ?date=)
//
// Signed-in users get one finished attempt per day per the results table;
// a running attempt is resumed. Guests always get a fresh session on
// the same board. Daily sessions refuse restart and level changes.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/auth"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/daily"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/game"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/level"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/store"
)

// dailyServer tracks in-progress daily sessions per user and date.
type dailyServer struct {
	srv      *Server
	sessions map[string]string // userID|date|level → session ID
	mu       sync.Mutex
}

func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{srv: s, sessions: make(map[string]string)}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// dailyNewRes is returned by /daily/new. Played is set, with no game, when
// the caller already finished today's board.
type dailyNewRes struct {
	Date   string   `json:"date"`
	Played bool     `json:"played"`
	Game   *gameRes `json:"game,omitempty"`
}

func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	var req levelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	lvl, ok := req.resolve(level.Beginner)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_preset")
		return
	}
	date := daily.DateKey(d.srv.now())

	me := auth.FromContext(r.Context())
	if me == nil {
		d.create(w, r, lvl, "", date)
		return
	}

	played, err := d.srv.results.DailyPlayed(r.Context(), me.ID, date, level.Name(lvl))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("daily played")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	key := me.ID + "|" + date + "|" + level.Name(lvl)
	d.mu.Lock()
	id, ok := d.sessions[key]
	d.mu.Unlock()
	if ok {
		if sess, err := d.srv.store.Get(r.Context(), id); err == nil && sess.Controller.Snapshot().State == game.Running {
			res := sessionResponse(sess)
			writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Game: &res})
			return
		}
	}
	if sess := d.create(w, r, lvl, me.ID, date); sess != nil {
		d.mu.Lock()
		d.sessions[key] = sess.ID
		d.mu.Unlock()
	}
}

func (d *dailyServer) create(w http.ResponseWriter, r *http.Request, lvl level.Level, userID, date string) *store.Session {
	sess, err := d.srv.createSession(r.Context(), lvl, userID, true)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save daily session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return nil
	}
	hlog.FromRequest(r).Info().Str("gameId", sess.ID).Str("date", date).Msg("daily game created")
	res := sessionResponse(sess)
	writeJSON(w, http.StatusCreated, dailyNewRes{Date: date, Game: &res})
	return sess
}

// handleLeaderboard returns the daily leaderboard for ?date= (default today)
// and ?level= (default beginner).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.now())
	}
	name := r.URL.Query().Get("level")
	if name == "" {
		name = level.Name(level.Beginner)
	}
	rows, err := d.srv.results.Leaderboard(r.Context(), name, date, 20)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "level": name, "top": rows})
}
