package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/auth"
)

// credentialsReq is the payload for signup and login.
type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuth registers /auth/* and the gated /stats/me and /games/mine routes.
func (s *Server) mountAuth(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Required)
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, auth.FromContext(r.Context()))
		})
		r.Get("/stats/me", s.handleMyStats)
		r.Get("/games/mine", s.handleMyGames)
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.auth.Signup(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username_taken")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.issueToken(w, r, u, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	s.issueToken(w, r, u, http.StatusOK)
}

// issueToken signs a JWT, sets the auth cookie and returns the user and token.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, u *auth.User, status int) {
	tok, exp, err := s.auth.Sign(u)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.auth.SetCookie(w, tok, exp)
	writeJSON(w, status, map[string]any{"user": u, "token": tok})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	st, err := s.results.UserStats(r.Context(), me.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("user", me.ID).Msg("user stats")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleMyGames lists the caller's most recent finished games.
func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	games, err := s.results.Recent(r.Context(), me.ID, 50)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("user", me.ID).Msg("recent games")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, games)
}
