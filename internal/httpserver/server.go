// internal/httpserver/server.go
//
// HTTP server wiring for the minesweeper backend.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, CORS, timeouts, panic recovery).
//   - Public endpoints: "/", "/health", "/levels", "/leaderboard".
//   - Game endpoints (optional auth): mounted under /game.
//   - Daily board endpoints: mounted under /daily.
//   - Auth + stats endpoints: /auth/*, /stats/me.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The event stream route sits outside the timeout group so it can stay open.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/auth"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/config"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/game"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/results"
	"github.com/robalobadob/minesweeper/apps/go-server/internal/store"
)

// Server bundles the router, session store and persistence.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	store    store.Store
	results  *results.Store
	recorder *results.Recorder
	auth     *auth.Service
	logger   zerolog.Logger

	gameOpts []game.Option
	now      func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithGameOptions appends options to every controller the server creates.
func WithGameOptions(opts ...game.Option) Option {
	return func(s *Server) { s.gameOpts = append(s.gameOpts, opts...) }
}

// WithClock replaces time.Now for daily date keys.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, opts ...Option) *Server {
	res := results.NewStore(db)
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg,
		store:    st,
		results:  res,
		recorder: results.NewRecorder(res),
		auth: auth.NewService(db, auth.Options{
			Secret:     []byte(cfg.JWTSecret),
			TTL:        time.Duration(cfg.JWTExpiresDays) * 24 * time.Hour,
			CookieName: cfg.CookieName,
			Secure:     cfg.Production(),
		}),
		logger: log.Logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(s.logger))
	s.r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.cors)
	s.r.Use(s.auth.Optional)

	// Long-lived stream; no timeout.
	s.r.Get("/game/{id}/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"minesweeper-go","endpoints":["/health","/levels","POST /game/new","/game/{id}","/leaderboard","POST /daily/new","/daily/leaderboard","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/levels", s.handleLevels)
		r.Get("/leaderboard", s.handleLeaderboard)

		s.mountGame(r)
		s.mountDaily(r)
		s.mountAuth(r)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found")
		})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Recorder exposes the results recorder (tests wait on it).
func (s *Server) Recorder() *results.Recorder { return s.recorder }

// ----------------------------- middleware ----------------------------------

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- helpers ------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
