// internal/httpserver/server.go
//
// HTTP server wiring for the Concentration backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/levels".
//   - Player endpoints (anonymous player cookie): /scores, /rounds/*, /ws.
//   - One session per player: round engine, display feed, best-score tracker.
//   - Idle sessions (no request and no open websocket for SESSION_TTL) are
//     swept: their round is abandoned so its timer stops, and the entry dropped.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Players are anonymous; identity is a signed cookie minted on first visit.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/clock"
	"github.com/robalobadob/concentration/internal/config"
	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/display"
	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/score"
	"github.com/robalobadob/concentration/internal/store"
)

// Server bundles router, player sessions, and the best-score store.
type Server struct {
	r        *chi.Mux
	cfg      *config.Config
	kv       store.KV
	validate *validator.Validate

	clock  clock.Clock
	sched  clock.Scheduler
	source func() deck.Source

	mu       sync.Mutex          // guards sessions, janitor and session activity fields
	sessions map[string]*session // keyed by player ID
	ttl      time.Duration
	janitor  clock.Handle // nil while there are no sessions
}

// session is the per-player game state.
type session struct {
	player string
	engine *game.Engine
	feed   *display.Feed
	scores *score.Tracker

	lastSeen time.Time
	conns    int // open websockets
}

const defaultSessionTTL = 30 * time.Minute

// Option customizes a Server (mostly for tests).
type Option func(*Server)

// WithClock replaces the wall clock and scheduler used by round engines.
func WithClock(c clock.Clock, s clock.Scheduler) Option {
	return func(srv *Server) { srv.clock, srv.sched = c, s }
}

// WithDeckSource sets the shuffle source factory, called once per player session.
func WithDeckSource(f func() deck.Source) Option {
	return func(srv *Server) { srv.source = f }
}

// New constructs a Server, installs middleware, and registers routes.
func New(kv store.KV, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg,
		kv:       kv,
		validate: validator.New(),
		clock:    clock.Real{},
		sched:    clock.Real{},
		source:   deck.NewSource,
		sessions: make(map[string]*session),
		ttl:      cfg.SessionTTL,
	}
	for _, o := range opts {
		o(s)
	}
	if s.ttl <= 0 {
		s.ttl = defaultSessionTTL
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)  // add X-Request-ID
	s.r.Use(chimw.RealIP)     // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)  // recover from panics
	s.r.Use(s.corsFromConfig) // credentials-friendly CORS
	s.r.Use(s.withPlayer)     // anonymous player identity

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "concentration-go",
			"endpoints": []string{"/health", "/levels", "/scores", "POST /rounds", "/rounds/current", "/ws"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/levels", s.handleLevels)

	// Request/response routes get a bounded handler time; /ws is long-lived.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Get("/scores", s.handleScores)
		s.mountRounds(r)
	})
	s.r.Get("/ws", s.handleWS)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Close abandons every live round and ends all display feeds.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		s.drop(id, sess)
	}
	s.stopJanitor()
}

// session returns the player's session, creating it on first use, and marks
// it as active.
func (s *Server) session(ctx context.Context, player string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[player]; ok {
		sess.lastSeen = s.clock.Now()
		return sess
	}

	tracker := score.NewTracker(ctx, store.Scoped(s.kv, player))
	feed := display.NewFeed(0)
	sess := &session{
		player: player,
		feed:   feed,
		scores: tracker,
		engine: game.NewEngine(game.Options{
			Display:       display.Multi{feed, display.NewLog(player)},
			Scores:        tracker,
			Clock:         s.clock,
			Scheduler:     s.sched,
			Source:        s.source(),
			MismatchDelay: s.cfg.MismatchDelay,
			TickInterval:  s.cfg.TickInterval,
		}),
	}
	sess.lastSeen = s.clock.Now()
	s.sessions[player] = sess
	if s.janitor == nil {
		s.janitor = s.sched.Every(sweepInterval(s.ttl), s.evictIdle)
	}
	log.Debug().Str("player", player).Msg("session created")
	return sess
}

// hold keeps sess alive while a websocket is open. The returned func
// releases it and counts as activity.
func (s *Server) hold(sess *session) func() {
	s.mu.Lock()
	sess.conns++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		sess.conns--
		sess.lastSeen = s.clock.Now()
		s.mu.Unlock()
	}
}

// evictIdle drops sessions idle for at least ttl. The janitor stops itself
// once no sessions remain.
func (s *Server) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	n := 0
	for id, sess := range s.sessions {
		if sess.conns > 0 || now.Sub(sess.lastSeen) < s.ttl {
			continue
		}
		s.drop(id, sess)
		n++
	}
	if n > 0 {
		log.Info().Int("evicted", n).Int("remaining", len(s.sessions)).Msg("idle sessions swept")
	}
	if len(s.sessions) == 0 {
		s.stopJanitor()
	}
}

// drop abandons the session's round and removes it. Caller holds s.mu.
func (s *Server) drop(id string, sess *session) {
	if r := sess.engine.Current(); r != nil {
		sess.engine.Abandon(r)
	}
	sess.feed.Close()
	delete(s.sessions, id)
}

// stopJanitor cancels the sweep. Caller holds s.mu.
func (s *Server) stopJanitor() {
	if s.janitor != nil {
		s.janitor.Cancel()
		s.janitor = nil
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if d := ttl / 2; d > time.Second {
		return d
	}
	return time.Second
}

// ----------------------------- middleware ----------------------------------

// corsFromConfig enables credentialed CORS for the configured client origin.
func (s *Server) corsFromConfig(next http.Handler) http.Handler {
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

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}
