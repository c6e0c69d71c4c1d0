// internal/httpserver/routes_rounds.go
//
// HTTP routes for playing rounds. Each player has at most one current round.
//   - POST   /rounds               → start a round at {level}; {daily:true} uses the board of the day
//   - POST   /rounds/replay        → start again at the current round's level
//   - GET    /rounds/current       → snapshot of the current round
//   - POST   /rounds/current/flip  → flip card {index}
//   - DELETE /rounds/current       → abandon (back to start screen)
//
// Flip problems (bad index, card already up, two cards pending) are not HTTP
// errors; they come back as outcome "rejected".

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dailyboard "github.com/robalobadob/concentration/internal/daily"
	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/score"
)

// mountRounds registers all /rounds routes.
func (s *Server) mountRounds(r chi.Router) {
	r.Route("/rounds", func(r chi.Router) {
		r.Post("/", s.handleStartRound)
		r.Post("/replay", s.handleReplay)
		r.Get("/current", s.handleCurrent)
		r.Post("/current/flip", s.handleFlip)
		r.Delete("/current", s.handleAbandon)
	})
}

// startReq is the request payload for POST /rounds.
type startReq struct {
	Level int  `json:"level" validate:"required"`
	Daily bool `json:"daily"`
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := s.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	level, err := deck.ParseLevel(req.Level)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported_level")
		return
	}
	sess := s.session(r.Context(), playerFrom(r.Context()))
	round, err := s.startRound(r.Context(), sess, level, req.Daily)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported_level")
		return
	}
	writeJSON(w, http.StatusCreated, sess.engine.Snapshot(round))
}

func (s *Server) startRound(ctx context.Context, sess *session, level deck.Level, daily bool) (*game.Round, error) {
	if daily {
		return sess.engine.StartSeeded(ctx, level, dailyboard.Source(s.clock.Now(), level, s.cfg.DailySalt))
	}
	return sess.engine.StartRound(ctx, level)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r.Context(), playerFrom(r.Context()))
	round, err := sess.engine.Replay(r.Context())
	if errors.Is(err, game.ErrNoRound) {
		writeError(w, http.StatusConflict, "no_round")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	writeJSON(w, http.StatusCreated, sess.engine.Snapshot(round))
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r.Context(), playerFrom(r.Context()))
	round := sess.engine.Current()
	if round == nil {
		writeError(w, http.StatusNotFound, "no_round")
		return
	}
	writeJSON(w, http.StatusOK, sess.engine.Snapshot(round))
}

// flipReq is the request payload for POST /rounds/current/flip.
type flipReq struct {
	Index *int `json:"index" validate:"required"`
}

// flipRes is the response payload for POST /rounds/current/flip.
type flipRes struct {
	Outcome      game.FlipOutcome       `json:"outcome"`
	Index        int                    `json:"index"`
	Symbol       deck.Symbol            `json:"symbol,omitempty"` // set once the card is face-up
	Moves        int                    `json:"moves"`
	MatchedPairs int                    `json:"matchedPairs"`
	Finished     bool                   `json:"finished"`
	Report       *game.CompletionReport `json:"report,omitempty"`
	Best         []score.Entry          `json:"best,omitempty"` // refreshed table once finished
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var req flipReq
	if err := s.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	sess := s.session(r.Context(), playerFrom(r.Context()))
	round := sess.engine.Current()
	if round == nil {
		writeError(w, http.StatusNotFound, "no_round")
		return
	}

	out := sess.engine.Flip(r.Context(), round, *req.Index)
	res := flipRes{
		Outcome:      out,
		Index:        *req.Index,
		Moves:        round.Moves(),
		MatchedPairs: round.MatchedPairs(),
	}
	if out != game.FlipRejected {
		res.Symbol, _ = round.Symbol(*req.Index)
	}
	if rep, ok := round.Report(); ok {
		res.Finished = true
		res.Report = &rep
		res.Best = sess.scores.Table().Entries()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r.Context(), playerFrom(r.Context()))
	round := sess.engine.Current()
	if round == nil {
		writeError(w, http.StatusNotFound, "no_round")
		return
	}
	sess.engine.Abandon(round)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
