package httpserver

import (
	"net/http"

	"github.com/robalobadob/concentration/internal/deck"
)

type levelRow struct {
	Level int    `json:"level"`
	Label string `json:"label"`
	Pairs int    `json:"pairs"`
}

// handleLevels lists the supported deck sizes.
func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	out := []levelRow{}
	for _, l := range deck.Levels() {
		out = append(out, levelRow{Level: int(l), Label: l.Label(), Pairs: l.Pairs()})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleScores returns the caller's best time per level ("--:--" when unset).
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r.Context(), playerFrom(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"best": sess.scores.Table().Entries()})
}
