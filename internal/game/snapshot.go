package game

import (
	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/score"
)

// CardView is the client-facing view of one card. Face-down cards never
// carry their symbol.
type CardView struct {
	Index  int         `json:"index"`
	State  CardState   `json:"state"`
	Symbol deck.Symbol `json:"symbol,omitempty"`
}

// Snapshot is a point-in-time copy of a round, safe to serialize.
type Snapshot struct {
	ID           string            `json:"roundId"`
	Level        int               `json:"level"`
	Label        string            `json:"label"`
	Cards        []CardView        `json:"cards"`
	Moves        int               `json:"moves"`
	MatchedPairs int               `json:"matchedPairs"`
	TotalPairs   int               `json:"totalPairs"`
	Timer        string            `json:"timer"`
	Finished     bool              `json:"finished"`
	Abandoned    bool              `json:"abandoned"`
	Report       *CompletionReport `json:"report,omitempty"`
}

// Snapshot copies r under the engine lock.
func (e *Engine) Snapshot(r *Round) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		ID:           r.ID,
		Level:        int(r.Level),
		Label:        r.Level.Label(),
		Cards:        make([]CardView, len(r.cards)),
		Moves:        r.moves,
		MatchedPairs: r.matchedPairs,
		TotalPairs:   r.Level.Pairs(),
		Timer:        score.FormatTime(e.elapsedSeconds(r)),
		Finished:     r.report != nil,
		Abandoned:    r.abandoned,
	}
	for i, st := range r.cards {
		cv := CardView{Index: i, State: st}
		if st != FaceDown {
			cv.Symbol = r.deck[i]
		}
		s.Cards[i] = cv
	}
	switch {
	case r.report != nil:
		rep := *r.report
		s.Report = &rep
		s.Timer = rep.Elapsed
	case r.abandoned:
		s.Timer = score.FormatTime(r.stoppedAt)
	}
	return s
}
