// internal/game/types.go
//
// Core type definitions for the Concentration round engine.
// Defines:
//   - CardState: display state of one card (down / up / matched).
//   - FlipOutcome and MatchResult: results of player input.
//   - CompletionReport: immutable summary of a finished round.
//   - Display: the rendering collaborator the engine notifies.
//   - Round: state of a single in-progress or finished round.

package game

import (
	"sync"
	"time"

	"github.com/robalobadob/concentration/internal/clock"
	"github.com/robalobadob/concentration/internal/deck"
)

// CardState is the display state of a single card.
type CardState string

const (
	FaceDown CardState = "down"
	FaceUp   CardState = "up"
	Matched  CardState = "matched"
)

// FlipOutcome is what a flip attempt did.
//   - "rejected": nothing changed (bad index, card not face-down, two cards pending, round over).
//   - "awaiting": first card of a pair turned face-up.
//   - "pending":  second card turned up and did not match; both turn back after a delay.
//   - "matched":  second card turned up and matched.
type FlipOutcome string

const (
	FlipRejected FlipOutcome = "rejected"
	FlipAwaiting FlipOutcome = "awaiting"
	FlipPending  FlipOutcome = "pending"
	FlipMatched  FlipOutcome = "matched"
)

// MatchResult is the evaluation of two revealed cards.
type MatchResult string

const (
	Match    MatchResult = "match"
	Mismatch MatchResult = "mismatch"
)

// Screen identifies one of the browser's screens.
type Screen string

const (
	ScreenStart Screen = "startScreen"
	ScreenGame  Screen = "gameScreen"
	ScreenClear Screen = "clearScreen"
)

// CompletionReport summarizes a finished round. It is produced once per round.
type CompletionReport struct {
	Elapsed        string `json:"elapsed"`        // MM:SS
	ElapsedSeconds int    `json:"elapsedSeconds"` // floor of wall time since start
	Moves          int    `json:"moves"`
	Pairs          int    `json:"pairs"`
	Accuracy       int    `json:"accuracy"` // percent, not capped
	NewRecord      bool   `json:"newRecord"`
}

// Display receives notifications about round progress. Implementations must
// not call back into the Engine from these methods.
type Display interface {
	RenderBoard(level deck.Level, cardCount int)
	SetCardState(index int, state CardState)
	UpdateMoveCount(n int)
	UpdateMatchedCount(n int)
	UpdateTimer(formatted string)
	ShowCompletion(report CompletionReport)
	PlayCelebration()
	SwitchScreen(screen Screen)
}

// Revealer is implemented by displays that must be told which symbol a card
// shows when it turns face-up (for example, a remote browser).
type Revealer interface {
	RevealCard(index int, symbol deck.Symbol)
}

// Round holds the state of a single round. It is owned by the Engine that
// started it; all mutation happens through Engine methods.
type Round struct {
	ID        string     // Unique round identifier (uuid).
	Level     deck.Level // Deck size.
	StartedAt time.Time  // Engine clock time when the round began.

	mu *sync.Mutex // the owning engine's lock

	deck         deck.Deck
	cards        []CardState
	pending      []int // face-up cards awaiting resolution, at most 2
	moves        int
	matchedPairs int

	ticker    clock.Handle
	reversion clock.Handle
	reverting bool
	revertGen int

	report    *CompletionReport
	abandoned bool
	stoppedAt int // elapsed seconds when abandoned
}

// Moves is the number of completed pair flips.
func (r *Round) Moves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moves
}

// MatchedPairs is the number of pairs found so far.
func (r *Round) MatchedPairs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchedPairs
}

// CardCount is the number of cards on the board.
func (r *Round) CardCount() int { return int(r.Level) }

// State returns the display state of card i. ok is false for bad indexes.
func (r *Round) State(i int) (CardState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.cards) {
		return "", false
	}
	return r.cards[i], true
}

// Symbol returns the face of card i, but only once it has been revealed.
func (r *Round) Symbol(i int) (deck.Symbol, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.cards) || r.cards[i] == FaceDown {
		return "", false
	}
	return r.deck[i], true
}

// PendingCount is the number of face-up cards awaiting resolution.
func (r *Round) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Report returns the completion report once the round is finished.
func (r *Round) Report() (CompletionReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.report == nil {
		return CompletionReport{}, false
	}
	return *r.report, true
}

// Finished reports whether every pair has been matched.
func (r *Round) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report != nil
}

// Abandoned reports whether the round was left before completion.
func (r *Round) Abandoned() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.abandoned
}

func (r *Round) live() bool { return r.report == nil && !r.abandoned }
