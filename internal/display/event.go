// internal/display/event.go
//
// Display collaborators for the round engine.
// Defines:
//   - Event: JSON form of a single display notification.
//   - Feed: fans events out to browser subscribers (see httpserver ws route).
//   - Log: writes notifications through zerolog.
//   - Multi: forwards each notification to several displays.

package display

import (
	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/game"
)

// Event types, one per game.Display method.
const (
	TypeBoard     = "board"
	TypeCard      = "card"
	TypeReveal    = "reveal"
	TypeMoves     = "moves"
	TypeMatched   = "matched"
	TypeTimer     = "timer"
	TypeComplete  = "complete"
	TypeCelebrate = "celebrate"
	TypeScreen    = "screen"
)

// Event is one display notification. Only the fields relevant to Type are set.
type Event struct {
	Type      string                 `json:"type"`
	Index     *int                   `json:"index,omitempty"`
	State     game.CardState         `json:"state,omitempty"`
	Symbol    deck.Symbol            `json:"symbol,omitempty"`
	Level     int                    `json:"level,omitempty"`
	Label     string                 `json:"label,omitempty"`
	CardCount int                    `json:"cardCount,omitempty"`
	Count     *int                   `json:"count,omitempty"`
	Timer     string                 `json:"timer,omitempty"`
	Report    *game.CompletionReport `json:"report,omitempty"`
	Screen    game.Screen            `json:"screen,omitempty"`
}

// sink adapts a func(Event) into a game.Display.
type sink func(Event)

var (
	_ game.Display  = sink(nil)
	_ game.Revealer = sink(nil)
)

func (s sink) RenderBoard(level deck.Level, cardCount int) {
	s(Event{Type: TypeBoard, Level: int(level), Label: level.Label(), CardCount: cardCount})
}

func (s sink) SetCardState(index int, state game.CardState) {
	s(Event{Type: TypeCard, Index: &index, State: state})
}

func (s sink) RevealCard(index int, symbol deck.Symbol) {
	s(Event{Type: TypeReveal, Index: &index, Symbol: symbol})
}

func (s sink) UpdateMoveCount(n int) { s(Event{Type: TypeMoves, Count: &n}) }

func (s sink) UpdateMatchedCount(n int) { s(Event{Type: TypeMatched, Count: &n}) }

func (s sink) UpdateTimer(formatted string) { s(Event{Type: TypeTimer, Timer: formatted}) }

func (s sink) ShowCompletion(report game.CompletionReport) {
	s(Event{Type: TypeComplete, Report: &report})
}

func (s sink) PlayCelebration() { s(Event{Type: TypeCelebrate}) }

func (s sink) SwitchScreen(screen game.Screen) { s(Event{Type: TypeScreen, Screen: screen}) }
