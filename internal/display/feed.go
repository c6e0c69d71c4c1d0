package display

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/game"
)

const defaultBuffer = 64

// Feed is a game.Display that broadcasts events to any number of subscribers.
// Sends never block: a subscriber whose buffer is full misses the event.
type Feed struct {
	sink

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// NewFeed returns a Feed whose subscriber channels hold buffer events
// (a default is used when buffer <= 0).
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	f := &Feed{subs: make(map[int]chan Event), buffer: buffer}
	f.sink = f.publish
	return f
}

// Subscribe registers a new listener. The returned cancel func unsubscribes
// and closes the channel; it is safe to call more than once.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers is the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription. Later events are discarded.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, c := range f.subs {
		delete(f.subs, id)
		close(c)
	}
}

func (f *Feed) publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.subs {
		select {
		case c <- ev:
		default:
			log.Debug().Int("subscriber", id).Str("type", ev.Type).Msg("display feed full, dropping event")
		}
	}
}

// Log is a game.Display that records every notification at debug level.
type Log struct {
	sink
}

// NewLog returns a Log display tagged with player.
func NewLog(player string) *Log {
	l := log.With().Str("player", player).Logger()
	return &Log{sink: func(ev Event) {
		e := l.Debug().Str("type", ev.Type)
		if ev.Index != nil {
			e = e.Int("index", *ev.Index)
		}
		if ev.State != "" {
			e = e.Str("state", string(ev.State))
		}
		if ev.Count != nil {
			e = e.Int("count", *ev.Count)
		}
		if ev.Timer != "" {
			e = e.Str("timer", ev.Timer)
		}
		if ev.Screen != "" {
			e = e.Str("screen", string(ev.Screen))
		}
		if ev.Report != nil {
			e = e.Str("elapsed", ev.Report.Elapsed).Int("accuracy", ev.Report.Accuracy)
		}
		e.Msg("display")
	}}
}

// Multi forwards every notification to each display in order.
type Multi []game.Display

var (
	_ game.Display  = Multi(nil)
	_ game.Revealer = Multi(nil)
)

func (m Multi) RenderBoard(level deck.Level, cardCount int) {
	for _, d := range m {
		d.RenderBoard(level, cardCount)
	}
}

func (m Multi) SetCardState(index int, state game.CardState) {
	for _, d := range m {
		d.SetCardState(index, state)
	}
}

// RevealCard forwards only to members that implement game.Revealer.
func (m Multi) RevealCard(index int, symbol deck.Symbol) {
	for _, d := range m {
		if rv, ok := d.(game.Revealer); ok {
			rv.RevealCard(index, symbol)
		}
	}
}

func (m Multi) UpdateMoveCount(n int) {
	for _, d := range m {
		d.UpdateMoveCount(n)
	}
}

func (m Multi) UpdateMatchedCount(n int) {
	for _, d := range m {
		d.UpdateMatchedCount(n)
	}
}

func (m Multi) UpdateTimer(formatted string) {
	for _, d := range m {
		d.UpdateTimer(formatted)
	}
}

func (m Multi) ShowCompletion(report game.CompletionReport) {
	for _, d := range m {
		d.ShowCompletion(report)
	}
}

func (m Multi) PlayCelebration() {
	for _, d := range m {
		d.PlayCelebration()
	}
}

func (m Multi) SwitchScreen(screen game.Screen) {
	for _, d := range m {
		d.SwitchScreen(screen)
	}
}
