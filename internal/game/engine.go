// internal/game/engine.go
//
// Round engine for a single player.
// Responsibilities:
//   - Start rounds: build a shuffled deck, reset counters, start the timer tick.
//   - Apply flips, gating on the pending-reveal list (at most two face-up cards).
//   - Evaluate pairs: match immediately, or turn mismatches back after a delay.
//   - Finish rounds: stop the tick, compute elapsed time and accuracy, submit the
//     time to the score tracker, and notify the display.
//
// Notes:
//   - Every transition (flip, tick, deferred reversion) runs under one mutex,
//     so timer callbacks never interleave with player input.
//   - Starting a new round or abandoning cancels the old round's tick and any
//     pending reversion. Callbacks that still fire for a replaced round are ignored.
package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/clock"
	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/score"
)

const (
	DefaultMismatchDelay = time.Second
	DefaultTickInterval  = time.Second
)

// ErrNoRound is returned by Replay before any round was started.
var ErrNoRound = errors.New("no round to replay")

// Scorer records completion times and reports whether they are new records.
type Scorer interface {
	Submit(ctx context.Context, level deck.Level, elapsedSeconds int) (bool, error)
}

// Options configures an Engine. Zero values fall back to production defaults.
type Options struct {
	Display       Display
	Scores        Scorer
	Clock         clock.Clock
	Scheduler     clock.Scheduler
	Source        deck.Source
	MismatchDelay time.Duration
	TickInterval  time.Duration
}

// Engine owns at most one live round at a time.
type Engine struct {
	mu sync.Mutex

	display Display
	reveal  Revealer
	scores  Scorer
	clock   clock.Clock
	sched   clock.Scheduler
	src     deck.Source
	delay   time.Duration
	tick    time.Duration

	current *Round
}

// NewEngine constructs an Engine from opts.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		display: opts.Display,
		scores:  opts.Scores,
		clock:   opts.Clock,
		sched:   opts.Scheduler,
		src:     opts.Source,
		delay:   opts.MismatchDelay,
		tick:    opts.TickInterval,
	}
	if e.display == nil {
		e.display = nopDisplay{}
	}
	if rv, ok := e.display.(Revealer); ok {
		e.reveal = rv
	}
	if e.clock == nil {
		e.clock = clock.Real{}
	}
	if e.sched == nil {
		e.sched = clock.Real{}
	}
	if e.src == nil {
		e.src = deck.NewSource()
	}
	if e.delay <= 0 {
		e.delay = DefaultMismatchDelay
	}
	if e.tick <= 0 {
		e.tick = DefaultTickInterval
	}
	return e
}

// Current returns the most recently started round, or nil.
func (e *Engine) Current() *Round {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// StartRound replaces the current round with a fresh one at level.
// An unsupported level or a done ctx fails before any state changes.
func (e *Engine) StartRound(ctx context.Context, level deck.Level) (*Round, error) {
	return e.start(ctx, level, nil)
}

// StartSeeded is StartRound with a one-off shuffle source, e.g. the daily board.
func (e *Engine) StartSeeded(ctx context.Context, level deck.Level, src deck.Source) (*Round, error) {
	return e.start(ctx, level, src)
}

func (e *Engine) start(ctx context.Context, level deck.Level, src deck.Source) (*Round, error) {
	if !level.Supported() {
		return nil, fmt.Errorf("start round: %w", deck.ErrUnsupportedLevel)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("start round: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if src == nil {
		src = e.src
	}
	d, err := deck.Build(level, src)
	if err != nil {
		return nil, fmt.Errorf("start round: %w", err)
	}
	if prev := e.current; prev != nil {
		e.stop(prev)
	}

	r := &Round{
		ID:        uuid.NewString(),
		Level:     level,
		StartedAt: e.clock.Now(),
		mu:        &e.mu,
		deck:      d,
		cards:     make([]CardState, len(d)),
		pending:   make([]int, 0, 2),
		ticker:    clock.Noop,
		reversion: clock.Noop,
	}
	for i := range r.cards {
		r.cards[i] = FaceDown
	}
	e.current = r

	e.display.RenderBoard(level, len(r.cards))
	e.display.UpdateMoveCount(0)
	e.display.UpdateMatchedCount(0)
	e.display.UpdateTimer(score.FormatTime(0))
	e.display.SwitchScreen(ScreenGame)

	r.ticker = e.sched.Every(e.tick, func() { e.onTick(r) })

	log.Info().Str("roundId", r.ID).Stringer("level", level).Msg("round started")
	return r, nil
}

// Replay starts a new round at the level of the current one.
func (e *Engine) Replay(ctx context.Context) (*Round, error) {
	e.mu.Lock()
	prev := e.current
	e.mu.Unlock()
	if prev == nil {
		return nil, ErrNoRound
	}
	return e.StartRound(ctx, prev.Level)
}

// Flip turns card index of r face-up.
//
// Rejected (no-op) when r is not the engine's live round, the index is out
// of range, two cards are already pending, or the card is not face-down.
// The second card of a pair counts one move and is evaluated immediately.
func (e *Engine) Flip(ctx context.Context, r *Round, index int) FlipOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r == nil || r != e.current || !r.live() {
		return FlipRejected
	}
	if index < 0 || index >= len(r.cards) {
		return FlipRejected
	}
	if len(r.pending) >= 2 || r.cards[index] != FaceDown {
		return FlipRejected
	}

	r.cards[index] = FaceUp
	r.pending = append(r.pending, index)
	e.display.SetCardState(index, FaceUp)
	if e.reveal != nil {
		e.reveal.RevealCard(index, r.deck[index])
	}

	if len(r.pending) == 1 {
		return FlipAwaiting
	}

	r.moves++
	e.display.UpdateMoveCount(r.moves)
	if e.evaluate(ctx, r, r.pending[0], r.pending[1]) == Match {
		return FlipMatched
	}
	return FlipPending
}

// evaluate resolves two face-up cards. Caller holds e.mu.
func (e *Engine) evaluate(ctx context.Context, r *Round, a, b int) MatchResult {
	if r.deck[a] == r.deck[b] {
		r.cards[a], r.cards[b] = Matched, Matched
		e.display.SetCardState(a, Matched)
		e.display.SetCardState(b, Matched)
		r.matchedPairs++
		e.display.UpdateMatchedCount(r.matchedPairs)
		r.pending = r.pending[:0]

		log.Debug().Str("roundId", r.ID).Int("pairs", r.matchedPairs).Msg("pair matched")
		if r.matchedPairs == r.Level.Pairs() {
			e.complete(ctx, r)
		}
		return Match
	}

	r.revertGen++
	gen := r.revertGen
	r.reverting = true
	r.reversion = e.sched.AfterFunc(e.delay, func() { e.revert(r, gen) })
	return Mismatch
}

// revert turns a mismatched pair back face-down and reopens the board.
func (e *Engine) revert(r *Round, gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r != e.current || !r.live() || !r.reverting || r.revertGen != gen {
		return
	}
	for _, i := range r.pending {
		if r.cards[i] == FaceUp {
			r.cards[i] = FaceDown
			e.display.SetCardState(i, FaceDown)
		}
	}
	r.pending = r.pending[:0]
	r.reverting = false
	r.reversion = clock.Noop
}

func (e *Engine) onTick(r *Round) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r != e.current || !r.live() {
		return
	}
	e.display.UpdateTimer(score.FormatTime(e.elapsedSeconds(r)))
}

// complete finalizes r. Caller holds e.mu; runs once because r stops being live.
func (e *Engine) complete(ctx context.Context, r *Round) {
	r.ticker.Cancel()
	r.ticker = clock.Noop

	secs := e.elapsedSeconds(r)
	pairs := r.Level.Pairs()

	isNew := false
	if e.scores != nil {
		var err error
		isNew, err = e.scores.Submit(ctx, r.Level, secs)
		if err != nil {
			log.Warn().Err(err).Str("roundId", r.ID).Msg("save best score")
		}
	}

	report := CompletionReport{
		Elapsed:        score.FormatTime(secs),
		ElapsedSeconds: secs,
		Moves:          r.moves,
		Pairs:          pairs,
		Accuracy:       Accuracy(pairs, r.moves),
		NewRecord:      isNew,
	}
	r.report = &report

	e.display.ShowCompletion(report)
	e.display.PlayCelebration()
	e.display.SwitchScreen(ScreenClear)

	log.Info().
		Str("roundId", r.ID).
		Stringer("level", r.Level).
		Str("elapsed", report.Elapsed).
		Int("moves", report.Moves).
		Bool("newRecord", isNew).
		Msg("round complete")
}

// Abandon stops r's timer and any pending reversion without producing a
// report, and sends the display back to the start screen. Safe to repeat.
func (e *Engine) Abandon(r *Round) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r == nil || r.abandoned {
		return
	}
	e.stop(r)
	if r.report == nil {
		r.abandoned = true
		r.stoppedAt = e.elapsedSeconds(r)
		log.Info().Str("roundId", r.ID).Msg("round abandoned")
	}
	if r == e.current {
		e.display.SwitchScreen(ScreenStart)
	}
}

// stop cancels every callback r owns. Caller holds e.mu.
func (e *Engine) stop(r *Round) {
	r.ticker.Cancel()
	r.ticker = clock.Noop
	r.reversion.Cancel()
	r.reversion = clock.Noop
	r.reverting = false
}

func (e *Engine) elapsedSeconds(r *Round) int {
	d := e.clock.Now().Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Accuracy is round(100 * pairs / moves). Zero moves yields 0.
func Accuracy(pairs, moves int) int {
	if moves <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(pairs) / float64(moves)))
}

type nopDisplay struct{}

func (nopDisplay) RenderBoard(deck.Level, int) {}
func (nopDisplay) SetCardState(int, CardState) {}
func (nopDisplay) UpdateMoveCount(int) {}
func (nopDisplay) UpdateMatchedCount(int) {}
func (nopDisplay) UpdateTimer(string) {}
func (nopDisplay) ShowCompletion(CompletionReport) {}
func (nopDisplay) PlayCelebration() {}
func (nopDisplay) SwitchScreen(Screen) {}
