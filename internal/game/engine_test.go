package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/concentration/internal/clock"
	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/score"
)

// unshuffled leaves decks in build order: for level 8 that is
// A B C D A B C D, so card i pairs with card i+4.
type unshuffled struct{}

func (unshuffled) IntN(n int) int { return n - 1 }

type recorder struct {
	mu          sync.Mutex
	events      []string
	timers      []string
	reports     []CompletionReport
	celebrated  int
	screens     []Screen
	cardUpdates map[int][]CardState
}

func newRecorder() *recorder { return &recorder{cardUpdates: map[int][]CardState{}} }

func (r *recorder) add(ev string) {
	r.events = append(r.events, ev)
}

func (r *recorder) RenderBoard(level deck.Level, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(fmt.Sprintf("board %d %d", level, n))
}

func (r *recorder) SetCardState(i int, st CardState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cardUpdates[i] = append(r.cardUpdates[i], st)
	r.add(fmt.Sprintf("card %d %s", i, st))
}

func (r *recorder) UpdateMoveCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(fmt.Sprintf("moves %d", n))
}

func (r *recorder) UpdateMatchedCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(fmt.Sprintf("matched %d", n))
}

func (r *recorder) UpdateTimer(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers = append(r.timers, s)
	r.add("timer " + s)
}

func (r *recorder) ShowCompletion(rep CompletionReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	r.add("complete")
}

func (r *recorder) PlayCelebration() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.celebrated++
	r.add("celebrate")
}

func (r *recorder) SwitchScreen(s Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens = append(r.screens, s)
	r.add("screen " + string(s))
}

type memStore map[string]string

func (m memStore) Get(_ context.Context, k string) (string, bool, error) {
	v, ok := m[k]
	return v, ok, nil
}

func (m memStore) Set(_ context.Context, k, v string) error {
	m[k] = v
	return nil
}

type failingScorer struct{}

func (failingScorer) Submit(context.Context, deck.Level, int) (bool, error) {
	return true, errors.New("store offline")
}

type fixture struct {
	eng   *Engine
	clk   *clock.Manual
	disp  *recorder
	store memStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewManual(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	disp := newRecorder()
	st := memStore{}
	eng := NewEngine(Options{
		Display:   disp,
		Scores:    score.NewTracker(context.Background(), st),
		Clock:     clk,
		Scheduler: clk,
		Source:    unshuffled{},
	})
	return &fixture{eng: eng, clk: clk, disp: disp, store: st}
}

func (f *fixture) start(t *testing.T, level deck.Level) *Round {
	t.Helper()
	r, err := f.eng.StartRound(context.Background(), level)
	require.NoError(t, err)
	return r
}

func (f *fixture) flip(r *Round, i int) FlipOutcome {
	return f.eng.Flip(context.Background(), r, i)
}

// solve matches every pair of an unshuffled round in order.
func (f *fixture) solve(t *testing.T, r *Round) {
	t.Helper()
	pairs := r.Level.Pairs()
	for i := 0; i < pairs; i++ {
		require.Equal(t, FlipAwaiting, f.flip(r, i))
		require.Equal(t, FlipMatched, f.flip(r, i+pairs))
	}
}

func TestStartRoundInitializesBoard(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, 8, r.CardCount())
	assert.True(t, r.deck.Valid())
	for i := 0; i < r.CardCount(); i++ {
		st, ok := r.State(i)
		require.True(t, ok)
		assert.Equal(t, FaceDown, st)
		_, visible := r.Symbol(i)
		assert.False(t, visible, "face-down card %d must not expose its symbol", i)
	}
	assert.Equal(t, []string{
		"board 8 8", "moves 0", "matched 0", "timer 00:00", "screen gameScreen",
	}, f.disp.events)
	assert.Equal(t, 1, f.clk.Pending(), "timer tick scheduled")
}

func TestStartRoundRejectsUnsupportedLevel(t *testing.T) {
	f := newFixture(t)
	r, err := f.eng.StartRound(context.Background(), deck.Level(10))
	assert.Nil(t, r)
	assert.ErrorIs(t, err, deck.ErrUnsupportedLevel)
	assert.Nil(t, f.eng.Current())
	assert.Empty(t, f.disp.events)
	assert.Zero(t, f.clk.Pending())
}

func TestThirdFlipRejectedUntilMismatchReverts(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)

	assert.Equal(t, FlipAwaiting, f.flip(r, 0))
	assert.Equal(t, 0, r.Moves())
	assert.Equal(t, FlipPending, f.flip(r, 1))
	assert.Equal(t, 1, r.Moves())
	assert.Equal(t, 2, r.PendingCount())
	assert.Equal(t, 2, f.clk.Pending(), "tick plus exactly one reversion")

	assert.Equal(t, FlipRejected, f.flip(r, 2))
	st, _ := r.State(2)
	assert.Equal(t, FaceDown, st)

	f.clk.Advance(999 * time.Millisecond)
	assert.Equal(t, FlipRejected, f.flip(r, 2), "still waiting on the reversion")

	f.clk.Advance(time.Millisecond)
	for _, i := range []int{0, 1} {
		st, _ := r.State(i)
		assert.Equal(t, FaceDown, st)
	}
	assert.Zero(t, r.PendingCount())
	assert.Equal(t, []CardState{FaceUp, FaceDown}, f.disp.cardUpdates[0])
	assert.Equal(t, FlipAwaiting, f.flip(r, 2))
}

func TestMatchResolvesImmediately(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)

	require.Equal(t, FlipAwaiting, f.flip(r, 0))
	require.Equal(t, FlipMatched, f.flip(r, 4))

	for _, i := range []int{0, 4} {
		st, _ := r.State(i)
		assert.Equal(t, Matched, st)
		sym, ok := r.Symbol(i)
		assert.True(t, ok)
		assert.Equal(t, deck.Alphabet[0], sym)
	}
	assert.Equal(t, 1, r.MatchedPairs())
	assert.Zero(t, r.PendingCount())
	assert.Equal(t, 1, f.clk.Pending(), "no reversion scheduled for a match")

	assert.Equal(t, FlipRejected, f.flip(r, 0), "matched card")
	assert.Equal(t, FlipAwaiting, f.flip(r, 1), "board is open again")
	assert.Equal(t, FlipRejected, f.flip(r, 1), "already face-up")
}

func TestOutOfRangeFlipIsRejected(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)
	assert.Equal(t, FlipRejected, f.flip(r, -1))
	assert.Equal(t, FlipRejected, f.flip(r, 8))
	assert.Equal(t, FlipRejected, f.flip(nil, 0))
	assert.Zero(t, r.Moves())
}

func TestPerfectRoundCompletesOnce(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)

	f.clk.Advance(75 * time.Second)
	f.solve(t, r)

	require.Len(t, f.disp.reports, 1)
	rep, ok := r.Report()
	require.True(t, ok)
	assert.Equal(t, CompletionReport{
		Elapsed:        "01:15",
		ElapsedSeconds: 75,
		Moves:          4,
		Pairs:          4,
		Accuracy:       100,
		NewRecord:      true,
	}, rep)
	assert.Equal(t, f.disp.reports[0], rep)
	assert.Equal(t, 1, f.disp.celebrated)
	assert.Equal(t, ScreenClear, f.disp.screens[len(f.disp.screens)-1])
	assert.Equal(t, "01:15", f.store["best8"])
	assert.True(t, r.Finished())

	assert.Zero(t, f.clk.Pending(), "tick cancelled on completion")
	ticks := len(f.disp.timers)
	f.clk.Advance(5 * time.Second)
	assert.Len(t, f.disp.timers, ticks)

	assert.Equal(t, FlipRejected, f.flip(r, 0))
	assert.Len(t, f.disp.reports, 1)
}

func TestAccuracyWithMismatches(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)

	for range 4 {
		require.Equal(t, FlipAwaiting, f.flip(r, 0))
		require.Equal(t, FlipPending, f.flip(r, 1))
		f.clk.Advance(time.Second)
	}
	f.solve(t, r)

	rep, ok := r.Report()
	require.True(t, ok)
	assert.Equal(t, 8, rep.Moves)
	assert.Equal(t, 50, rep.Accuracy)
	assert.Equal(t, "00:04", rep.Elapsed)
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 100, Accuracy(4, 4))
	assert.Equal(t, 50, Accuracy(4, 8))
	assert.Equal(t, 86, Accuracy(6, 7))
	assert.Equal(t, 67, Accuracy(2, 3))
	assert.Equal(t, 0, Accuracy(4, 0))
}

func TestRecordOnlyForStrictlyFasterRounds(t *testing.T) {
	f := newFixture(t)

	r := f.start(t, deck.Easy)
	f.clk.Advance(30 * time.Second)
	f.solve(t, r)
	rep, _ := r.Report()
	assert.True(t, rep.NewRecord)

	r = f.start(t, deck.Easy)
	f.clk.Advance(45 * time.Second)
	f.solve(t, r)
	rep, _ = r.Report()
	assert.False(t, rep.NewRecord)
	assert.Equal(t, "00:30", f.store["best8"])

	r = f.start(t, deck.Easy)
	f.clk.Advance(20 * time.Second)
	f.solve(t, r)
	rep, _ = r.Report()
	assert.True(t, rep.NewRecord)
	assert.Equal(t, "00:20", f.store["best8"])
}

func TestScoreWriteFailureDoesNotBreakCompletion(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	eng := NewEngine(Options{Scores: failingScorer{}, Clock: clk, Scheduler: clk, Source: unshuffled{}})
	r, err := eng.StartRound(context.Background(), deck.Easy)
	require.NoError(t, err)
	f := &fixture{eng: eng, clk: clk}
	f.solve(t, r)
	rep, ok := r.Report()
	require.True(t, ok)
	assert.True(t, rep.NewRecord)
}

func TestTimerTicksEverySecond(t *testing.T) {
	f := newFixture(t)
	f.start(t, deck.Normal)
	f.clk.Advance(3 * time.Second)
	assert.Equal(t, []string{"00:00", "00:01", "00:02", "00:03"}, f.disp.timers)
}

func TestAbandonStopsTimer(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)
	f.clk.Advance(2 * time.Second)
	require.Equal(t, FlipAwaiting, f.flip(r, 0))
	require.Equal(t, FlipPending, f.flip(r, 1))

	f.eng.Abandon(r)
	f.eng.Abandon(r)

	ticks := len(f.disp.timers)
	f.clk.Advance(time.Minute)
	assert.Len(t, f.disp.timers, ticks, "no timer updates after abandon")
	assert.Zero(t, f.clk.Pending())
	assert.Empty(t, f.disp.reports)
	assert.True(t, r.Abandoned())
	_, ok := r.Report()
	assert.False(t, ok)
	assert.Equal(t, ScreenStart, f.disp.screens[len(f.disp.screens)-1])
	assert.Equal(t, FlipRejected, f.flip(r, 2))
}

func TestAbandonedSnapshotFreezesTimer(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)
	f.clk.Advance(5 * time.Second)
	f.eng.Abandon(r)

	f.clk.Advance(time.Minute)
	s := f.eng.Snapshot(r)
	assert.True(t, s.Abandoned)
	assert.Equal(t, "00:05", s.Timer)
}

func TestStartRoundWithDoneContext(t *testing.T) {
	f := newFixture(t)
	prev := f.start(t, deck.Easy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := f.eng.StartRound(ctx, deck.Hard)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, r)
	assert.Same(t, prev, f.eng.Current())
	assert.Equal(t, 1, f.clk.Pending(), "previous round keeps its tick")
}

func TestStartRoundCancelsPreviousRound(t *testing.T) {
	f := newFixture(t)
	old := f.start(t, deck.Easy)
	require.Equal(t, FlipAwaiting, f.flip(old, 0))
	require.Equal(t, FlipPending, f.flip(old, 1))

	fresh := f.start(t, deck.Hard)
	assert.Equal(t, 1, f.clk.Pending(), "only the new round's tick survives")

	f.clk.Advance(2 * time.Second)
	st, _ := old.State(0)
	assert.Equal(t, FaceUp, st, "stale reversion must not touch a replaced round")
	assert.Equal(t, FlipRejected, f.flip(old, 2))
	assert.Equal(t, FlipAwaiting, f.flip(fresh, 0))
	assert.Same(t, fresh, f.eng.Current())
}

func TestReplayUsesCurrentLevel(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Replay(context.Background())
	assert.ErrorIs(t, err, ErrNoRound)

	first := f.start(t, deck.Hard)
	f.solve(t, first)

	second, err := f.eng.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, deck.Hard, second.Level)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Zero(t, second.Moves())
}

func TestSnapshotHidesFaceDownSymbols(t *testing.T) {
	f := newFixture(t)
	r := f.start(t, deck.Easy)
	require.Equal(t, FlipAwaiting, f.flip(r, 2))
	f.clk.Advance(61 * time.Second)

	s := f.eng.Snapshot(r)
	assert.Equal(t, "01:01", s.Timer)
	assert.Equal(t, 4, s.TotalPairs)
	assert.Equal(t, "easy", s.Label)
	for _, c := range s.Cards {
		if c.Index == 2 {
			assert.Equal(t, FaceUp, c.State)
			assert.Equal(t, deck.Alphabet[2], c.Symbol)
			continue
		}
		assert.Empty(t, c.Symbol)
	}
	assert.Nil(t, s.Report)
}

func TestShuffledRoundCanBeSolved(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	eng := NewEngine(Options{Clock: clk, Scheduler: clk, Source: deck.NewSeededSource(99)})
	r, err := eng.StartRound(context.Background(), deck.Hard)
	require.NoError(t, err)

	positions := map[deck.Symbol][]int{}
	for i, s := range r.deck {
		positions[s] = append(positions[s], i)
	}
	require.Len(t, positions, 8)
	for _, idx := range positions {
		require.Equal(t, FlipAwaiting, eng.Flip(context.Background(), r, idx[0]))
		require.Equal(t, FlipMatched, eng.Flip(context.Background(), r, idx[1]))
	}
	rep, ok := r.Report()
	require.True(t, ok)
	assert.Equal(t, 8, rep.Pairs)
	assert.False(t, rep.NewRecord, "no scorer configured")
}

type revealing struct {
	*recorder
	revealed map[int]deck.Symbol
}

func (r revealing) RevealCard(i int, s deck.Symbol) { r.revealed[i] = s }

func TestRevealerSeesFlippedSymbols(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	disp := revealing{recorder: newRecorder(), revealed: map[int]deck.Symbol{}}
	eng := NewEngine(Options{Display: disp, Clock: clk, Scheduler: clk, Source: unshuffled{}})
	r, err := eng.StartRound(context.Background(), deck.Easy)
	require.NoError(t, err)

	eng.Flip(context.Background(), r, 1)
	eng.Flip(context.Background(), r, 6)
	assert.Equal(t, map[int]deck.Symbol{1: deck.Alphabet[1], 6: deck.Alphabet[2]}, disp.revealed)

	eng.Flip(context.Background(), r, 3)
	assert.Len(t, disp.revealed, 2, "rejected flips reveal nothing")
}

func TestStartSeededIsReproducible(t *testing.T) {
	f := newFixture(t)
	a, err := f.eng.StartSeeded(context.Background(), deck.Hard, deck.NewSeededSource(5))
	require.NoError(t, err)
	b, err := f.eng.StartSeeded(context.Background(), deck.Hard, deck.NewSeededSource(5))
	require.NoError(t, err)
	assert.Equal(t, a.deck, b.deck)
	assert.NotEqual(t, a.ID, b.ID)

	c, err := f.eng.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, deck.Hard, c.Level)
}
