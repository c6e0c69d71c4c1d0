// internal/score/tracker.go
//
// Best-time tracking per level.
// Responsibilities:
//   - Load the best-score table from the persistence collaborator.
//   - Decide whether a finished round sets a new record (absent or strictly faster).
//   - Write new records back as MM:SS under best<level> keys.
//
// Notes:
//   - Unreadable or corrupt stored values count as "no record"; they are logged
//     and never fail the caller.
package score

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/deck"
)

// NoRecord is shown in place of a time for levels never completed.
const NoRecord = "--:--"

// Store is the durable key-value facility best times are kept in.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
}

// Key is the persistence key for a level's record, e.g. "best8".
func Key(level deck.Level) string { return fmt.Sprintf("best%d", int(level)) }

// Record is a best completion time.
type Record struct {
	Seconds   int    `json:"seconds"`
	Formatted string `json:"formatted"`
}

// BestScoreTable maps level to its record. Levels without a record are absent.
type BestScoreTable map[deck.Level]Record

// Entry is one display row of a BestScoreTable.
type Entry struct {
	Level int    `json:"level"`
	Label string `json:"label"`
	Best  string `json:"best"`
	Set   bool   `json:"set"`
}

// Entries lists every supported level in ascending order, with NoRecord for
// levels that have never been completed.
func (t BestScoreTable) Entries() []Entry {
	levels := deck.Levels()
	out := make([]Entry, 0, len(levels))
	for _, l := range levels {
		e := Entry{Level: int(l), Label: l.Label(), Best: NoRecord}
		if r, ok := t[l]; ok {
			e.Best, e.Set = r.Formatted, true
		}
		out = append(out, e)
	}
	return out
}

// Tracker keeps the best-score table in memory and writes through to a Store.
type Tracker struct {
	store Store

	mu    sync.Mutex // guards table
	table BestScoreTable
}

// NewTracker loads the records for every supported level from store.
func NewTracker(ctx context.Context, store Store) *Tracker {
	t := &Tracker{store: store, table: BestScoreTable{}}
	for _, l := range deck.Levels() {
		if r, ok := t.load(ctx, l); ok {
			t.table[l] = r
		}
	}
	return t
}

func (t *Tracker) load(ctx context.Context, level deck.Level) (Record, bool) {
	key := Key(level)
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("read best score")
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}
	secs, err := ParseTime(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("ignoring corrupt best score")
		return Record{}, false
	}
	return Record{Seconds: secs, Formatted: FormatTime(secs)}, true
}

// Best returns the record for level, if any.
func (t *Tracker) Best(level deck.Level) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.table[level]
	return r, ok
}

// Table returns a copy of the current best-score table.
func (t *Tracker) Table() BestScoreTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(BestScoreTable, len(t.table))
	for l, r := range t.table {
		out[l] = r
	}
	return out
}

// Submit offers a completion time for level and reports whether it is a new
// record. A failed write is returned as an error, but the record still counts
// for this process.
func (t *Tracker) Submit(ctx context.Context, level deck.Level, elapsedSeconds int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.table[level]; ok && elapsedSeconds >= prev.Seconds {
		return false, nil
	}
	r := Record{Seconds: elapsedSeconds, Formatted: FormatTime(elapsedSeconds)}
	t.table[level] = r
	if err := t.store.Set(ctx, Key(level), r.Formatted); err != nil {
		return true, fmt.Errorf("persist %s: %w", Key(level), err)
	}
	return true, nil
}
