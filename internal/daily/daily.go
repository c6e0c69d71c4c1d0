// Package daily derives the "board of the day": a shuffle seed that is the
// same for every player on a given UTC date.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/concentration/internal/deck"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a deterministic seed for a date and level using
// HMAC(salt, "YYYY-MM-DD/level").
func Seed(date time.Time, level deck.Level, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	h.Write([]byte{'/', byte(level)})
	sum := h.Sum(nil)
	// first 8 bytes are plenty for a PCG seed
	return binary.BigEndian.Uint64(sum[:8])
}

// Source returns the shuffle source for the daily board at level.
func Source(date time.Time, level deck.Level, salt string) deck.Source {
	return deck.NewSeededSource(Seed(date, level, salt))
}
