// internal/deck/deck.go
//
// Deck construction for a single Concentration round.
// Responsibilities:
//   - Define the fixed, ordered symbol alphabet.
//   - Define the supported levels (deck sizes) and their labels.
//   - Build a paired deck for a level and shuffle it (Fisher–Yates).
//
// Notes:
//   - Which symbols appear is deterministic (the first level/2 of the alphabet);
//     only their arrangement is random.
//   - Randomness is injected through Source so tests can seed it.
package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	// ErrUnsupportedLevel is returned for a deck size outside the supported set.
	ErrUnsupportedLevel = errors.New("unsupported level")
	// ErrAlphabetExhausted is returned when a level needs more symbols than exist.
	ErrAlphabetExhausted = errors.New("level exceeds alphabet capacity")
)

// Symbol is an opaque card face. Only equality is meaningful.
type Symbol string

// Alphabet is the fixed, ordered set of symbols decks are drawn from.
var Alphabet = []Symbol{"🍎", "🍌", "🍇", "🍊", "🍓", "🍉", "🍒", "🍑", "🥝", "🥑", "🍍", "🥭"}

// Deck is an ordered sequence of symbols where each symbol occurs exactly twice.
type Deck []Symbol

// Count returns how many times s occurs in the deck.
func (d Deck) Count(s Symbol) int {
	n := 0
	for _, x := range d {
		if x == s {
			n++
		}
	}
	return n
}

// Valid reports whether the deck is non-empty and every symbol in it is paired.
func (d Deck) Valid() bool {
	if len(d) == 0 || len(d)%2 != 0 {
		return false
	}
	counts := make(map[Symbol]int, len(d)/2)
	for _, s := range d {
		counts[s]++
	}
	for _, n := range counts {
		if n != 2 {
			return false
		}
	}
	return true
}

// Source yields uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

// NewSource returns a Source seeded from the wall clock.
func NewSource() Source {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// NewSeededSource returns a deterministic Source, mainly for tests.
func NewSeededSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Build returns a shuffled deck for level.
// The deck contains two copies of each of the first level/2 alphabet symbols.
func Build(level Level, src Source) (Deck, error) {
	if !level.Supported() {
		return nil, fmt.Errorf("build deck of %d: %w", int(level), ErrUnsupportedLevel)
	}
	pairs := level.Pairs()
	if pairs > len(Alphabet) {
		return nil, fmt.Errorf("build deck of %d: %w", int(level), ErrAlphabetExhausted)
	}

	d := make(Deck, 0, int(level))
	d = append(d, Alphabet[:pairs]...)
	d = append(d, Alphabet[:pairs]...)
	Shuffle(d, src)
	return d, nil
}

// Shuffle permutes d in place: for i from the last index down to 1,
// pick j uniformly in [0, i] and swap d[i] and d[j].
func Shuffle(d Deck, src Source) {
	for i := len(d) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		d[i], d[j] = d[j], d[i]
	}
}
