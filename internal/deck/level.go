package deck

import "fmt"

// Level is the total card count of a round. It determines difficulty.
type Level int

const (
	Easy   Level = 8
	Normal Level = 12
	Hard   Level = 16
)

var labels = map[Level]string{
	Easy:   "easy",
	Normal: "normal",
	Hard:   "hard",
}

// Levels returns the supported levels in ascending order.
func Levels() []Level { return []Level{Easy, Normal, Hard} }

// ParseLevel converts a raw card count into a supported Level.
func ParseLevel(n int) (Level, error) {
	l := Level(n)
	if !l.Supported() {
		return 0, fmt.Errorf("level %d: %w", n, ErrUnsupportedLevel)
	}
	return l, nil
}

// Supported reports whether l is one of the fixed deck sizes.
func (l Level) Supported() bool {
	_, ok := labels[l]
	return ok
}

// Pairs is the number of distinct symbols in a deck of this level.
func (l Level) Pairs() int { return int(l) / 2 }

// Label is the difficulty name ("easy", "normal", "hard"), or "" if unsupported.
func (l Level) Label() string { return labels[l] }

func (l Level) String() string {
	if s := l.Label(); s != "" {
		return s
	}
	return fmt.Sprintf("level(%d)", int(l))
}
