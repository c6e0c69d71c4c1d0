package score

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadTime is returned by ParseTime for values that are not MM:SS.
var ErrBadTime = errors.New("malformed time")

// FormatTime renders whole seconds as zero-padded MM:SS.
// Minutes keep growing past 59; there is no hour field.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// ParseTime is the inverse of FormatTime.
func ParseTime(s string) (int, error) {
	mm, ss, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%q: %w", s, ErrBadTime)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("%q: %w", s, ErrBadTime)
	}
	sec, err := strconv.Atoi(ss)
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("%q: %w", s, ErrBadTime)
	}
	return m*60 + sec, nil
}
