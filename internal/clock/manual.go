package clock

import (
	"sync"
	"time"
)

// Manual is a deterministic Clock and Scheduler for tests.
// Time only moves when Advance is called; due callbacks run on the caller's
// goroutine in time order (ties in scheduling order).
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

var (
	_ Clock     = (*Manual)(nil)
	_ Scheduler = (*Manual)(nil)
)

type manualTimer struct {
	m      *Manual
	at     time.Time
	every  time.Duration
	seq    int
	f      func()
	closed bool
}

func (t *manualTimer) Cancel() {
	t.m.mu.Lock()
	t.closed = true
	t.m.mu.Unlock()
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Handle {
	return m.schedule(d, 0, f)
}

func (m *Manual) Every(d time.Duration, f func()) Handle {
	return m.schedule(d, d, f)
}

func (m *Manual) schedule(d, every time.Duration, f func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), every: every, seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves time forward by d, running every callback that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.compact()
			m.mu.Unlock()
			return
		}
		m.now = next.at
		if next.every > 0 {
			next.at = next.at.Add(next.every)
		} else {
			next.closed = true
		}
		f := next.f
		m.mu.Unlock()

		f()
	}
}

// Pending counts scheduled callbacks that have neither fired (one-shot) nor
// been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.closed {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.closed || t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.closed {
			live = append(live, t)
		}
	}
	m.timers = live
}
