package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestManualAfterFuncFiresOnce(t *testing.T) {
	m := NewManual(epoch)
	fired := 0
	m.AfterFunc(time.Second, func() { fired++ })

	m.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 1, m.Pending())

	m.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Pending())

	m.Advance(time.Hour)
	assert.Equal(t, 1, fired)
}

func TestManualEveryRepeatsUntilCancelled(t *testing.T) {
	m := NewManual(epoch)
	var seen []time.Time
	h := m.Every(time.Second, func() { seen = append(seen, m.Now()) })

	m.Advance(3500 * time.Millisecond)
	require.Len(t, seen, 3)
	assert.Equal(t, epoch.Add(3*time.Second), seen[2])

	h.Cancel()
	h.Cancel()
	m.Advance(10 * time.Second)
	assert.Len(t, seen, 3)
	assert.Equal(t, epoch.Add(13500*time.Millisecond), m.Now())
}

func TestManualCancelAfterFireIsHarmless(t *testing.T) {
	m := NewManual(epoch)
	h := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Second)
	assert.NotPanics(t, h.Cancel)
	assert.NotPanics(t, Noop.Cancel)
}

func TestManualRunsInTimeOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "c") })
	m.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestManualCallbackMayReschedule(t *testing.T) {
	m := NewManual(epoch)
	n := 0
	var again func()
	again = func() {
		n++
		if n < 3 {
			m.AfterFunc(time.Second, again)
		}
	}
	m.AfterFunc(time.Second, again)
	m.Advance(10 * time.Second)
	assert.Equal(t, 3, n)
}

func TestRealEveryStopsOnCancel(t *testing.T) {
	var n atomic.Int32
	h := Real{}.Every(5*time.Millisecond, func() { n.Add(1) })
	assert.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, time.Millisecond)
	h.Cancel()
	h.Cancel()
	after := n.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, n.Load(), after+1)
}

func TestRealAfterFuncCancel(t *testing.T) {
	var n atomic.Int32
	h := Real{}.AfterFunc(20*time.Millisecond, func() { n.Add(1) })
	h.Cancel()
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, n.Load())
	assert.NotPanics(t, h.Cancel)
}
