// internal/clock/clock.go
//
// Time and deferred-callback primitives used by the round engine.
// Defines:
//   - Clock: source of "now".
//   - Scheduler: one-shot and periodic callbacks returning cancellable Handles.
//   - Real: wall-clock implementation backed by the time package.
//
// Cancelling a Handle is always safe: on a fired timer, on a handle that was
// already cancelled, and on Noop.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Handle is a scheduled callback that can be cancelled. Cancel is idempotent.
type Handle interface {
	Cancel()
}

// Scheduler runs callbacks later.
type Scheduler interface {
	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Handle
	// Every runs f every d until the returned handle is cancelled.
	Every(d time.Duration, f func()) Handle
}

// Noop is a Handle that was never scheduled.
var Noop Handle = noop{}

type noop struct{}

func (noop) Cancel() {}

// Real is the production Clock and Scheduler.
type Real struct{}

var (
	_ Clock     = Real{}
	_ Scheduler = Real{}
)

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Handle {
	return timerHandle{t: time.AfterFunc(d, f)}
}

func (Real) Every(d time.Duration, f func()) Handle {
	h := &tickerHandle{done: make(chan struct{})}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-tk.C:
				// Cancel may race with a tick that was already delivered.
				select {
				case <-h.done:
					return
				default:
				}
				f()
			}
		}
	}()
	return h
}

type timerHandle struct{ t *time.Timer }

// Stop returns false for fired or stopped timers, which need nothing more.
func (h timerHandle) Cancel() { h.t.Stop() }

type tickerHandle struct {
	done chan struct{}
	once sync.Once
}

func (h *tickerHandle) Cancel() { h.once.Do(func() { close(h.done) }) }
