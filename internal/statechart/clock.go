package statechart

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback that can be cancelled before it
// fires, returned by both Clock implementations.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// fired or was already stopped.
	Stop() bool
}

// Clock schedules delayed callbacks for "after" transitions and for
// scheduleActions batches. It is the seam the room uses to keep every
// callback funneled through the room's serialized execution stream (§5):
// implementations never invoke f synchronously inside AfterFunc.
//
// Grounded on the teacher's extensibility.TimerEventSource (ticker-driven
// periodic emission) generalized to one-shot arbitrary-delay callbacks, the
// shape wfunc-gameserver's room loop needs for after/scheduleActions.
type Clock interface {
	// Now returns the clock's current time in milliseconds. For a RealClock
	// this is the wall-clock time elapsed since the clock was created; for a
	// ManualClock it is the last value reached by Advance.
	Now() int64
	// AfterFunc arranges for f to run once, no sooner than delayMs from now.
	AfterFunc(delayMs int64, f func()) Timer
}

// RealClock schedules callbacks against wall-clock time via time.AfterFunc.
// Each callback runs on its own goroutine, exactly as time.AfterFunc
// documents; callers that need serialized execution (the room) wrap f
// themselves before passing it in.
type RealClock struct{ start time.Time }

// NewRealClock returns a RealClock whose Now() is milliseconds since
// construction.
func NewRealClock() *RealClock { return &RealClock{start: time.Now()} }

func (c *RealClock) Now() int64 { return time.Since(c.start).Milliseconds() }

func (c *RealClock) AfterFunc(delayMs int64, f func()) Timer {
	return time.AfterFunc(time.Duration(delayMs)*time.Millisecond, f)
}

// ManualClock is a deterministic, test-driven clock: time only advances
// when Advance is called, and due callbacks fire in (fireAt, insertion
// order) sequence — the tie-break spec.md §4.F requires for two after
// timers landing on the same tick.
type ManualClock struct {
	mu      sync.Mutex
	now     int64
	seq     int64
	pending []*manualTimer
}

type manualTimer struct {
	fireAt    int64
	seq       int64
	f         func()
	cancelled bool
}

func (t *manualTimer) Stop() bool {
	if t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

// NewManualClock returns a ManualClock starting at time 0.
func NewManualClock() *ManualClock { return &ManualClock{} }

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(delayMs int64, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{fireAt: c.now + delayMs, seq: c.seq, f: f}
	c.seq++
	c.pending = append(c.pending, t)
	return t
}

// Advance moves the clock forward by d and synchronously runs every
// callback whose fireAt has been reached, in (fireAt, insertion order).
// Callbacks scheduled by a firing callback (e.g. a repeating after) are
// eligible in the same Advance call if their fireAt also falls within the
// new window.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d.Milliseconds()
	target := c.now
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.pending, func(i, j int) bool {
			if c.pending[i].fireAt != c.pending[j].fireAt {
				return c.pending[i].fireAt < c.pending[j].fireAt
			}
			return c.pending[i].seq < c.pending[j].seq
		})
		var due *manualTimer
		remaining := c.pending[:0]
		for _, t := range c.pending {
			switch {
			case t.cancelled:
				// drop
			case due == nil && t.fireAt <= target:
				due = t
			default:
				remaining = append(remaining, t)
			}
		}
		c.pending = remaining
		c.mu.Unlock()

		if due == nil {
			return
		}
		due.f()
	}
}
