package statechart

import (
	"testing"
	"time"
)

func TestManualClock_FiresDueCallbacksOnAdvance(t *testing.T) {
	c := NewManualClock()
	var fired []string
	c.AfterFunc(100, func() { fired = append(fired, "a") })
	c.AfterFunc(200, func() { fired = append(fired, "b") })

	c.Advance(150 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("got %v, want [a]", fired)
	}

	c.Advance(100 * time.Millisecond)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("got %v, want [a b]", fired)
	}
}

func TestManualClock_TiesBreakByInsertionOrder(t *testing.T) {
	c := NewManualClock()
	var fired []string
	c.AfterFunc(50, func() { fired = append(fired, "first") })
	c.AfterFunc(50, func() { fired = append(fired, "second") })

	c.Advance(50 * time.Millisecond)
	if len(fired) != 2 || fired[0] != "first" || fired[1] != "second" {
		t.Fatalf("got %v, want [first second]", fired)
	}
}

func TestManualClock_StoppedTimerDoesNotFire(t *testing.T) {
	c := NewManualClock()
	fired := false
	timer := c.AfterFunc(10, func() { fired = true })
	if !timer.Stop() {
		t.Fatal("expected Stop to report success")
	}
	c.Advance(20 * time.Millisecond)
	if fired {
		t.Error("stopped timer must not fire")
	}
}

func TestManualClock_ZeroDelayDoesNotFireSynchronously(t *testing.T) {
	c := NewManualClock()
	fired := false
	c.AfterFunc(0, func() { fired = true })
	if fired {
		t.Error("AfterFunc must never invoke f synchronously")
	}
	c.Advance(0)
	if !fired {
		t.Error("expected zero-delay callback to fire on next Advance")
	}
}
