package schedule

import (
	"testing"
	"time"
)

func TestGroupArmFires(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	g := NewGroup(clock)

	fired := 0
	g.Arm("a", time.Second, func() { fired++ })

	clock.Advance(999 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired early: %d", fired)
	}
	if !g.Pending("a") {
		t.Fatal("expected timer pending")
	}

	clock.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if g.Pending("a") {
		t.Fatal("timer still pending after firing")
	}
}

func TestGroupRearmReplacesPending(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	g := NewGroup(clock)

	var got []string
	g.Arm("field", time.Second, func() { got = append(got, "first") })
	clock.Advance(500 * time.Millisecond)
	g.Arm("field", time.Second, func() { got = append(got, "second") })

	clock.Advance(600 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("replaced timer fired: %v", got)
	}

	clock.Advance(400 * time.Millisecond)
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("got %v, want [second]", got)
	}
	if clock.Pending() != 0 {
		t.Fatalf("clock has %d pending timers", clock.Pending())
	}
}

func TestGroupCancelAll(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	g := NewGroup(clock)

	fired := 0
	g.Arm("a", time.Second, func() { fired++ })
	g.Arm("b", 2*time.Second, func() { fired++ })
	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}

	g.CancelAll()
	clock.Advance(time.Minute)

	if fired != 0 {
		t.Fatalf("cancelled timers fired %d times", fired)
	}
	if g.Len() != 0 {
		t.Fatalf("Len() = %d after CancelAll", g.Len())
	}
}

func TestGroupExecutorSkipsCancelledCallback(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	var queue []func()
	g := NewGroup(clock, WithExecutor(func(f func()) { queue = append(queue, f) }))

	fired := 0
	g.Arm("a", time.Second, func() { fired++ })
	clock.Advance(time.Second)

	if len(queue) != 1 {
		t.Fatalf("queued %d callbacks, want 1", len(queue))
	}

	// Cancelled after firing but before the owner ran the callback.
	g.Cancel("a")
	queue[0]()

	if fired != 0 {
		t.Fatal("callback ran after cancel")
	}
}

func TestGroupCallbackCanRearm(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	g := NewGroup(clock)

	ticks := 0
	var poll func()
	poll = func() {
		ticks++
		g.Arm("poll", 10*time.Second, poll)
	}
	g.Arm("poll", 10*time.Second, poll)

	clock.Advance(35 * time.Second)
	if ticks != 3 {
		t.Fatalf("ticks = %d, want 3", ticks)
	}

	g.Cancel("poll")
	clock.Advance(time.Minute)
	if ticks != 3 {
		t.Fatalf("ticks = %d after cancel, want 3", ticks)
	}
}

func TestFakeTimerStop(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	timer := clock.AfterFunc(time.Second, func() {})

	if !timer.Stop() {
		t.Fatal("first Stop should report true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should report false")
	}
}
