package display

import (
	"testing"
	"time"

	"github.com/emmett/voxremote/internal/schedule"
)

type change struct {
	field Field
	value string
}

type recorder struct {
	changes []change
}

func (r *recorder) DisplayChanged(f Field, v string) {
	r.changes = append(r.changes, change{f, v})
}

func newMachine() (*Machine, *recorder, *schedule.FakeClock) {
	clock := schedule.NewFakeClock(time.Unix(0, 0))
	rec := &recorder{}
	return New(rec, schedule.NewGroup(clock)), rec, clock
}

func TestRecognizedClearsAfterWindow(t *testing.T) {
	m, rec, clock := newMachine()

	m.ShowRecognized("NEXT")
	if got := m.Snapshot().RecognizedText; got != "NEXT" {
		t.Fatalf("RecognizedText = %q", got)
	}

	clock.Advance(3999 * time.Millisecond)
	if m.Snapshot().RecognizedText != "NEXT" {
		t.Fatal("cleared before the window elapsed")
	}
	clock.Advance(time.Millisecond)
	if m.Snapshot().RecognizedText != "" {
		t.Fatal("not cleared after the window")
	}

	want := []change{{Recognized, "NEXT"}, {Recognized, ""}}
	if len(rec.changes) != len(want) {
		t.Fatalf("changes = %v", rec.changes)
	}
	for i := range want {
		if rec.changes[i] != want[i] {
			t.Fatalf("changes = %v, want %v", rec.changes, want)
		}
	}
}

func TestEqualValueShortCircuits(t *testing.T) {
	m, rec, clock := newMachine()

	m.ShowRejected("[unk]")
	clock.Advance(3 * time.Second)
	m.ShowRejected("[unk]")

	if len(rec.changes) != 1 {
		t.Fatalf("repeated value notified again: %v", rec.changes)
	}
	// Not re-armed: the first expiry still applies.
	clock.Advance(time.Second)
	if m.Snapshot().RejectedText != "" {
		t.Fatal("equal value re-armed the expiry")
	}
}

func TestNewValueRearmsExpiry(t *testing.T) {
	m, _, clock := newMachine()

	m.ShowRecognized("NEXT")
	clock.Advance(3 * time.Second)
	m.ShowRecognized("MUTE")
	clock.Advance(3 * time.Second)
	if got := m.Snapshot().RecognizedText; got != "MUTE" {
		t.Fatalf("superseded timer cleared the newer value: %q", got)
	}
	clock.Advance(time.Second)
	if m.Snapshot().RecognizedText != "" {
		t.Fatal("newer value never cleared")
	}
}

func TestFieldsExpireIndependently(t *testing.T) {
	m, _, clock := newMachine()

	m.ShowRecognized("PLAY")
	clock.Advance(2 * time.Second)
	m.ShowRejected("PAUSE")
	clock.Advance(2 * time.Second)

	s := m.Snapshot()
	if s.RecognizedText != "" || s.RejectedText != "PAUSE" {
		t.Fatalf("state = %+v", s)
	}
}

func TestPlaybackStatusNeverExpires(t *testing.T) {
	m, rec, clock := newMachine()

	m.ShowPlaybackStatus("Artist - Song")
	clock.Advance(time.Minute)
	if m.Snapshot().PlaybackStatus != "Artist - Song" {
		t.Fatal("playback status expired")
	}
	m.ShowPlaybackStatus("Artist - Song")
	if len(rec.changes) != 1 {
		t.Fatalf("changes = %v", rec.changes)
	}
}

func TestReset(t *testing.T) {
	m, rec, clock := newMachine()

	m.ShowRecognized("NEXT")
	m.ShowRejected("[unk]")
	m.ShowPlaybackStatus("A - B")
	rec.changes = nil

	m.Reset()
	s := m.Snapshot()
	if s.RecognizedText != "" || s.RejectedText != "" || s.PlaybackStatus != "A - B" {
		t.Fatalf("state after Reset = %+v", s)
	}
	if len(rec.changes) != 2 {
		t.Fatalf("Reset notified %v", rec.changes)
	}
	if clock.Pending() != 0 {
		t.Fatalf("%d timers survived Reset", clock.Pending())
	}

	rec.changes = nil
	m.Reset()
	if len(rec.changes) != 0 {
		t.Fatal("Reset of empty fields notified")
	}
}
