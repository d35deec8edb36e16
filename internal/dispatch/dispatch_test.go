package dispatch

import (
	"testing"
	"time"

	"github.com/emmett/voxremote/internal/media"
	"github.com/emmett/voxremote/internal/schedule"
	"github.com/emmett/voxremote/internal/vocab"
)

func TestDispatchTable(t *testing.T) {
	tests := []struct {
		action string
		call   string
	}{
		{vocab.ActionNext, "Next"},
		{vocab.ActionPrevious, "Previous"},
		{vocab.ActionStop, "Stop"},
		{vocab.ActionPlay, "PlayOrPause"},
		{vocab.ActionPause, "PlayOrPause"},
		{vocab.ActionMute, "Mute"},
		{vocab.ActionVolumeUp, "VolumeUp"},
		{vocab.ActionVolumeDown, "VolumeDown"},
	}
	for _, tt := range tests {
		sink := &media.Fake{}
		clock := schedule.NewFakeClock(time.Unix(0, 0))
		d := New(sink, nil, schedule.NewGroup(clock))

		if !d.Dispatch(tt.action) {
			t.Errorf("Dispatch(%s) reported unknown", tt.action)
		}
		calls := sink.Calls()
		if len(calls) != 1 || calls[0] != tt.call {
			t.Errorf("Dispatch(%s) calls = %v, want [%s]", tt.action, calls, tt.call)
		}
	}
}

func TestDispatchUnknownStillRefreshes(t *testing.T) {
	sink := &media.Fake{}
	sink.SetStatus("Artist - Track")
	clock := schedule.NewFakeClock(time.Unix(0, 0))
	var statuses []string
	var seen []string
	d := New(sink, func(s string) { statuses = append(statuses, s) }, schedule.NewGroup(clock),
		WithObserver(func(a string, known bool) {
			if !known {
				seen = append(seen, a)
			}
		}))

	if d.Dispatch("DANCE") {
		t.Fatal("unknown action reported known")
	}
	if len(sink.Calls()) != 0 {
		t.Fatalf("sink called for unknown action: %v", sink.Calls())
	}
	if len(seen) != 1 || seen[0] != "DANCE" {
		t.Fatalf("observer saw %v", seen)
	}

	clock.Advance(249 * time.Millisecond)
	if len(statuses) != 0 {
		t.Fatal("status read before the refresh delay")
	}
	clock.Advance(time.Millisecond)
	if len(statuses) != 1 || statuses[0] != "Artist - Track" {
		t.Fatalf("statuses = %v", statuses)
	}
}

func TestDispatchRearmsRefresh(t *testing.T) {
	sink := &media.Fake{}
	clock := schedule.NewFakeClock(time.Unix(0, 0))
	reads := 0
	d := New(sink, func(string) { reads++ }, schedule.NewGroup(clock))

	d.Dispatch(vocab.ActionNext)
	clock.Advance(200 * time.Millisecond)
	d.Dispatch(vocab.ActionNext)
	clock.Advance(200 * time.Millisecond)
	if reads != 0 {
		t.Fatal("superseded refresh fired")
	}
	clock.Advance(50 * time.Millisecond)
	if reads != 1 {
		t.Fatalf("reads = %d, want 1", reads)
	}
	if len(sink.Calls()) != 2 {
		t.Fatalf("calls = %v, want two Next", sink.Calls())
	}
}

func TestUnroutable(t *testing.T) {
	v, err := vocab.Build([]vocab.PhraseMapping{
		{Phrase: "skip", Action: vocab.ActionNext},
		{Phrase: "shuffle", Action: "SHUFFLE"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := Unroutable(v)
	if len(got) != 1 || got[0] != "SHUFFLE" {
		t.Fatalf("Unroutable = %v", got)
	}
	if len(Actions()) != 8 || !Known(vocab.ActionPause) {
		t.Fatalf("Actions = %v", Actions())
	}
}
