package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/emmett/voxremote/internal/audio"
	"github.com/emmett/voxremote/internal/display"
	"github.com/emmett/voxremote/internal/media"
	"github.com/emmett/voxremote/internal/recognition"
	"github.com/emmett/voxremote/internal/schedule"
	"github.com/emmett/voxremote/internal/session"
	"github.com/emmett/voxremote/internal/stt"
	"github.com/emmett/voxremote/internal/vocab"
)

type change struct {
	field display.Field
	value string
}

type listening struct {
	on  bool
	err error
}

type recorder struct {
	mu        sync.Mutex
	changes   []change
	listening []listening
}

func (r *recorder) DisplayChanged(f display.Field, v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change{f, v})
}

func (r *recorder) ListeningChanged(on bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listening = append(r.listening, listening{on, err})
}

func (r *recorder) countOf(f display.Field, v string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.changes {
		if c.field == f && c.value == v {
			n++
		}
	}
	return n
}

func (r *recorder) listeningEvents() []listening {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]listening(nil), r.listening...)
}

type harness struct {
	remote   *Remote
	provider *audio.FakeProvider
	engine   *stt.FakeEngine
	sink     *media.Fake
	clock    *schedule.FakeClock
	rec      *recorder
}

func newHarness(t *testing.T, provider *audio.FakeProvider, results ...stt.Result) *harness {
	t.Helper()
	h := &harness{
		provider: provider,
		engine:   stt.NewFakeEngine(results...),
		sink:     &media.Fake{},
		clock:    schedule.NewFakeClock(time.Unix(1700000000, 0)),
		rec:      &recorder{},
	}
	locator := stt.LocatorFunc(func(string) (string, error) { return "/models/en", nil })
	adapter := recognition.NewAdapter(locator, func() stt.Engine { return h.engine })

	h.remote = NewRemote(RemoteConfig{
		Provider:   provider,
		Recognizer: adapter,
		Vocabulary: vocab.Default(),
		Sink:       h.sink,
		Observer:   h.rec,
		Listener:   h.rec,
		Clock:      h.clock,
	})
	t.Cleanup(h.remote.Close)
	return h
}

// speak feeds one chunk to the live stream and waits until the owner has
// handled the resulting outcome.
func (h *harness) speak(t *testing.T, done func(display.State) bool) {
	t.Helper()
	stream := h.provider.Last().Stream()
	if !stream.Send([]byte{0, 0}) {
		t.Fatal("stream closed")
	}
	deadline := time.Now().Add(2 * time.Second)
	for !done(h.remote.Display()) {
		if time.Now().After(deadline) {
			t.Fatalf("outcome not shown; display = %+v", h.remote.Display())
		}
		time.Sleep(time.Millisecond)
	}
	h.remote.Flush()
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.remote.Flush()
}

func TestAcceptedCommandDispatchesAndClears(t *testing.T) {
	h := newHarness(t, &audio.FakeProvider{}, stt.Result{Text: "next song", Confidence: 0.85})

	if err := h.remote.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	h.sink.SetStatus("Artist - Track")

	h.speak(t, func(s display.State) bool { return s.RecognizedText == "NEXT" })
	if calls := h.sink.Calls(); len(calls) != 1 || calls[0] != "Next" {
		t.Fatalf("sink calls = %v", calls)
	}

	h.advance(249 * time.Millisecond)
	if got := h.remote.Display().PlaybackStatus; got != "" {
		t.Fatalf("status read early: %q", got)
	}
	h.advance(time.Millisecond)
	if got := h.remote.Display().PlaybackStatus; got != "Artist - Track" {
		t.Fatalf("PlaybackStatus = %q after 250ms", got)
	}

	h.advance(3749 * time.Millisecond)
	if h.remote.Display().RecognizedText != "NEXT" {
		t.Fatal("recognized text cleared before 4s")
	}
	h.advance(time.Millisecond)
	if got := h.remote.Display().RecognizedText; got != "" {
		t.Fatalf("RecognizedText = %q after 4s", got)
	}
	if n := h.rec.countOf(display.Recognized, "NEXT"); n != 1 {
		t.Errorf("NEXT shown %d times", n)
	}
}

func TestLowConfidenceIsRejected(t *testing.T) {
	h := newHarness(t, &audio.FakeProvider{}, stt.Result{Text: "play song", Confidence: 0.5})

	if err := h.remote.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	h.speak(t, func(s display.State) bool { return s.RejectedText == "PLAY" })

	if calls := h.sink.Calls(); len(calls) != 0 {
		t.Fatalf("rejected command reached the sink: %v", calls)
	}
	if h.remote.Display().RecognizedText != "" {
		t.Fatal("rejected command shown as recognized")
	}

	h.advance(3999 * time.Millisecond)
	if h.remote.Display().RejectedText != "PLAY" {
		t.Fatal("rejected text cleared early")
	}
	h.advance(time.Millisecond)
	if got := h.remote.Display().RejectedText; got != "" {
		t.Fatalf("RejectedText = %q after 4s", got)
	}
}

func TestStartWithoutSensor(t *testing.T) {
	h := newHarness(t, &audio.FakeProvider{Err: audio.ErrNoSensor})

	err := h.remote.StartListening(context.Background())
	if !errors.Is(err, session.ErrNoSensorAvailable) {
		t.Fatalf("StartListening = %v, want ErrNoSensorAvailable", err)
	}
	if got := session.ResultOf(err); got != session.NoSensorAvailable {
		t.Errorf("result = %v", got)
	}
	if h.remote.State() != session.Unopened {
		t.Errorf("State = %v", h.remote.State())
	}
	if h.engine.IsInitialized() || h.engine.Chunks() != 0 {
		t.Error("recognizer started without a sensor")
	}
	if h.remote.Listening() {
		t.Error("Listening after failed start")
	}
	if !errors.Is(h.remote.LastError(), session.ErrNoSensorAvailable) {
		t.Errorf("LastError = %v", h.remote.LastError())
	}

	events := h.rec.listeningEvents()
	if len(events) != 1 || events[0].on || events[0].err == nil {
		t.Errorf("listener events = %+v", events)
	}
}

func TestStatusPolledWhileListening(t *testing.T) {
	h := newHarness(t, &audio.FakeProvider{})
	h.sink.SetStatus("First")

	if err := h.remote.StartListening(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := h.remote.Display().PlaybackStatus; got != "First" {
		t.Fatalf("no immediate status read: %q", got)
	}

	h.sink.SetStatus("Second")
	h.advance(StatusPollInterval - time.Millisecond)
	if h.remote.Display().PlaybackStatus != "First" {
		t.Fatal("polled early")
	}
	h.advance(time.Millisecond)
	if got := h.remote.Display().PlaybackStatus; got != "Second" {
		t.Fatalf("PlaybackStatus = %q after poll", got)
	}

	h.remote.StopListening()
	h.sink.SetStatus("Third")
	h.advance(time.Minute)
	if got := h.remote.Display().PlaybackStatus; got != "Second" {
		t.Fatalf("polling continued after stop: %q", got)
	}
}

func TestStopCancelsTimersAndClears(t *testing.T) {
	h := newHarness(t, &audio.FakeProvider{}, stt.Result{Text: "mute", Confidence: 0.9})

	if err := h.remote.StartListening(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.speak(t, func(s display.State) bool { return s.RecognizedText == "MUTE" })

	h.remote.StopListening()
	if got := h.remote.Display().RecognizedText; got != "" {
		t.Fatalf("RecognizedText = %q after stop", got)
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("%d timers survived stop", h.clock.Pending())
	}
	if h.remote.State() != session.Unopened {
		t.Fatalf("State = %v", h.remote.State())
	}
	if s := h.provider.Last(); !s.Closed() || !s.Stream().Closed() {
		t.Fatal("sensor or stream left open")
	}

	// Idempotent.
	h.remote.StopListening()
	events := h.rec.listeningEvents()
	if len(events) != 2 || !events[0].on || events[1].on {
		t.Errorf("listener events = %+v", events)
	}
}

func TestToggle(t *testing.T) {
	h := newHarness(t, &audio.FakeProvider{})
	ctx := context.Background()

	if err := h.remote.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if !h.remote.Listening() || h.remote.State() != session.Active {
		t.Fatal("Toggle did not start listening")
	}
	if err := h.remote.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if h.remote.Listening() || h.remote.State() != session.Unopened {
		t.Fatal("Toggle did not stop listening")
	}
}

func TestRestartKeepsSingleStream(t *testing.T) {
	h := newHarness(t, &audio.FakeProvider{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := h.remote.StartListening(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if n := h.provider.OpenStreams(); n != 1 {
		t.Fatalf("open streams = %d, want 1", n)
	}
	for _, s := range h.provider.Sensors() {
		if s.Violations() != 0 {
			t.Fatalf("sensor %s opened over a live stream", s.Name())
		}
	}
	if h.clock.Pending() != 1 {
		t.Fatalf("pending timers = %d, want only the status poll", h.clock.Pending())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	h := newHarness(t, &audio.FakeProvider{})
	if err := h.remote.StartListening(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.remote.Close()
	h.remote.Close()
	if h.remote.State() != session.Unopened {
		t.Fatalf("State = %v after Close", h.remote.State())
	}
}
