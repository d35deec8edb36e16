package app

import (
	"context"
	"sync"
	"time"

	"github.com/emmett/voxremote/internal/audio"
	"github.com/emmett/voxremote/internal/dispatch"
	"github.com/emmett/voxremote/internal/display"
	"github.com/emmett/voxremote/internal/log"
	"github.com/emmett/voxremote/internal/media"
	"github.com/emmett/voxremote/internal/observe"
	"github.com/emmett/voxremote/internal/recognition"
	"github.com/emmett/voxremote/internal/schedule"
	"github.com/emmett/voxremote/internal/session"
	"github.com/emmett/voxremote/internal/vocab"
)

const (
	// StatusPollInterval is how often the player status is re-read while
	// listening.
	StatusPollInterval = 10 * time.Second

	statusPollKey = "status-poll"
	mailboxSize   = 256
)

// Listener is told when listening starts or stops. A failed start arrives
// with listening false and the activation error.
type Listener interface {
	ListeningChanged(listening bool, err error)
}

// RemoteConfig holds the collaborators of a Remote.
type RemoteConfig struct {
	Provider   audio.SensorProvider
	Recognizer session.Recognizer
	Vocabulary *vocab.Vocabulary
	Sink       media.Sink

	// Observer sees display changes; Listener sees listening changes.
	// Either may be nil.
	Observer display.Observer
	Listener Listener

	// Clock defaults to the real clock.
	Clock   schedule.Clock
	Metrics *observe.Metrics

	PollInterval  time.Duration
	RefreshDelay  time.Duration
	DisplayWindow time.Duration

	// OnStateChange receives every session lifecycle transition.
	OnStateChange func(session.State)
}

// Remote owns the display, the dispatcher and the timers. All of their
// mutation happens on a single owner goroutine that drains a mailbox of
// closures; session callbacks and fired timers only enqueue.
type Remote struct {
	mailbox  chan func()
	done     chan struct{}
	stopped  chan struct{}
	doneOnce sync.Once

	timers     *schedule.Group
	clock      schedule.Clock
	display    *display.Machine
	dispatcher *dispatch.Dispatcher
	controller *session.Controller
	sink       media.Sink
	listener   Listener
	metrics    *observe.Metrics
	poll       time.Duration

	// lifecycle serializes StartListening, StopListening and Toggle.
	lifecycle sync.Mutex
	listening bool

	mu      sync.Mutex
	lastErr error
}

// NewRemote builds a Remote and starts its owner goroutine.
func NewRemote(cfg RemoteConfig) *Remote {
	clock := cfg.Clock
	if clock == nil {
		clock = schedule.RealClock()
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = StatusPollInterval
	}

	r := &Remote{
		mailbox:  make(chan func(), mailboxSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		clock:    clock,
		sink:     cfg.Sink,
		listener: cfg.Listener,
		metrics:  cfg.Metrics,
		poll:     poll,
	}
	r.timers = schedule.NewGroup(clock, schedule.WithExecutor(func(f func()) { r.post(f) }))

	var displayOpts []display.Option
	if cfg.DisplayWindow > 0 {
		displayOpts = append(displayOpts, display.WithWindow(cfg.DisplayWindow))
	}
	r.display = display.New(cfg.Observer, r.timers, displayOpts...)

	dispatchOpts := []dispatch.Option{
		dispatch.WithObserver(func(action string, known bool) {
			r.metrics.RecordCommand(context.Background(), action, known)
		}),
	}
	if cfg.RefreshDelay > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithRefreshDelay(cfg.RefreshDelay))
	}
	r.dispatcher = dispatch.New(cfg.Sink, r.display.ShowPlaybackStatus, r.timers, dispatchOpts...)

	var sessionOpts []session.Option
	if cfg.OnStateChange != nil {
		sessionOpts = append(sessionOpts, session.OnStateChange(cfg.OnStateChange))
	}
	r.controller = session.NewController(cfg.Provider, cfg.Recognizer, cfg.Vocabulary, handler{r}, sessionOpts...)

	go r.run()
	return r
}

func (r *Remote) run() {
	defer close(r.stopped)
	for {
		select {
		case <-r.done:
			return
		case f := <-r.mailbox:
			f()
		}
	}
}

// post enqueues f for the owner goroutine. It reports false once the Remote
// is closed.
func (r *Remote) post(f func()) bool {
	select {
	case r.mailbox <- f:
		return true
	case <-r.done:
		return false
	}
}

// call runs f on the owner goroutine and waits for it. It must not be used
// from the owner goroutine itself.
func (r *Remote) call(f func()) {
	ran := make(chan struct{})
	if !r.post(func() { f(); close(ran) }) {
		return
	}
	select {
	case <-ran:
	case <-r.stopped:
	}
}

// StartListening opens a new session, replacing any current one. Leftover
// timers and transient text from an earlier session are discarded first.
// On success the player status is read at once and then every poll
// interval.
func (r *Remote) StartListening(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.start(ctx)
}

func (r *Remote) start(ctx context.Context) error {
	r.stop()

	began := r.clock.Now()
	err := r.controller.Activate(ctx)
	result := session.ResultOf(err)
	r.metrics.RecordActivation(ctx, result.String(), r.clock.Now().Sub(began).Seconds(), err == nil)
	log.Activation(result.String(), err)
	r.setLastError(err)

	if err != nil {
		r.notifyListening(false, err)
		return err
	}

	r.listening = true
	r.call(r.pollStatus)
	r.notifyListening(true, nil)
	return nil
}

// StopListening ends the session, cancels every pending timer and clears
// the transient fields. It is safe to call when not listening.
func (r *Remote) StopListening() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	r.stop()
}

func (r *Remote) stop() {
	// Deactivate waits for the forwarder, so every outcome of the session is
	// already queued ahead of the clear below.
	r.controller.Deactivate()
	r.call(r.clear)

	if !r.listening {
		return
	}
	r.listening = false
	r.metrics.RecordDeactivation(context.Background())
	r.notifyListening(false, nil)
}

// Toggle starts listening when idle and stops it otherwise.
func (r *Remote) Toggle(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.listening {
		r.stop()
		return nil
	}
	return r.start(ctx)
}

// Listening reports whether a session was started and not yet stopped.
func (r *Remote) Listening() bool {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.listening
}

// State returns the session lifecycle state.
func (r *Remote) State() session.State {
	return r.controller.State()
}

// Display returns the current display fields.
func (r *Remote) Display() display.State {
	return r.display.Snapshot()
}

// LastError returns the error of the most recent start attempt, or nil if
// it succeeded.
func (r *Remote) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Remote) setLastError(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// Flush waits until everything queued so far has run on the owner goroutine.
func (r *Remote) Flush() {
	r.call(func() {})
}

// Close stops listening and ends the owner goroutine. Work still queued is
// dropped.
func (r *Remote) Close() {
	r.StopListening()
	r.doneOnce.Do(func() { close(r.done) })
	<-r.stopped
}

// The methods below run on the owner goroutine.

func (r *Remote) clear() {
	r.timers.CancelAll()
	r.display.Reset()
}

func (r *Remote) pollStatus() {
	r.display.ShowPlaybackStatus(r.sink.CurrentStatus())
	r.timers.Arm(statusPollKey, r.poll, r.pollStatus)
}

func (r *Remote) accepted(action string) {
	r.metrics.RecordOutcome(context.Background(), recognition.Accepted.String())
	r.display.ShowRecognized(action)
	r.dispatcher.Dispatch(action)
}

func (r *Remote) rejected(text string) {
	r.metrics.RecordOutcome(context.Background(), recognition.Rejected.String())
	r.display.ShowRejected(text)
}

func (r *Remote) notifyListening(listening bool, err error) {
	if r.listener == nil {
		return
	}
	r.call(func() { r.listener.ListeningChanged(listening, err) })
}

// handler receives session outcomes on the forwarder goroutine and hands
// them to the owner.
type handler struct{ r *Remote }

func (h handler) SpeechAccepted(text string) {
	h.r.post(func() { h.r.accepted(text) })
}

func (h handler) SpeechRejected(text string) {
	h.r.post(func() { h.r.rejected(text) })
}
