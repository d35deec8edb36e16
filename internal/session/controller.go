// Package session owns the lifetime of one listening session: the audio
// sensor, its stream and the recognizer run on top of it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/emmett/voxremote/internal/audio"
	"github.com/emmett/voxremote/internal/log"
	"github.com/emmett/voxremote/internal/recognition"
	"github.com/emmett/voxremote/internal/vocab"
)

var (
	ErrNoSensorAvailable           = errors.New("no sensor available")
	ErrNoAudioStreamFound          = errors.New("no audio stream found")
	ErrNoSpeechRecognizerAvailable = errors.New("no speech recognizer available")
)

// State is the lifecycle state of a session.
type State int

const (
	Unopened State = iota
	Opening
	Active
	Closing
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Active:
		return "active"
	case Closing:
		return "closing"
	default:
		return "unopened"
	}
}

// Result classifies the outcome of Activate for observers.
type Result int

const (
	Success Result = iota
	NoSensorAvailable
	NoAudioStreamFound
	NoSpeechRecognizerAvailable
)

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case NoSensorAvailable:
		return "NO_SENSOR_AVAILABLE"
	case NoAudioStreamFound:
		return "NO_AUDIO_STREAM_FOUND"
	case NoSpeechRecognizerAvailable:
		return "NO_SPEECH_RECOGNIZER_AVAILABLE"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ResultOf maps an Activate error to its Result. Errors outside the session
// sentinels map to NoSpeechRecognizerAvailable.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrNoSensorAvailable):
		return NoSensorAvailable
	case errors.Is(err, ErrNoAudioStreamFound):
		return NoAudioStreamFound
	default:
		return NoSpeechRecognizerAvailable
	}
}

// Recognizer turns a stream into classified outcomes.
type Recognizer interface {
	Start(ctx context.Context, v *vocab.Vocabulary, stream audio.Stream) (<-chan recognition.Outcome, error)
	Stop() error
}

// Handler receives outcomes in the order the recognizer produced them.
type Handler interface {
	SpeechAccepted(text string)
	SpeechRejected(text string)
}

// Option configures a Controller.
type Option func(*Controller)

// OnStateChange registers fn to be called after every state transition.
// fn runs with no controller lock held.
func OnStateChange(fn func(State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// Controller opens at most one session at a time.
type Controller struct {
	provider   audio.SensorProvider
	recognizer Recognizer
	vocab      *vocab.Vocabulary
	handler    Handler
	onState    func(State)

	// lifecycle serializes Activate and Deactivate.
	lifecycle sync.Mutex

	mu       sync.Mutex
	state    State
	sensor   audio.Sensor
	stream   audio.Stream
	cancel   context.CancelFunc
	group    *errgroup.Group
	accepted int
	rejected int
}

// NewController returns an idle controller.
func NewController(provider audio.SensorProvider, recognizer Recognizer, v *vocab.Vocabulary, handler Handler, opts ...Option) *Controller {
	c := &Controller{
		provider:   provider,
		recognizer: recognizer,
		vocab:      v,
		handler:    handler,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.onState != nil {
		c.onState(s)
	}
}

// Activate opens a new session, tearing down any previous one first. On
// failure nothing acquired during the attempt is left open.
func (c *Controller) Activate(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.teardown()
	c.setState(Opening)

	sensor, err := c.provider.Default()
	if err != nil {
		c.setState(Unopened)
		return fmt.Errorf("%w: %w", ErrNoSensorAvailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	stream, err := sensor.OpenStream(runCtx)
	if err != nil {
		cancel()
		closeLogged("sensor", sensor.Close)
		c.setState(Unopened)
		return fmt.Errorf("%w: %w", ErrNoAudioStreamFound, err)
	}

	outcomes, err := c.recognizer.Start(runCtx, c.vocab, stream)
	if err != nil {
		cancel()
		closeLogged("stream", stream.Close)
		closeLogged("sensor", sensor.Close)
		c.setState(Unopened)
		return fmt.Errorf("%w: %w", ErrNoSpeechRecognizerAvailable, err)
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		c.forward(gctx, outcomes)
		return nil
	})

	c.mu.Lock()
	c.sensor = sensor
	c.stream = stream
	c.cancel = cancel
	c.group = g
	c.accepted, c.rejected = 0, 0
	c.mu.Unlock()

	c.setState(Active)
	log.SessionStart(sensor.Name(), c.vocab.Len())
	return nil
}

// forward delivers outcomes one at a time. It returns when the recognizer
// closes its channel or the session is cancelled.
func (c *Controller) forward(ctx context.Context, outcomes <-chan recognition.Outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-outcomes:
			if !ok {
				return
			}
			c.mu.Lock()
			if o.Kind == recognition.Accepted {
				c.accepted++
			} else {
				c.rejected++
			}
			c.mu.Unlock()

			if o.Kind == recognition.Accepted {
				c.handler.SpeechAccepted(o.Text)
			} else {
				c.handler.SpeechRejected(o.Text)
			}
		}
	}
}

// Deactivate closes the current session. It is a no-op when nothing is open.
func (c *Controller) Deactivate() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.teardown()
}

// teardown must be called with lifecycle held.
func (c *Controller) teardown() {
	c.mu.Lock()
	if c.state == Unopened {
		c.mu.Unlock()
		return
	}
	sensor, stream, cancel, g := c.sensor, c.stream, c.cancel, c.group
	accepted, rejected := c.accepted, c.rejected
	c.mu.Unlock()

	c.setState(Closing)

	if cancel != nil {
		cancel()
	}
	closeLogged("recognizer", c.recognizer.Stop)
	if stream != nil {
		closeLogged("stream", stream.Close)
	}
	if g != nil {
		_ = g.Wait()
	}
	if sensor != nil {
		closeLogged("sensor", sensor.Close)
	}

	c.mu.Lock()
	c.sensor, c.stream, c.cancel, c.group = nil, nil, nil, nil
	c.mu.Unlock()

	c.setState(Unopened)
	log.SessionEnd(accepted, rejected)
}

func closeLogged(what string, fn func() error) {
	if err := fn(); err != nil {
		log.Warnf("close %s: %v", what, err)
	}
}
