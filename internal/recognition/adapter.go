package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/emmett/voxremote/internal/audio"
	"github.com/emmett/voxremote/internal/log"
	"github.com/emmett/voxremote/internal/stt"
	"github.com/emmett/voxremote/internal/vocab"
)

// ErrEngineUnavailable is returned when no recognizer can be built for the
// configured locale.
var ErrEngineUnavailable = errors.New("speech recognition engine unavailable")

// Adapter runs a grammar-constrained recognizer over an audio stream and
// emits gated outcomes.
type Adapter struct {
	locator    stt.Locator
	factory    stt.Factory
	locale     string
	sampleRate int

	mu      sync.Mutex
	engine  stt.Engine
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLocale selects the recognizer language. Default "en-US".
func WithLocale(locale string) Option {
	return func(a *Adapter) { a.locale = locale }
}

// WithSampleRate sets the rate of the incoming PCM. Default 16000.
func WithSampleRate(rate int) Option {
	return func(a *Adapter) { a.sampleRate = rate }
}

// NewAdapter returns an adapter that builds engines with factory and loads
// models found by locator.
func NewAdapter(locator stt.Locator, factory stt.Factory, opts ...Option) *Adapter {
	a := &Adapter{
		locator:    locator,
		factory:    factory,
		locale:     "en-US",
		sampleRate: 16000,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start loads a recognizer restricted to v's phrases and begins feeding it
// audio from stream. The returned channel carries outcomes in arrival order
// and is closed when the run ends.
func (a *Adapter) Start(ctx context.Context, v *vocab.Vocabulary, stream audio.Stream) (<-chan Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil, fmt.Errorf("recognizer already running")
	}

	engine, err := a.load(v)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	out := make(chan Outcome, 16)
	g.Go(func() error {
		defer close(out)
		return a.read(gctx, engine, v, stream, out)
	})

	a.engine = engine
	a.cancel = cancel
	a.group = g
	a.running = true
	return out, nil
}

func (a *Adapter) load(v *vocab.Vocabulary) (engine stt.Engine, err error) {
	modelPath, err := a.locator.Locate(a.locale)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	created := a.factory()
	engine = created
	defer func() {
		// The native engine can abort on malformed models.
		if r := recover(); r != nil {
			closeAfterPanic(created)
			engine = nil
			err = fmt.Errorf("%w: engine panicked: %v", ErrEngineUnavailable, r)
		}
	}()

	config := stt.DefaultConfig(modelPath)
	config.SampleRate = a.sampleRate
	config.Grammar = v.Grammar()
	config.DisableAdaptation = true
	if err := engine.Initialize(config); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	log.Infof("recognizer ready: model=%s locale=%s phrases=%d", modelPath, a.locale, v.Len())
	return engine, nil
}

// closeAfterPanic releases an engine whose Initialize aborted. Close may
// panic too on a half-loaded model.
func closeAfterPanic(engine stt.Engine) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("closing aborted recognizer: %v", r)
		}
	}()
	if err := engine.Close(); err != nil {
		log.Warnf("closing aborted recognizer: %v", err)
	}
}

func (a *Adapter) read(ctx context.Context, engine stt.Engine, v *vocab.Vocabulary, stream audio.Stream, out chan<- Outcome) error {
	samples := stream.Samples()
	for {
		select {
		case <-ctx.Done():
			return nil
		case sample, ok := <-samples:
			if !ok {
				// Source ran dry; flush what the engine still holds.
				res, err := engine.FinalResult()
				if err != nil {
					log.Warnf("final result: %v", err)
					return nil
				}
				a.emit(ctx, *res, v, out)
				log.Info("audio stream ended")
				return nil
			}

			res, err := engine.ProcessAudio(ctx, sample.Data)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warnf("recognizer error: %v", err)
				continue
			}
			a.emit(ctx, *res, v, out)
		}
	}
}

func (a *Adapter) emit(ctx context.Context, res stt.Result, v *vocab.Vocabulary, out chan<- Outcome) {
	outcome, ok := Classify(res, v)
	if !ok {
		return
	}
	log.Recognition(outcome.Kind.String(), outcome.Text, outcome.Confidence)
	select {
	case out <- outcome:
	case <-ctx.Done():
	}
}

// Stop ends the run, waits for the reader and releases the engine. It is
// safe to call before Start and more than once.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.cancel()
	err := a.group.Wait()
	if closeErr := a.engine.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	a.engine = nil
	a.cancel = nil
	a.group = nil
	a.running = false
	return err
}
