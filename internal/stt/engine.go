package stt

import (
	"context"
	"errors"
	"strings"
)

// UnknownToken is emitted by a grammar recognizer for speech that matched
// none of its phrases.
const UnknownToken = "[unk]"

// ErrNoModel is returned by a Locator when no installed model fits.
var ErrNoModel = errors.New("no speech recognition model available")

// Result represents a speech recognition result
type Result struct {
	// Text is the recognized text
	Text string

	// Partial indicates if this is a partial result (still processing)
	// or a final result (sentence/phrase complete)
	Partial bool

	// Confidence is the recognition confidence (0.0 to 1.0)
	Confidence float64

	// Words holds per-word timing and confidence when the engine reports it
	Words []Word
}

// Word is one recognized word with its confidence.
type Word struct {
	Word  string
	Conf  float64
	Start float64
	End   float64
}

// Matched reports whether the engine recognized a phrase, as opposed to
// hearing only out-of-grammar speech or silence.
func (r Result) Matched() bool {
	text := strings.TrimSpace(r.Text)
	return text != "" && !strings.Contains(text, UnknownToken)
}

// Heard returns the best-effort text of the utterance with [unk] markers
// removed. It falls back to the marker itself when nothing else was heard.
func (r Result) Heard() string {
	fields := strings.Fields(r.Text)
	kept := fields[:0:0]
	for _, f := range fields {
		if f != UnknownToken {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 && len(fields) > 0 {
		return UnknownToken
	}
	return strings.Join(kept, " ")
}

// Config holds configuration for the STT engine
type Config struct {
	// ModelPath is the path to the STT model directory
	ModelPath string

	// SampleRate is the audio sample rate in Hz
	SampleRate int

	// Grammar restricts recognition to a JSON list of phrases. Empty means
	// free-form recognition.
	Grammar string

	// DisableAdaptation asks the engine not to adapt its acoustic model over
	// long sessions.
	DisableAdaptation bool

	// MaxAlternatives is the maximum number of alternative results to return
	MaxAlternatives int
}

// Engine is the interface for speech-to-text engines
type Engine interface {
	// Initialize initializes the engine with the given configuration
	Initialize(config Config) error

	// ProcessAudio processes 16-bit PCM audio and returns the current result
	ProcessAudio(ctx context.Context, audioData []byte) (*Result, error)

	// FinalResult flushes buffered audio and returns the last result
	FinalResult() (*Result, error)

	// Reset resets the recognizer state
	Reset() error

	// Close releases resources
	Close() error

	// IsInitialized returns true if the engine is initialized
	IsInitialized() bool
}

// Factory creates an uninitialized engine.
type Factory func() Engine

// Locator finds the model a recognizer should load for a locale.
type Locator interface {
	Locate(locale string) (modelPath string, err error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(locale string) (string, error)

func (f LocatorFunc) Locate(locale string) (string, error) {
	return f(locale)
}

// DefaultConfig returns a default STT configuration
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:         modelPath,
		SampleRate:        16000,
		DisableAdaptation: true,
	}
}
