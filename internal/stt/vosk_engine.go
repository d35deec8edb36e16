package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskEngine implements the Engine interface using Vosk
type VoskEngine struct {
	model       *vosk.VoskModel
	recognizer  *vosk.VoskRecognizer
	config      Config
	mu          sync.Mutex
	initialized bool
}

// VoskResult represents the JSON result from Vosk
type VoskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
	Partial string `json:"partial,omitempty"`
}

// NewVoskEngine creates a new Vosk STT engine
func NewVoskEngine() *VoskEngine {
	return &VoskEngine{}
}

// NewVoskFactory returns a Factory producing Vosk engines.
func NewVoskFactory() Factory {
	return func() Engine { return NewVoskEngine() }
}

// Initialize loads the model and builds a recognizer. With a grammar the
// recognizer only decodes the listed phrases plus [unk]. Kaldi decoders used
// by Vosk do not adapt online, so DisableAdaptation needs no extra call.
func (v *VoskEngine) Initialize(config Config) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return fmt.Errorf("engine already initialized")
	}

	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}
	if model == nil {
		return fmt.Errorf("failed to load model from %s: model returned nil", config.ModelPath)
	}

	var recognizer *vosk.VoskRecognizer
	if config.Grammar != "" {
		recognizer, err = vosk.NewRecognizerGrm(model, float64(config.SampleRate), config.Grammar)
	} else {
		recognizer, err = vosk.NewRecognizer(model, float64(config.SampleRate))
	}
	if err != nil {
		model.Free()
		return fmt.Errorf("failed to create recognizer: %w", err)
	}

	if config.MaxAlternatives > 0 {
		recognizer.SetMaxAlternatives(config.MaxAlternatives)
	}
	// Word results carry the per-word confidence the gate needs.
	recognizer.SetWords(1)

	v.model = model
	v.recognizer = recognizer
	v.config = config
	v.initialized = true
	return nil
}

// ProcessAudio feeds audio and returns a final result when Vosk detects the
// end of an utterance, or a partial result otherwise.
func (v *VoskEngine) ProcessAudio(ctx context.Context, audioData []byte) (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if v.recognizer.AcceptWaveform(audioData) > 0 {
		res, err := parseVoskResult(v.recognizer.Result())
		if err != nil {
			return nil, fmt.Errorf("failed to parse result: %w", err)
		}
		return res, nil
	}

	var partial VoskResult
	if err := json.Unmarshal([]byte(v.recognizer.PartialResult()), &partial); err != nil {
		return nil, fmt.Errorf("failed to parse partial result: %w", err)
	}
	return &Result{Text: partial.Partial, Partial: true}, nil
}

// FinalResult returns the final result and resets the recognizer
func (v *VoskEngine) FinalResult() (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	res, err := parseVoskResult(v.recognizer.FinalResult())
	if err != nil {
		return nil, fmt.Errorf("failed to parse final result: %w", err)
	}
	return res, nil
}

// Reset resets the recognizer state
func (v *VoskEngine) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return fmt.Errorf("engine not initialized")
	}
	v.recognizer.Reset()
	return nil
}

// Close releases resources
func (v *VoskEngine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil
	}

	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}

	v.initialized = false
	return nil
}

// IsInitialized returns true if the engine is initialized
func (v *VoskEngine) IsInitialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

func parseVoskResult(data string) (*Result, error) {
	var vr VoskResult
	if err := json.Unmarshal([]byte(data), &vr); err != nil {
		return nil, err
	}

	res := &Result{Text: vr.Text}
	for _, w := range vr.Result {
		res.Words = append(res.Words, Word{Word: w.Word, Conf: w.Conf, Start: w.Start, End: w.End})
	}
	res.Confidence = averageConfidence(res.Words)
	return res, nil
}

// averageConfidence averages word confidences; no words means no confidence.
func averageConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0.0
	}

	var sum float64
	for _, w := range words {
		sum += w.Conf
	}
	return sum / float64(len(words))
}
