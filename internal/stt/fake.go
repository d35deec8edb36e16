package stt

import (
	"context"
	"fmt"
	"sync"
)

// FakeEngine replays scripted results, one per ProcessAudio call. Once the
// script runs out it returns empty partial results.
type FakeEngine struct {
	// InitErr, when set, is returned by Initialize.
	InitErr error

	mu          sync.Mutex
	script      []Result
	final       *Result
	config      Config
	initialized bool
	closed      int
	chunks      int
}

// NewFakeEngine returns an engine that will emit results in order.
func NewFakeEngine(results ...Result) *FakeEngine {
	return &FakeEngine{script: results}
}

// Push appends results to the script.
func (f *FakeEngine) Push(results ...Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, results...)
}

// SetFinal sets the result returned by FinalResult.
func (f *FakeEngine) SetFinal(r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.final = &r
}

func (f *FakeEngine) Initialize(config Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InitErr != nil {
		return f.InitErr
	}
	if f.initialized {
		return fmt.Errorf("engine already initialized")
	}
	f.config = config
	f.initialized = true
	return nil
}

func (f *FakeEngine) ProcessAudio(ctx context.Context, _ []byte) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.chunks++
	if len(f.script) == 0 {
		return &Result{Partial: true}, nil
	}
	r := f.script[0]
	f.script = f.script[1:]
	return &r, nil
}

func (f *FakeEngine) FinalResult() (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}
	if f.final == nil {
		return &Result{}, nil
	}
	r := *f.final
	f.final = nil
	return &r, nil
}

func (f *FakeEngine) Reset() error {
	return nil
}

func (f *FakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = false
	f.closed++
	return nil
}

func (f *FakeEngine) IsInitialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

// Config returns the configuration passed to Initialize.
func (f *FakeEngine) Config() Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config
}

// Closed returns how many times Close was called.
func (f *FakeEngine) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Chunks returns how many audio chunks were processed.
func (f *FakeEngine) Chunks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chunks
}
