package audio

import (
	"context"
	"fmt"
	"sync"
)

// FakeProvider hands out FakeSensors and records how they are used.
type FakeProvider struct {
	// Err, when set, is returned by Default.
	Err error
	// StreamErr, when set, is returned by every sensor's OpenStream.
	StreamErr error

	mu      sync.Mutex
	sensors []*FakeSensor
}

// Default returns a new sensor.
func (p *FakeProvider) Default() (Sensor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	s := &FakeSensor{name: fmt.Sprintf("fake-%d", len(p.sensors)), streamErr: p.StreamErr}
	p.sensors = append(p.sensors, s)
	return s, nil
}

// Sensors returns every sensor handed out so far.
func (p *FakeProvider) Sensors() []*FakeSensor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*FakeSensor(nil), p.sensors...)
}

// Last returns the most recent sensor, or nil.
func (p *FakeProvider) Last() *FakeSensor {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sensors) == 0 {
		return nil
	}
	return p.sensors[len(p.sensors)-1]
}

// OpenStreams counts streams that are open across all sensors.
func (p *FakeProvider) OpenStreams() int {
	n := 0
	for _, s := range p.Sensors() {
		if st := s.Stream(); st != nil && !st.Closed() {
			n++
		}
	}
	return n
}

// FakeSensor opens FakeStreams. Opening a second stream while one is live is
// recorded as a violation.
type FakeSensor struct {
	name      string
	streamErr error

	mu         sync.Mutex
	stream     *FakeStream
	opens      int
	violations int
	closed     bool
}

func (s *FakeSensor) Name() string {
	return s.name
}

func (s *FakeSensor) OpenStream(context.Context) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	if s.stream != nil && !s.stream.Closed() {
		s.violations++
	}
	s.opens++
	s.stream = NewFakeStream()
	return s.stream, nil
}

func (s *FakeSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Stream returns the most recently opened stream.
func (s *FakeSensor) Stream() *FakeStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// Opens returns how many streams were opened.
func (s *FakeSensor) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Violations returns how many times a stream was opened over a live one.
func (s *FakeSensor) Violations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations
}

// Closed reports whether Close was called.
func (s *FakeSensor) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FakeStream is fed by tests through Send and End.
type FakeStream struct {
	samples chan AudioSample
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

// NewFakeStream returns an open stream.
func NewFakeStream() *FakeStream {
	return &FakeStream{samples: make(chan AudioSample, 16)}
}

func (f *FakeStream) Samples() <-chan AudioSample {
	return f.samples
}

// Send delivers one chunk of audio. It reports false if the stream is closed.
func (f *FakeStream) Send(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.samples <- AudioSample{Data: data, Frames: uint32(len(data) / 2)}
	return true
}

// End closes the sample channel as if the source ran dry.
func (f *FakeStream) End() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

func (f *FakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
	return nil
}

func (f *FakeStream) closeLocked() {
	f.closed = true
	f.once.Do(func() { close(f.samples) })
}

// Closed reports whether the stream was closed or ended.
func (f *FakeStream) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
