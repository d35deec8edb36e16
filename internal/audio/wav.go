package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// WAVProvider replays a recorded WAV file as if it were a microphone. The
// file must match the capture layout: 16 kHz mono 16-bit PCM by default.
type WAVProvider struct {
	fs     afero.Fs
	path   string
	config CaptureConfig
	paced  bool
}

// NewWAVProvider returns a provider for path on fs. When paced is true the
// samples are delivered in real time; otherwise as fast as they are read.
func NewWAVProvider(fs afero.Fs, path string, config CaptureConfig, paced bool) *WAVProvider {
	return &WAVProvider{fs: fs, path: path, config: config, paced: paced}
}

// Default checks that the file exists.
func (p *WAVProvider) Default() (Sensor, error) {
	if p.path == "" {
		return nil, fmt.Errorf("%w: no wav file configured", ErrNoSensor)
	}
	ok, err := afero.Exists(p.fs, p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSensor, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNoSensor, p.path)
	}
	return &wavSensor{provider: p}, nil
}

type wavSensor struct {
	provider *WAVProvider

	mu     sync.Mutex
	stream *wavStream
}

func (s *wavSensor) Name() string {
	return "wav:" + s.provider.path
}

func (s *wavSensor) OpenStream(ctx context.Context) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return nil, fmt.Errorf("%w: %s already streaming", ErrNoStream, s.provider.path)
	}

	p := s.provider
	f, err := p.fs.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoStream, err)
	}

	dec := wav.NewDecoder(f)
	if err := checkFormat(dec, p.config); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrNoStream, p.path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	stream := &wavStream{
		samples: make(chan AudioSample, max(p.config.SampleBufferSize, 1)),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go stream.run(ctx, f, dec, p.config, p.paced)

	s.stream = stream
	return stream, nil
}

func (s *wavSensor) Close() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		return stream.Close()
	}
	return nil
}

func checkFormat(dec *wav.Decoder, config CaptureConfig) error {
	if !dec.IsValidFile() {
		return fmt.Errorf("not a valid wav file")
	}
	if dec.WavAudioFormat != 1 {
		return fmt.Errorf("unsupported encoding %d, want PCM", dec.WavAudioFormat)
	}
	if dec.SampleRate != config.SampleRate {
		return fmt.Errorf("sample rate %d Hz, want %d Hz", dec.SampleRate, config.SampleRate)
	}
	if uint32(dec.NumChans) != config.Channels {
		return fmt.Errorf("%d channels, want %d", dec.NumChans, config.Channels)
	}
	if uint32(dec.BitDepth) != config.BitDepth {
		return fmt.Errorf("%d-bit samples, want %d-bit", dec.BitDepth, config.BitDepth)
	}
	return nil
}

type wavStream struct {
	samples chan AudioSample
	cancel  context.CancelFunc
	done    chan struct{}
}

func (w *wavStream) Samples() <-chan AudioSample {
	return w.samples
}

// Close stops the replay and waits for the reader to exit.
func (w *wavStream) Close() error {
	w.cancel()
	<-w.done
	return nil
}

func (w *wavStream) run(ctx context.Context, f io.Closer, dec *wav.Decoder, config CaptureConfig, paced bool) {
	defer close(w.done)
	defer close(w.samples)
	defer f.Close()

	frames := int(config.BufferFrames)
	if frames <= 0 {
		frames = 480
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: int(config.Channels), SampleRate: int(config.SampleRate)},
		Data:   make([]int, frames*int(config.Channels)),
	}

	var tick <-chan time.Time
	if paced {
		ticker := time.NewTicker(config.FrameDuration())
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		n, err := dec.PCMBuffer(buf)
		if n == 0 || (err != nil && err != io.EOF) {
			return
		}

		data := make([]byte, n*2)
		for i, v := range buf.Data[:n] {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
		}
		sample := AudioSample{
			Data:      data,
			Timestamp: time.Now(),
			Frames:    uint32(n / int(config.Channels)),
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		}
		select {
		case <-ctx.Done():
			return
		case w.samples <- sample:
		}

		if err == io.EOF {
			return
		}
	}
}
