package audio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSensor is returned when no audio input can be found.
	ErrNoSensor = errors.New("no audio sensor available")

	// ErrNoStream is returned when a sensor cannot produce a stream.
	ErrNoStream = errors.New("no audio stream available")
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz)
	SampleRate uint32

	// Channels is the number of audio channels
	// 1 = mono, the only layout the recognizer accepts
	Channels uint32

	// BitDepth is the number of bits per sample
	BitDepth uint32

	// BufferFrames is the number of frames per buffer
	// Smaller = lower latency, higher CPU usage
	BufferFrames uint32

	// SampleBufferSize is the size of the channel buffer for audio samples
	// Larger = more tolerance for slow STT processing, higher memory usage
	SampleBufferSize int
}

// DefaultConfig returns the 16 kHz mono 16-bit layout the recognizer wants
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:       16000,
		Channels:         1,
		BitDepth:         16,
		BufferFrames:     480, // 30ms at 16kHz
		SampleBufferSize: 50,  // ~1.5 seconds
	}
}

// FrameDuration is the audio time covered by one buffer.
func (c CaptureConfig) FrameDuration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.BufferFrames) * time.Second / time.Duration(c.SampleRate)
}

// AudioSample represents a chunk of captured audio data
type AudioSample struct {
	Data      []byte    // 16-bit little-endian PCM
	Timestamp time.Time // When the sample was captured
	Frames    uint32    // Number of audio frames in this sample
}

// Stream is a live source of audio samples. The Samples channel is closed
// when the stream ends or is closed.
type Stream interface {
	Samples() <-chan AudioSample
	Close() error
}

// Sensor is an audio input that can open a stream.
type Sensor interface {
	// Name identifies the sensor for logs and listings.
	Name() string

	// OpenStream starts delivering audio. Errors wrap ErrNoStream.
	OpenStream(ctx context.Context) (Stream, error)

	// Close releases the sensor and any stream it still owns.
	Close() error
}

// SensorProvider resolves the sensor to listen on.
type SensorProvider interface {
	// Default returns the preferred sensor. Errors wrap ErrNoSensor.
	Default() (Sensor, error)
}
