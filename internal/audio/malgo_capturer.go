package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoStream captures one microphone through malgo.
type MalgoStream struct {
	config       CaptureConfig
	deviceIndex  int
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	samples      chan AudioSample
	dropped      atomic.Int64
	running      bool
	mu           sync.RWMutex
	stopChan     chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewMalgoStream creates a stream for the capture device at deviceIndex. A
// negative index selects the backend default.
func NewMalgoStream(config CaptureConfig, deviceIndex int) *MalgoStream {
	size := config.SampleBufferSize
	if size <= 0 {
		size = 10
	}
	return &MalgoStream{
		config:      config,
		deviceIndex: deviceIndex,
		samples:     make(chan AudioSample, size),
		stopChan:    make(chan struct{}),
	}
}

// Start begins audio capture
func (m *MalgoStream) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("stream is already running")
	}
	m.mu.Unlock()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.BufferFrames

	if m.deviceIndex >= 0 {
		infos, err := malgoCtx.Devices(malgo.Capture)
		if err != nil {
			_ = malgoCtx.Uninit()
			malgoCtx.Free()
			return fmt.Errorf("failed to enumerate devices: %w", err)
		}
		if m.deviceIndex >= len(infos) {
			_ = malgoCtx.Uninit()
			malgoCtx.Free()
			return fmt.Errorf("capture device %d disappeared", m.deviceIndex)
		}
		deviceConfig.Capture.DeviceID = infos[m.deviceIndex].ID.Pointer()
	}

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(_, pInputSamples []byte, framecount uint32) {
		dataCopy := make([]byte, len(pInputSamples))
		copy(dataCopy, pInputSamples)

		m.mu.RLock()
		defer m.mu.RUnlock()
		if !m.running {
			return
		}
		select {
		case m.samples <- AudioSample{Data: dataCopy, Timestamp: time.Now(), Frames: framecount}:
		default:
			// Recognizer is behind; the frame is lost.
			m.dropped.Add(1)
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	m.mu.Lock()
	m.malgoContext = malgoCtx
	m.device = device
	m.running = true
	m.mu.Unlock()

	if err := device.Start(); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			_ = m.shutdown()
		case <-m.stopChan:
		}
	}()

	return nil
}

// Close stops capture and closes the sample channel. It is safe to call more
// than once.
func (m *MalgoStream) Close() error {
	err := m.shutdown()
	m.wg.Wait()
	return err
}

func (m *MalgoStream) shutdown() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		wasRunning := m.running
		m.running = false
		m.mu.Unlock()

		close(m.stopChan)

		if wasRunning && m.device != nil {
			if stopErr := m.device.Stop(); stopErr != nil {
				err = fmt.Errorf("failed to stop device: %w", stopErr)
			}
			m.device.Uninit()
		}
		if m.malgoContext != nil {
			_ = m.malgoContext.Uninit()
			m.malgoContext.Free()
		}

		// running is false, so the callback no longer sends.
		m.mu.Lock()
		close(m.samples)
		m.mu.Unlock()
	})
	return err
}

// Samples returns a channel that receives audio samples
func (m *MalgoStream) Samples() <-chan AudioSample {
	return m.samples
}

// IsRunning returns true if capture is currently active
func (m *MalgoStream) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Dropped returns how many frames were discarded because the consumer was
// behind.
func (m *MalgoStream) Dropped() int64 {
	return m.dropped.Load()
}
