package audio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// DeviceInfo contains information about a capture device
type DeviceInfo struct {
	ID        string // capture-<index>
	Index     int    // position in the backend's capture list
	Name      string // Human-readable device name
	IsDefault bool   // Whether this is the default device
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// ListDevices returns the available capture devices
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	return describe(infos), nil
}

func describe(infos []malgo.DeviceInfo) []DeviceInfo {
	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        fmt.Sprintf("capture-%d", i),
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices
}

// SelectDevice picks a device from devices. An empty selector picks the
// default device, or the first one when none is flagged. Otherwise the
// selector matches a device ID exactly, or a name case-insensitively.
func SelectDevice(devices []DeviceInfo, selector string) (DeviceInfo, error) {
	if len(devices) == 0 {
		return DeviceInfo{}, fmt.Errorf("%w: no capture devices found", ErrNoSensor)
	}

	if selector == "" {
		for _, d := range devices {
			if d.IsDefault {
				return d, nil
			}
		}
		return devices[0], nil
	}

	for _, d := range devices {
		if d.ID == selector {
			return d, nil
		}
	}
	if i, err := strconv.Atoi(selector); err == nil && i >= 0 && i < len(devices) {
		return devices[i], nil
	}

	search := strings.ToLower(selector)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), search) {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("%w: no device matching %q", ErrNoSensor, selector)
}

// MicProvider resolves a microphone through malgo.
type MicProvider struct {
	config   CaptureConfig
	selector string
	list     func() ([]DeviceInfo, error)
}

// NewMicProvider returns a provider for the device named by selector, or the
// system default when selector is empty.
func NewMicProvider(config CaptureConfig, selector string) *MicProvider {
	return &MicProvider{config: config, selector: selector, list: ListDevices}
}

// Default resolves the configured device.
func (p *MicProvider) Default() (Sensor, error) {
	devices, err := p.list()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSensor, err)
	}
	device, err := SelectDevice(devices, p.selector)
	if err != nil {
		return nil, err
	}
	return &micSensor{device: device, config: p.config}, nil
}

type micSensor struct {
	device DeviceInfo
	config CaptureConfig

	mu     sync.Mutex
	stream *MalgoStream
}

func (s *micSensor) Name() string {
	return s.device.Name
}

func (s *micSensor) OpenStream(ctx context.Context) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil && s.stream.IsRunning() {
		return nil, fmt.Errorf("%w: %s already streaming", ErrNoStream, s.device.Name)
	}

	stream := NewMalgoStream(s.config, s.device.Index)
	if err := stream.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoStream, err)
	}
	s.stream = stream
	return stream, nil
}

func (s *micSensor) Close() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		return stream.Close()
	}
	return nil
}
