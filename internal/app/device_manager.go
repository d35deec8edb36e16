package app

import (
	"fmt"
	"io"
	"os"

	"github.com/emmett/voxremote/internal/audio"
)

// DeviceManager handles audio device selection and listing
type DeviceManager struct {
	list func() ([]audio.DeviceInfo, error)
	out  io.Writer
}

// NewDeviceManager creates a DeviceManager that enumerates capture devices
// through malgo and prints to stdout.
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{list: audio.ListDevices, out: os.Stdout}
}

// ListDevices lists all available audio input devices
func (dm *DeviceManager) ListDevices() error {
	fmt.Fprintln(dm.out, "Detecting audio input devices...")
	fmt.Fprintln(dm.out)

	devices, err := dm.list()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(dm.out, "No audio capture devices found.")
		return audio.ErrNoSensor
	}

	fmt.Fprintf(dm.out, "Found %d capture device(s):\n\n", len(devices))

	for _, device := range devices {
		marker := ""
		if device.IsDefault {
			marker = " [DEFAULT]"
		}
		fmt.Fprintf(dm.out, "%d. %s%s\n", device.Index, device.Name, marker)
		fmt.Fprintf(dm.out, "   ID: %s\n", device.ID)
	}
	fmt.Fprintln(dm.out)

	fmt.Fprintln(dm.out, "To use a specific device, run:")
	fmt.Fprintf(dm.out, "  voxremote -device %q\n", devices[0].Name)
	return nil
}

// SelectDevice resolves selector (ID, index or name) the way the microphone
// sensor will, so a bad -device flag fails before the UI starts.
func (dm *DeviceManager) SelectDevice(selector string) (audio.DeviceInfo, error) {
	devices, err := dm.list()
	if err != nil {
		return audio.DeviceInfo{}, fmt.Errorf("failed to list devices: %w", err)
	}

	device, err := audio.SelectDevice(devices, selector)
	if err != nil {
		if selector != "" {
			fmt.Fprintf(dm.out, "Device %q not found. Available devices:\n", selector)
			for _, d := range devices {
				fmt.Fprintf(dm.out, "  %s\n", d)
			}
			fmt.Fprintln(dm.out, "Use -list-devices for more details")
		}
		return audio.DeviceInfo{}, err
	}
	return device, nil
}
