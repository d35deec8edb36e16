package media

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/micmonay/keybd_event"

	"github.com/emmett/voxremote/internal/log"
)

// Key names a media key independent of the platform key code.
type Key int

const (
	KeyNext Key = iota
	KeyPrevious
	KeyPlayPause
	KeyStop
	KeyVolumeUp
	KeyVolumeDown
	KeyMute
)

func (k Key) String() string {
	switch k {
	case KeyNext:
		return "next"
	case KeyPrevious:
		return "previous"
	case KeyPlayPause:
		return "play/pause"
	case KeyStop:
		return "stop"
	case KeyVolumeUp:
		return "volume up"
	case KeyVolumeDown:
		return "volume down"
	case KeyMute:
		return "mute"
	default:
		return fmt.Sprintf("Key(%d)", int(k))
	}
}

// Keys sends commands as synthetic media key presses, the way a keyboard's
// multimedia row would. Whatever player owns the media keys reacts.
type Keys struct {
	mu     sync.Mutex
	press  func(code int) error
	codes  map[Key]int
	status StatusReader
}

// NewKeys opens the platform keyboard injector. status supplies
// CurrentStatus; nil means NoStatus.
func NewKeys(status StatusReader) (*Keys, error) {
	codes := keyCodes()
	if codes == nil {
		return nil, fmt.Errorf("media keys are not supported on %s", runtime.GOOS)
	}

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("failed to open keyboard injector: %w", err)
	}
	press := func(code int) error {
		kb.SetKeys(code)
		return kb.Launching()
	}
	return newKeys(press, codes, status), nil
}

func newKeys(press func(int) error, codes map[Key]int, status StatusReader) *Keys {
	if status == nil {
		status = NoStatus{}
	}
	return &Keys{press: press, codes: codes, status: status}
}

func (k *Keys) send(key Key) {
	code, ok := k.codes[key]
	if !ok {
		log.Warnf("no key code for %s", key)
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.press(code); err != nil {
		log.Warnf("media key %s: %v", key, err)
	}
}

func (k *Keys) Next()        { k.send(KeyNext) }
func (k *Keys) Previous()    { k.send(KeyPrevious) }
func (k *Keys) PlayOrPause() { k.send(KeyPlayPause) }
func (k *Keys) Stop()        { k.send(KeyStop) }
func (k *Keys) VolumeUp()    { k.send(KeyVolumeUp) }
func (k *Keys) VolumeDown()  { k.send(KeyVolumeDown) }
func (k *Keys) Mute()        { k.send(KeyMute) }

func (k *Keys) CurrentStatus() string {
	return k.status.CurrentStatus()
}
