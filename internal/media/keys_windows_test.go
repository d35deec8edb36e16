//go:build windows

package media

import (
	"testing"

	"github.com/micmonay/keybd_event"
)

func TestKeyCodesAreVirtualKeys(t *testing.T) {
	want := map[Key]int{
		KeyNext:       keybd_event.VK_MEDIA_NEXT_TRACK,
		KeyPrevious:   keybd_event.VK_MEDIA_PREV_TRACK,
		KeyPlayPause:  keybd_event.VK_MEDIA_PLAY_PAUSE,
		KeyStop:       keybd_event.VK_MEDIA_STOP,
		KeyVolumeUp:   keybd_event.VK_VOLUME_UP,
		KeyVolumeDown: keybd_event.VK_VOLUME_DOWN,
		KeyMute:       keybd_event.VK_VOLUME_MUTE,
	}
	codes := keyCodes()
	for k, code := range want {
		if codes[k] != code {
			t.Errorf("%s = %#x, want %#x", k, codes[k], code)
		}
		// Codes below 0xFFF are sent as scan codes.
		if codes[k] <= 0xFFF {
			t.Errorf("%s = %#x would be sent as a scan code", k, codes[k])
		}
	}
}
