//go:build windows

package media

import "github.com/micmonay/keybd_event"

// keybd_event offsets virtual keys past its scan code range, so the raw VK
// values must not be used here.
func keyCodes() map[Key]int {
	return map[Key]int{
		KeyMute:       keybd_event.VK_VOLUME_MUTE,
		KeyVolumeDown: keybd_event.VK_VOLUME_DOWN,
		KeyVolumeUp:   keybd_event.VK_VOLUME_UP,
		KeyNext:       keybd_event.VK_MEDIA_NEXT_TRACK,
		KeyPrevious:   keybd_event.VK_MEDIA_PREV_TRACK,
		KeyStop:       keybd_event.VK_MEDIA_STOP,
		KeyPlayPause:  keybd_event.VK_MEDIA_PLAY_PAUSE,
	}
}
