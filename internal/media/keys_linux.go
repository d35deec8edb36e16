//go:build linux

package media

import "github.com/micmonay/keybd_event"

// uinput key codes.
func keyCodes() map[Key]int {
	return map[Key]int{
		KeyMute:       keybd_event.VK_MUTE,
		KeyVolumeDown: keybd_event.VK_VOLUMEDOWN,
		KeyVolumeUp:   keybd_event.VK_VOLUMEUP,
		KeyNext:       keybd_event.VK_NEXTSONG,
		KeyPlayPause:  keybd_event.VK_PLAYPAUSE,
		KeyPrevious:   keybd_event.VK_PREVIOUSSONG,
		KeyStop:       keybd_event.VK_STOPCD,
	}
}
