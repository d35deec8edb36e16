//go:build !linux && !windows

package media

// keybd_event has no media key codes on this platform.
func keyCodes() map[Key]int {
	return nil
}
