// Package input registers the global hotkey that starts and stops listening.
package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.design/x/hotkey"

	"github.com/emmett/voxremote/internal/log"
)

// DefaultHotkey toggles listening when no other combination is configured.
const DefaultHotkey = "ctrl+shift+v"

// HotkeyToggle calls onPress on every press of a global key combination.
type HotkeyToggle struct {
	mu      sync.Mutex
	hk      *hotkey.Hotkey
	onPress func()
	presses int
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHotkeyToggle creates a toggle that has not been registered yet.
func NewHotkeyToggle(onPress func()) *HotkeyToggle {
	return &HotkeyToggle{onPress: onPress}
}

// Start registers combo (for example "ctrl+shift+v") and begins listening.
func (h *HotkeyToggle) Start(ctx context.Context, combo string) error {
	mods, key, err := ParseHotkey(combo)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}

	h.hk = hotkey.New(mods, key)
	if err := h.hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}
	log.Infof("hotkey %s registered", combo)

	h.listen(ctx, h.hk.Keydown())
	return nil
}

func (h *HotkeyToggle) listen(ctx context.Context, keydown <-chan hotkey.Event) {
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})

	go func() {
		defer close(h.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-keydown:
				if !ok {
					return
				}
				h.mu.Lock()
				h.presses++
				h.mu.Unlock()

				if h.onPress != nil {
					h.onPress()
				}
			}
		}
	}()
}

// Stop unregisters the hotkey and stops listening.
func (h *HotkeyToggle) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.hk != nil {
		if err := h.hk.Unregister(); err != nil {
			log.Warnf("unregister hotkey: %v", err)
		}
	}
	// Wait briefly for goroutine to exit
	if h.done != nil {
		select {
		case <-h.done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Presses returns how many key presses were handled.
func (h *HotkeyToggle) Presses() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presses
}

var commonModifiers = map[string]hotkey.Modifier{
	"ctrl":    hotkey.ModCtrl,
	"control": hotkey.ModCtrl,
	"shift":   hotkey.ModShift,
}

var namedKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"tab": hotkey.KeyTab, "escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// ParseHotkey parses a combination like "ctrl+shift+space" into modifiers
// and a single key.
func ParseHotkey(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	if strings.TrimSpace(s) == "" {
		return nil, 0, fmt.Errorf("empty hotkey string")
	}

	var mods []hotkey.Modifier
	var key hotkey.Key
	var keyFound bool

	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		if mod, ok := commonModifiers[part]; ok {
			mods = append(mods, mod)
			continue
		}
		if mod, ok := platformModifiers[part]; ok {
			mods = append(mods, mod)
			continue
		}
		k, ok := namedKeys[part]
		if !ok {
			return nil, 0, fmt.Errorf("unknown key: %q", part)
		}
		if keyFound {
			return nil, 0, fmt.Errorf("multiple keys specified")
		}
		key = k
		keyFound = true
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}
	return mods, key, nil
}
