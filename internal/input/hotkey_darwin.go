//go:build darwin

package input

import "golang.design/x/hotkey"

// Option and Command on macOS.
var platformModifiers = map[string]hotkey.Modifier{
	"alt":     hotkey.ModOption,
	"option":  hotkey.ModOption,
	"cmd":     hotkey.ModCmd,
	"command": hotkey.ModCmd,
	"super":   hotkey.ModCmd,
}
