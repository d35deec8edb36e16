// Package media drives a media player: transport commands, volume and the
// "now playing" status line.
package media

// Sink receives playback commands. Commands are fire-and-forget: failures
// are logged by the implementation, never returned.
type Sink interface {
	StatusReader

	Next()
	Previous()
	PlayOrPause()
	Stop()
	VolumeUp()
	VolumeDown()
	Mute()
}

// StatusReader reports what is playing. An empty string means nothing is
// known.
type StatusReader interface {
	CurrentStatus() string
}

// NoStatus reports nothing.
type NoStatus struct{}

func (NoStatus) CurrentStatus() string { return "" }

// StatusFunc adapts a function to StatusReader.
type StatusFunc func() string

func (f StatusFunc) CurrentStatus() string { return f() }
