// Package display holds the three transient text fields shown to the user
// and clears them after a while.
package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/emmett/voxremote/internal/schedule"
)

// DefaultWindow is how long recognized and rejected text stays visible.
const DefaultWindow = 4 * time.Second

// Field identifies one displayed value.
type Field int

const (
	Recognized Field = iota
	Rejected
	PlaybackStatus
)

func (f Field) String() string {
	switch f {
	case Recognized:
		return "recognized"
	case Rejected:
		return "rejected"
	case PlaybackStatus:
		return "playback"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

func (f Field) clearKey() string {
	return "clear-" + f.String()
}

// Observer is told about every visible change.
type Observer interface {
	DisplayChanged(field Field, value string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Field, string)

func (f ObserverFunc) DisplayChanged(field Field, value string) { f(field, value) }

// State is a snapshot of the displayed fields.
type State struct {
	RecognizedText string
	RejectedText   string
	PlaybackStatus string
}

// Option configures a Machine.
type Option func(*Machine)

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(m *Machine) { m.window = d }
}

// Machine owns the displayed state. Setting a field to the value it already
// holds does nothing: no notification and no new expiry.
type Machine struct {
	observer Observer
	timers   *schedule.Group
	window   time.Duration

	mu    sync.Mutex
	state State
}

// New returns an empty display. observer may be nil.
func New(observer Observer, timers *schedule.Group, opts ...Option) *Machine {
	m := &Machine{observer: observer, timers: timers, window: DefaultWindow}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShowRecognized displays an accepted command for the display window.
func (m *Machine) ShowRecognized(text string) {
	m.set(Recognized, text, true)
}

// ShowRejected displays a rejected utterance for the display window.
func (m *Machine) ShowRejected(text string) {
	m.set(Rejected, text, true)
}

// ShowPlaybackStatus displays what the player reports. It never expires.
func (m *Machine) ShowPlaybackStatus(status string) {
	m.set(PlaybackStatus, status, false)
}

func (m *Machine) set(field Field, value string, expires bool) {
	m.mu.Lock()
	ptr := m.field(field)
	if *ptr == value {
		m.mu.Unlock()
		return
	}
	*ptr = value
	m.mu.Unlock()

	m.notify(field, value)

	if !expires {
		return
	}
	if value == "" {
		m.timers.Cancel(field.clearKey())
		return
	}
	// Re-arming replaces the pending clear, so a superseded timer can never
	// wipe the newer value.
	m.timers.Arm(field.clearKey(), m.window, func() {
		m.set(field, "", false)
	})
}

func (m *Machine) field(f Field) *string {
	switch f {
	case Recognized:
		return &m.state.RecognizedText
	case Rejected:
		return &m.state.RejectedText
	default:
		return &m.state.PlaybackStatus
	}
}

func (m *Machine) notify(field Field, value string) {
	if m.observer != nil {
		m.observer.DisplayChanged(field, value)
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset cancels pending clears and empties the recognized and rejected
// fields. Playback status is kept.
func (m *Machine) Reset() {
	m.timers.Cancel(Recognized.clearKey())
	m.timers.Cancel(Rejected.clearKey())
	m.set(Recognized, "", false)
	m.set(Rejected, "", false)
}
