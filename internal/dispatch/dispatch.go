// Package dispatch turns action tokens into media commands.
package dispatch

import (
	"sort"
	"time"

	"github.com/emmett/voxremote/internal/log"
	"github.com/emmett/voxremote/internal/media"
	"github.com/emmett/voxremote/internal/schedule"
	"github.com/emmett/voxremote/internal/vocab"
)

const (
	// StatusRefreshDelay is how long after a command the player status is
	// read back, giving the player time to switch tracks.
	StatusRefreshDelay = 250 * time.Millisecond

	statusRefreshKey = "status-refresh"
)

// StatusFunc receives the player status read after a command.
type StatusFunc func(status string)

var operations = map[string]func(media.Sink){
	vocab.ActionNext:       media.Sink.Next,
	vocab.ActionPrevious:   media.Sink.Previous,
	vocab.ActionStop:       media.Sink.Stop,
	vocab.ActionPlay:       media.Sink.PlayOrPause,
	vocab.ActionPause:      media.Sink.PlayOrPause,
	vocab.ActionMute:       media.Sink.Mute,
	vocab.ActionVolumeUp:   media.Sink.VolumeUp,
	vocab.ActionVolumeDown: media.Sink.VolumeDown,
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRefreshDelay overrides StatusRefreshDelay.
func WithRefreshDelay(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.delay = d }
}

// WithObserver registers fn to see every dispatched token.
func WithObserver(fn func(action string, known bool)) Option {
	return func(disp *Dispatcher) { disp.observe = fn }
}

// Dispatcher sends actions to a sink.
type Dispatcher struct {
	sink    media.Sink
	status  StatusFunc
	timers  *schedule.Group
	delay   time.Duration
	observe func(action string, known bool)
}

// New returns a dispatcher for sink. status may be nil.
func New(sink media.Sink, status StatusFunc, timers *schedule.Group, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:   sink,
		status: status,
		timers: timers,
		delay:  StatusRefreshDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the sink operation for action and reports whether the action
// was known. Either way the status refresh is re-armed; a pending refresh is
// replaced, so dispatches closer than the delay share one read.
func (d *Dispatcher) Dispatch(action string) bool {
	op, known := operations[action]
	if known {
		op(d.sink)
	}
	log.Command(action, known)
	if d.observe != nil {
		d.observe(action, known)
	}

	d.timers.Arm(statusRefreshKey, d.delay, func() {
		status := d.sink.CurrentStatus()
		if d.status != nil {
			d.status(status)
		}
	})
	return known
}

// Known reports whether action has a sink operation.
func Known(action string) bool {
	_, ok := operations[action]
	return ok
}

// Actions lists the tokens with a sink operation, sorted.
func Actions() []string {
	actions := make([]string, 0, len(operations))
	for a := range operations {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

// Unroutable returns the actions of v that no sink operation handles.
func Unroutable(v *vocab.Vocabulary) []string {
	var out []string
	for _, a := range v.Actions() {
		if !Known(a) {
			out = append(out, a)
		}
	}
	return out
}
