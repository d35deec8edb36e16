// Package schedule provides cancellable timers keyed by the state they affect.
//
// Re-arming a key cancels the timer previously armed under it, so two
// countdowns never race to write the same field.
package schedule

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Clock creates timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Executor runs a fired callback. The default executor calls it directly on
// the timer goroutine; an owner loop can supply one that queues it instead.
type Executor func(func())

// Option configures a Group.
type Option func(*Group)

// WithExecutor routes fired callbacks through exec.
func WithExecutor(exec Executor) Option {
	return func(g *Group) {
		g.exec = exec
	}
}

// Group is a set of timers keyed by name.
type Group struct {
	clock Clock
	exec  Executor

	mu     sync.Mutex
	seq    uint64
	timers map[string]*entry
}

type entry struct {
	id    uint64
	timer Timer
}

// NewGroup creates an empty timer group on the given clock.
func NewGroup(clock Clock, opts ...Option) *Group {
	if clock == nil {
		clock = RealClock()
	}
	g := &Group{
		clock:  clock,
		exec:   func(f func()) { f() },
		timers: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Arm schedules f to run after d under key, replacing any timer pending
// under the same key.
func (g *Group) Arm(key string, d time.Duration, f func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.timers[key]; ok {
		prev.timer.Stop()
	}

	g.seq++
	e := &entry{id: g.seq}
	g.timers[key] = e
	e.timer = g.clock.AfterFunc(d, func() {
		g.exec(func() {
			if !g.claim(key, e.id) {
				return
			}
			f()
		})
	})
}

// claim removes the entry for key if it is still the one identified by id.
// A callback whose entry was cancelled or replaced after it fired must not run.
func (g *Group) claim(key string, id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.timers[key]
	if !ok || cur.id != id {
		return false
	}
	delete(g.timers, key)
	return true
}

// Cancel stops the timer pending under key, if any.
func (g *Group) Cancel(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.timers[key]; ok {
		e.timer.Stop()
		delete(g.timers, key)
	}
}

// CancelAll stops every pending timer in the group.
func (g *Group) CancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, e := range g.timers {
		e.timer.Stop()
		delete(g.timers, key)
	}
}

// Pending reports whether a timer is armed under key.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.timers[key]
	return ok
}

// Len returns the number of pending timers.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.timers)
}
