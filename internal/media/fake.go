package media

import "sync"

// Fake records every command it receives.
type Fake struct {
	mu     sync.Mutex
	calls  []string
	status string
}

// SetStatus sets what CurrentStatus returns.
func (f *Fake) SetStatus(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

// Calls returns the commands received so far, oldest first.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *Fake) Next()        { f.record("Next") }
func (f *Fake) Previous()    { f.record("Previous") }
func (f *Fake) PlayOrPause() { f.record("PlayOrPause") }
func (f *Fake) Stop()        { f.record("Stop") }
func (f *Fake) VolumeUp()    { f.record("VolumeUp") }
func (f *Fake) VolumeDown()  { f.record("VolumeDown") }
func (f *Fake) Mute()        { f.record("Mute") }

func (f *Fake) CurrentStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}
