package media

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestKeysSendsMappedCodes(t *testing.T) {
	var pressed []int
	codes := map[Key]int{
		KeyNext: 1, KeyPrevious: 2, KeyPlayPause: 3, KeyStop: 4,
		KeyVolumeUp: 5, KeyVolumeDown: 6, KeyMute: 7,
	}
	k := newKeys(func(code int) error {
		pressed = append(pressed, code)
		return nil
	}, codes, StatusFunc(func() string { return "Band - Song" }))

	k.Next()
	k.Previous()
	k.PlayOrPause()
	k.Stop()
	k.VolumeUp()
	k.VolumeDown()
	k.Mute()

	want := []int{1, 2, 3, 4, 5, 6, 7}
	if len(pressed) != len(want) {
		t.Fatalf("pressed = %v, want %v", pressed, want)
	}
	for i := range want {
		if pressed[i] != want[i] {
			t.Fatalf("pressed = %v, want %v", pressed, want)
		}
	}
	if k.CurrentStatus() != "Band - Song" {
		t.Fatalf("CurrentStatus = %q", k.CurrentStatus())
	}
}

func TestKeysSwallowErrors(t *testing.T) {
	k := newKeys(func(int) error { return errors.New("uinput denied") }, map[Key]int{KeyNext: 1}, nil)
	k.Next()
	k.Mute() // unmapped
	if k.CurrentStatus() != "" {
		t.Fatal("nil status reader should report nothing")
	}
}

func TestKeyCodesCoverEveryKey(t *testing.T) {
	codes := keyCodes()
	if codes == nil {
		t.Skip("no media keys on this platform")
	}
	for k := KeyNext; k <= KeyMute; k++ {
		if _, ok := codes[k]; !ok {
			t.Errorf("no code for %s", k)
		}
	}
}

type fakePlayer struct {
	dbus.BusObject
	calls    []string
	volume   float64
	metadata map[string]dbus.Variant
}

func (p *fakePlayer) Call(method string, _ dbus.Flags, _ ...interface{}) *dbus.Call {
	p.calls = append(p.calls, method)
	return &dbus.Call{}
}

func (p *fakePlayer) GetProperty(name string) (dbus.Variant, error) {
	switch name {
	case playerIface + ".Volume":
		return dbus.MakeVariant(p.volume), nil
	case playerIface + ".Metadata":
		return dbus.MakeVariant(p.metadata), nil
	}
	return dbus.Variant{}, errors.New("no such property")
}

func (p *fakePlayer) SetProperty(name string, v interface{}) error {
	if name != playerIface+".Volume" {
		return errors.New("read-only")
	}
	p.volume = v.(dbus.Variant).Value().(float64)
	return nil
}

func newFakeMPRIS(preferred string, names []string, players map[string]*fakePlayer) *MPRIS {
	return newMPRIS(preferred,
		func() ([]string, error) { return names, nil },
		func(dest string) dbus.BusObject { return players[dest] })
}

func TestMPRISTransport(t *testing.T) {
	vlc := &fakePlayer{}
	spotify := &fakePlayer{}
	m := newFakeMPRIS("spotify",
		[]string{"org.freedesktop.Notifications", "org.mpris.MediaPlayer2.vlc", "org.mpris.MediaPlayer2.spotify"},
		map[string]*fakePlayer{"org.mpris.MediaPlayer2.vlc": vlc, "org.mpris.MediaPlayer2.spotify": spotify})

	m.Next()
	m.PlayOrPause()
	m.Previous()
	m.Stop()

	want := []string{"Next", "PlayPause", "Previous", "Stop"}
	if len(spotify.calls) != len(want) || len(vlc.calls) != 0 {
		t.Fatalf("spotify=%v vlc=%v", spotify.calls, vlc.calls)
	}
	for i, w := range want {
		if spotify.calls[i] != playerIface+"."+w {
			t.Errorf("call %d = %q", i, spotify.calls[i])
		}
	}
}

func TestMPRISVolume(t *testing.T) {
	p := &fakePlayer{volume: 0.95}
	m := newFakeMPRIS("", []string{"org.mpris.MediaPlayer2.vlc"}, map[string]*fakePlayer{"org.mpris.MediaPlayer2.vlc": p})

	m.VolumeUp()
	if p.volume != 1 {
		t.Fatalf("volume = %v, want clamp to 1", p.volume)
	}
	m.VolumeDown()
	m.VolumeDown()
	if p.volume != 0.8 {
		t.Fatalf("volume = %v, want 0.8", p.volume)
	}

	m.Mute()
	if p.volume != 0 {
		t.Fatalf("volume after mute = %v", p.volume)
	}
	m.Mute()
	if p.volume != 0.8 {
		t.Fatalf("volume after unmute = %v, want 0.8", p.volume)
	}
}

func TestMPRISNoPlayer(t *testing.T) {
	m := newFakeMPRIS("", []string{"org.freedesktop.DBus"}, nil)
	m.Next()
	if got := m.CurrentStatus(); got != "" {
		t.Fatalf("CurrentStatus = %q, want empty", got)
	}
}

func TestMPRISCurrentStatus(t *testing.T) {
	p := &fakePlayer{metadata: map[string]dbus.Variant{
		"xesam:title":  dbus.MakeVariant("Teardrop"),
		"xesam:artist": dbus.MakeVariant([]string{"Massive Attack"}),
	}}
	m := newFakeMPRIS("", []string{"org.mpris.MediaPlayer2.vlc"}, map[string]*fakePlayer{"org.mpris.MediaPlayer2.vlc": p})
	if got := m.CurrentStatus(); got != "Massive Attack - Teardrop" {
		t.Fatalf("CurrentStatus = %q", got)
	}
}

func TestFormatMetadata(t *testing.T) {
	tests := []struct {
		md   map[string]dbus.Variant
		want string
	}{
		{map[string]dbus.Variant{}, ""},
		{map[string]dbus.Variant{"xesam:title": dbus.MakeVariant("Intro")}, "Intro"},
		{map[string]dbus.Variant{"xesam:artist": dbus.MakeVariant([]string{"A", "B"})}, "A, B"},
		{map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("Song"),
			"xesam:artist": dbus.MakeVariant("Solo"),
		}, "Solo - Song"},
	}
	for _, tt := range tests {
		if got := formatMetadata(tt.md); got != tt.want {
			t.Errorf("formatMetadata(%v) = %q, want %q", tt.md, got, tt.want)
		}
	}
}

func TestFakeRecords(t *testing.T) {
	f := &Fake{}
	var s Sink = f
	s.VolumeUp()
	s.Mute()
	f.SetStatus("x")
	if c := f.Calls(); len(c) != 2 || c[0] != "VolumeUp" || s.CurrentStatus() != "x" {
		t.Fatalf("calls = %v", c)
	}
}
