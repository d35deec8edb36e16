package media

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/emmett/voxremote/internal/log"
)

const (
	mprisPrefix = "org.mpris.MediaPlayer2."
	mprisPath   = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerIface = "org.mpris.MediaPlayer2.Player"

	// VolumeStep is the change applied by VolumeUp and VolumeDown.
	VolumeStep = 0.1
)

// MPRIS controls a desktop player over the session D-Bus.
type MPRIS struct {
	preferred string
	listNames func() ([]string, error)
	object    func(dest string) dbus.BusObject

	mu         sync.Mutex
	savedLevel float64
}

// NewMPRIS connects to the session bus. preferred selects a player whose bus
// name contains it ("spotify", "vlc"); empty picks the first player found.
func NewMPRIS(preferred string) (*MPRIS, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	listNames := func() ([]string, error) {
		var names []string
		if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
			return nil, err
		}
		return names, nil
	}
	object := func(dest string) dbus.BusObject {
		return conn.Object(dest, mprisPath)
	}
	return newMPRIS(preferred, listNames, object), nil
}

func newMPRIS(preferred string, listNames func() ([]string, error), object func(string) dbus.BusObject) *MPRIS {
	return &MPRIS{
		preferred: strings.ToLower(preferred),
		listNames: listNames,
		object:    object,
	}
}

// Players lists the MPRIS bus names currently on the bus.
func (m *MPRIS) Players() ([]string, error) {
	names, err := m.listNames()
	if err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}
	var players []string
	for _, n := range names {
		if strings.HasPrefix(n, mprisPrefix) {
			players = append(players, n)
		}
	}
	sort.Strings(players)
	return players, nil
}

func (m *MPRIS) player() (dbus.BusObject, error) {
	players, err := m.Players()
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if m.preferred == "" || strings.Contains(strings.ToLower(p), m.preferred) {
			return m.object(p), nil
		}
	}
	return nil, fmt.Errorf("no MPRIS player on the session bus")
}

func (m *MPRIS) call(method string) {
	obj, err := m.player()
	if err != nil {
		log.Warnf("mpris %s: %v", method, err)
		return
	}
	if err := obj.Call(playerIface+"."+method, 0).Err; err != nil {
		log.Warnf("mpris %s: %v", method, err)
	}
}

func (m *MPRIS) Next()        { m.call("Next") }
func (m *MPRIS) Previous()    { m.call("Previous") }
func (m *MPRIS) PlayOrPause() { m.call("PlayPause") }
func (m *MPRIS) Stop()        { m.call("Stop") }

func (m *MPRIS) VolumeUp()   { m.adjustVolume(VolumeStep) }
func (m *MPRIS) VolumeDown() { m.adjustVolume(-VolumeStep) }

// Mute drops the volume to zero, or restores the level saved by the last
// Mute when already silent.
func (m *MPRIS) Mute() {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.player()
	if err != nil {
		log.Warnf("mpris mute: %v", err)
		return
	}
	level, err := volume(obj)
	if err != nil {
		log.Warnf("mpris mute: %v", err)
		return
	}

	target := 0.0
	if level == 0 {
		target = m.savedLevel
		if target == 0 {
			target = 1
		}
	} else {
		m.savedLevel = level
	}
	if err := setVolume(obj, target); err != nil {
		log.Warnf("mpris mute: %v", err)
	}
}

func (m *MPRIS) adjustVolume(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.player()
	if err != nil {
		log.Warnf("mpris volume: %v", err)
		return
	}
	level, err := volume(obj)
	if err != nil {
		log.Warnf("mpris volume: %v", err)
		return
	}
	if err := setVolume(obj, clamp(level+delta)); err != nil {
		log.Warnf("mpris volume: %v", err)
	}
}

func volume(obj dbus.BusObject) (float64, error) {
	v, err := obj.GetProperty(playerIface + ".Volume")
	if err != nil {
		return 0, err
	}
	level, ok := v.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected volume type %s", v.Signature())
	}
	return level, nil
}

func setVolume(obj dbus.BusObject, level float64) error {
	return obj.SetProperty(playerIface+".Volume", dbus.MakeVariant(level))
}

func clamp(v float64) float64 {
	// Round away float drift from repeated steps.
	v = math.Round(v*100) / 100
	return math.Max(0, math.Min(1, v))
}

// CurrentStatus returns "Artist - Title" for the active player, or "" when
// no player is available.
func (m *MPRIS) CurrentStatus() string {
	obj, err := m.player()
	if err != nil {
		return ""
	}
	v, err := obj.GetProperty(playerIface + ".Metadata")
	if err != nil {
		log.Debugf("mpris metadata: %v", err)
		return ""
	}
	md, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return ""
	}
	return formatMetadata(md)
}

func formatMetadata(md map[string]dbus.Variant) string {
	var title string
	if v, ok := md["xesam:title"]; ok {
		title, _ = v.Value().(string)
	}

	var artists []string
	if v, ok := md["xesam:artist"]; ok {
		switch a := v.Value().(type) {
		case []string:
			artists = a
		case string:
			artists = []string{a}
		}
	}

	artist := strings.Join(artists, ", ")
	switch {
	case artist != "" && title != "":
		return artist + " - " + title
	case title != "":
		return title
	default:
		return artist
	}
}
