package ui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emmett/voxremote/internal/display"
	"github.com/emmett/voxremote/internal/session"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func TestDisplayFields(t *testing.T) {
	m := NewModel(nil, "")
	m, _ = update(t, m, DisplayMsg{Field: display.Recognized, Value: "NEXT"})
	m, _ = update(t, m, DisplayMsg{Field: display.Rejected, Value: "[unk]"})
	m, _ = update(t, m, DisplayMsg{Field: display.PlaybackStatus, Value: "Artist - Song"})

	view := m.View()
	for _, want := range []string{"NEXT", "[unk]", "Artist - Song", "STANDBY"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = update(t, m, DisplayMsg{Field: display.Recognized, Value: ""})
	if strings.Contains(m.View(), "NEXT") {
		t.Error("cleared field still shown")
	}
}

func TestListeningAndError(t *testing.T) {
	m := NewModel(nil, "ctrl+shift+v")
	m, _ = update(t, m, ListeningMsg{Listening: false, Err: fmt.Errorf("%w: busy", session.ErrNoAudioStreamFound)})
	view := m.View()
	if !strings.Contains(view, "NO_AUDIO_STREAM_FOUND") {
		t.Errorf("error not shown:\n%s", view)
	}
	if !strings.Contains(view, "ctrl+shift+v") {
		t.Errorf("hotkey not shown:\n%s", view)
	}

	m, _ = update(t, m, ListeningMsg{Listening: true})
	view = m.View()
	if !strings.Contains(view, "LISTENING") || strings.Contains(view, "NO_AUDIO_STREAM_FOUND") {
		t.Errorf("successful start did not clear the error:\n%s", view)
	}
}

func TestToggleKey(t *testing.T) {
	calls := 0
	m := NewModel(func() { calls++ }, "")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if cmd == nil {
		t.Fatal("space did not produce a toggle command")
	}
	// A second press while the first toggle is in flight is ignored.
	if _, again := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}}); again != nil {
		t.Error("toggle ran twice concurrently")
	}

	msg := cmd()
	if calls != 1 {
		t.Fatalf("toggle calls = %d", calls)
	}
	m, _ = update(t, m, msg)
	if m.busy {
		t.Error("busy not cleared after toggle finished")
	}
}

func TestQuitKey(t *testing.T) {
	m := NewModel(nil, "")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
