// Package ui is the terminal front end: the three display fields, the
// listening state and the last activation error.
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emmett/voxremote/internal/display"
	"github.com/emmett/voxremote/internal/session"
)

// TUI message types
type DisplayMsg struct {
	Field display.Field
	Value string
}
type ListeningMsg struct {
	Listening bool
	Err       error
}
type DeviceLineMsg struct{ Text string } // sensor and model description
type toggleDoneMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	listenStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	standbyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	acceptedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

// Model is the bubbletea model. toggle runs off the update loop because
// starting a session opens devices and loads the recognizer.
type Model struct {
	toggle func()
	hotkey string

	listening  bool
	busy       bool
	recognized string
	rejected   string
	playback   string
	lastErr    string
	deviceLine string
	width      int
}

// NewModel returns an idle model. hotkey is shown in the help line when set.
func NewModel(toggle func(), hotkey string) Model {
	return Model{toggle: toggle, hotkey: hotkey}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "s":
			if m.busy || m.toggle == nil {
				return m, nil
			}
			m.busy = true
			toggle := m.toggle
			return m, func() tea.Msg {
				toggle()
				return toggleDoneMsg{}
			}
		}

	case toggleDoneMsg:
		m.busy = false

	case DisplayMsg:
		switch msg.Field {
		case display.Recognized:
			m.recognized = msg.Value
		case display.Rejected:
			m.rejected = msg.Value
		case display.PlaybackStatus:
			m.playback = msg.Value
		}

	case ListeningMsg:
		m.listening = msg.Listening
		if msg.Err != nil {
			m.lastErr = fmt.Sprintf("%s: %v", session.ResultOf(msg.Err), msg.Err)
		} else if msg.Listening {
			m.lastErr = ""
		}

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("voxremote") + "\n\n")

	if m.listening {
		b.WriteString(listenStyle.Render("● LISTENING"))
	} else {
		b.WriteString(standbyStyle.Render("○ STANDBY"))
	}
	b.WriteString("\n")
	if m.deviceLine != "" {
		b.WriteString(standbyStyle.Render(m.deviceLine) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Recognized") + acceptedStyle.Render(m.recognized) + "\n")
	b.WriteString(labelStyle.Render("Not understood") + rejectedStyle.Render(m.rejected) + "\n")
	b.WriteString(labelStyle.Render("Now playing") + playingStyle.Render(m.playback) + "\n")

	if m.lastErr != "" {
		b.WriteString("\n" + errorStyle.Render("✗ "+m.lastErr) + "\n")
	}

	b.WriteString("\n")
	help := boldHelpStyle.Render("space") + helpStyle.Render(" start/stop  ") +
		boldHelpStyle.Render("q") + helpStyle.Render(" quit")
	if m.hotkey != "" {
		help += helpStyle.Render("  ") + boldHelpStyle.Render(m.hotkey) + helpStyle.Render(" toggle")
	}
	b.WriteString(help + "\n")

	out := b.String()
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).Render(out)
	}
	return out
}

// Program runs the model and forwards observer callbacks into it.
type Program struct {
	p *tea.Program
}

// NewProgram creates a full-screen program for model.
func NewProgram(model Model) *Program {
	return &Program{p: tea.NewProgram(model, tea.WithAltScreen())}
}

// Run blocks until the user quits.
func (p *Program) Run() error {
	_, err := p.p.Run()
	return err
}

// Quit ends the program from outside the update loop.
func (p *Program) Quit() {
	p.p.Quit()
}

// DisplayChanged implements display.Observer.
func (p *Program) DisplayChanged(field display.Field, value string) {
	p.p.Send(DisplayMsg{Field: field, Value: value})
}

// ListeningChanged reports listening state changes and activation errors.
func (p *Program) ListeningChanged(listening bool, err error) {
	p.p.Send(ListeningMsg{Listening: listening, Err: err})
}

// SetDeviceLine shows which sensor and model are in use.
func (p *Program) SetDeviceLine(text string) {
	p.p.Send(DeviceLineMsg{Text: text})
}
