// Package tui is miditui's terminal front-end: a bubbletea/lipgloss
// Elm-architecture view over a *facade.Facade snapshot. It never
// touches project internals directly -- every mutation goes through
// the facade as an edit command, keeping the core ignorant of the UI.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/minimaxir/miditui/pkg/edit"
	"github.com/minimaxir/miditui/pkg/facade"
	"github.com/minimaxir/miditui/pkg/project"
	"github.com/minimaxir/miditui/pkg/transport"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))

	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#7D56F4")).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AA4444"))
	soloStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	stoppedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	insertStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#884400")).Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
)

// tickMsg redraws the playhead while the transport is running.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// mode selects which top-level key bindings are active.
type mode int

const (
	modeNormal mode = iota
	modeInsert
	modeRename
)

type model struct {
	f *facade.Facade

	mode       mode
	cursorTick int64
	trackIndex int
	renameBuf  string
	status     string
	statusErr  bool

	width, height int
}

// Run starts the bubbletea program and blocks until the user quits.
func Run(f *facade.Facade) error {
	m := &model{f: f}
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}

func (m *model) Init() tea.Cmd {
	return tick()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeRename {
		return m.handleRenameKey(msg)
	}
	if m.mode == modeInsert {
		return m.handleInsertKey(msg)
	}
	return m.handleNormalKey(msg)
}

func (m *model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.f.Snapshot()

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "i":
		m.mode = modeInsert
		m.f.SetActiveTrack(m.trackIndex)
		m.setStatus("insert mode -- type notes, esc to leave", false)

	case "up", "k":
		if m.trackIndex > 0 {
			m.trackIndex--
		}

	case "down", "j":
		if m.trackIndex < len(snap.Tracks)-1 {
			m.trackIndex++
		}

	case " ":
		if m.f.TransportState() == transport.Playing {
			m.f.Stop()
		} else {
			m.f.Play()
		}

	case "r":
		m.f.Rewind()

	case "m":
		m.applyCmd(edit.NewToggleMute(snap, m.trackIndex))

	case "s":
		m.applyCmd(edit.NewToggleSolo(snap, m.trackIndex))

	case "n":
		idx := len(snap.Tracks)
		m.applyCmd(edit.NewAddTrack(snap, project.NewTrack(fmt.Sprintf("Track %d", idx+1), snap.NextChannel(false))), nil)

	case "R":
		m.mode = modeRename
		m.renameBuf = ""

	case "u":
		if err := m.f.Undo(); err != nil {
			m.setStatus(err.Error(), true)
		}

	case "ctrl+r":
		if err := m.f.Redo(); err != nil {
			m.setStatus(err.Error(), true)
		}

	case "ctrl+s":
		if err := m.f.SaveProject(); err != nil {
			m.setStatus(err.Error(), true)
		} else {
			m.setStatus("saved", false)
		}

	case "+", "=":
		m.f.SetOctaveBase(clampOctave(snap.Editor.CurrentOctave + 1))

	case "-", "_":
		m.f.SetOctaveBase(clampOctave(snap.Editor.CurrentOctave - 1))
	}

	return m, nil
}

func (m *model) handleInsertKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.mode = modeNormal
		m.setStatus("", false)
		return m, nil
	}
	runes := msg.Runes
	if len(runes) != 1 {
		return m, nil
	}
	if err := m.f.KeyDown(runes[0], time.Now()); err != nil {
		m.setStatus(err.Error(), true)
	}
	return m, nil
}

func (m *model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		snap := m.f.Snapshot()
		if cmd, err := edit.NewRenameTrack(snap, m.trackIndex, m.renameBuf); err == nil {
			m.applyCmd(cmd, nil)
		}
		m.mode = modeNormal
	case tea.KeyEsc:
		m.mode = modeNormal
	case tea.KeyBackspace:
		if len(m.renameBuf) > 0 {
			m.renameBuf = m.renameBuf[:len(m.renameBuf)-1]
		}
	default:
		if len(msg.Runes) == 1 {
			m.renameBuf += string(msg.Runes)
		}
	}
	return m, nil
}

// applyCmd takes the (cmd, err) shape most edit constructors return --
// including directly as the sole argument via Go's multi-value call
// forwarding, e.g. m.applyCmd(edit.NewToggleMute(snap, idx)) -- and
// applies cmd through the facade when construction succeeded.
func (m *model) applyCmd(cmd *edit.Command, err error) {
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if cmd == nil {
		return
	}
	if err := m.f.Apply(cmd); err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func clampOctave(o int) int {
	if o < 0 {
		return 0
	}
	if o > 8 {
		return 8
	}
	return o
}

func (m *model) View() string {
	if w := m.f.LastWarning(); w != nil {
		m.setStatus(w.Error(), true)
	}

	snap := m.f.Snapshot()
	var b strings.Builder

	b.WriteString(titleStyle.Render("miditui") + "\n")
	b.WriteString(transportLine(m.f, snap) + "\n\n")

	b.WriteString(dimStyle.Render(fmt.Sprintf("Tempo %.1f BPM  %d/%d  octave %d", snap.Tempo, snap.TimeSignature.Numerator, snap.TimeSignature.Denominator, snap.Editor.CurrentOctave)) + "\n\n")

	for i, tr := range snap.Tracks {
		line := fmt.Sprintf("%-16s ch%-2d  %3d notes", tr.Name, tr.Channel, tr.NoteCount())
		if tr.Mute {
			line = mutedStyle.Render(line + " [mute]")
		} else if tr.Solo {
			line = soloStyle.Render(line + " [solo]")
		}
		if i == m.trackIndex {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	switch m.mode {
	case modeInsert:
		b.WriteString(insertStyle.Render(" INSERT ") + " type notes on the keyboard rows, esc to leave\n")
	case modeRename:
		b.WriteString(fmt.Sprintf("rename: %s_\n", m.renameBuf))
	}

	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status) + "\n")
		} else {
			b.WriteString(dimStyle.Render(m.status) + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render("↑↓ select track  space play/stop  r rewind  m mute  s solo  n new track  R rename  i insert  u undo  ctrl+r redo  ctrl+s save  q quit"))

	return b.String()
}

func transportLine(f *facade.Facade, snap *project.Project) string {
	state := f.TransportState()
	tick := f.PositionTick()
	label := "Stopped"
	style := stoppedStyle
	if state == transport.Playing {
		label = "Playing"
		style = playingStyle
	}
	return style.Render(fmt.Sprintf("%s  tick %d", label, tick))
}
