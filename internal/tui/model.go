// Package tui provides the Bubble Tea timer interface.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tsplit/internal/keymap"
	"github.com/verte-zerg/tsplit/internal/session"
	"github.com/verte-zerg/tsplit/internal/timer"
)

// TickInterval is the frame period while the UI is running.
const TickInterval = 30 * time.Millisecond

// Session is the subset of session.Session the UI drives.
type Session interface {
	Split() error
	Undo() error
	Skip() error
	Pause() error
	Reset(updateHistory bool) error
	SwitchComparison() string
	HideComparison()
	Open(path string) error
	Save() error
	Snapshot() session.View
}

type tickMsg time.Time

// Model implements the Bubble Tea timer UI.
type Model struct {
	session  Session
	keys     *keymap.Keymap
	renderer Renderer
	log      *slog.Logger

	help    help.Model
	prompt  textinput.Model
	opening bool

	width   int
	height  int
	status  string
	showAll bool
}

// NewModel constructs a timer TUI model. A nil renderer selects SplitsRenderer.
func NewModel(s Session, keys *keymap.Keymap, renderer Renderer, log *slog.Logger) *Model {
	if renderer == nil {
		renderer = SplitsRenderer{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	prompt := textinput.New()
	prompt.Prompt = "open: "
	prompt.Placeholder = "path to run file"
	return &Model{
		session:  s,
		keys:     keys,
		renderer: renderer,
		log:      log,
		help:     help.New(),
		prompt:   prompt,
	}
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		return m, tick()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.opening {
			return m.updatePrompt(msg)
		}
		if msg.String() == "?" {
			m.showAll = !m.showAll
			return m, nil
		}
		action, ok := m.keys.Lookup(msg.String())
		if !ok {
			return m, nil
		}
		return m, m.dispatch(action)
	default:
		return m, nil
	}
}

func (m *Model) dispatch(action keymap.Action) tea.Cmd {
	var err error
	switch action {
	case keymap.Split:
		err = m.session.Split()
	case keymap.Undo:
		err = m.session.Undo()
	case keymap.Skip:
		err = m.session.Skip()
	case keymap.Reset:
		err = m.session.Reset(true)
	case keymap.Pause:
		err = m.session.Pause()
	case keymap.SwitchComparison:
		m.session.SwitchComparison()
	case keymap.Hide:
		m.session.HideComparison()
	case keymap.Save:
		err = m.session.Save()
		if err == nil {
			m.status = "saved"
		}
	case keymap.Open:
		m.opening = true
		m.prompt.SetValue("")
		return m.prompt.Focus()
	}
	m.report(action, err)
	return nil
}

func (m *Model) report(action keymap.Action, err error) {
	switch {
	case err == nil:
		if action != keymap.Save {
			m.status = ""
		}
	case errors.Is(err, timer.ErrInvalidTransition):
		m.log.Debug("ignored key", "action", action.String(), "error", err)
	default:
		m.log.Error("action failed", "action", action.String(), "error", err)
		m.status = fmt.Sprintf("%s failed: %v", action, err)
	}
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.prompt.Value())
		m.closePrompt()
		if path == "" {
			return m, nil
		}
		if err := m.session.Open(path); err != nil {
			m.report(keymap.Open, err)
			if errors.Is(err, timer.ErrInvalidTransition) {
				m.status = "reset the attempt before opening another run"
			}
			return m, nil
		}
		m.status = "opened " + path
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.opening = false
	m.prompt.Blur()
}

// View implements tea.Model.
func (m *Model) View() string {
	view := m.session.Snapshot()
	body := m.renderer.Render(view, m.width, m.height)
	var footer []string
	if m.opening {
		footer = append(footer, m.prompt.View())
	} else if m.status != "" {
		footer = append(footer, footerStyle.Render(m.status))
	}
	m.help.ShowAll = m.showAll
	footer = append(footer, m.help.View(m.keys))
	content := body + "\n\n" + strings.Join(footer, "\n")
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
