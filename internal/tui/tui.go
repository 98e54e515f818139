// Package tui provides a Bubble Tea terminal user interface for
// browsing the catalog and driving downloads. It only reads engine
// snapshots and submits operations; all state lives in the engine.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/packshelf/packshelf/internal/engine"
	"github.com/packshelf/packshelf/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC")).
			MarginTop(1)
)

const tickInterval = 200 * time.Millisecond

// State represents the current UI state.
type State int

const (
	StateSyncing State = iota
	StateBrowsing
	StateError
)

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	spinner  spinner.Model
	progress progress.Model
	engine   *engine.Engine

	entries []engine.EntryView
	cursor  int
	status  string
	err     error

	width  int
	height int
}

// NewModel creates a new TUI model around an engine instance.
func NewModel(eng *engine.Engine) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 30

	return Model{
		state:    StateSyncing,
		spinner:  sp,
		progress: prog,
		engine:   eng,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.syncCmd(), tickCmd())
}

// Message types
type (
	// SyncDoneMsg is sent when a catalog refresh finishes.
	SyncDoneMsg struct {
		Count int
		Err   error
	}

	// TickMsg drives periodic snapshot refreshes.
	TickMsg struct{}
)

func (m Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		count, err := m.engine.Sync(context.Background())
		return SyncDoneMsg{Count: count, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 50
		if m.progress.Width > 40 {
			m.progress.Width = 40
		}
		if m.progress.Width < 10 {
			m.progress.Width = 10
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SyncDoneMsg:
		if msg.Err != nil && msg.Err != engine.ErrSyncInProgress {
			m.err = msg.Err
		} else {
			m.err = nil
		}
		m.state = StateBrowsing
		m.refresh()
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.engine.Close()
		return *m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.probeSelected()
		}

	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
			m.probeSelected()
		}

	case "enter", "d":
		if m.state == StateBrowsing && m.cursor < len(m.entries) {
			m.engine.StartDownload(m.entries[m.cursor].Name)
		}

	case "s":
		if m.state == StateBrowsing {
			m.state = StateSyncing
			return *m, tea.Batch(m.spinner.Tick, m.syncCmd())
		}
	}

	return *m, nil
}

// probeSelected kicks off lazy metadata probes for the highlighted
// entry. Both calls are fire-and-forget and deduplicated in the engine.
func (m *Model) probeSelected() {
	if m.cursor < len(m.entries) {
		entry := m.entries[m.cursor]
		m.engine.ProbeSize(entry.Name)
		m.engine.ProbeImage(entry.Name)
	}
}

// refresh pulls a fresh snapshot and clamps the cursor.
func (m *Model) refresh() {
	m.entries = m.engine.Snapshot()
	m.status = m.engine.Status()
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("packshelf"))
	b.WriteString("\n")

	if m.state == StateSyncing {
		b.WriteString(fmt.Sprintf("%s syncing catalog...\n", m.spinner.View()))
		return b.String()
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("sync failed: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("press s to retry, q to quit"))
		b.WriteString("\n")
	}

	if len(m.entries) == 0 && m.err == nil {
		b.WriteString(dimStyle.Render("catalog is empty"))
		b.WriteString("\n")
	}

	for i, entry := range m.entries {
		b.WriteString(m.renderEntry(i, entry))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ select · enter download · s sync · q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderEntry(i int, entry engine.EntryView) string {
	cursor := "  "
	nameStyle := lipgloss.NewStyle()
	if i == m.cursor {
		cursor = "> "
		nameStyle = selectedStyle
	}

	size := "size unknown"
	if entry.FileSize > 0 {
		size = humanize.Bytes(uint64(entry.FileSize))
	}

	line := fmt.Sprintf("%s%s %s",
		cursor,
		nameStyle.Render(entry.Name),
		dimStyle.Render(fmt.Sprintf("v%s · %s · %s", entry.Version, entry.Category, size)))

	switch entry.Download.State {
	case model.StateRequesting:
		line += "\n    " + m.progress.ViewAs(entry.Download.Progress)
	case model.StateSucceeded:
		if entry.Download.ImportErr != nil {
			line += "  " + warningStyle.Render("downloaded, import failed")
		} else {
			line += "  " + successStyle.Render("imported")
		}
	case model.StateFailed:
		line += "  " + errorStyle.Render(truncateErr(entry.Download.Err))
	case model.StateTimedOut:
		line += "  " + warningStyle.Render("timed out, retry with enter")
	case model.StateCancelled:
		line += "  " + dimStyle.Render("cancelled")
	}

	return line
}

func truncateErr(err error) string {
	if err == nil {
		return "failed"
	}
	s := err.Error()
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

// Run starts the TUI event loop.
func Run(eng *engine.Engine) error {
	p := tea.NewProgram(NewModel(eng), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
