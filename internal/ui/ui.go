package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/palette"
)

// DefaultRefresh is the interval between snapshot refreshes when the caller
// does not provide one.
const DefaultRefresh = 5 * time.Second

// Fetcher builds a playback snapshot for a user on demand.
// Implemented by [tasks.Engine].
type Fetcher interface {
	Fetch(ctx context.Context, userID string) (*models.PlaybackSnapshot, error)
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.refresh, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.refresh, k.quit}}
}

type snapshotMsg struct {
	snapshot *models.PlaybackSnapshot
	err      error
}

type tickMsg time.Time

// Model represents the now-playing TUI application state.
type Model struct {
	ctx      context.Context
	engine   Fetcher
	userID   string
	interval time.Duration

	snapshot *models.PlaybackSnapshot
	err      error
	loading  bool

	spinner spinner.Model
	help    help.Model
	keys    keyMap
	width   int
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine Fetcher, userID string, interval time.Duration) *Model {
	if interval <= 0 {
		interval = DefaultRefresh
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:      ctx,
		engine:   engine,
		userID:   userID,
		interval: interval,
		loading:  true,
		spinner:  sp,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the spinner and kicks off the first snapshot fetch.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchSnapshot())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, m.fetchSnapshot()
		}
		return m, nil

	case snapshotMsg:
		m.loading = false
		m.snapshot = msg.snapshot
		m.err = msg.err
		return m, m.scheduleTick()

	case tickMsg:
		return m, m.fetchSnapshot()
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the now-playing screen.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("♪ Now Playing"))
	b.WriteString("\n")

	switch {
	case m.loading && m.snapshot == nil:
		b.WriteString(fmt.Sprintf("%s fetching playback...\n", m.spinner.View()))
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.snapshot == nil || !m.snapshot.IsPlaying || m.snapshot.Track == nil:
		b.WriteString(styles.help.Render("Nothing playing right now."))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderPlayback())
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderPlayback() string {
	var b strings.Builder
	s := m.snapshot

	b.WriteString(styles.track.Render(s.Track.Name))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s — %s\n", strings.Join(s.Track.Artists, ", "), s.Track.Album))
	b.WriteString(fmt.Sprintf("%s / %s\n", clock(s.ProgressMS), clock(s.DurationMS)))

	if len(s.Palette) > 0 {
		swatches := make([]string, len(s.Palette))
		for i, c := range s.Palette {
			swatches[i] = Swatch(palette.Hex(c))
		}
		b.WriteString(strings.Join(swatches, " "))
		b.WriteString("\n")
	}

	if s.Device != nil {
		b.WriteString(styles.help.Render(fmt.Sprintf("on %s (%s), volume %d%%", s.Device.Name, s.Device.Type, s.Device.VolumePercent)))
		b.WriteString("\n")
	}

	return b.String()
}

// fetchSnapshot runs one on-demand engine cycle off the UI goroutine.
func (m *Model) fetchSnapshot() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.engine.Fetch(m.ctx, m.userID)
		return snapshotMsg{snapshot: snapshot, err: err}
	}
}

func (m *Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// clock formats milliseconds as m:ss.
func clock(ms int) string {
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
