// ABOUTME: Bubble Tea model showing the composed overlay surface live in the terminal
// ABOUTME: Redraws on a tick, tracks the latest notification, and toggles pause from the keyboard

package monitor

import (
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/mauromedda/overlay-go/pkg/overlay"
	"github.com/mauromedda/overlay-go/pkg/surface"
)

// Source is the engine surface the monitor reads and steers.
type Source interface {
	Session() string
	State() overlay.State
	Stats() overlay.Stats
	Overlays() []overlay.OverlayInfo
	UpdateEvent(fields []any)
}

// Frame yields the composed display.
type Frame interface {
	Snapshot() *image.RGBA
}

// footerLines is the height reserved under the preview.
const footerLines = 3

type tickMsg time.Time

type noteMsg overlay.Notification

type notesClosedMsg struct{}

var (
	stateStyles = map[overlay.State]lipgloss.Style{
		overlay.StateRunning:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		overlay.StatePaused:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		overlay.StateInitializing: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		overlay.StateStopping:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// Model is the monitor's Bubble Tea model.
type Model struct {
	src      Source
	frame    Frame
	notes    <-chan overlay.Notification
	interval time.Duration

	width, height int
	lines         []string
	lastNote      string
	quitting      bool
}

// NewModel creates a monitor over src. notes may be nil.
func NewModel(src Source, frame Frame, notes <-chan overlay.Notification, interval time.Duration) Model {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return Model{src: src, frame: frame, notes: notes, interval: interval, width: 80, height: 24}
}

// Init starts the redraw tick and the notification pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.waitNote())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitNote() tea.Cmd {
	if m.notes == nil {
		return nil
	}
	notes := m.notes
	return func() tea.Msg {
		n, ok := <-notes
		if !ok {
			return notesClosedMsg{}
		}
		return noteMsg(n)
	}
}

// Update handles keys, resizes, ticks, and notifications.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.redraw()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "p", " ":
			switch m.src.State() {
			case overlay.StateRunning:
				m.src.UpdateEvent([]any{string(overlay.CtlPause)})
			case overlay.StatePaused:
				m.src.UpdateEvent([]any{string(overlay.CtlResume)})
			}
		}

	case tickMsg:
		m.redraw()
		return m, m.tick()

	case noteMsg:
		m.lastNote = describe(overlay.Notification(msg))
		return m, m.waitNote()

	case notesClosedMsg:
		m.notes = nil
		m.lastNote = "engine stopped"
	}
	return m, nil
}

func (m *Model) redraw() {
	rows := m.height - footerLines
	if rows < 1 {
		rows = 1
	}
	m.lines = surface.RenderHalfBlock(m.frame.Snapshot(), m.width, rows)
}

// View renders the preview and the footer.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	for _, l := range m.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) footer() string {
	state := m.src.State()
	style, ok := stateStyles[state]
	if !ok {
		style = mutedStyle
	}
	st := m.src.Stats()
	live := 0
	for _, o := range m.src.Overlays() {
		if o.Presented {
			live++
		}
	}

	session := m.src.Session()
	if len(session) > 8 {
		session = session[:8]
	}
	stateText := fmt.Sprintf(" %s ", state)
	line1 := fmt.Sprintf("%s  live=%d presented=%d removed=%d late=%d flushed=%d failed=%d",
		session, live, st.Presented, st.Removed, st.LateDrops, st.FlushDrops, st.DecodeFailures)
	line1 = runewidth.Truncate(line1, m.width-runewidth.StringWidth(stateText), "…")
	line2 := runewidth.Truncate(m.lastNote, m.width, "…")
	help := runewidth.Truncate("q quit · p pause/resume", m.width, "…")

	return style.Render(stateText) + mutedStyle.Render(line1) + "\n" +
		noteStyle.Render(line2) + "\n" +
		mutedStyle.Render(help)
}

func describe(n overlay.Notification) string {
	switch n.Kind {
	case overlay.NoteStateChanged:
		return fmt.Sprintf("%dµs state → %s", n.At, n.State)
	case overlay.NoteDropped:
		return fmt.Sprintf("%dµs dropped overlay %d (%s)", n.At, n.ID, n.Reason)
	}
	return fmt.Sprintf("%dµs %s overlay %d", n.At, n.Kind, n.ID)
}
