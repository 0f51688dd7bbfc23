package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"optimg/internal/pipeline"
)

const maxNameWidth = 35

// Row is the display state for one image job. Rows are registered up
// front, before any progress is reported, and indexed by job ID.
type Row struct {
	Name      string
	Total     int
	Completed int
	Done      bool
	Failed    bool
	Reason    string
}

// Model renders one progress row per job, fed by a single event channel.
// Being the only consumer, it serializes all terminal writes; workers
// never touch the display directly.
type Model struct {
	updates  <-chan pipeline.ProgressEvent
	rows     []Row
	started  time.Time
	width    int
	quitting bool
}

type doneMsg struct{}

type updateMsg pipeline.ProgressEvent

func NewModel(rows []Row, updates <-chan pipeline.ProgressEvent) Model {
	return Model{rows: rows, updates: updates, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.apply(pipeline.ProgressEvent(msg))
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

// apply folds one event into its row. Completed counts are applied as a
// monotonic max so stale or reordered events never regress the display,
// and terminal rows ignore everything that arrives after them.
func (m *Model) apply(ev pipeline.ProgressEvent) {
	if ev.JobID < 0 || ev.JobID >= len(m.rows) {
		return
	}
	row := &m.rows[ev.JobID]
	if row.Done || row.Failed {
		return
	}
	if ev.Completed > row.Completed {
		row.Completed = ev.Completed
	}
	if row.Completed > row.Total {
		row.Completed = row.Total
	}
	if ev.Terminal {
		if ev.Failed {
			row.Failed = true
			row.Reason = ev.Reason
		} else {
			row.Done = true
			row.Completed = row.Total
		}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 30
	if m.width > 0 {
		barWidth = int(math.Min(40, float64(m.width-maxNameWidth-12)))
		if barWidth < 10 {
			barWidth = 10
		}
	}

	lines := make([]string, 0, len(m.rows)+1)
	for i := range m.rows {
		lines = append(lines, RenderRow(m.rows[i], barWidth))
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)
	lines = append(lines, dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)))

	return strings.Join(lines, "\n")
}

// RenderRow formats one job row: a bar with an n/m counter while the
// job is in flight, a check or cross once it is terminal.
func RenderRow(row Row, barWidth int) string {
	name := TruncateName(row.Name, maxNameWidth)
	switch {
	case row.Failed:
		line := failStyle.Render("✗ " + name)
		if row.Reason != "" {
			line += dimStyle.Render("  " + row.Reason)
		}
		return line
	case row.Done:
		return okStyle.Render("✓ " + name)
	default:
		ratio := 0.0
		if row.Total > 0 {
			ratio = float64(row.Completed) / float64(row.Total)
		}
		bar := renderBar(barWidth, ratio)
		return fmt.Sprintf("%s %s %s",
			labelStyle.Render(padRight(name, maxNameWidth)),
			barStyle.Render(bar),
			dimStyle.Render(fmt.Sprintf("%d/%d", row.Completed, row.Total)),
		)
	}
}

// TruncateName shortens long filenames to max runes keeping the head
// and the tail, so the extension stays visible.
func TruncateName(name string, max int) string {
	runes := []rune(name)
	if max <= 0 || len(runes) <= max {
		return name
	}
	const ellipsis = "..."
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	tail := (max - len(ellipsis)) * 3 / 8
	head := max - len(ellipsis) - tail
	return string(runes[:head]) + ellipsis + string(runes[len(runes)-tail:])
}

func listenForUpdates(updates <-chan pipeline.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	if ratio > 1 {
		ratio = 1
	}
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	okStyle    = lipgloss.NewStyle().Foreground(ColorSuccess)
	failStyle  = lipgloss.NewStyle().Foreground(ColorError)
)
