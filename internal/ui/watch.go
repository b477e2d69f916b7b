// Package ui renders a live view of a recorded session.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"callscope/internal/report"
	"callscope/internal/stats"
	"callscope/internal/store"
)

const refreshInterval = time.Second

type watchModel struct {
	session string
	st      *store.Store
	sort    report.Sort
	limit   int

	spinner spinner.Model
	prog    progress.Model
	rows    []stats.Entry
	totals  struct {
		calls uint64
		excl  time.Duration
	}
	covered time.Duration
	loadErr error
	width   int
	stopped bool
}

type rowsMsg stats.Snapshot
type loadErrMsg struct{ err error }
type tickMsg time.Time

// NewWatchModel returns a Bubble Tea model that periodically reloads a
// session's merged statistics and shows the hottest locations.
func NewWatchModel(st *store.Store, session string, sort report.Sort, limit int) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	if limit <= 0 {
		limit = 15
	}
	return &watchModel{
		session: session,
		st:      st,
		sort:    sort,
		limit:   limit,
		spinner: sp,
		prog:    prog,
		width:   80,
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), m.tick())
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	case rowsMsg:
		m.loadErr = nil
		m.apply(stats.Snapshot(msg))
		return m, nil
	case loadErrMsg:
		m.loadErr = msg.err
		return m, nil
	case tickMsg:
		if meta, err := m.st.Meta(m.session); err == nil {
			m.stopped = meta.Stopped()
		}
		return m, tea.Batch(m.load(), m.tick())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *watchModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("callscope watch: %s (%s)", m.session, m.sort)
	if m.stopped {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	if m.loadErr != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
		b.WriteString(errStyle.Render(fmt.Sprintf("  load error: %v", m.loadErr)))
		b.WriteString("\n")
		return b.String()
	}

	numWidth := 34
	nameWidth := m.width - numWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}

	rowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	hotStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	for i, e := range m.rows {
		name := truncate(e.Loc().String(), nameWidth)
		nums := fmt.Sprintf("%8d %10.2fms %10.2fms",
			e.Calls,
			float64(e.Excl)/float64(time.Millisecond),
			float64(e.Cum)/float64(time.Millisecond))
		style := rowStyle
		if i < 3 {
			style = hotStyle
		}
		b.WriteString("  ")
		b.WriteString(style.Render(nums + "  " + name))
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString("  no samples yet\n")
	}

	b.WriteString("\n")
	if m.totals.excl > 0 {
		pct := float64(m.covered) / float64(m.totals.excl)
		if pct > 1 {
			pct = 1
		}
		b.WriteString(m.prog.ViewAs(pct))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("  q to quit"))
	b.WriteString("\n")

	return b.String()
}

func (m *watchModel) apply(snap stats.Snapshot) {
	rows := report.Order(snap, m.sort)
	if len(rows) > m.limit {
		rows = rows[:m.limit]
	}
	m.rows = rows
	m.totals.calls, m.totals.excl = snap.Totals()
	m.covered = 0
	for _, e := range rows {
		m.covered += e.Excl
	}
}

func (m *watchModel) load() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.st.LoadMerged(context.Background(), m.session)
		if err != nil {
			return loadErrMsg{err: err}
		}
		return rowsMsg(snap)
	}
}

func (m *watchModel) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
