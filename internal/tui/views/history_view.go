package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"oraclebench/internal/report"
	"oraclebench/internal/runner"
	"oraclebench/internal/storage"
	"oraclebench/internal/tui/styles"
)

// Replay is the form state a history entry restores.
type Replay struct {
	Config runner.Config
	Mode   Mode
}

type HistoryView struct {
	Store *storage.Store
	Table table.Model
	items []storage.HistoryItem
	err   error

	Selected *Replay // Output for parent to grab

	Width  int
	Height int
}

func NewHistoryView(store *storage.Store) HistoryView {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Mode", Width: 11},
		{Title: "URL", Width: 36},
		{Title: "Reqs", Width: 9},
		{Title: "Success", Width: 9},
		{Title: "P99 (ms)", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	m := HistoryView{
		Store: store,
		Table: t,
	}
	m.Refresh()
	return m
}

// Refresh reloads the store, newest run first.
func (m *HistoryView) Refresh() {
	if m.Store == nil {
		return
	}
	m.items, m.err = m.Store.List()

	rows := make([]table.Row, len(m.items))
	for i, item := range m.items {
		s := item.Summary
		rows[i] = table.Row{
			item.Timestamp.Format("2006-01-02 15:04:05"),
			s.Mode,
			s.Config.URL,
			fmt.Sprintf("%d", s.Requests),
			fmt.Sprintf("%.2f%%", s.SuccessRate*100),
			p99(s.Latency, s.Bursts),
		}
	}
	m.Table.SetRows(rows)
}

func p99(l *report.LatencySummary, bursts []runner.BurstResult) string {
	if l != nil {
		return fmt.Sprintf("%.2f", l.P99Ms)
	}
	worst := 0.0
	for _, b := range bursts {
		if b.P99LatencyMs > worst {
			worst = b.P99LatencyMs
		}
	}
	return fmt.Sprintf("%.2f", worst)
}

func (m HistoryView) Init() tea.Cmd {
	return nil
}

func (m HistoryView) Update(msg tea.Msg) (HistoryView, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		m.Table.SetHeight(msg.Height - 8)

	case tea.KeyMsg:
		if msg.String() == "enter" {
			if item := m.GetSelectedItem(); item != nil {
				m.Selected = &Replay{Config: item.Summary.Config, Mode: Mode(item.Summary.Mode)}
				return m, nil
			}
		}
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m HistoryView) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("📜 Past Runs"))
	s.WriteString("\n\n")

	switch {
	case m.Store == nil:
		s.WriteString(styles.Subtle.Render("History store unavailable."))
	case m.err != nil:
		s.WriteString(styles.Error.Render(fmt.Sprintf("Loading history failed: %v", m.err)))
	case len(m.Table.Rows()) == 0:
		s.WriteString(styles.Subtle.Render("No history found.\nRun a test to generate data."))
	default:
		s.WriteString(styles.Box.Render(m.Table.View()))
	}
	s.WriteString("\n\n")
	s.WriteString(styles.Subtle.Render("[Enter] Replay  [Ctrl+P] Export Selected"))
	return s.String()
}

func (m HistoryView) GetSelectedItem() *storage.HistoryItem {
	idx := m.Table.Cursor()
	if idx >= 0 && idx < len(m.items) {
		return &m.items[idx]
	}
	return nil
}
