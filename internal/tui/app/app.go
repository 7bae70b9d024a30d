package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oraclebench/internal/report"
	"oraclebench/internal/runner"
	"oraclebench/internal/stats"
	"oraclebench/internal/storage"
	"oraclebench/internal/tui/styles"
	"oraclebench/internal/tui/views"
)

const (
	tickInterval = 200 * time.Millisecond
	eventBuffer  = 256
)

type ClearStatusMsg struct{}

func clearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(_ time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sampleMsg is the latency of one functional request. Samples are dropped
// when the UI falls behind.
type sampleMsg float64

type burstMsg runner.BurstResult

// doneMsg ends a run. err is set on cancellation; the results still hold
// whatever completed.
type doneMsg struct {
	mode       views.Mode
	cfg        runner.Config
	functional runner.FunctionalReport
	bursts     []runner.BurstResult
	elapsed    time.Duration
	err        error
}

// View Enum
type ViewID int

const (
	ViewForm ViewID = iota
	ViewDashboard
	ViewHistory
)

type Model struct {
	Store *storage.Store

	// Progress from the run goroutines. Long-lived; one run at a time.
	events chan tea.Msg
	live   *stats.Stats

	RunActive bool
	RunCancel context.CancelFunc
	last      *doneMsg

	Width  int
	Height int

	CurrentView ViewID
	MenuItems   []string

	FormView    views.FormView
	DashView    views.DashboardView
	HistoryView views.HistoryView

	StatusMsg string
}

// NewModel builds the UI around cfg. store may be nil, which disables
// history.
func NewModel(cfg runner.Config, store *storage.Store) Model {
	return Model{
		Store:       store,
		events:      make(chan tea.Msg, eventBuffer),
		live:        stats.NewStats(),
		CurrentView: ViewForm,
		MenuItems:   []string{"[1] New Run", "[2] Dashboard", "[3] History"},
		FormView:    views.NewFormView(cfg, views.ModeFunctional),
		HistoryView: views.NewHistoryView(store),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.FormView.Init(),
		waitForEvent(m.events),
	)
}

func waitForEvent(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case ClearStatusMsg:
		m.StatusMsg = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			if m.RunCancel != nil {
				m.RunCancel()
			}
			return m, tea.Quit

		case "ctrl+d":
			m.CurrentView = ViewDashboard
			return m, nil

		case "ctrl+h":
			m.HistoryView.Refresh()
			m.CurrentView = ViewHistory
			return m, nil

		case "ctrl+right":
			m.CurrentView++
			if m.CurrentView > ViewHistory {
				m.CurrentView = ViewForm
			}
			return m, nil
		case "ctrl+left":
			m.CurrentView--
			if m.CurrentView < ViewForm {
				m.CurrentView = ViewHistory
			}
			return m, nil

		case "ctrl+r":
			if m.CurrentView == ViewForm && !m.RunActive {
				cmd := m.startRun()
				return m, cmd
			}
			return m, nil

		case "ctrl+s":
			if m.RunActive && m.RunCancel != nil {
				m.RunCancel()
				m.StatusMsg = "Stopping..."
			}
			return m, nil

		case "ctrl+p":
			switch m.CurrentView {
			case ViewDashboard:
				m.StatusMsg = m.exportLast()
				return m, clearStatusCmd()
			case ViewHistory:
				m.StatusMsg = m.exportSelected()
				return m, clearStatusCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		inner := tea.WindowSizeMsg{Width: m.Width, Height: m.Height - 7}

		m.FormView, _ = m.FormView.Update(inner)
		m.DashView, _ = m.DashView.Update(inner)
		m.HistoryView, _ = m.HistoryView.Update(inner)
		return m, nil

	case tickMsg:
		if !m.RunActive {
			return m, nil
		}
		m.DashView.SetStats(m.live.Snapshot())
		return m, tickCmd()

	case sampleMsg:
		if m.RunActive {
			m.DashView.AddSample(float64(msg))
		}
		return m, waitForEvent(m.events)

	case burstMsg:
		m.DashView.AddBurst(runner.BurstResult(msg))
		return m, waitForEvent(m.events)

	case doneMsg:
		m.finishRun(msg)
		cmds = append(cmds, clearStatusCmd())
		return m, tea.Batch(cmds...)
	}

	var defaultCmd tea.Cmd
	switch m.CurrentView {
	case ViewForm:
		m.FormView, defaultCmd = m.FormView.Update(msg)
	case ViewDashboard:
		m.DashView, defaultCmd = m.DashView.Update(msg)
	case ViewHistory:
		m.HistoryView, defaultCmd = m.HistoryView.Update(msg)
		if sel := m.HistoryView.Selected; sel != nil {
			m.FormView = views.NewFormView(sel.Config, sel.Mode)
			m.HistoryView.Selected = nil
			m.CurrentView = ViewForm
		}
	}
	cmds = append(cmds, defaultCmd)

	return m, tea.Batch(cmds...)
}

// startRun validates the form and launches the selected pass. The returned
// command blocks until the run ends and yields its doneMsg.
func (m *Model) startRun() tea.Cmd {
	mode := m.FormView.Mode()
	cfg, err := m.FormView.GetConfig()
	if err == nil {
		if mode == views.ModeLoad {
			err = cfg.ValidateLoad()
		} else {
			err = cfg.ValidateFunctional()
		}
	}
	if err != nil {
		m.StatusMsg = fmt.Sprintf("Invalid configuration: %v", err)
		return clearStatusCmd()
	}

	run, err := m.newRun(cfg, mode)
	if err != nil {
		m.StatusMsg = fmt.Sprintf("Cannot start: %v", err)
		return clearStatusCmd()
	}

	m.RunActive = true
	m.DashView = views.NewDashboardView(cfg, mode, m.Width, m.Height-7)
	m.CurrentView = ViewDashboard
	return tea.Batch(run, tickCmd())
}

func (m *Model) newRun(cfg runner.Config, mode views.Mode) (tea.Cmd, error) {
	live := stats.NewStats()
	m.live = live
	events := m.events

	ctx, cancel := context.WithCancel(context.Background())

	if mode == views.ModeLoad {
		r, err := runner.NewLoadRunner(cfg, nil, nil)
		if err != nil {
			cancel()
			return nil, err
		}
		r.OnRequest = func(_ int, rec runner.OutcomeRecord) {
			observe(live, rec)
		}
		r.OnBurst = func(_, _ int, b runner.BurstResult) {
			events <- burstMsg(b)
		}
		m.RunCancel = cancel
		return func() tea.Msg {
			defer cancel()
			start := time.Now()
			bursts, err := r.Run(ctx, cfg.Levels, cfg.Low, cfg.High)
			return doneMsg{mode: mode, cfg: cfg, bursts: bursts, elapsed: time.Since(start), err: err}
		}, nil
	}

	r, err := runner.NewFunctionalRunner(cfg, nil, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	r.OnRecord = func(_, _ int, rec runner.OutcomeRecord) {
		observe(live, rec)
		select {
		case events <- sampleMsg(rec.LatencyMs):
		default:
		}
	}
	m.RunCancel = cancel
	return func() tea.Msg {
		defer cancel()
		res, err := r.Run(ctx, cfg.Count, cfg.Low, cfg.High)
		return doneMsg{mode: mode, cfg: cfg, functional: res, elapsed: res.Elapsed, err: err}
	}, nil
}

func observe(st *stats.Stats, rec runner.OutcomeRecord) {
	latency := time.Duration(rec.LatencyMs * float64(time.Millisecond))
	st.Add(rec.Success, string(rec.ErrorKind), latency, rec.ErrorKind != runner.ErrorTransport)
}

func (m *Model) finishRun(d doneMsg) {
	m.RunActive = false
	m.RunCancel = nil
	m.DashView.SetStats(m.live.Snapshot())
	m.DashView.Finish(d.elapsed, d.err)

	if d.err != nil {
		m.StatusMsg = fmt.Sprintf("Run stopped: %v", d.err)
	} else {
		m.StatusMsg = "Run finished."
	}

	// A run rejected before its first request has nothing worth keeping.
	if rejected(d.err) {
		return
	}
	m.last = &d
	if m.Store == nil {
		return
	}
	item, err := storage.NewHistoryItem(summaryOf(d))
	if err == nil {
		err = m.Store.Save(item)
	}
	if err == nil {
		_, err = m.Store.Prune(storage.DefaultKeep)
	}
	if err != nil {
		m.StatusMsg = fmt.Sprintf("Error saving history: %v", err)
	}
	m.HistoryView.Refresh()
}

func rejected(err error) bool {
	return errors.Is(err, runner.ErrInvalidConfig) || errors.Is(err, runner.ErrInvalidRange)
}

func summaryOf(d doneMsg) report.Summary {
	if d.mode == views.ModeLoad {
		return report.LoadSummary(d.cfg, d.bursts)
	}
	return report.FunctionalSummary(d.cfg, d.functional)
}

func (m Model) exportLast() string {
	if m.last == nil {
		return "No results to export yet."
	}
	prefix := fmt.Sprintf("oraclebench_%s_%s", m.last.mode, time.Now().Format("20060102-150405"))

	var files []string
	var err error
	if m.last.mode == views.ModeLoad {
		files, err = report.WriteLoad(prefix, m.last.cfg, m.last.bursts)
	} else {
		files, err = report.WriteFunctional(prefix, m.last.cfg, m.last.functional)
	}
	if err != nil {
		return fmt.Sprintf("Export Failed: %v", err)
	}
	return "Exported to " + strings.Join(files, ", ")
}

func (m Model) exportSelected() string {
	item := m.HistoryView.GetSelectedItem()
	if item == nil {
		return "No run selected."
	}
	name := fmt.Sprintf("oraclebench_history_%s.json", item.ID)
	if err := report.ExportJSON(item.Summary, name); err != nil {
		return fmt.Sprintf("Export Failed: %v", err)
	}
	return "Exported history to " + name
}

func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	nav := strings.Builder{}
	for i, item := range m.MenuItems {
		if ViewID(i) == m.CurrentView {
			nav.WriteString(styles.TabActive.Render(item))
		} else {
			nav.WriteString(styles.TabBase.Render(item))
		}
	}
	navBar := styles.FooterBase.Width(m.Width).Render(nav.String())

	contentStr := ""
	switch m.CurrentView {
	case ViewForm:
		contentStr = m.FormView.View()
	case ViewDashboard:
		if m.DashView.Total == 0 && !m.RunActive && m.last == nil {
			contentStr = styles.Subtle.Render("No run yet. Fill in the form and press Ctrl+R.")
		} else {
			contentStr = m.DashView.View()
		}
	case ViewHistory:
		contentStr = m.HistoryView.View()
	}

	content := styles.Panel.Width(m.Width - 2).Height(m.Height - 6).Render(contentStr)

	keys1 := []string{
		styles.RenderKey("Ctrl+<->", "View"),
		styles.RenderKey("Tab", "Field"),
		styles.RenderKey("Space", "Toggle"),
	}
	keys2 := []string{
		styles.RenderKey("Ctrl+R", "Run"),
		styles.RenderKey("Ctrl+S", "Stop"),
		styles.RenderKey("Ctrl+P", "Export"),
		styles.RenderKey("Ctrl+Q", "Quit"),
	}
	keys3 := []string{
		styles.RenderKey("Ctrl+D", "Dash"),
		styles.RenderKey("Ctrl+H", "Hist"),
	}

	footer := lipgloss.JoinVertical(lipgloss.Left,
		styles.FooterBase.Width(m.Width).Render(strings.Join(keys1, "   ")),
		styles.FooterBase.Width(m.Width).Render(strings.Join(keys2, "   ")),
		styles.FooterBase.Width(m.Width).Render(strings.Join(keys3, "   ")),
	)

	if m.StatusMsg != "" {
		status := styles.Box.BorderForeground(styles.ColorHighlight).Render(m.StatusMsg)
		return lipgloss.JoinVertical(lipgloss.Left, navBar, content, status, footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, navBar, content, footer)
}
