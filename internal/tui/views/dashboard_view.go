package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oraclebench/internal/runner"
	"oraclebench/internal/stats"
	"oraclebench/internal/tui/components"
	"oraclebench/internal/tui/styles"
)

type DashboardView struct {
	Mode   Mode
	Config runner.Config

	Stats  stats.Snapshot
	Total  uint64
	Bursts []runner.BurstResult

	Viewport viewport.Model
	Progress progress.Model
	Table    table.Model
	Latency  components.Sparkline

	StartTime time.Time
	Elapsed   time.Duration
	Finished  bool
	Err       error

	Width  int
	Height int
}

func NewDashboardView(cfg runner.Config, mode Mode, width, height int) DashboardView {
	prog := progress.New(
		progress.WithGradient("#7D56F4", "#04B575"),
		progress.WithWidth(width-10),
		progress.WithoutPercentage(),
	)

	var total uint64
	if mode == ModeLoad {
		for _, n := range cfg.Levels {
			total += uint64(n)
		}
	} else {
		total = uint64(cfg.Count)
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Burst", Width: 8},
			{Title: "Success", Width: 9},
			{Title: "Avg (ms)", Width: 10},
			{Title: "P50 (ms)", Width: 10},
			{Title: "P99 (ms)", Width: 10},
			{Title: "Req/s", Width: 10},
			{Title: "Elapsed", Width: 10},
		}),
		table.WithHeight(len(cfg.Levels)+1),
	)
	t.SetStyles(tableStyles())

	return DashboardView{
		Mode:      mode,
		Config:    cfg,
		Total:     total,
		Viewport:  viewport.New(width-6, height-4),
		Progress:  prog,
		Table:     t,
		Latency:   components.NewSparkline(width-14, "Latency (ms)", styles.Active),
		StartTime: time.Now(),
		Width:     width,
		Height:    height,
	}
}

func (m DashboardView) Init() tea.Cmd {
	return nil
}

func (m DashboardView) Update(msg tea.Msg) (DashboardView, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 10
		m.Viewport.Width = msg.Width - 6
		m.Viewport.Height = msg.Height - 4
		m.Latency.SetWidth(msg.Width - 14)
	}
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// SetStats replaces the live counters.
func (m *DashboardView) SetStats(s stats.Snapshot) {
	m.Stats = s
	if !m.Finished {
		m.Elapsed = time.Since(m.StartTime)
	}
}

// AddSample pushes one latency point onto the sparkline.
func (m *DashboardView) AddSample(ms float64) {
	m.Latency.Add(ms)
}

func (m *DashboardView) AddBurst(b runner.BurstResult) {
	m.Bursts = append(m.Bursts, b)
	m.AddSample(b.AvgLatencyMs)

	rows := make([]table.Row, len(m.Bursts))
	for i, b := range m.Bursts {
		rows[i] = table.Row{
			fmt.Sprintf("%d", b.Concurrency),
			fmt.Sprintf("%.2f%%", b.SuccessRate*100),
			fmt.Sprintf("%.2f", b.AvgLatencyMs),
			fmt.Sprintf("%.2f", b.P50LatencyMs),
			fmt.Sprintf("%.2f", b.P99LatencyMs),
			fmt.Sprintf("%.1f", b.Throughput),
			b.Elapsed.Round(time.Millisecond).String(),
		}
	}
	m.Table.SetRows(rows)
}

// Finish freezes the clock. err is the run's error, if any; a canceled run
// keeps its partial numbers.
func (m *DashboardView) Finish(elapsed time.Duration, err error) {
	m.Finished = true
	m.Elapsed = elapsed
	m.Err = err
}

func (m DashboardView) percent() float64 {
	if m.Total == 0 {
		return 0
	}
	pct := float64(m.Stats.Requests) / float64(m.Total)
	if pct > 1 {
		pct = 1
	}
	return pct
}

func (m DashboardView) View() string {
	s := strings.Builder{}

	status := "[Running]"
	statusStyle := lipgloss.NewStyle().MarginLeft(4).Foreground(styles.ColorPrimary).Bold(true)
	switch {
	case m.Finished && m.Err != nil:
		status = "[Stopped]"
		statusStyle = statusStyle.Foreground(styles.ColorWarning)
	case m.Finished:
		status = "[Done]"
		statusStyle = statusStyle.Foreground(styles.ColorOK)
	}

	title := "⚡ Functional Verification"
	if m.Mode == ModeLoad {
		title = "⚡ Load Test"
	}
	timer := fmt.Sprintf("%s  %d/%d requests", m.Elapsed.Round(time.Second), m.Stats.Requests, m.Total)
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.Title.Render(title),
		lipgloss.NewStyle().MarginLeft(2).Foreground(styles.ColorSubtle).Render(timer),
		statusStyle.Render(status),
	)
	s.WriteString(header)
	s.WriteString("\n")
	s.WriteString(styles.Subtle.Render(m.Config.URL))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.ViewAs(m.percent()))
	s.WriteString("\n\n")

	// Row 1: Volume
	rate := m.Stats.SuccessRate
	failStyle := styles.Text
	if m.Stats.Fail > 0 {
		failStyle = styles.Error
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		MakeCard("Requests", styles.Value.Render(fmt.Sprintf("%d", m.Stats.Requests))),
		MakeCard("Success", styles.Value.Render(fmt.Sprintf("%d", m.Stats.Success))),
		MakeCard("Failures", failStyle.Render(fmt.Sprintf("%d", m.Stats.Fail))),
		MakeCard("Success Rate", styles.Rate(rate).Render(fmt.Sprintf("%.2f%%", rate*100))),
	)
	s.WriteString(row1)
	s.WriteString("\n")

	// Row 2: Latency of completed requests
	row2 := lipgloss.JoinHorizontal(lipgloss.Top,
		MakeCard("Mean Latency", styles.Text.Render(fmt.Sprintf("%.1f ms", m.Stats.MeanMs))),
		MakeCard("P50 Latency", styles.Text.Render(fmt.Sprintf("%.1f ms", m.Stats.P50Ms))),
		MakeCard("P99 Latency", styles.Warn.Render(fmt.Sprintf("%.1f ms", m.Stats.P99Ms))),
		MakeCard("Max Latency", styles.Error.Render(fmt.Sprintf("%.1f ms", m.Stats.MaxMs))),
	)
	s.WriteString(row2)
	s.WriteString("\n\n")

	s.WriteString(m.Latency.View())
	s.WriteString("\n")

	if m.Mode == ModeLoad && len(m.Bursts) > 0 {
		s.WriteString("\n")
		s.WriteString(styles.Subtle.Render("Bursts"))
		s.WriteString("\n")
		s.WriteString(m.Table.View())
		s.WriteString("\n")
	}

	if len(m.Stats.ErrorCounts) > 0 {
		s.WriteString("\n")
		s.WriteString(styles.Subtle.Render("Failure Breakdown"))
		s.WriteString("\n")

		barWidth := 30
		var maxCount uint64
		for _, c := range m.Stats.ErrorCounts {
			if c > maxCount {
				maxCount = c
			}
		}
		for _, kind := range runner.ErrorKinds {
			count, ok := m.Stats.ErrorCounts[string(kind)]
			if !ok {
				continue
			}
			w := int(float64(count) / float64(maxCount) * float64(barWidth))
			s.WriteString(fmt.Sprintf("%-22s %s %d\n", kind.Label(), styles.Kind(kind).Render(strings.Repeat("█", w)), count))
		}
	}

	if m.Err != nil {
		s.WriteString("\n")
		s.WriteString(styles.Warn.Render(fmt.Sprintf("Run ended early: %v", m.Err)))
		s.WriteString("\n")
	}

	content := styles.Panel.Width(m.Width - 6).Render(s.String())
	m.Viewport.SetContent(content)
	return m.Viewport.View()
}

func MakeCard(title, value string) string {
	return styles.Box.Width(18).Align(lipgloss.Center).Render(
		fmt.Sprintf("%s\n%s", styles.Subtle.Render(title), value),
	)
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)
	s.Selected = s.Selected.
		Foreground(styles.ColorBg).
		Background(styles.ColorPrimary).
		Bold(true)
	return s
}
