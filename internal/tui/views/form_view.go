package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oraclebench/internal/runner"
	"oraclebench/internal/tui/styles"
)

type Mode string

const (
	ModeFunctional Mode = "functional"
	ModeLoad       Mode = "load"
)

// Field Indices
const (
	FieldMode = iota
	FieldURL
	FieldOracle
	FieldCount
	FieldLevels
	FieldMin
	FieldMax
	FieldEpsilon
	FieldLatencyMin
	FieldLatencyMax
	FieldTimeout
	fieldCount
)

type FormView struct {
	Inputs []textinput.Model
	Focus  int

	// Settings the form does not expose are carried through.
	base runner.Config

	Viewport viewport.Model

	Width  int
	Height int
}

func (m FormView) GetHelp() string {
	switch m.Focus {
	case FieldMode:
		return "Which pass to run.\n• [functional]: sequential requests, every answer checked.\n• [load]: escalating bursts of concurrent requests.\n\nPress [Space] to toggle."
	case FieldURL:
		return "The endpoint under test. Each request is a POST of {\"number\": n}.\nExample: http://127.0.0.1:8000/sqrt"
	case FieldOracle:
		return "Reference function the answers are checked against.\nSupported: sqrt, square, identity."
	case FieldCount:
		return "Number of sequential requests in the functional pass."
	case FieldLevels:
		return "Burst sizes, comma separated. Each level fires that many requests at once; levels run one after another.\nExample: 10,100,1000"
	case FieldMin, FieldMax:
		return "Inputs are drawn uniformly from [Min, Max], both ends included."
	case FieldEpsilon:
		return "Largest accepted absolute difference between the service's answer and the reference."
	case FieldLatencyMin, FieldLatencyMax:
		return "A correct answer outside [Latency Min, Latency Max] ms still fails.\nBoth bounds are inclusive."
	case FieldTimeout:
		return "Per-request deadline in milliseconds. A timed out request fails as a transport error."
	}
	return ""
}

func NewFormView(cfg runner.Config, mode Mode) FormView {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].PromptStyle = styles.Subtle
		inputs[i].TextStyle = styles.Subtle
		inputs[i].Width = 12
	}

	if mode == "" {
		mode = ModeFunctional
	}
	inputs[FieldMode].SetValue(string(mode))
	inputs[FieldMode].Prompt = "Mode (Space): "

	inputs[FieldURL].Placeholder = "http://127.0.0.1:8000/sqrt"
	inputs[FieldURL].SetValue(cfg.URL)
	inputs[FieldURL].Prompt = "URL: "
	inputs[FieldURL].Width = 40

	inputs[FieldOracle].Placeholder = "sqrt"
	inputs[FieldOracle].SetValue(cfg.Oracle)
	inputs[FieldOracle].Prompt = "Oracle: "

	inputs[FieldCount].SetValue(strconv.Itoa(cfg.Count))
	inputs[FieldCount].Prompt = "Requests: "

	inputs[FieldLevels].Placeholder = "10,100,1000"
	inputs[FieldLevels].SetValue(joinLevels(cfg.Levels))
	inputs[FieldLevels].Prompt = "Levels: "
	inputs[FieldLevels].Width = 40

	inputs[FieldMin].SetValue(strconv.FormatInt(cfg.Low, 10))
	inputs[FieldMin].Prompt = "Min: "
	inputs[FieldMax].SetValue(strconv.FormatInt(cfg.High, 10))
	inputs[FieldMax].Prompt = "Max: "

	inputs[FieldEpsilon].SetValue(strconv.FormatFloat(cfg.Tolerance.CorrectnessEpsilon, 'g', -1, 64))
	inputs[FieldEpsilon].Prompt = "Epsilon: "
	inputs[FieldLatencyMin].SetValue(strconv.FormatFloat(cfg.Tolerance.LatencyLowerBoundMs, 'g', -1, 64))
	inputs[FieldLatencyMin].Prompt = "Latency Min (ms): "
	inputs[FieldLatencyMax].SetValue(strconv.FormatFloat(cfg.Tolerance.LatencyUpperBoundMs, 'g', -1, 64))
	inputs[FieldLatencyMax].Prompt = "Latency Max (ms): "

	inputs[FieldTimeout].SetValue(strconv.FormatInt(cfg.Timeout.Milliseconds(), 10))
	inputs[FieldTimeout].Prompt = "Timeout (ms): "

	m := FormView{
		Inputs:   inputs,
		base:     cfg,
		Viewport: viewport.New(0, 0),
	}
	m, _ = m.focusCmd()
	return m
}

func (m FormView) Init() tea.Cmd {
	return textinput.Blink
}

func (m FormView) Mode() Mode {
	return Mode(m.Inputs[FieldMode].Value())
}

func (m FormView) Update(msg tea.Msg) (FormView, tea.Cmd) {
	var cmds []tea.Cmd

	isNav := false
	dir := 0

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down", "enter", "ctrl+n":
			isNav = true
			dir = 1
		case "shift+tab", "up", "ctrl+p":
			isNav = true
			dir = -1
		case " ":
			if m.Focus == FieldMode {
				if m.Mode() == ModeLoad {
					m.Inputs[FieldMode].SetValue(string(ModeFunctional))
				} else {
					m.Inputs[FieldMode].SetValue(string(ModeLoad))
				}
				return m, nil
			}
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Viewport.Width = msg.Width - 4
		m.Viewport.Height = msg.Height - 4
	}

	if isNav {
		m.Focus = m.nextFocus(m.Focus, dir)
		var cmd tea.Cmd
		m, cmd = m.focusCmd()
		cmds = append(cmds, cmd)
	} else if m.Focus != FieldMode {
		var cmd tea.Cmd
		m.Inputs[m.Focus], cmd = m.Inputs[m.Focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	var vpCmd tea.Cmd
	m.Viewport, vpCmd = m.Viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// visible lists the fields shown for the current mode, in tab order.
func (m FormView) visible() []int {
	out := []int{FieldMode, FieldURL, FieldOracle}
	if m.Mode() == ModeLoad {
		out = append(out, FieldLevels)
	} else {
		out = append(out, FieldCount)
	}
	return append(out, FieldMin, FieldMax, FieldEpsilon, FieldLatencyMin, FieldLatencyMax, FieldTimeout)
}

func (m FormView) nextFocus(current, direction int) int {
	visible := m.visible()
	idx := -1
	for i, v := range visible {
		if v == current {
			idx = i
			break
		}
	}
	if idx == -1 {
		return FieldMode
	}
	next := (idx + direction) % len(visible)
	if next < 0 {
		next = len(visible) - 1
	}
	return visible[next]
}

func (m FormView) focusCmd() (FormView, tea.Cmd) {
	var cmds []tea.Cmd
	for i := range m.Inputs {
		if i == m.Focus {
			cmds = append(cmds, m.Inputs[i].Focus())
			m.Inputs[i].PromptStyle = styles.Active
			m.Inputs[i].TextStyle = styles.Text
		} else {
			m.Inputs[i].Blur()
			m.Inputs[i].PromptStyle = styles.Subtle
			m.Inputs[i].TextStyle = styles.Subtle
		}
	}
	return m, tea.Batch(cmds...)
}

func (m FormView) renderInput(idx int) string {
	style := styles.InputNormal
	if idx == m.Focus {
		style = styles.InputActive
	}
	return style.Render(m.Inputs[idx].View())
}

func (m FormView) View() string {
	inputCol := strings.Builder{}
	inputCol.WriteString("\n")
	for _, idx := range m.visible() {
		inputCol.WriteString(m.renderInput(idx))
		inputCol.WriteString("\n")
	}

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.ColorBorder).
		Padding(1, 2).
		Width(45)

	helpCol := styles.Subtle.Bold(true).Render("Information") + "\n\n" +
		styles.Text.Foreground(styles.ColorOK).Render(m.GetHelp())

	mainRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(55).Render(inputCol.String()),
		helpBox.Render(helpCol),
	)

	m.Viewport.SetContent(mainRow)
	return m.Viewport.View()
}

// GetConfig parses the form on top of the config it was built from. The
// result is validated by the runner, not here.
func (m FormView) GetConfig() (runner.Config, error) {
	c := m.base
	val := func(i int) string { return strings.TrimSpace(m.Inputs[i].Value()) }

	c.URL = val(FieldURL)
	c.Oracle = val(FieldOracle)

	var err error
	fail := func(field string, e error) error {
		return fmt.Errorf("%w: %s: %v", runner.ErrInvalidConfig, field, e)
	}

	if m.Mode() == ModeLoad {
		if c.Levels, err = parseLevels(val(FieldLevels)); err != nil {
			return c, fail("levels", err)
		}
	} else if c.Count, err = strconv.Atoi(val(FieldCount)); err != nil {
		return c, fail("requests", err)
	}
	if c.Low, err = strconv.ParseInt(val(FieldMin), 10, 64); err != nil {
		return c, fail("min", err)
	}
	if c.High, err = strconv.ParseInt(val(FieldMax), 10, 64); err != nil {
		return c, fail("max", err)
	}
	if c.Tolerance.CorrectnessEpsilon, err = strconv.ParseFloat(val(FieldEpsilon), 64); err != nil {
		return c, fail("epsilon", err)
	}
	if c.Tolerance.LatencyLowerBoundMs, err = strconv.ParseFloat(val(FieldLatencyMin), 64); err != nil {
		return c, fail("latency min", err)
	}
	if c.Tolerance.LatencyUpperBoundMs, err = strconv.ParseFloat(val(FieldLatencyMax), 64); err != nil {
		return c, fail("latency max", err)
	}
	ms, err := strconv.Atoi(val(FieldTimeout))
	if err != nil {
		return c, fail("timeout", err)
	}
	c.Timeout = time.Duration(ms) * time.Millisecond
	return c, nil
}

func parseLevels(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func joinLevels(levels []int) string {
	parts := make([]string, len(levels))
	for i, n := range levels {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
