package styles

import (
	"github.com/charmbracelet/lipgloss"

	"oraclebench/internal/runner"
)

// Palette. Kind colors are chosen so the four failure kinds stay
// distinguishable next to each other in the breakdown chart.
var (
	ColorBanner    = lipgloss.Color("#5FD7FF") // cyan
	ColorPrimary   = lipgloss.Color("#5F87FF") // oracle blue
	ColorOK        = lipgloss.Color("#5FD787") // correct answers
	ColorError     = lipgloss.Color("#FF5F5F")
	ColorWarning   = lipgloss.Color("#FFD75F")
	ColorText      = lipgloss.Color("#E4E4E4")
	ColorSubtle    = lipgloss.Color("#808080")
	ColorBorder    = lipgloss.Color("#444444")
	ColorHighlight = lipgloss.Color("#303030")
	ColorBg        = lipgloss.Color("#1C1C1C")

	ColorTransport = lipgloss.Color("#FF5F5F") // red
	ColorIncorrect = lipgloss.Color("#FF87D7") // magenta
	ColorLatency   = lipgloss.Color("#FFAF5F") // orange
	ColorUndefined = lipgloss.Color("#AF87FF") // violet
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(1, 2)

	Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(ColorSubtle)

	Text   = lipgloss.NewStyle().Foreground(ColorText)
	Subtle = lipgloss.NewStyle().Foreground(ColorSubtle)

	Value  = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	Active = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	Error   = lipgloss.NewStyle().Foreground(ColorError)
	Warn    = lipgloss.NewStyle().Foreground(ColorWarning)
	Success = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)

	KeyKey  = lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	KeyDesc = lipgloss.NewStyle().Foreground(ColorSubtle)

	InputActive = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(ColorPrimary).Padding(0, 1)
	InputNormal = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorBorder).Padding(0, 1)

	// Card on the dashboard.
	Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Margin(0, 1)

	TabBase = lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Padding(0, 2)

	TabActive = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(ColorPrimary).
			Padding(0, 2)

	FooterBase = lipgloss.NewStyle().
			Height(1).
			Padding(0, 1)
)

var kindStyles = map[runner.ErrorKind]lipgloss.Style{
	runner.ErrorTransport:       lipgloss.NewStyle().Foreground(ColorTransport),
	runner.ErrorIncorrectResult: lipgloss.NewStyle().Foreground(ColorIncorrect),
	runner.ErrorLatencyBounds:   lipgloss.NewStyle().Foreground(ColorLatency),
	runner.ErrorOracleUndefined: lipgloss.NewStyle().Foreground(ColorUndefined),
}

// Kind returns the bar style for a failure kind. Unknown kinds fall back
// to Error.
func Kind(k runner.ErrorKind) lipgloss.Style {
	if s, ok := kindStyles[k]; ok {
		return s
	}
	return Error
}

func RenderKey(key, desc string) string {
	return lipgloss.JoinHorizontal(lipgloss.Center,
		KeyKey.Render("<"+key+">"),
		" ",
		KeyDesc.Render(desc),
	)
}

// Rate picks a style for a success ratio in [0, 1].
func Rate(r float64) lipgloss.Style {
	switch {
	case r >= 0.99:
		return Success
	case r >= 0.9:
		return Warn
	}
	return Error
}
