package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Sparkline is a one-row scrolling chart of the last Width samples, scaled
// to the largest visible sample.
type Sparkline struct {
	Data  []float64
	Width int
	Max   float64
	Style lipgloss.Style
	Label string
}

func NewSparkline(width int, label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width: width,
		Label: label,
		Style: style,
		Data:  make([]float64, 0, width),
	}
}

func (s *Sparkline) Add(val float64) {
	s.Data = append(s.Data, val)
	if s.Width > 0 && len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}
	s.rescale()
}

// SetWidth resizes the window, dropping the oldest samples if it shrinks.
func (s *Sparkline) SetWidth(w int) {
	s.Width = w
	if w > 0 && len(s.Data) > w {
		s.Data = s.Data[len(s.Data)-w:]
	}
	s.rescale()
}

func (s *Sparkline) rescale() {
	max := 0.0
	for _, v := range s.Data {
		if v > max {
			max = v
		}
	}
	s.Max = max
}

// Graph renders only the bars, padded to Width.
func (s Sparkline) Graph() string {
	var graph strings.Builder
	for _, v := range s.Data {
		if s.Max <= 0 || v <= 0 {
			graph.WriteString(levels[0])
			continue
		}
		idx := int(v / s.Max * float64(len(levels)-1))
		if idx < 1 {
			idx = 1
		}
		if idx >= len(levels) {
			idx = len(levels) - 1
		}
		graph.WriteString(levels[idx])
	}
	if pad := s.Width - len(s.Data); pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}
	return graph.String()
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}
	label := s.Label
	if len(s.Data) > 0 {
		label = fmt.Sprintf("%s (max %.1f)", s.Label, s.Max)
	}
	return s.Style.Render(label) + "\n" + s.Style.Render(s.Graph())
}
