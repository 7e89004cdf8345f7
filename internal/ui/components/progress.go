package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/gradeprobe/internal/ui/theme"
)

// ProgressBar displays a horizontal bar for a ratio in [0, 1].
type ProgressBar struct {
	Label      string
	LabelWidth int
	Ratio      float64
	Detail     string
	Width      int
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var b strings.Builder

	if p.Label != "" {
		label := p.Label
		if pad := p.LabelWidth - lipgloss.Width(label); pad > 0 {
			label += strings.Repeat(" ", pad)
		}
		b.WriteString(theme.Body.Render(label))
		b.WriteString("  ")
	}

	barWidth := p.Width
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth)*p.Ratio + 0.5)
	filled = min(max(filled, 0), barWidth)

	b.WriteString(theme.ProgressFilled.Render(strings.Repeat(" ", filled)))
	b.WriteString(theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled)))

	if p.Detail != "" {
		b.WriteString(theme.Subtitle.Render(fmt.Sprintf("  %s", p.Detail)))
	}

	return b.String()
}
