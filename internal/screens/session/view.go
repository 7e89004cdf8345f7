package session

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/gradeprobe/internal/ui/components"
	"github.com/abhisek/gradeprobe/internal/ui/theme"
)

func (m *Model) View() tea.View {
	return tea.NewView(m.render())
}

func (m *Model) render() string {
	var b strings.Builder

	b.WriteString(theme.Title.Render(fmt.Sprintf("Diagnostic assessment: %s", m.subject)))
	b.WriteString("\n\n")

	if m.feedback != nil {
		b.WriteString(components.RenderFeedback(*m.feedback))
		b.WriteString("\n\n")
	}

	if m.phase == phaseDone {
		return b.String()
	}

	b.WriteString(components.RenderQuestion(m.item, m.number, m.total))
	b.WriteString("\n\n")

	if m.mcActive {
		b.WriteString(m.choices.View())
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(theme.Incorrect.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.Hint.Render(m.hint()))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) hint() string {
	switch {
	case m.phase == phaseQuitConfirm:
		return "Quit this assessment? (y/n)"
	case m.phase == phaseSubmitting:
		return "Checking answer..."
	case m.mcActive:
		return "↑/↓ move  enter select  A-Z or 1-9 pick  esc quit"
	default:
		return "enter submit  esc quit"
	}
}
