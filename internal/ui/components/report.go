package components

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/ui/theme"
)

const barWidth = 20

// RenderQuestion renders the heading and text of one item. Options and
// the answer box are drawn by ChoiceList and AnswerInput.
func RenderQuestion(item *assessment.Item, number, total int) string {
	var b strings.Builder
	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("Question %d of %d  ·  %s  ·  level %.1f", number, total, item.Domain, item.Difficulty)))
	b.WriteString("\n")
	b.WriteString(theme.Body.Bold(true).Render(item.Text))
	return b.String()
}

// ChoiceLetter resolves a single-letter answer ("b", "C") to the matching
// option of a multiple-choice item. An answer that already names an
// option, such as "A" among the options "B" and "A", is kept as typed.
// Other answers are returned unchanged.
func ChoiceLetter(item *assessment.Item, answer string) string {
	mc, ok := item.Kind.(assessment.MultipleChoice)
	if !ok {
		return answer
	}
	a := strings.TrimSpace(answer)
	if len(a) != 1 {
		return answer
	}
	for _, choice := range mc.Choices {
		if assessment.AnswerMatches(a, choice) {
			return answer
		}
	}
	idx := int(strings.ToUpper(a)[0]) - 'A'
	if idx < 0 || idx >= len(mc.Choices) {
		return answer
	}
	return mc.Choices[idx]
}

// RenderFeedback renders the verdict on a response.
func RenderFeedback(resp assessment.Response) string {
	if resp.IsCorrect {
		return theme.Correct.Render("✓ Correct")
	}
	return theme.Incorrect.Render("✗ Not quite")
}

// RenderResult renders the final report of a session.
func RenderResult(r *assessment.Result) string {
	var b strings.Builder

	b.WriteString(theme.Title.Render("Assessment complete"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %s\n", theme.Subtitle.Render("Estimated level:"), theme.Emphasis.Render(r.GradeLevelLabel)))
	b.WriteString(fmt.Sprintf("%s %s\n", theme.Subtitle.Render("Skill level:    "), theme.Body.Render(fmt.Sprintf("%.1f", r.SkillLevel))))
	b.WriteString(fmt.Sprintf("%s %s\n", theme.Subtitle.Render("Score:          "),
		theme.Body.Render(fmt.Sprintf("%.0f%% (%d/%d)", r.ScorePercentage, r.CorrectCount, r.TotalCount))))

	if len(r.DomainPerformance) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Title.Render("By domain"))
		b.WriteString("\n")

		domains := make([]string, 0, len(r.DomainPerformance))
		labelWidth := 0
		for d := range r.DomainPerformance {
			domains = append(domains, d)
			labelWidth = max(labelWidth, lipgloss.Width(d))
		}
		slices.Sort(domains)

		for _, d := range domains {
			ds := r.DomainPerformance[d]
			bar := ProgressBar{
				Label:      d,
				LabelWidth: labelWidth,
				Ratio:      ds.Ratio(),
				Detail:     fmt.Sprintf("%d/%d", ds.Correct, ds.Total),
				Width:      barWidth,
			}
			b.WriteString(bar.View())
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n", theme.Subtitle.Render("Strengths: "), renderList(r.Strengths, theme.Strength)))
	b.WriteString(fmt.Sprintf("%s %s", theme.Subtitle.Render("Weaknesses:"), renderList(r.Weaknesses, theme.Weakness)))

	return theme.Card.Render(b.String())
}

func renderList(items []string, style lipgloss.Style) string {
	if len(items) == 0 {
		return theme.Hint.Render("none")
	}
	return style.Render(strings.Join(items, ", "))
}
