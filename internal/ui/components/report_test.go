package components

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

func TestChoiceLetter(t *testing.T) {
	mc := &assessment.Item{Kind: assessment.MultipleChoice{Choices: []string{"12", "14", "16"}}}
	sa := &assessment.Item{Kind: assessment.ShortAnswer{}}
	lettered := &assessment.Item{Kind: assessment.MultipleChoice{Choices: []string{"B", "A"}}}

	tests := []struct {
		name   string
		item   *assessment.Item
		answer string
		want   string
	}{
		{"lowercase letter", mc, "b", "14"},
		{"uppercase letter with spaces", mc, " C ", "16"},
		{"letter out of range", mc, "d", "d"},
		{"option text", mc, "12", "12"},
		{"short answer untouched", sa, "a", "a"},
		{"letter naming an option", lettered, "A", "A"},
		{"lowercase letter naming an option", lettered, "b", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChoiceLetter(tt.item, tt.answer))
		})
	}
}

func TestRenderQuestion(t *testing.T) {
	item := &assessment.Item{
		Text:       "What is 7 x 2?",
		Kind:       assessment.MultipleChoice{Choices: []string{"12", "14"}},
		Domain:     "Number",
		Difficulty: 3,
	}
	out := RenderQuestion(item, 2, 15)
	assert.Contains(t, out, "Question 2 of 15")
	assert.Contains(t, out, "Number")
	assert.Contains(t, out, "level 3.0")
	assert.Contains(t, out, "What is 7 x 2?")
}

func TestChoiceList(t *testing.T) {
	item := &assessment.Item{Kind: assessment.MultipleChoice{Choices: []string{"12", "14", "16"}}}
	press := func(c ChoiceList, k tea.KeyPressMsg) ChoiceList {
		c, _ = c.Update(k)
		return c
	}

	t.Run("arrows and enter", func(t *testing.T) {
		c := NewChoiceList(item)
		c = press(c, tea.KeyPressMsg{Code: tea.KeyDown})
		c = press(c, tea.KeyPressMsg{Code: tea.KeyDown})
		c = press(c, tea.KeyPressMsg{Code: tea.KeyDown})
		c = press(c, tea.KeyPressMsg{Code: tea.KeyUp})
		assert.False(t, c.Chosen)
		c = press(c, tea.KeyPressMsg{Code: tea.KeyEnter})
		assert.True(t, c.Chosen)
		assert.Equal(t, "14", c.Value())

		c = press(c, tea.KeyPressMsg{Code: tea.KeyUp})
		assert.Equal(t, "14", c.Value())
	})

	t.Run("number picks", func(t *testing.T) {
		c := press(NewChoiceList(item), tea.KeyPressMsg{Code: '3', Text: "3"})
		assert.True(t, c.Chosen)
		assert.Equal(t, "16", c.Value())

		c = press(NewChoiceList(item), tea.KeyPressMsg{Code: '9', Text: "9"})
		assert.False(t, c.Chosen)
	})

	t.Run("letter picks", func(t *testing.T) {
		c := press(NewChoiceList(item), tea.KeyPressMsg{Code: 'b', Text: "b"})
		assert.True(t, c.Chosen)
		assert.Equal(t, "14", c.Value())
	})

	t.Run("letter naming an option", func(t *testing.T) {
		lettered := &assessment.Item{Kind: assessment.MultipleChoice{Choices: []string{"B", "A"}}}
		c := press(NewChoiceList(lettered), tea.KeyPressMsg{Code: 'a', Text: "a"})
		assert.True(t, c.Chosen)
		assert.Equal(t, "A", c.Value())
	})

	view := NewChoiceList(item).View()
	assert.Contains(t, view, "A)")
	assert.Contains(t, view, "C)")
	assert.Contains(t, view, "16")
}

func TestRenderResult(t *testing.T) {
	r := &assessment.Result{
		SkillLevel:      8.5,
		GradeLevelLabel: "Grade 8",
		ScorePercentage: 80,
		CorrectCount:    12,
		TotalCount:      15,
		Strengths:       []string{"Algebra"},
		Weaknesses:      []string{},
		DomainPerformance: map[string]assessment.DomainStats{
			"Algebra":  {Correct: 5, Total: 5},
			"Geometry": {Correct: 3, Total: 5},
		},
	}
	out := RenderResult(r)
	assert.Contains(t, out, "Grade 8")
	assert.Contains(t, out, "8.5")
	assert.Contains(t, out, "80% (12/15)")
	assert.Contains(t, out, "5/5")
	assert.Contains(t, out, "3/5")
	assert.Contains(t, out, "none")
}

func TestProgressBarClampsRatio(t *testing.T) {
	full := ProgressBar{Ratio: 2, Width: 10}.View()
	empty := ProgressBar{Ratio: -1, Width: 10}.View()
	assert.Equal(t, 10, lipgloss.Width(full))
	assert.Equal(t, 10, lipgloss.Width(empty))
}

func TestRenderFeedback(t *testing.T) {
	assert.Contains(t, RenderFeedback(assessment.Response{IsCorrect: true}), "Correct")
	assert.Contains(t, RenderFeedback(assessment.Response{}), "Not quite")
}
