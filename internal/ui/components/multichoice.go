package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/ui/theme"
)

// ChoiceList selects one option of a multiple-choice item. Arrow keys move
// the cursor and Enter picks it; a letter or a 1-based number picks that
// option directly.
type ChoiceList struct {
	item     *assessment.Item
	Options  []string
	Selected int
	Chosen   bool
}

// NewChoiceList builds a selector for item, which must be multiple choice.
func NewChoiceList(item *assessment.Item) ChoiceList {
	var options []string
	if mc, ok := item.Kind.(assessment.MultipleChoice); ok {
		options = mc.Choices
	}
	return ChoiceList{item: item, Options: options}
}

// Update handles navigation and selection keys. Once an option is chosen
// further keys are ignored.
func (c ChoiceList) Update(msg tea.Msg) (ChoiceList, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok || c.Chosen || len(c.Options) == 0 {
		return c, nil
	}

	key := kmsg.String()
	switch key {
	case "up":
		if c.Selected > 0 {
			c.Selected--
		}
		return c, nil
	case "down":
		if c.Selected < len(c.Options)-1 {
			c.Selected++
		}
		return c, nil
	case "enter":
		c.Chosen = true
		return c, nil
	}

	if len(key) != 1 {
		return c, nil
	}
	if key[0] >= '1' && key[0] <= '9' {
		if idx := int(key[0] - '1'); idx < len(c.Options) {
			c.Selected = idx
			c.Chosen = true
		}
		return c, nil
	}
	picked := ChoiceLetter(c.item, key)
	for i, opt := range c.Options {
		if assessment.AnswerMatches(picked, opt) {
			c.Selected = i
			c.Chosen = true
			break
		}
	}
	return c, nil
}

// Value returns the option under the cursor.
func (c ChoiceList) Value() string {
	if c.Selected < 0 || c.Selected >= len(c.Options) {
		return ""
	}
	return c.Options[c.Selected]
}

func (c ChoiceList) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		prefix := "  "
		style := theme.Body
		if i == c.Selected {
			prefix = "▸ "
			style = theme.Emphasis
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%c)  %s", prefix, 'A'+i, opt)))
		b.WriteString("\n")
	}
	return b.String()
}
