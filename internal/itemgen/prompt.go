package itemgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

const systemPrompt = `You write items for an adaptive diagnostic assessment that places a student on a grade 0-12 scale.

Rules:
- Generate a single item for the given subject, pitched at the requested grade-level difficulty.
- The item must assess exactly one skill. Give it a short, stable skill code and name the content domain it belongs to.
- Never use a skill code from the "excluded skill codes" list, even with different wording.
- The question text must be clear, self-contained, and age-appropriate for the difficulty.
- Choose "multiple_choice" for conceptual, comparison, or identification items and give 4 options where exactly one is correct. Distractors should reflect common mistakes.
- Choose "short_answer" when the answer is a single number, word, or short phrase. Leave choices empty.
- The correct answer must be unambiguous and in simplest form.
- Report the difficulty you actually achieved on the same 0-12 scale.
- Do not repeat any question from the "already asked" list.`

// buildUserMessage constructs the user message for an item request.
func buildUserMessage(req assessment.ItemRequest, prior []string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&b, "Target difficulty: %.1f (grade level)\n", req.Difficulty)

	b.WriteString("\nExcluded skill codes:\n")
	if len(req.ExcludedSkillCodes) == 0 {
		b.WriteString("None")
	} else {
		b.WriteString(strings.Join(req.ExcludedSkillCodes, ", "))
	}

	b.WriteString("\n\nAlready asked:\n")
	b.WriteString(buildDedup(prior, cfg.MaxPriorQuestions))

	return b.String()
}

// buildDedup formats prior questions for the prompt, respecting the max limit.
// Returns "None" if there are no prior questions.
func buildDedup(priorQuestions []string, max int) string {
	if len(priorQuestions) == 0 {
		return "None"
	}

	// Keep only the most recent N questions.
	if max > 0 && len(priorQuestions) > max {
		priorQuestions = priorQuestions[len(priorQuestions)-max:]
	}

	var b strings.Builder
	for i, q := range priorQuestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}
