package itemgen

import "github.com/abhisek/gradeprobe/internal/llm"

// ItemSchema defines the JSON schema for LLM item generation responses.
var ItemSchema = &llm.Schema{
	Name:        "assessment-item",
	Description: "A single diagnostic assessment item with its answer key",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question_text": map[string]any{
				"type":        "string",
				"description": "The question shown to the student, in plain text",
			},
			"kind": map[string]any{
				"type":        "string",
				"enum":        []any{"multiple_choice", "short_answer"},
				"description": "Whether the student picks from choices or types a short answer",
			},
			"choices": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
				},
				"description": "2 to 6 options for multiple_choice. Empty array for short_answer.",
			},
			"correct_answer": map[string]any{
				"type":        "string",
				"description": "The correct answer. For multiple_choice, the exact text of the correct option.",
			},
			"skill_code": map[string]any{
				"type":        "string",
				"description": "Short stable identifier of the skill the item assesses, e.g. MATH.FRAC.COMPARE",
			},
			"domain": map[string]any{
				"type":        "string",
				"description": "Content domain the skill belongs to, e.g. Fractions or Geometry",
			},
			"difficulty": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     12,
				"description": "Grade-level difficulty of the item on a 0-12 scale",
			},
		},
		"required":             []any{"question_text", "kind", "choices", "correct_answer", "skill_code", "domain", "difficulty"},
		"additionalProperties": false,
	},
}
