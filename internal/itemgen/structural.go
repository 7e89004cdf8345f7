package itemgen

import (
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

const (
	maxTextLen      = 500
	maxSkillCodeLen = 64
	minChoices      = 2
	maxChoices      = 6
)

// StructuralValidator checks that required fields are present, within
// length limits, and consistent with the item kind.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(d *Draft, _ assessment.ItemRequest) *ValidationError {
	fail := func(msg string) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: msg, Retryable: true}
	}

	switch {
	case strings.TrimSpace(d.Text) == "":
		return fail("question_text is empty")
	case len(d.Text) > maxTextLen:
		return fail(fmt.Sprintf("question_text exceeds %d characters", maxTextLen))
	case strings.TrimSpace(d.CorrectAnswer) == "":
		return fail("correct_answer is empty")
	case strings.TrimSpace(d.SkillCode) == "":
		return fail("skill_code is empty")
	case len(d.SkillCode) > maxSkillCodeLen:
		return fail(fmt.Sprintf("skill_code exceeds %d characters", maxSkillCodeLen))
	case strings.TrimSpace(d.Domain) == "":
		return fail("domain is empty")
	}

	switch strings.ToLower(strings.TrimSpace(d.Kind)) {
	case assessment.KindMultipleChoice:
		if len(d.Choices) < minChoices || len(d.Choices) > maxChoices {
			return fail(fmt.Sprintf("multiple_choice needs %d to %d choices, got %d", minChoices, maxChoices, len(d.Choices)))
		}
		seen := make(map[string]bool, len(d.Choices))
		found := false
		for _, c := range d.Choices {
			key := strings.ToLower(strings.TrimSpace(c))
			if key == "" {
				return fail("choices contain a blank option")
			}
			if seen[key] {
				return fail(fmt.Sprintf("duplicate choice %q", c))
			}
			seen[key] = true
			if assessment.AnswerMatches(c, d.CorrectAnswer) {
				found = true
			}
		}
		if !found {
			return fail("correct_answer is not one of the choices")
		}
	case assessment.KindShortAnswer:
		if len(d.Choices) > 0 {
			return fail("short_answer items must not have choices")
		}
	default:
		return fail(`kind must be "multiple_choice" or "short_answer"`)
	}
	return nil
}

// DifficultyValidator rejects drafts whose self-reported difficulty is
// further than Tolerance from the requested difficulty.
type DifficultyValidator struct {
	Tolerance float64
}

func (v *DifficultyValidator) Name() string { return "difficulty" }

func (v *DifficultyValidator) Validate(d *Draft, req assessment.ItemRequest) *ValidationError {
	if math.Abs(d.Difficulty-req.Difficulty) > v.Tolerance {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("difficulty %.1f is not within %.1f of requested %.1f", d.Difficulty, v.Tolerance, req.Difficulty),
			Retryable: true,
		}
	}
	return nil
}

// ExclusionValidator rejects drafts that reuse an administered skill code.
type ExclusionValidator struct{}

func (v *ExclusionValidator) Name() string { return "exclusion" }

func (v *ExclusionValidator) Validate(d *Draft, req assessment.ItemRequest) *ValidationError {
	for _, code := range req.ExcludedSkillCodes {
		if strings.EqualFold(strings.TrimSpace(d.SkillCode), code) {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("skill_code %q was already administered", d.SkillCode),
				Retryable: true,
				Err:       assessment.ErrDuplicateSkillCode,
			}
		}
	}
	return nil
}
