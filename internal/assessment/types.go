package assessment

import (
	"fmt"
	"slices"
	"strings"
)

// ItemKind is the closed set of answer shapes an item can take.
// The only implementations are MultipleChoice and ShortAnswer.
type ItemKind interface {
	// Name returns the wire name of the kind ("multiple_choice" or "short_answer").
	Name() string

	isItemKind()
}

// MultipleChoice is an item answered by picking one of Choices.
type MultipleChoice struct {
	Choices []string
}

func (MultipleChoice) Name() string { return KindMultipleChoice }
func (MultipleChoice) isItemKind()  {}

// ShortAnswer is an item answered with free text.
type ShortAnswer struct{}

func (ShortAnswer) Name() string { return KindShortAnswer }
func (ShortAnswer) isItemKind()  {}

// Wire names for item kinds.
const (
	KindMultipleChoice = "multiple_choice"
	KindShortAnswer    = "short_answer"
)

// ParseKind builds an ItemKind from its wire name. Multiple-choice items
// must carry at least two non-blank choices; short-answer items must not
// carry any.
func ParseKind(name string, choices []string) (ItemKind, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case KindMultipleChoice:
		if len(choices) < 2 {
			return nil, fmt.Errorf("multiple_choice item needs at least 2 choices, got %d", len(choices))
		}
		for i, c := range choices {
			if strings.TrimSpace(c) == "" {
				return nil, fmt.Errorf("choice %d is blank", i+1)
			}
		}
		return MultipleChoice{Choices: slices.Clone(choices)}, nil
	case KindShortAnswer:
		if len(choices) > 0 {
			return nil, fmt.Errorf("short_answer item must not have choices")
		}
		return ShortAnswer{}, nil
	default:
		return nil, fmt.Errorf("unknown item kind %q", name)
	}
}

// Item is a single question issued by an ItemProvider. Items are treated
// as immutable once issued.
type Item struct {
	ID            string
	Text          string
	Kind          ItemKind
	CorrectAnswer string
	SkillCode     string
	Difficulty    float64
	Domain        string
}

// Validate checks the fields every item must carry, independent of the
// provider that produced it.
func (it Item) Validate() error {
	switch {
	case strings.TrimSpace(it.ID) == "":
		return fmt.Errorf("item id is empty")
	case strings.TrimSpace(it.Text) == "":
		return fmt.Errorf("item %s: text is empty", it.ID)
	case it.Kind == nil:
		return fmt.Errorf("item %s: kind is missing", it.ID)
	case strings.TrimSpace(it.CorrectAnswer) == "":
		return fmt.Errorf("item %s: correct answer is empty", it.ID)
	case strings.TrimSpace(it.SkillCode) == "":
		return fmt.Errorf("item %s: skill code is empty", it.ID)
	case strings.TrimSpace(it.Domain) == "":
		return fmt.Errorf("item %s: domain is empty", it.ID)
	}

	if mc, ok := it.Kind.(MultipleChoice); ok {
		found := false
		for _, c := range mc.Choices {
			if normalizeAnswer(c) == normalizeAnswer(it.CorrectAnswer) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("item %s: correct answer %q is not one of the choices", it.ID, it.CorrectAnswer)
		}
	}
	return nil
}

// clone returns a copy that shares no slices with it.
func (it Item) clone() Item {
	if mc, ok := it.Kind.(MultipleChoice); ok {
		it.Kind = MultipleChoice{Choices: slices.Clone(mc.Choices)}
	}
	return it
}

// Response records one administered item and the student's answer.
// SequenceIndex is 1-based and equals the number of responses in the
// session once this one has been appended.
type Response struct {
	ItemID           string
	SkillCode        string
	Domain           string
	DifficultyAtTime float64
	StudentAnswer    string
	IsCorrect        bool
	SequenceIndex    int
}

// DomainStats counts correct answers within one domain.
type DomainStats struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Ratio returns Correct/Total, or 0 for an empty domain.
func (d DomainStats) Ratio() float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Correct) / float64(d.Total)
}

// Result is the final report of a completed session.
type Result struct {
	SkillLevel        float64                `json:"skill_level"`
	GradeLevelLabel   string                 `json:"grade_level_label"`
	ScorePercentage   float64                `json:"score_percentage"`
	CorrectCount      int                    `json:"correct_count"`
	TotalCount        int                    `json:"total_count"`
	Strengths         []string               `json:"strengths"`
	Weaknesses        []string               `json:"weaknesses"`
	DomainPerformance map[string]DomainStats `json:"domain_performance"`
}

// Session is a read-only view of an assessment session. Values returned
// by Controller.Snapshot share no memory with the controller.
type Session struct {
	ID                     string
	Subject                string
	StartingDifficulty     float64
	CurrentDifficulty      float64
	TotalItems             int
	Responses              []Response
	AdministeredSkillCodes map[string]struct{}
	State                  State
	CurrentItem            *Item
	Result                 *Result
}

// SequenceIndex returns the number of recorded responses.
func (s Session) SequenceIndex() int {
	return len(s.Responses)
}

// ExcludedSkillCodes returns the administered skill codes in sorted order.
func (s Session) ExcludedSkillCodes() []string {
	codes := make([]string, 0, len(s.AdministeredSkillCodes))
	for c := range s.AdministeredSkillCodes {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}
