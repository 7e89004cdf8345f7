package itemgen

// Draft is an item as produced by a source, before it is checked and
// turned into an assessment.Item.
type Draft struct {
	Text          string
	Kind          string
	Choices       []string
	CorrectAnswer string
	SkillCode     string
	Domain        string
	Difficulty    float64
}

// draftOutput is the raw LLM response before validation.
type draftOutput struct {
	QuestionText  string   `json:"question_text"`
	Kind          string   `json:"kind"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"`
	SkillCode     string   `json:"skill_code"`
	Domain        string   `json:"domain"`
	Difficulty    float64  `json:"difficulty"`
}

func (o draftOutput) draft() *Draft {
	return &Draft{
		Text:          o.QuestionText,
		Kind:          o.Kind,
		Choices:       o.Choices,
		CorrectAnswer: o.CorrectAnswer,
		SkillCode:     o.SkillCode,
		Domain:        o.Domain,
		Difficulty:    o.Difficulty,
	}
}
