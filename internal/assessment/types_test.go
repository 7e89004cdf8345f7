package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("multiple_choice", []string{"3", "4", "5"})
	require.NoError(t, err)
	mc, ok := k.(MultipleChoice)
	require.True(t, ok)
	assert.Equal(t, []string{"3", "4", "5"}, mc.Choices)
	assert.Equal(t, KindMultipleChoice, k.Name())

	k, err = ParseKind(" Short_Answer ", nil)
	require.NoError(t, err)
	assert.Equal(t, ShortAnswer{}, k)

	_, err = ParseKind("multiple_choice", []string{"only"})
	assert.Error(t, err)
	_, err = ParseKind("multiple_choice", []string{"a", " "})
	assert.Error(t, err)
	_, err = ParseKind("short_answer", []string{"a"})
	assert.Error(t, err)
	_, err = ParseKind("essay", nil)
	assert.Error(t, err)
}

func TestItemValidate(t *testing.T) {
	valid := Item{
		ID:            "q1",
		Text:          "What is 6 x 7?",
		Kind:          MultipleChoice{Choices: []string{"42", "48"}},
		CorrectAnswer: "42",
		SkillCode:     "MUL.1",
		Difficulty:    3,
		Domain:        "Number",
	}
	require.NoError(t, valid.Validate())

	wrongChoice := valid
	wrongChoice.CorrectAnswer = "36"
	assert.Error(t, wrongChoice.Validate())

	noDomain := valid
	noDomain.Domain = " "
	assert.Error(t, noDomain.Validate())

	noKind := valid
	noKind.Kind = nil
	assert.Error(t, noKind.Validate())

	short := valid
	short.Kind = ShortAnswer{}
	short.CorrectAnswer = "forty-two"
	assert.NoError(t, short.Validate())
}

func TestItemClone_DoesNotShareChoices(t *testing.T) {
	it := Item{Kind: MultipleChoice{Choices: []string{"a", "b"}}}
	c := it.clone()
	c.Kind.(MultipleChoice).Choices[0] = "z"
	assert.Equal(t, "a", it.Kind.(MultipleChoice).Choices[0])
}

func TestAnswerMatches(t *testing.T) {
	assert.True(t, AnswerMatches("  Paris ", "paris"))
	assert.True(t, AnswerMatches("B", "b"))
	assert.False(t, AnswerMatches("Lyon", "Paris"))
}
