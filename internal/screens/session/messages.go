package session

import "github.com/abhisek/gradeprobe/internal/assessment"

// answerResultMsg is sent when the engine has processed a submitted answer.
type answerResultMsg struct {
	Outcome *assessment.Outcome
	Err     error
}
