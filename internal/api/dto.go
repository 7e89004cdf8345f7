package api

import (
	"time"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/store"
)

// StartSessionRequest is the body of POST /api/v1/sessions. Omitted
// fields fall back to the server defaults.
type StartSessionRequest struct {
	Subject            string   `json:"subject"`
	StartingDifficulty *float64 `json:"starting_difficulty"`
	TotalItems         *int     `json:"total_items"`
}

// AnswerRequest is the body of POST /api/v1/sessions/:id/answers.
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// ItemView is an item as shown to a student. The correct answer is never
// exposed.
type ItemView struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Kind       string   `json:"kind"`
	Choices    []string `json:"choices,omitempty"`
	SkillCode  string   `json:"skill_code"`
	Domain     string   `json:"domain"`
	Difficulty float64  `json:"difficulty"`
}

// ResponseView is a recorded response.
type ResponseView struct {
	ItemID           string  `json:"item_id"`
	SkillCode        string  `json:"skill_code"`
	Domain           string  `json:"domain"`
	DifficultyAtTime float64 `json:"difficulty_at_time"`
	StudentAnswer    string  `json:"student_answer"`
	IsCorrect        bool    `json:"is_correct"`
	SequenceIndex    int     `json:"sequence_index"`
}

// StartSessionResponse is returned when a session starts.
type StartSessionResponse struct {
	SessionID string    `json:"session_id"`
	Item      *ItemView `json:"item"`
}

// AnswerResponse is returned for an accepted answer.
type AnswerResponse struct {
	Response ResponseView       `json:"response"`
	NextItem *ItemView          `json:"next_item,omitempty"`
	Result   *assessment.Result `json:"result,omitempty"`
}

// SessionView is a read-only view of a session.
type SessionView struct {
	ID                 string             `json:"id"`
	Subject            string             `json:"subject"`
	State              assessment.State   `json:"state"`
	StartingDifficulty float64            `json:"starting_difficulty"`
	CurrentDifficulty  float64            `json:"current_difficulty"`
	TotalItems         int                `json:"total_items"`
	Answered           int                `json:"answered"`
	CurrentItem        *ItemView          `json:"current_item,omitempty"`
	Responses          []ResponseView     `json:"responses"`
	Result             *assessment.Result `json:"result,omitempty"`
}

// ArchivedSessionView is a session served from persistence after the
// manager evicted it.
type ArchivedSessionView struct {
	ID         string             `json:"id"`
	Subject    string             `json:"subject"`
	State      assessment.State   `json:"state"`
	TotalItems int                `json:"total_items"`
	Answered   int                `json:"answered"`
	Reason     string             `json:"reason,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Responses  []ResponseView     `json:"responses"`
	Result     *assessment.Result `json:"result,omitempty"`
	Archived   bool               `json:"archived"`
}

// StoredResultView is a persisted result.
type StoredResultView struct {
	SessionID string            `json:"session_id"`
	Sequence  int64             `json:"sequence"`
	Timestamp time.Time         `json:"timestamp"`
	Result    assessment.Result `json:"result"`
}

func newItemView(it *assessment.Item) *ItemView {
	if it == nil {
		return nil
	}
	v := &ItemView{
		ID:         it.ID,
		Text:       it.Text,
		Kind:       it.Kind.Name(),
		SkillCode:  it.SkillCode,
		Domain:     it.Domain,
		Difficulty: it.Difficulty,
	}
	if mc, ok := it.Kind.(assessment.MultipleChoice); ok {
		v.Choices = mc.Choices
	}
	return v
}

func newResponseView(r assessment.Response) ResponseView {
	return ResponseView(r)
}

func newSessionView(s assessment.Session) SessionView {
	responses := make([]ResponseView, 0, len(s.Responses))
	for _, r := range s.Responses {
		responses = append(responses, newResponseView(r))
	}
	return SessionView{
		ID:                 s.ID,
		Subject:            s.Subject,
		State:              s.State,
		StartingDifficulty: s.StartingDifficulty,
		CurrentDifficulty:  s.CurrentDifficulty,
		TotalItems:         s.TotalItems,
		Answered:           s.SequenceIndex(),
		CurrentItem:        newItemView(s.CurrentItem),
		Responses:          responses,
		Result:             s.Result,
	}
}

func newArchivedSessionView(rec *assessment.SessionRecord) ArchivedSessionView {
	responses := make([]ResponseView, 0, len(rec.Responses))
	for _, r := range rec.Responses {
		responses = append(responses, newResponseView(r))
	}
	return ArchivedSessionView{
		ID:         rec.ID,
		Subject:    rec.Subject,
		State:      rec.State,
		TotalItems: rec.TotalItems,
		Answered:   len(rec.Responses),
		Reason:     rec.Reason,
		UpdatedAt:  rec.UpdatedAt,
		Responses:  responses,
		Result:     rec.Result,
		Archived:   true,
	}
}

func newStoredResultView(r store.StoredResult) StoredResultView {
	return StoredResultView(r)
}
