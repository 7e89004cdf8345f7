package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

// SessionRepo stores assessment responses, results, and lifecycle events.
// It implements assessment.Recorder and assessment.LifecycleRecorder.
type SessionRepo struct {
	db  *sql.DB
	seq *sequencer
}

var (
	_ assessment.Recorder          = (*SessionRepo)(nil)
	_ assessment.LifecycleRecorder = (*SessionRepo)(nil)
)

// StoredResult is a persisted session result.
type StoredResult struct {
	SessionID string
	Sequence  int64
	Timestamp time.Time
	Result    assessment.Result
}

// RecordResponse appends a response. A response already stored for the
// same session and sequence index is left untouched.
func (r *SessionRepo) RecordResponse(ctx context.Context, sessionID string, resp assessment.Response) error {
	err := r.seq.insert(ctx, func(seq int64) (string, []any) {
		return builder().Insert("responses").
			Columns("sequence", "created_at", "session_id", "sequence_index", "item_id",
				"skill_code", "domain", "difficulty", "student_answer", "is_correct").
			Values(seq, millis(time.Now()), sessionID, resp.SequenceIndex, resp.ItemID,
				resp.SkillCode, resp.Domain, resp.DifficultyAtTime, resp.StudentAnswer, resp.IsCorrect).
			OnConflict(entsql.ConflictColumns("session_id", "sequence_index"), entsql.DoNothing()).
			Query()
	})
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

// FinalizeSession stores the session result, replacing an earlier one.
func (r *SessionRepo) FinalizeSession(ctx context.Context, sessionID string, result assessment.Result) error {
	strengths, err := json.Marshal(nonNil(result.Strengths))
	if err != nil {
		return fmt.Errorf("marshal strengths: %w", err)
	}
	weaknesses, err := json.Marshal(nonNil(result.Weaknesses))
	if err != nil {
		return fmt.Errorf("marshal weaknesses: %w", err)
	}
	perf, err := json.Marshal(result.DomainPerformance)
	if err != nil {
		return fmt.Errorf("marshal domain performance: %w", err)
	}

	err = r.seq.insert(ctx, func(seq int64) (string, []any) {
		return builder().Insert("results").
			Columns("sequence", "created_at", "session_id", "skill_level", "grade_level_label",
				"score_percentage", "correct_count", "total_count", "strengths", "weaknesses",
				"domain_performance").
			Values(seq, millis(time.Now()), sessionID, result.SkillLevel, result.GradeLevelLabel,
				result.ScorePercentage, result.CorrectCount, result.TotalCount, string(strengths),
				string(weaknesses), string(perf)).
			OnConflict(entsql.ConflictColumns("session_id"), entsql.ResolveWithNewValues()).
			Query()
	})
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// RecordLifecycle appends a session lifecycle event.
func (r *SessionRepo) RecordLifecycle(ctx context.Context, ev assessment.LifecycleEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	err := r.seq.insert(ctx, func(seq int64) (string, []any) {
		return builder().Insert("session_events").
			Columns("sequence", "created_at", "session_id", "subject", "state", "responses", "total_items", "reason").
			Values(seq, millis(at), ev.SessionID, ev.Subject, string(ev.State), ev.Responses, ev.TotalItems, ev.Reason).
			Query()
	})
	if err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

var resultColumns = []string{
	"session_id", "sequence", "created_at", "skill_level", "grade_level_label",
	"score_percentage", "correct_count", "total_count", "strengths", "weaknesses",
	"domain_performance",
}

// Results returns stored results, newest first.
func (r *SessionRepo) Results(ctx context.Context, opts QueryOpts) ([]StoredResult, error) {
	t := builder().Table("results")
	sel := builder().Select(columnsOf(t, resultColumns)...).
		From(t).
		OrderBy(entsql.Desc(t.C("sequence")))
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE(t.C("created_at"), millis(opts.From)))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE(t.C("created_at"), millis(opts.To)))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		sr, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sr)
	}
	return out, rows.Err()
}

// Result returns the stored result for a session, or nil if it has none.
func (r *SessionRepo) Result(ctx context.Context, sessionID string) (*StoredResult, error) {
	t := builder().Table("results")
	query, args := builder().Select(columnsOf(t, resultColumns)...).
		From(t).
		Where(entsql.EQ(t.C("session_id"), sessionID)).
		Query()

	sr, err := scanResult(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sr, err
}

// Responses returns a session's responses in sequence order.
func (r *SessionRepo) Responses(ctx context.Context, sessionID string) ([]assessment.Response, error) {
	t := builder().Table("responses")
	query, args := builder().Select(
		t.C("item_id"), t.C("skill_code"), t.C("domain"), t.C("difficulty"),
		t.C("student_answer"), t.C("is_correct"), t.C("sequence_index"),
	).
		From(t).
		Where(entsql.EQ(t.C("session_id"), sessionID)).
		OrderBy(t.C("sequence_index")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []assessment.Response
	for rows.Next() {
		var resp assessment.Response
		if err := rows.Scan(&resp.ItemID, &resp.SkillCode, &resp.Domain, &resp.DifficultyAtTime,
			&resp.StudentAnswer, &resp.IsCorrect, &resp.SequenceIndex); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

// Lifecycle returns a session's lifecycle events in the order recorded.
func (r *SessionRepo) Lifecycle(ctx context.Context, sessionID string) ([]assessment.LifecycleEvent, error) {
	t := builder().Table("session_events")
	query, args := builder().Select(
		t.C("session_id"), t.C("subject"), t.C("state"), t.C("responses"),
		t.C("total_items"), t.C("reason"), t.C("created_at"),
	).
		From(t).
		Where(entsql.EQ(t.C("session_id"), sessionID)).
		OrderBy(t.C("sequence")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var out []assessment.LifecycleEvent
	for rows.Next() {
		var ev assessment.LifecycleEvent
		var state string
		var created int64
		if err := rows.Scan(&ev.SessionID, &ev.Subject, &state, &ev.Responses,
			&ev.TotalItems, &ev.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		ev.State = assessment.State(state)
		ev.At = fromMillis(created)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ArchivedSession rebuilds a session from its lifecycle events, responses
// and result. It returns nil when no events were recorded for the id.
func (r *SessionRepo) ArchivedSession(ctx context.Context, sessionID string) (*assessment.SessionRecord, error) {
	events, err := r.Lifecycle(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	last := events[len(events)-1]
	rec := &assessment.SessionRecord{
		ID:         sessionID,
		Subject:    last.Subject,
		State:      last.State,
		TotalItems: last.TotalItems,
		Reason:     last.Reason,
		UpdatedAt:  last.At,
	}
	if rec.Responses, err = r.Responses(ctx, sessionID); err != nil {
		return nil, err
	}
	stored, err := r.Result(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		rec.Result = &stored.Result
	}
	return rec, nil
}

func scanResult(row rowScanner) (*StoredResult, error) {
	var sr StoredResult
	var created int64
	var strengths, weaknesses, perf string
	err := row.Scan(
		&sr.SessionID, &sr.Sequence, &created, &sr.Result.SkillLevel, &sr.Result.GradeLevelLabel,
		&sr.Result.ScorePercentage, &sr.Result.CorrectCount, &sr.Result.TotalCount,
		&strengths, &weaknesses, &perf,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	sr.Timestamp = fromMillis(created)

	if err := json.Unmarshal([]byte(strengths), &sr.Result.Strengths); err != nil {
		return nil, fmt.Errorf("unmarshal strengths: %w", err)
	}
	if err := json.Unmarshal([]byte(weaknesses), &sr.Result.Weaknesses); err != nil {
		return nil, fmt.Errorf("unmarshal weaknesses: %w", err)
	}
	if err := json.Unmarshal([]byte(perf), &sr.Result.DomainPerformance); err != nil {
		return nil, fmt.Errorf("unmarshal domain performance: %w", err)
	}
	return &sr, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
