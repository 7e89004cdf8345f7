package assessment

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/gradeprobe/internal/observability"
)

// Handle identifies a started session and carries its first item.
type Handle struct {
	SessionID string
	Item      *Item
}

// Outcome is the result of a successful SubmitAnswer. Exactly one of
// NextItem and Result is set unless the session was aborted while
// fetching the next item.
type Outcome struct {
	Response Response
	NextItem *Item
	Result   *Result
}

// Complete reports whether the answer finished the session.
func (o *Outcome) Complete() bool {
	return o != nil && o.Result != nil
}

// Controller owns one assessment session. All mutations happen under a
// single mutex, one transition at a time, so a response is never counted
// twice and a result is never computed while answers are still accepted.
// The mutex is released while the provider is called; the session then
// sits in AwaitingItem, where only Abort may change it.
type Controller struct {
	mu sync.Mutex

	scale    Scale
	retry    RetryConfig
	provider ItemProvider
	recorder Recorder
	logger   zerolog.Logger
	tracer   trace.Tracer

	id          string
	subject     string
	starting    float64
	current     float64
	totalItems  int
	responses   []Response
	skillCodes  map[string]struct{}
	state       State
	currentItem *Item
	result      *Result
	finishedAt  time.Time

	// fetchCancel cancels the in-flight item request, if any.
	fetchCancel context.CancelFunc
}

func newController(id, subject string, starting float64, totalItems int, scale Scale, retry RetryConfig, provider ItemProvider, recorder Recorder, logger zerolog.Logger) *Controller {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Controller{
		scale:      scale,
		retry:      retry,
		provider:   provider,
		recorder:   recorder,
		logger:     logger.With().Str("session_id", id).Logger(),
		tracer:     observability.Tracer("assessment"),
		id:         id,
		subject:    subject,
		starting:   starting,
		current:    starting,
		totalItems: totalItems,
		responses:  make([]Response, 0, totalItems),
		skillCodes: make(map[string]struct{}, totalItems),
		state:      StateInitializing,
	}
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// begin moves a fresh session to AwaitingItem and fetches the first item.
func (c *Controller) begin(ctx context.Context) (*Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := transition(&c.state, StateAwaitingItem); err != nil {
		return nil, err
	}
	observability.SessionsStarted().Inc()
	observability.SessionsActive().Inc()
	c.recordLifecycle(ctx, "")
	c.logger.Debug().Str("subject", c.subject).Float64("difficulty", c.current).Int("total_items", c.totalItems).Msg("session started")

	return c.advance(ctx)
}

// SubmitAnswer records the answer to the outstanding item, adjusts the
// difficulty, and either fetches the next item or finalizes the session.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) (*Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingResponse || c.currentItem == nil {
		return nil, fmt.Errorf("%w: cannot submit an answer while %s", ErrInvalidState, c.state)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}

	item := c.currentItem
	resp := Response{
		ItemID:           item.ID,
		SkillCode:        item.SkillCode,
		Domain:           item.Domain,
		DifficultyAtTime: c.current,
		StudentAnswer:    answer,
		IsCorrect:        AnswerMatches(answer, item.CorrectAnswer),
		SequenceIndex:    len(c.responses) + 1,
	}

	if err := transition(&c.state, StateAdjusting); err != nil {
		return nil, err
	}
	c.responses = append(c.responses, resp)
	c.currentItem = nil
	c.persist(ctx, "record_response", func(ctx context.Context) error {
		return c.recorder.RecordResponse(ctx, c.id, resp)
	})

	prev := c.current
	c.current = c.scale.Next(c.current, resp.IsCorrect)
	c.logger.Debug().
		Int("sequence_index", resp.SequenceIndex).
		Bool("correct", resp.IsCorrect).
		Float64("from", prev).
		Float64("to", c.current).
		Msg("difficulty adjusted")

	out := &Outcome{Response: resp}

	if len(c.responses) >= c.totalItems {
		out.Result = c.finalize(ctx)
		return out, nil
	}

	if err := transition(&c.state, StateAwaitingItem); err != nil {
		return nil, err
	}
	next, err := c.advance(ctx)
	if err != nil {
		return out, err
	}
	out.NextItem = next
	return out, nil
}

// Abort ends the session without a result. Aborting a session that is
// already complete or aborted is a no-op.
func (c *Controller) Abort(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abort(ctx, "aborted by caller")
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a deep copy of the session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Session{
		ID:                     c.id,
		Subject:                c.subject,
		StartingDifficulty:     c.starting,
		CurrentDifficulty:      c.current,
		TotalItems:             c.totalItems,
		Responses:              slices.Clone(c.responses),
		AdministeredSkillCodes: maps.Clone(c.skillCodes),
		State:                  c.state,
	}
	if c.currentItem != nil {
		it := c.currentItem.clone()
		s.CurrentItem = &it
	}
	if c.result != nil {
		s.Result = cloneResult(c.result)
	}
	return s
}

// finished returns when the session reached a terminal state.
func (c *Controller) finished() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishedAt, c.state.IsTerminal()
}

// advance fetches the next item. Must be called with mu held in
// StateAwaitingItem; mu is released for the duration of the provider call
// and held again on return. On provider failure the session is aborted.
func (c *Controller) advance(ctx context.Context) (*Item, error) {
	req := ItemRequest{
		SessionID:          c.id,
		Difficulty:         c.current,
		Subject:            c.subject,
		ExcludedSkillCodes: c.excluded(),
	}

	ctx, span := c.tracer.Start(ctx, "assessment.request_item", trace.WithAttributes(
		attribute.String("session.id", c.id),
		attribute.Float64("item.difficulty", req.Difficulty),
		attribute.Int("item.excluded", len(req.ExcludedSkillCodes)),
	))
	defer span.End()

	fetchCtx, cancel := context.WithCancel(ctx)
	c.fetchCancel = cancel
	c.mu.Unlock()

	item, err := fetchItem(fetchCtx, c.provider, req, c.retry, c.observeAttempt)

	c.mu.Lock()
	cancel()
	c.fetchCancel = nil

	if c.state != StateAwaitingItem {
		span.SetStatus(codes.Error, "session ended during item request")
		return nil, fmt.Errorf("%w: session %s while an item was requested", ErrInvalidState, c.state)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.abort(ctx, err.Error())
		return nil, err
	}

	if err := transition(&c.state, StateAwaitingResponse); err != nil {
		return nil, err
	}
	c.skillCodes[item.SkillCode] = struct{}{}
	c.currentItem = item

	out := item.clone()
	return &out, nil
}

func (c *Controller) observeAttempt(attempt int, elapsed time.Duration, err error) {
	observability.ItemRequestLatency().Observe(elapsed.Seconds())

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateSkillCode):
		outcome = "duplicate_skill_code"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	observability.ItemRequests().WithLabelValues(outcome).Inc()

	if err != nil {
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", c.retry.MaxAttempts).Msg("item request failed")
	}
}

// finalize computes the result and completes the session. Must be called
// with mu held in StateAdjusting.
func (c *Controller) finalize(ctx context.Context) *Result {
	_ = transition(&c.state, StateFinalizing)

	result := BuildResult(c.responses, c.current)
	c.result = result
	_ = transition(&c.state, StateComplete)
	c.finishedAt = time.Now()

	if result.SkillLevel < 0 {
		c.logger.Warn().Float64("skill_level", result.SkillLevel).Str("label", result.GradeLevelLabel).Msg("skill level below grade 0")
	}

	observability.SessionsActive().Dec()
	observability.SessionsFinished().WithLabelValues(string(StateComplete)).Inc()

	final := *cloneResult(result)
	c.persist(ctx, "finalize_session", func(ctx context.Context) error {
		return c.recorder.FinalizeSession(ctx, c.id, final)
	})
	c.recordLifecycle(ctx, "")

	c.logger.Info().
		Float64("skill_level", result.SkillLevel).
		Float64("score", result.ScorePercentage).
		Int("correct", result.CorrectCount).
		Int("total", result.TotalCount).
		Msg("session complete")

	return cloneResult(result)
}

// abort must be called with mu held. It cancels an in-flight item
// request.
func (c *Controller) abort(ctx context.Context, reason string) {
	if c.state.IsTerminal() {
		return
	}
	_ = transition(&c.state, StateAborted)
	c.currentItem = nil
	c.finishedAt = time.Now()
	if c.fetchCancel != nil {
		c.fetchCancel()
	}

	observability.SessionsActive().Dec()
	observability.SessionsFinished().WithLabelValues(string(StateAborted)).Inc()
	c.recordLifecycle(ctx, reason)

	c.logger.Info().Str("reason", reason).Int("responses", len(c.responses)).Msg("session aborted")
}

func (c *Controller) recordLifecycle(ctx context.Context, reason string) {
	lr, ok := c.recorder.(LifecycleRecorder)
	if !ok {
		return
	}
	ev := LifecycleEvent{
		SessionID:  c.id,
		Subject:    c.subject,
		State:      c.state,
		Responses:  len(c.responses),
		TotalItems: c.totalItems,
		Reason:     reason,
		At:         time.Now().UTC(),
	}
	c.persist(ctx, "record_lifecycle", func(ctx context.Context) error {
		return lr.RecordLifecycle(ctx, ev)
	})
}

// persist runs a recorder write. Failures are logged and never change
// session state.
func (c *Controller) persist(ctx context.Context, op string, write func(context.Context) error) {
	if err := write(context.WithoutCancel(ctx)); err != nil {
		observability.PersistenceFailures().WithLabelValues(op).Inc()
		c.logger.Warn().Err(fmt.Errorf("%w: %w", ErrPersistenceFailure, err)).Str("op", op).Msg("persistence write failed")
	}
}

func (c *Controller) excluded() []string {
	codes := make([]string, 0, len(c.skillCodes))
	for code := range c.skillCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// AnswerMatches compares a submitted answer against the correct answer,
// ignoring case and surrounding whitespace.
func AnswerMatches(answer, correct string) bool {
	return normalizeAnswer(answer) == normalizeAnswer(correct)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cloneResult(r *Result) *Result {
	out := *r
	out.Strengths = slices.Clone(r.Strengths)
	out.Weaknesses = slices.Clone(r.Weaknesses)
	out.DomainPerformance = maps.Clone(r.DomainPerformance)
	return &out
}
