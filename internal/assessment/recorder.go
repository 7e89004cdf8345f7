package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/gradeprobe/internal/observability"
)

// Recorder persists responses and final results. Calls are best-effort:
// the controller logs failures and carries on.
type Recorder interface {
	RecordResponse(ctx context.Context, sessionID string, resp Response) error
	FinalizeSession(ctx context.Context, sessionID string, result Result) error
}

// LifecycleEvent describes a session start or terminal transition.
type LifecycleEvent struct {
	SessionID  string
	Subject    string
	State      State
	Responses  int
	TotalItems int
	Reason     string
	At         time.Time
}

// LifecycleRecorder is implemented by recorders that also track session
// lifecycle (start, completion, abort). It is optional.
type LifecycleRecorder interface {
	RecordLifecycle(ctx context.Context, ev LifecycleEvent) error
}

// SessionRecord is a session as a recorder persisted it: the latest
// lifecycle event plus the recorded responses and result.
type SessionRecord struct {
	ID         string
	Subject    string
	State      State
	TotalItems int
	Reason     string
	UpdatedAt  time.Time
	Responses  []Response
	Result     *Result
}

// SessionArchive looks up sessions that are no longer held in memory. It
// returns nil and no error for unknown ids.
type SessionArchive interface {
	ArchivedSession(ctx context.Context, sessionID string) (*SessionRecord, error)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordResponse(context.Context, string, Response) error { return nil }
func (NopRecorder) FinalizeSession(context.Context, string, Result) error  { return nil }

// MultiRecorder fans writes out to every recorder and joins their errors.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordResponse(ctx context.Context, sessionID string, resp Response) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordResponse(ctx, sessionID, resp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) FinalizeSession(ctx context.Context, sessionID string, result Result) error {
	var errs []error
	for _, r := range m {
		if err := r.FinalizeSession(ctx, sessionID, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) RecordLifecycle(ctx context.Context, ev LifecycleEvent) error {
	var errs []error
	for _, r := range m {
		if lr, ok := r.(LifecycleRecorder); ok {
			if err := lr.RecordLifecycle(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// writeJob is one queued persistence write.
type writeJob struct {
	op        string
	sessionID string
	run       func(ctx context.Context) error
}

// AsyncRecorder runs writes on a background worker so the state machine
// never waits on storage. Writes that do not fit in the buffer are
// dropped and logged.
type AsyncRecorder struct {
	inner   Recorder
	timeout time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer

	pending chan writeJob
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsyncRecorder starts a worker writing to inner. timeout bounds each write.
func NewAsyncRecorder(inner Recorder, buffer int, timeout time.Duration, logger zerolog.Logger) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 64
	}
	a := &AsyncRecorder{
		inner:   inner,
		timeout: timeout,
		logger:  logger.With().Str("component", "async_recorder").Logger(),
		tracer:  observability.Tracer("assessment"),
		pending: make(chan writeJob, buffer),
	}
	a.wg.Add(1)
	go a.processLoop()
	return a
}

func (a *AsyncRecorder) RecordResponse(_ context.Context, sessionID string, resp Response) error {
	return a.enqueue(writeJob{
		op:        "record_response",
		sessionID: sessionID,
		run: func(ctx context.Context) error {
			return a.inner.RecordResponse(ctx, sessionID, resp)
		},
	})
}

func (a *AsyncRecorder) FinalizeSession(_ context.Context, sessionID string, result Result) error {
	return a.enqueue(writeJob{
		op:        "finalize_session",
		sessionID: sessionID,
		run: func(ctx context.Context) error {
			return a.inner.FinalizeSession(ctx, sessionID, result)
		},
	})
}

func (a *AsyncRecorder) RecordLifecycle(_ context.Context, ev LifecycleEvent) error {
	lr, ok := a.inner.(LifecycleRecorder)
	if !ok {
		return nil
	}
	return a.enqueue(writeJob{
		op:        "record_lifecycle",
		sessionID: ev.SessionID,
		run: func(ctx context.Context) error {
			return lr.RecordLifecycle(ctx, ev)
		},
	})
}

func (a *AsyncRecorder) enqueue(job writeJob) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return fmt.Errorf("%w: %s: recorder closed", ErrPersistenceFailure, job.op)
	}

	select {
	case a.pending <- job:
		return nil
	default:
		// Reported to the caller, which counts and logs the drop.
		return fmt.Errorf("%w: %s: queue full", ErrPersistenceFailure, job.op)
	}
}

func (a *AsyncRecorder) processLoop() {
	defer a.wg.Done()
	for job := range a.pending {
		a.run(job)
	}
}

func (a *AsyncRecorder) run(job writeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	ctx, span := a.tracer.Start(ctx, "assessment.persist", trace.WithAttributes(
		attribute.String("session.id", job.sessionID),
		attribute.String("persist.op", job.op),
	))
	defer span.End()

	if err := job.run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.PersistenceFailures().WithLabelValues(job.op).Inc()
		a.logger.Warn().Err(err).Str("session_id", job.sessionID).Str("op", job.op).Msg("persistence write failed")
	}
}

// Close stops accepting writes and waits for queued ones to finish.
func (a *AsyncRecorder) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.pending)
	a.mu.Unlock()

	a.wg.Wait()
}
