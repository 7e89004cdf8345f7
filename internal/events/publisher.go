package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/observability"
)

// DefaultSubject is the NATS subject events are published on.
const DefaultSubject = "assessment.events"

// Event types.
const (
	TypeStarted   = "assessment.started"
	TypeCompleted = "assessment.completed"
	TypeAborted   = "assessment.aborted"
)

// Event is the JSON payload published for a session transition.
type Event struct {
	Type       string             `json:"type"`
	Source     string             `json:"source"`
	SessionID  string             `json:"session_id"`
	Subject    string             `json:"subject,omitempty"`
	Responses  int                `json:"responses,omitempty"`
	TotalItems int                `json:"total_items,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Result     *assessment.Result `json:"result,omitempty"`
	SentAt     time.Time          `json:"sent_at"`
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect dials a NATS server.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}
	conn, err := nats.Connect(url, nats.Name("gradeprobe"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}
	return conn, nil
}

// Publisher emits session start, completion and abort events. Response
// writes are ignored. A nil conn turns every call into a no-op.
type Publisher struct {
	conn    Conn
	subject string
	source  string
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewPublisher builds a Publisher. An empty subject uses DefaultSubject.
func NewPublisher(conn Conn, subject string, logger zerolog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	source, err := os.Hostname()
	if err != nil || source == "" {
		source = "gradeprobe"
	}
	return &Publisher{
		conn:    conn,
		subject: subject,
		source:  source,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
		tracer:  observability.Tracer("events"),
	}
}

func (p *Publisher) RecordResponse(context.Context, string, assessment.Response) error {
	return nil
}

func (p *Publisher) FinalizeSession(ctx context.Context, sessionID string, result assessment.Result) error {
	return p.publish(ctx, Event{
		Type:       TypeCompleted,
		SessionID:  sessionID,
		Responses:  result.TotalCount,
		TotalItems: result.TotalCount,
		Result:     &result,
	})
}

// RecordLifecycle publishes start and abort transitions. Completion is
// published by FinalizeSession, which carries the result.
func (p *Publisher) RecordLifecycle(ctx context.Context, ev assessment.LifecycleEvent) error {
	var typ string
	switch ev.State {
	case assessment.StateAwaitingItem:
		typ = TypeStarted
	case assessment.StateAborted:
		typ = TypeAborted
	default:
		return nil
	}
	return p.publish(ctx, Event{
		Type:       typ,
		SessionID:  ev.SessionID,
		Subject:    ev.Subject,
		Responses:  ev.Responses,
		TotalItems: ev.TotalItems,
		Reason:     ev.Reason,
	})
}

func (p *Publisher) publish(ctx context.Context, ev Event) error {
	if p.conn == nil {
		return nil
	}

	_, span := p.tracer.Start(ctx, "events.publish", trace.WithAttributes(
		attribute.String("session.id", ev.SessionID),
		attribute.String("event.type", ev.Type),
	))
	defer span.End()

	ev.Source = p.source
	ev.SentAt = time.Now().UTC()

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		span.RecordError(err)
		p.logger.Warn().Err(err).Str("session_id", ev.SessionID).Str("type", ev.Type).Msg("failed to publish event")
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}
