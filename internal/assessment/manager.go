package assessment

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTotalItems is the fixed length of a diagnostic session.
const DefaultTotalItems = 15

// Config holds engine-wide settings shared by every session.
type Config struct {
	Scale             Scale
	Retry             RetryConfig
	DefaultTotalItems int `validate:"gte=1"`
}

// DefaultConfig returns the grade 0-12 scale, 15 items, and the default
// provider retry policy.
func DefaultConfig() Config {
	return Config{
		Scale:             DefaultScale(),
		Retry:             DefaultRetryConfig(),
		DefaultTotalItems: DefaultTotalItems,
	}
}

// StartRequest describes a new session. Scale overrides the configured
// scale when set.
type StartRequest struct {
	Subject            string `validate:"required"`
	StartingDifficulty float64
	TotalItems         int `validate:"gte=1"`
	Scale              *Scale
}

// Manager starts sessions and routes operations to them by session id.
type Manager struct {
	cfg      Config
	provider ItemProvider
	recorder Recorder
	logger   zerolog.Logger
	validate *validator.Validate
	newID    func() string
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager validates cfg and builds a Manager. recorder may be nil.
func NewManager(cfg Config, provider ItemProvider, recorder Recorder, logger zerolog.Logger) (*Manager, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: item provider is required", ErrInvalidConfiguration)
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Manager{
		cfg:      cfg,
		provider: provider,
		recorder: recorder,
		logger:   logger.With().Str("component", "assessment").Logger(),
		validate: validate,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
		sessions: make(map[string]*Controller),
	}, nil
}

// DefaultTotalItems returns the configured session length, for callers
// that let users omit it.
func (m *Manager) DefaultTotalItems() int {
	return m.cfg.DefaultTotalItems
}

// DefaultStartingDifficulty returns the midpoint of the configured scale.
func (m *Manager) DefaultStartingDifficulty() float64 {
	return (m.cfg.Scale.Min + m.cfg.Scale.Max) / 2
}

// Start creates a session and requests its first item. When the provider
// cannot supply that item the session is aborted and the returned handle
// still carries its id alongside an ErrProviderUnavailable error.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Handle, error) {
	scale, total, err := m.resolve(req)
	if err != nil {
		return nil, err
	}

	id := m.newID()
	c := newController(id, strings.TrimSpace(req.Subject), req.StartingDifficulty, total, scale, m.cfg.Retry, m.provider, m.recorder, m.logger)

	m.mu.Lock()
	m.sessions[id] = c
	m.mu.Unlock()

	item, err := c.begin(ctx)
	if err != nil {
		return &Handle{SessionID: id}, err
	}
	return &Handle{SessionID: id, Item: item}, nil
}

// resolve validates a start request against the engine configuration.
func (m *Manager) resolve(req StartRequest) (Scale, int, error) {
	if err := m.validate.Struct(req); err != nil {
		return Scale{}, 0, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	scale := m.cfg.Scale
	if req.Scale != nil {
		if err := m.validate.Struct(*req.Scale); err != nil {
			return Scale{}, 0, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
		scale = *req.Scale
	}
	if !scale.Contains(req.StartingDifficulty) {
		return Scale{}, 0, fmt.Errorf("%w: starting difficulty %.2f outside [%.2f, %.2f]",
			ErrInvalidConfiguration, req.StartingDifficulty, scale.Min, scale.Max)
	}

	return scale, req.TotalItems, nil
}

// Submit forwards an answer to the session.
func (m *Manager) Submit(ctx context.Context, sessionID, answer string) (*Outcome, error) {
	c, err := m.controller(sessionID)
	if err != nil {
		return nil, err
	}
	return c.SubmitAnswer(ctx, answer)
}

// Abort aborts the session. It is idempotent for known sessions.
func (m *Manager) Abort(ctx context.Context, sessionID string) error {
	c, err := m.controller(sessionID)
	if err != nil {
		return err
	}
	c.Abort(ctx)
	return nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(sessionID string) (Session, error) {
	c, err := m.controller(sessionID)
	if err != nil {
		return Session{}, err
	}
	return c.Snapshot(), nil
}

// List returns snapshots of every tracked session, ordered by id. The
// manager lock is not held while sessions are read.
func (m *Manager) List() []Session {
	cs := m.tracked()
	out := make([]Session, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Snapshot())
	}
	slices.SortFunc(out, func(a, b Session) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Evict forgets a terminal session. Live sessions are kept and an
// ErrInvalidState error is returned.
func (m *Manager) Evict(sessionID string) error {
	c, err := m.controller(sessionID)
	if err != nil {
		return err
	}
	if _, done := c.finished(); !done {
		return fmt.Errorf("%w: session %s is still %s", ErrInvalidState, sessionID, c.State())
	}

	m.mu.Lock()
	if m.sessions[sessionID] == c {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	return nil
}

// Reap evicts sessions that reached a terminal state more than ttl ago
// and returns how many were removed.
func (m *Manager) Reap(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	var expired []*Controller
	for _, c := range m.tracked() {
		if at, done := c.finished(); done && at.Before(cutoff) {
			expired = append(expired, c)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range expired {
		if m.sessions[c.ID()] == c {
			delete(m.sessions, c.ID())
			n++
		}
	}
	return n
}

// RunReaper calls Reap every interval until ctx is done.
func (m *Manager) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Reap(ttl); n > 0 {
				m.logger.Debug().Int("evicted", n).Dur("ttl", ttl).Msg("reaped finished sessions")
			}
		}
	}
}

// tracked copies the session set so callers can read controllers without
// holding the manager lock.
func (m *Manager) tracked() []*Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Collect(maps.Values(m.sessions))
}

func (m *Manager) controller(sessionID string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return c, nil
}
