package assessment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testDomains = []string{"Number", "Algebra", "Geometry"}

// fakeProvider hands out short-answer items with answer "ok" and a fresh
// skill code per call. Domains rotate through testDomains.
type fakeProvider struct {
	calls atomic.Int32

	mu       sync.Mutex
	requests []ItemRequest
}

func (p *fakeProvider) RequestItem(_ context.Context, req ItemRequest) (*Item, error) {
	n := int(p.calls.Add(1))
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	return &Item{
		ID:            fmt.Sprintf("item-%d", n),
		Text:          fmt.Sprintf("Question %d", n),
		Kind:          ShortAnswer{},
		CorrectAnswer: "ok",
		SkillCode:     fmt.Sprintf("SK.%d", n),
		Difficulty:    req.Difficulty,
		Domain:        testDomains[(n-1)%len(testDomains)],
	}, nil
}

func (p *fakeProvider) lastRequest() ItemRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type memRecorder struct {
	mu        sync.Mutex
	responses map[string][]Response
	results   map[string]Result
	lifecycle []LifecycleEvent
	fail      error
}

func newMemRecorder() *memRecorder {
	return &memRecorder{
		responses: make(map[string][]Response),
		results:   make(map[string]Result),
	}
}

func (r *memRecorder) RecordResponse(_ context.Context, sessionID string, resp Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.responses[sessionID] = append(r.responses[sessionID], resp)
	return nil
}

func (r *memRecorder) FinalizeSession(_ context.Context, sessionID string, result Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.results[sessionID] = result
	return nil
}

func (r *memRecorder) RecordLifecycle(_ context.Context, ev LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycle = append(r.lifecycle, ev)
	return nil
}

func (r *memRecorder) responseCount(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses[sessionID])
}

func fastRetry() RetryConfig {
	return RetryConfig{
		Timeout:     50 * time.Millisecond,
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     2 * time.Millisecond,
		Multiplier:  2,
	}
}

func newTestManager(t *testing.T, provider ItemProvider, recorder Recorder) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Retry = fastRetry()
	m, err := NewManager(cfg, provider, recorder, zerolog.Nop())
	require.NoError(t, err)
	return m
}

func startDefault(t *testing.T, m *Manager) *Handle {
	t.Helper()
	h, err := m.Start(context.Background(), StartRequest{
		Subject:            "math",
		StartingDifficulty: 5.0,
		TotalItems:         DefaultTotalItems,
	})
	require.NoError(t, err)
	require.NotNil(t, h.Item)
	return h
}
