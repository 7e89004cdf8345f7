package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/gradeprobe/internal/store"
)

func newRetry(inner Provider, attempts int) (*retryProvider, *[]time.Duration) {
	var waits []time.Duration
	r := WithRetry(inner, RetryConfig{
		MaxAttempts: attempts,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     300 * time.Millisecond,
		Multiplier:  2,
	}, zerolog.Nop()).(*retryProvider)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return r, &waits
}

func ok() MockResponse { return MockResponse{Content: json.RawMessage(`{}`)} }

func fail(kind error) MockResponse {
	return MockResponse{Err: &Error{Kind: kind, Provider: "mock"}}
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	mock := NewMockProvider(fail(ErrUnavailable), MockResponse{Err: errors.New("connection reset")}, ok())
	r, waits := newRetry(mock, 3)

	_, err := r.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 3, mock.CallCount())
	require.Len(t, *waits, 2)
	assert.InDelta(t, float64(100*time.Millisecond), float64((*waits)[0]), float64(20*time.Millisecond))
	assert.InDelta(t, float64(200*time.Millisecond), float64((*waits)[1]), float64(40*time.Millisecond))
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	mock := NewMockProvider(fail(ErrUnavailable), fail(ErrUnavailable), fail(ErrUnavailable), ok())
	r, _ := newRetry(mock, 3)

	_, err := r.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, mock.CallCount())
}

func TestRetryPolicyByKind(t *testing.T) {
	tests := []struct {
		name  string
		first []MockResponse
		calls int
	}{
		{"truncation is final", []MockResponse{fail(ErrTruncated)}, 1},
		{"invalid response retried once", []MockResponse{fail(ErrInvalidResponse), fail(ErrInvalidResponse)}, 2},
		{"cancellation is final", []MockResponse{{Err: context.Canceled}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(append(tt.first, ok())...)
			r, _ := newRetry(mock, 5)

			_, err := r.Generate(context.Background(), Request{})
			require.Error(t, err)
			assert.Equal(t, tt.calls, mock.CallCount())
		})
	}
}

func TestRetryHonoursRetryAfter(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &Error{Kind: ErrRateLimited, RetryAfter: 4 * time.Second}}, ok())
	r, waits := newRetry(mock, 3)

	_, err := r.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{4 * time.Second}, *waits)
}

func TestRetryBackoffIsCapped(t *testing.T) {
	r, _ := newRetry(NewMockProvider(), 10)
	for attempt := 1; attempt <= 8; attempt++ {
		d := r.delay(attempt, errors.New("x"))
		assert.LessOrEqual(t, d, 360*time.Millisecond, "attempt %d", attempt)
	}
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	mock := NewMockProvider(fail(ErrUnavailable), ok())
	r, _ := newRetry(mock, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.CallCount())
}

type blockingProvider struct{}

func (blockingProvider) ModelID() string { return "blocking" }

func (blockingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTimeoutBoundsCall(t *testing.T) {
	p := WithTimeout(blockingProvider{}, 20*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "blocking", p.ModelID())

	var inner Provider = blockingProvider{}
	assert.Equal(t, inner, WithTimeout(inner, 0))
}

type memEventRepo struct {
	store.EventRepo
	events []store.LLMRequestEventData
	err    error
}

func (r *memEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, data)
	return nil
}

func TestLoggingRecordsSuccess(t *testing.T) {
	repo := &memEventRepo{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"ok":true}`),
		Usage:   Usage{InputTokens: 12, OutputTokens: 7},
	})
	p := WithLogging(mock, "mock", repo, zerolog.Nop())

	ctx := WithSession(WithPurpose(context.Background(), "item-generation"), "sess-1")
	_, err := p.Generate(ctx, Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
		Schema:   answerSchema(),
	})
	require.NoError(t, err)

	require.Len(t, repo.events, 1)
	ev := repo.events[0]
	assert.Equal(t, "mock", ev.Provider)
	assert.Equal(t, "item-generation", ev.Purpose)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.True(t, ev.Success)
	assert.Equal(t, 12, ev.InputTokens)
	assert.Equal(t, 7, ev.OutputTokens)
	assert.Equal(t, `{"ok":true}`, ev.ResponseBody)
	assert.True(t, strings.HasPrefix(ev.RequestBody, "[system]\nsys"))
	assert.Contains(t, ev.RequestBody, "[user]\nhello")
	assert.Contains(t, ev.RequestBody, "[schema: answer]")
}

func TestLoggingRecordsFailureWithRawOutput(t *testing.T) {
	repo := &memEventRepo{}
	mock := NewMockProvider(MockResponse{Err: &Error{Kind: ErrInvalidResponse, Content: json.RawMessage(`{"half":`), Err: errors.New("bad json")}})
	p := WithLogging(mock, "mock", repo, zerolog.Nop())

	_, err := p.Generate(context.Background(), Request{})
	require.Error(t, err)
	require.Len(t, repo.events, 1)
	ev := repo.events[0]
	assert.False(t, ev.Success)
	assert.Equal(t, "unknown", ev.Purpose)
	assert.Empty(t, ev.SessionID)
	assert.Equal(t, `{"half":`, ev.ResponseBody)
	assert.Contains(t, ev.ErrorMessage, "bad json")
}

func TestLoggingIgnoresRepoFailure(t *testing.T) {
	for _, repo := range []store.EventRepo{&memEventRepo{err: errors.New("disk full")}, nil} {
		p := WithLogging(NewMockProvider(ok()), "mock", repo, zerolog.Nop())
		_, err := p.Generate(context.Background(), Request{})
		assert.NoError(t, err)
	}
}

func TestNewProviderChain(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock, Timeout: time.Second}, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
	assert.IsType(t, &timeoutProvider{}, p)

	_, err = p.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewProvider(context.Background(), Config{Provider: "bogus"}, nil, zerolog.Nop())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Provider = ProviderOpenRouter
	cfg.OpenRouter.APIKey = "sk-or-test"
	p, err = NewProvider(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.5-flash", p.ModelID())
}
