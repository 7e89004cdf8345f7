package assessment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ItemRequest asks a provider for the next item.
type ItemRequest struct {
	// SessionID identifies the requesting session for usage attribution.
	SessionID          string
	Difficulty         float64
	Subject            string
	ExcludedSkillCodes []string
}

// Excludes reports whether code is in the exclusion list.
func (r ItemRequest) Excludes(code string) bool {
	for _, c := range r.ExcludedSkillCodes {
		if c == code {
			return true
		}
	}
	return false
}

// ItemProvider supplies items at a requested difficulty. Implementations
// must never return an item whose skill code is in ExcludedSkillCodes.
type ItemProvider interface {
	RequestItem(ctx context.Context, req ItemRequest) (*Item, error)
}

// ItemProviderFunc adapts a function to ItemProvider.
type ItemProviderFunc func(ctx context.Context, req ItemRequest) (*Item, error)

func (f ItemProviderFunc) RequestItem(ctx context.Context, req ItemRequest) (*Item, error) {
	return f(ctx, req)
}

// RetryConfig bounds provider calls.
type RetryConfig struct {
	// Timeout applies to each attempt separately.
	Timeout     time.Duration `validate:"gt=0"`
	MaxAttempts int           `validate:"gte=1"`
	InitialWait time.Duration `validate:"gte=0"`
	MaxWait     time.Duration `validate:"gtefield=InitialWait"`
	Multiplier  float64       `validate:"gte=1"`
}

// DefaultRetryConfig returns a 5s per-attempt timeout with three attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

// backoff computes the wait before the attempt after attempt (0-based),
// with +/-20% jitter.
func (c RetryConfig) backoff(attempt int) time.Duration {
	wait := float64(c.InitialWait) * math.Pow(c.Multiplier, float64(attempt))
	if wait > float64(c.MaxWait) {
		wait = float64(c.MaxWait)
	}
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

// attemptHook observes each provider attempt; err is nil on success.
type attemptHook func(attempt int, elapsed time.Duration, err error)

// fetchItem asks p for an item, retrying failed, timed-out and invalid
// attempts with backoff. An item whose skill code was excluded counts as
// a failed attempt, and only one such re-request is allowed. The returned
// error always wraps ErrProviderUnavailable.
func fetchItem(ctx context.Context, p ItemProvider, req ItemRequest, cfg RetryConfig, hook attemptHook) (*Item, error) {
	var lastErr error
	duplicateSeen := false

	for attempt := range cfg.MaxAttempts {
		start := time.Now()
		item, err := requestOnce(ctx, p, req, cfg.Timeout)
		if hook != nil {
			hook(attempt, time.Since(start), err)
		}
		if err == nil {
			return item, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, ctx.Err())
		}
		if errors.Is(err, ErrDuplicateSkillCode) {
			if duplicateSeen {
				break
			}
			duplicateSeen = true
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, ctx.Err())
		case <-time.After(cfg.backoff(attempt)):
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, lastErr)
}

// requestOnce performs one bounded provider call and checks the result
// against the request.
func requestOnce(ctx context.Context, p ItemProvider, req ItemRequest, timeout time.Duration) (*Item, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	item, err := p.RequestItem(attemptCtx, req)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.New("provider returned no item")
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("invalid item: %w", err)
	}
	if req.Excludes(item.SkillCode) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSkillCode, item.SkillCode)
	}
	out := item.clone()
	return &out, nil
}
