package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConfig_BackoffBounded(t *testing.T) {
	cfg := DefaultRetryConfig()
	for attempt := range 10 {
		d := cfg.backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Duration(float64(cfg.MaxWait)*1.2)+1)
	}
}

func TestFetchItem_RecoversAfterFailure(t *testing.T) {
	calls := 0
	p := ItemProviderFunc(func(context.Context, ItemRequest) (*Item, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return &Item{ID: "i", Text: "t", Kind: ShortAnswer{}, CorrectAnswer: "a", SkillCode: "S", Domain: "D"}, nil
	})

	var outcomes []error
	item, err := fetchItem(context.Background(), p, ItemRequest{}, fastRetry(), func(_ int, _ time.Duration, err error) {
		outcomes = append(outcomes, err)
	})
	require.NoError(t, err)
	assert.Equal(t, "S", item.SkillCode)
	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[0])
	assert.NoError(t, outcomes[1])
}

func TestFetchItem_InvalidItemRetried(t *testing.T) {
	p := ItemProviderFunc(func(context.Context, ItemRequest) (*Item, error) {
		return &Item{ID: "i", Text: "t", Kind: ShortAnswer{}, SkillCode: "S", Domain: "D"}, nil
	})
	_, err := fetchItem(context.Background(), p, ItemRequest{}, fastRetry(), nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestFetchItem_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := ItemProviderFunc(func(ctx context.Context, _ ItemRequest) (*Item, error) {
		return nil, ctx.Err()
	})
	_, err := fetchItem(ctx, p, ItemRequest{}, fastRetry(), nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}
