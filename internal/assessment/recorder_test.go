package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/gradeprobe/internal/observability"
)

func TestAsyncRecorder_FlushesOnClose(t *testing.T) {
	inner := newMemRecorder()
	a := NewAsyncRecorder(inner, 16, time.Second, zerolog.Nop())

	for i := 1; i <= 5; i++ {
		require.NoError(t, a.RecordResponse(context.Background(), "s1", Response{SequenceIndex: i}))
	}
	require.NoError(t, a.FinalizeSession(context.Background(), "s1", Result{TotalCount: 5}))
	require.NoError(t, a.RecordLifecycle(context.Background(), LifecycleEvent{SessionID: "s1", State: StateComplete}))
	a.Close()

	assert.Equal(t, 5, inner.responseCount("s1"))
	assert.Equal(t, 5, inner.results["s1"].TotalCount)
	require.Len(t, inner.lifecycle, 1)

	err := a.RecordResponse(context.Background(), "s1", Response{})
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	a.Close()
}

// blockingRecorder holds every write until release is closed.
type blockingRecorder struct {
	NopRecorder
	release chan struct{}
	once    sync.Once
	started chan struct{}
}

func (b *blockingRecorder) RecordResponse(context.Context, string, Response) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil
}

func TestAsyncRecorder_DropsWhenFull(t *testing.T) {
	inner := &blockingRecorder{release: make(chan struct{}), started: make(chan struct{})}
	a := NewAsyncRecorder(inner, 1, time.Second, zerolog.Nop())

	require.NoError(t, a.RecordResponse(context.Background(), "s1", Response{SequenceIndex: 1}))
	<-inner.started
	require.NoError(t, a.RecordResponse(context.Background(), "s1", Response{SequenceIndex: 2}))

	err := a.RecordResponse(context.Background(), "s1", Response{SequenceIndex: 3})
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	close(inner.release)
	a.Close()
}

func TestController_DroppedWriteCountedOnce(t *testing.T) {
	inner := &blockingRecorder{release: make(chan struct{}), started: make(chan struct{})}
	a := NewAsyncRecorder(inner, 1, time.Second, zerolog.Nop())
	defer a.Close()
	defer close(inner.release)

	require.NoError(t, a.RecordResponse(context.Background(), "s1", Response{SequenceIndex: 1}))
	<-inner.started
	require.NoError(t, a.RecordResponse(context.Background(), "s1", Response{SequenceIndex: 2}))

	c := newController("s1", "math", 5, 3, DefaultScale(), fastRetry(), &fakeProvider{}, a, zerolog.Nop())
	failures := observability.PersistenceFailures().WithLabelValues("record_response")
	before := testutil.ToFloat64(failures)

	c.persist(context.Background(), "record_response", func(ctx context.Context) error {
		return a.RecordResponse(ctx, "s1", Response{SequenceIndex: 3})
	})

	assert.Equal(t, before+1, testutil.ToFloat64(failures))
}

func TestMultiRecorder_JoinsErrors(t *testing.T) {
	ok := newMemRecorder()
	bad := newMemRecorder()
	bad.fail = errors.New("boom")

	m := MultiRecorder{ok, bad}
	err := m.RecordResponse(context.Background(), "s1", Response{SequenceIndex: 1})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, ok.responseCount("s1"))

	require.NoError(t, m.RecordLifecycle(context.Background(), LifecycleEvent{SessionID: "s1"}))
	assert.Len(t, ok.lifecycle, 1)
	assert.Len(t, bad.lifecycle, 1)
}

func TestController_WithAsyncRecorder(t *testing.T) {
	inner := newMemRecorder()
	a := NewAsyncRecorder(inner, 64, time.Second, zerolog.Nop())
	m := newTestManager(t, &fakeProvider{}, a)

	h, err := m.Start(context.Background(), StartRequest{Subject: "math", StartingDifficulty: 5, TotalItems: 3})
	require.NoError(t, err)
	for range 3 {
		_, err = m.Submit(context.Background(), h.SessionID, "ok")
		require.NoError(t, err)
	}
	a.Close()

	assert.Equal(t, 3, inner.responseCount(h.SessionID))
	assert.Equal(t, 5.5, inner.results[h.SessionID].SkillLevel)
}
