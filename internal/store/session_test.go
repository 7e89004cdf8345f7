package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

func TestSessionRepo_Responses(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := repo.RecordResponse(ctx, "s1", assessment.Response{
			ItemID:           "item",
			SkillCode:        "SK",
			Domain:           "Number",
			DifficultyAtTime: 5.0 + float64(i)/2,
			StudentAnswer:    "42",
			IsCorrect:        i != 2,
			SequenceIndex:    i,
		})
		require.NoError(t, err)
	}
	// Replays of an index already stored are ignored.
	require.NoError(t, repo.RecordResponse(ctx, "s1", assessment.Response{ItemID: "dup", SequenceIndex: 2}))
	require.NoError(t, repo.RecordResponse(ctx, "s2", assessment.Response{ItemID: "other", SequenceIndex: 1}))

	got, err := repo.Responses(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].SequenceIndex)
	assert.Equal(t, "item", got[1].ItemID)
	assert.False(t, got[1].IsCorrect)
	assert.True(t, got[2].IsCorrect)
	assert.Equal(t, 6.5, got[2].DifficultyAtTime)
}

func TestSessionRepo_Results(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	first := assessment.Result{
		SkillLevel:      8.5,
		GradeLevelLabel: "Grade 8",
		ScorePercentage: 100,
		CorrectCount:    15,
		TotalCount:      15,
		Strengths:       []string{"Algebra", "Number"},
		DomainPerformance: map[string]assessment.DomainStats{
			"Algebra": {Correct: 7, Total: 7},
			"Number":  {Correct: 8, Total: 8},
		},
	}
	require.NoError(t, repo.FinalizeSession(ctx, "s1", first))
	require.NoError(t, repo.FinalizeSession(ctx, "s2", assessment.Result{SkillLevel: 2, GradeLevelLabel: "Grade 2", Weaknesses: []string{"Geometry"}}))

	got, err := repo.Result(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 8.5, got.Result.SkillLevel)
	assert.Equal(t, []string{"Algebra", "Number"}, got.Result.Strengths)
	assert.Equal(t, []string{}, got.Result.Weaknesses)
	assert.Equal(t, assessment.DomainStats{Correct: 8, Total: 8}, got.Result.DomainPerformance["Number"])

	list, err := repo.Results(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].SessionID)

	// A second finalize replaces the stored result.
	first.SkillLevel = 9
	require.NoError(t, repo.FinalizeSession(ctx, "s1", first))
	got, err = repo.Result(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.Result.SkillLevel)

	list, err = repo.Results(ctx, QueryOpts{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	missing, err := repo.Result(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionRepo_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLifecycle(ctx, assessment.LifecycleEvent{
		SessionID: "s1", Subject: "math", State: assessment.StateAwaitingItem, TotalItems: 15, At: at,
	}))
	require.NoError(t, repo.RecordLifecycle(ctx, assessment.LifecycleEvent{
		SessionID: "s1", Subject: "math", State: assessment.StateAborted, Responses: 4, TotalItems: 15,
		Reason: "aborted by caller", At: at.Add(time.Minute),
	}))

	evs, err := repo.Lifecycle(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, assessment.StateAwaitingItem, evs[0].State)
	assert.Equal(t, at, evs[0].At)
	assert.Equal(t, "aborted by caller", evs[1].Reason)
	assert.Equal(t, 4, evs[1].Responses)
}

func TestSessionRepo_AsRecorder(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()

	cfg := assessment.DefaultConfig()
	provider := assessment.ItemProviderFunc(func(_ context.Context, req assessment.ItemRequest) (*assessment.Item, error) {
		n := len(req.ExcludedSkillCodes) + 1
		return &assessment.Item{
			ID:            "q",
			Text:          "2 + 2?",
			Kind:          assessment.ShortAnswer{},
			CorrectAnswer: "4",
			SkillCode:     string(rune('A' + n)),
			Difficulty:    req.Difficulty,
			Domain:        "Number",
		}, nil
	})
	m, err := assessment.NewManager(cfg, provider, repo, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	h, err := m.Start(ctx, assessment.StartRequest{Subject: "math", StartingDifficulty: 5, TotalItems: 2})
	require.NoError(t, err)
	_, err = m.Submit(ctx, h.SessionID, "4")
	require.NoError(t, err)
	_, err = m.Submit(ctx, h.SessionID, "5")
	require.NoError(t, err)

	resps, err := repo.Responses(ctx, h.SessionID)
	require.NoError(t, err)
	assert.Len(t, resps, 2)

	res, err := repo.Result(ctx, h.SessionID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 5.0, res.Result.SkillLevel)
	assert.Equal(t, 50.0, res.Result.ScorePercentage)

	evs, err := repo.Lifecycle(ctx, h.SessionID)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, assessment.StateComplete, evs[1].State)

	archived, err := repo.ArchivedSession(ctx, h.SessionID)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, "math", archived.Subject)
	assert.Equal(t, assessment.StateComplete, archived.State)
	assert.Equal(t, 2, archived.TotalItems)
	assert.Len(t, archived.Responses, 2)
	require.NotNil(t, archived.Result)
	assert.Equal(t, 50.0, archived.Result.ScorePercentage)

	missing, err := repo.ArchivedSession(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
