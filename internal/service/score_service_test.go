package service

import (
	"context"
	"errors"
	"testing"

	"arcade/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestScoreService_SubmitScoreValidation(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	id := ts.createProfiles(t, "a")[0]

	_, err := ts.scores.SubmitScore(ctx, id, "", 1, models.HigherIsBetter)
	assertCode(t, err, models.CodeInvalidArgument)

	_, err = ts.scores.SubmitScore(ctx, id, "bad/key", 1, models.HigherIsBetter)
	assertCode(t, err, models.CodeInvalidArgument)

	_, err = ts.scores.SubmitScore(ctx, id, "click", 1, models.ScorePolicy("sideways"))
	assertCode(t, err, models.CodeInvalidArgument)

	_, err = ts.scores.SubmitScore(ctx, id, "2048_reach_128", -1, models.LowerIsBetter)
	assertCode(t, err, models.CodeInvalidArgument)

	_, err = ts.scores.SubmitScore(ctx, 999, "click", 1, models.HigherIsBetter)
	assertCode(t, err, models.CodeNotFound)
}

func TestScoreService_NonImprovingLeavesLeaderboard(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "a", "b")

	improved, err := ts.scores.SubmitGameScore(ctx, ids[0], "click", 12)
	require.NoError(t, err)
	assert.True(t, improved)
	_, err = ts.scores.SubmitGameScore(ctx, ids[1], "click", 9)
	require.NoError(t, err)

	before, err := ts.leaderboard.Top(ctx, "click", 5)
	require.NoError(t, err)

	improved, err = ts.scores.SubmitGameScore(ctx, ids[0], "click", 11)
	require.NoError(t, err)
	assert.False(t, improved)

	after, err := ts.leaderboard.Top(ctx, "click", 5)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	improved, err = ts.scores.SubmitGameScore(ctx, ids[1], "click", 20)
	require.NoError(t, err)
	assert.True(t, improved)

	after, err = ts.leaderboard.Top(ctx, "click", 5)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, ids[1], after[0].ProfileID)
	assert.Equal(t, int64(20), after[0].Value)

	best, found, err := ts.scores.GetPersonalBest(ctx, ids[1], "click")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(20), best)
}

func TestScoreService_TimeMilestones(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	id := ts.createProfiles(t, "a")[0]
	key := models.MilestoneKey2048(512)

	improved, err := ts.scores.SubmitGameScore(ctx, id, key, 90000)
	require.NoError(t, err)
	assert.True(t, improved, "any time beats the unset baseline")

	improved, err = ts.scores.SubmitGameScore(ctx, id, key, 95000)
	require.NoError(t, err)
	assert.False(t, improved)

	improved, err = ts.scores.SubmitGameScore(ctx, id, key, 60000)
	require.NoError(t, err)
	assert.True(t, improved)

	best, _, err := ts.scores.GetPersonalBest(ctx, id, key)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), best)
}

func TestScoreService_UnknownGame(t *testing.T) {
	ts := newMemoryServices(t)
	id := ts.createProfiles(t, "a")[0]
	_, err := ts.scores.SubmitGameScore(context.Background(), id, "pong", 1)
	assertCode(t, err, models.CodeNotFound)

	_, found, err := ts.scores.GetPersonalBest(context.Background(), id, "pong")
	require.NoError(t, err)
	assert.False(t, found)
}

type scoreRepoStub struct {
	submitFn   func(context.Context, uint64, string, int64, models.ScorePolicy) (bool, int64, error)
	getFn      func(context.Context, uint64, string) (int64, bool, error)
	listGameFn func(context.Context, string) ([]models.ScoreRecord, error)
}

func (s *scoreRepoStub) Submit(ctx context.Context, id uint64, key string, v int64, p models.ScorePolicy) (bool, int64, error) {
	return s.submitFn(ctx, id, key, v, p)
}
func (s *scoreRepoStub) Get(ctx context.Context, id uint64, key string) (int64, bool, error) {
	return s.getFn(ctx, id, key)
}
func (s *scoreRepoStub) ListGame(ctx context.Context, key string) ([]models.ScoreRecord, error) {
	return s.listGameFn(ctx, key)
}

func TestScoreService_SubmitPropagatesUnavailable(t *testing.T) {
	repo := &scoreRepoStub{
		submitFn: func(context.Context, uint64, string, int64, models.ScorePolicy) (bool, int64, error) {
			return false, 0, models.NewUnavailableError(errors.New("dial tcp: refused"))
		},
	}
	svc := NewScoreService(repo, models.DefaultGameCatalog())

	improved, err := svc.SubmitScore(context.Background(), 1, "click", 5, models.HigherIsBetter)
	assert.False(t, improved)
	assertCode(t, err, models.CodeUnavailable)
}

func TestScoreService_SubmitToGameReportsBestFromSubmit(t *testing.T) {
	repo := &scoreRepoStub{
		submitFn: func(_ context.Context, _ uint64, _ string, _ int64, p models.ScorePolicy) (bool, int64, error) {
			assert.Equal(t, models.LowerIsBetter, p)
			return false, 42_000, nil
		},
		getFn: func(context.Context, uint64, string) (int64, bool, error) {
			t.Fatal("personal best must not be read again after submitting")
			return 0, false, nil
		},
	}
	svc := NewScoreService(repo, models.DefaultGameCatalog())

	sub, err := svc.SubmitToGame(context.Background(), 1, "2048_reach_128", 50_000)
	require.NoError(t, err)
	assert.Equal(t, Submission{Improved: false, Best: 42_000}, sub)
}

func TestScoreService_InvalidKeyMarksSpan(t *testing.T) {
	rec := recordSpans(t)
	ts := newMemoryServices(t)

	_, err := ts.scores.Submit(context.Background(), 1, "bad/key", 1, models.HigherIsBetter)
	assertCode(t, err, models.CodeInvalidArgument)

	ended := rec.Ended()
	require.NotEmpty(t, ended)
	last := ended[len(ended)-1]
	assert.Equal(t, "score.SubmitScore", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)
}
