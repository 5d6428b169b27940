package service

import (
	"context"
	"errors"
	"testing"

	"arcade/internal/models"
	"arcade/internal/repository"
	"arcade/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(values map[uint64]int64) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, 0, len(values))
	for id, v := range values {
		out = append(out, models.LeaderboardEntry{ProfileID: id, Value: v})
	}
	return out
}

type rankRow struct {
	id   uint64
	rank int
}

func rows(ranked []models.LeaderboardEntry) []rankRow {
	out := make([]rankRow, len(ranked))
	for i, e := range ranked {
		out[i] = rankRow{e.ProfileID, e.Rank}
	}
	return out
}

func TestRankEntries(t *testing.T) {
	tests := []struct {
		name   string
		values map[uint64]int64
		limit  int
		policy models.ScorePolicy
		want   []rankRow
	}{
		{
			name:   "three way tie at the cutoff",
			values: map[uint64]int64{1: 10, 2: 10, 3: 8, 4: 8, 5: 8, 6: 5},
			limit:  5,
			policy: models.HigherIsBetter,
			want:   []rankRow{{1, 1}, {2, 1}, {3, 3}, {4, 3}, {5, 3}},
		},
		{
			name:   "tie crossing the cutoff is included",
			values: map[uint64]int64{1: 10, 2: 8, 3: 8, 4: 8, 5: 1},
			limit:  2,
			policy: models.HigherIsBetter,
			want:   []rankRow{{1, 1}, {2, 2}, {3, 2}, {4, 2}},
		},
		{
			name:   "hard cap at twice the limit",
			values: map[uint64]int64{1: 7, 2: 7, 3: 7, 4: 7, 5: 7},
			limit:  2,
			policy: models.HigherIsBetter,
			want:   []rankRow{{1, 1}, {2, 1}, {3, 1}, {4, 1}},
		},
		{
			name:   "lower is better",
			values: map[uint64]int64{1: 3000, 2: 1500, 3: 1500, 4: 9000},
			limit:  5,
			policy: models.LowerIsBetter,
			want:   []rankRow{{2, 1}, {3, 1}, {1, 3}, {4, 4}},
		},
		{
			name:   "fewer entries than limit",
			values: map[uint64]int64{9: 1},
			limit:  5,
			policy: models.HigherIsBetter,
			want:   []rankRow{{9, 1}},
		},
		{
			name:   "non-positive limit",
			values: map[uint64]int64{1: 1},
			limit:  0,
			policy: models.HigherIsBetter,
			want:   []rankRow{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rows(RankEntries(entries(tt.values), tt.limit, tt.policy)))
		})
	}
}

func TestLeaderboardService_TopClickRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "A", "B", "C", "D", "E", "F")
	for i, v := range []int64{10, 10, 8, 8, 8, 5} {
		_, err := ts.scores.SubmitScore(ctx, ids[i], "click", v, models.HigherIsBetter)
		require.NoError(t, err)
	}

	top, err := ts.leaderboard.Top(ctx, "click", 5)
	require.NoError(t, err)
	require.Len(t, top, 5)

	wantNames := []string{"A", "B", "C", "D", "E"}
	wantRanks := []int{1, 1, 3, 3, 3}
	for i, e := range top {
		assert.Equal(t, wantNames[i], e.Nickname)
		assert.Equal(t, wantRanks[i], e.Rank)
		assert.NotEqual(t, ids[5], e.ProfileID)
	}
}

func TestLeaderboardService_DefaultsAndFallbacks(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)

	empty, err := ts.leaderboard.Top(ctx, "jump", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	ids := ts.createProfiles(t, "a", "b", "c", "d", "e", "f", "g")
	for i, id := range ids {
		_, err := ts.scores.SubmitGameScore(ctx, id, "jump", int64(100-i))
		require.NoError(t, err)
	}
	// A record whose profile vanished still ranks, under the fallback name.
	require.NoError(t, ts.store.Update(ctx, store.Writes{repository.ScorePath(500, "jump"): []byte("1000")}))

	top, err := ts.leaderboard.Top(ctx, "jump", 0)
	require.NoError(t, err)
	require.Len(t, top, DefaultLeaderboardLimit)
	assert.Equal(t, AnonymousNickname, top[0].Nickname)
	assert.Equal(t, "a", top[1].Nickname)

	_, err = ts.leaderboard.Top(ctx, "pong", 5)
	assertCode(t, err, models.CodeNotFound)

	_, err = ts.leaderboard.Rank(ctx, "jump", 5, models.ScorePolicy("x"))
	assertCode(t, err, models.CodeInvalidArgument)
}

func TestLeaderboardService_ClampsLimit(t *testing.T) {
	svc := NewLeaderboardService(nil, nil, models.DefaultGameCatalog(), 3, 10)
	assert.Equal(t, 3, svc.clampLimit(-1))
	assert.Equal(t, 7, svc.clampLimit(7))
	assert.Equal(t, 10, svc.clampLimit(500))

	svc = NewLeaderboardService(nil, nil, models.DefaultGameCatalog(), 0, 0)
	assert.Equal(t, DefaultLeaderboardLimit, svc.clampLimit(0))
	assert.Equal(t, MaxLeaderboardLimit, svc.clampLimit(1000))
}

func TestLeaderboardService_Unavailable(t *testing.T) {
	repo := &scoreRepoStub{
		listGameFn: func(context.Context, string) ([]models.ScoreRecord, error) {
			return nil, models.NewUnavailableError(errors.New("timeout"))
		},
	}
	svc := NewLeaderboardService(repo, nil, models.DefaultGameCatalog(), 5, 100)
	_, err := svc.Top(context.Background(), "click", 5)
	assertCode(t, err, models.CodeUnavailable)
}
