package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"arcade/internal/models"
	"arcade/internal/repository"
	"arcade/internal/store"
	"arcade/internal/store/memory"
	"arcade/internal/store/redisstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type testServices struct {
	store       store.Store
	profiles    *ProfileService
	friends     *FriendService
	scores      *ScoreService
	leaderboard *LeaderboardService
}

func newServices(s store.Store) *testServices {
	profileRepo := repository.NewProfileRepository(s)
	scoreRepo := repository.NewScoreRepository(s)
	catalog := models.DefaultGameCatalog()
	return &testServices{
		store:       s,
		profiles:    NewProfileService(profileRepo),
		friends:     NewFriendService(repository.NewFriendRepository(s), profileRepo),
		scores:      NewScoreService(scoreRepo, catalog),
		leaderboard: NewLeaderboardService(scoreRepo, profileRepo, catalog, DefaultLeaderboardLimit, MaxLeaderboardLimit),
	}
}

func newMemoryServices(t *testing.T) *testServices {
	t.Helper()
	return newServices(memory.New())
}

func newRedisServices(t *testing.T) *testServices {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return newServices(redisstore.New(client, redisstore.WithRetry(store.RetryConfig{
		MaxTries:        500,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})))
}

// createProfiles resolves one profile per nickname and returns their IDs.
func (ts *testServices) createProfiles(t *testing.T, nicknames ...string) []uint64 {
	t.Helper()
	ids := make([]uint64, len(nicknames))
	for i, nick := range nicknames {
		id, err := ts.profiles.ResolveOrCreate(context.Background(), fmt.Sprintf("ext-%s", nick), nick)
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}
