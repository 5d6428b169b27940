package redisstore

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"arcade/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func setupStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, opts...), mr
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t)

	_, err := s.Get(ctx, "profiles/1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Update(ctx, store.Writes{"profiles/1": []byte(`{"id":1}`)}))
	mr.CheckGet(t, "arcade:profiles/1", `{"id":1}`)

	v, err := s.Get(ctx, "profiles/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(v))

	w := store.Writes{}
	w.Delete("profiles/1")
	require.NoError(t, s.Update(ctx, w))
	assert.False(t, mr.Exists("arcade:profiles/1"))
}

func TestStore_GetMany(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t, WithKeyPrefix("test:"))
	require.NoError(t, s.Update(ctx, store.Writes{"a": []byte("1"), "c": []byte("3")}))

	got, err := s.GetMany(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "c": []byte("3")}, got)

	got, err = s.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_ScanEscapesGlob(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)
	require.NoError(t, s.Update(ctx, store.Writes{
		"scores/1/click": []byte("1"),
		"scores/2/click": []byte("2"),
		"scores/2/jump":  []byte("5"),
		"scoresX/3":      []byte("9"),
		"friends/1/2":    []byte("accepted"),
	}))

	got, err := s.Scan(ctx, "scores/")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, []byte("5"), got["scores/2/jump"])

	got, err = s.Scan(ctx, "score?/")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_TransactAbortLeavesState(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t)
	require.NoError(t, s.Update(ctx, store.Writes{"k": []byte("1")}))

	boom := errors.New("boom")
	err := s.Transact(ctx, []string{"k"}, func(map[string][]byte) (store.Writes, error) {
		return store.Writes{"k": []byte("2")}, boom
	})
	assert.ErrorIs(t, err, boom)
	mr.CheckGet(t, "arcade:k", "1")
}

func increment(ctx context.Context, s store.Store, path string) error {
	return s.Transact(ctx, []string{path}, func(cur map[string][]byte) (store.Writes, error) {
		n := 0
		if v, ok := cur[path]; ok {
			var err error
			if n, err = strconv.Atoi(string(v)); err != nil {
				return nil, err
			}
		}
		return store.Writes{path: []byte(strconv.Itoa(n + 1))}, nil
	})
}

func TestStore_TransactConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t, WithRetry(store.RetryConfig{
		MaxTries:        200,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}))

	const workers, perWorker = 8, 10
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for range perWorker {
				if err := increment(ctx, s, "counter"); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	mr.CheckGet(t, "arcade:counter", strconv.Itoa(workers*perWorker))
}

func TestStore_TransactConflictExhausted(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t, WithRetry(store.RetryConfig{MaxTries: 2, InitialInterval: time.Millisecond}))
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer other.Close()

	calls := 0
	err := s.Transact(ctx, []string{"k"}, func(map[string][]byte) (store.Writes, error) {
		calls++
		// Another writer touches the watched key every time.
		require.NoError(t, other.Set(ctx, "arcade:k", strconv.Itoa(calls), 0).Err())
		return store.Writes{"k": []byte("mine")}, nil
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, 2, calls)
	mr.CheckGet(t, "arcade:k", "2")
}

func TestStore_Ping(t *testing.T) {
	s, mr := setupStore(t)
	require.NoError(t, s.Ping(context.Background()))
	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}
