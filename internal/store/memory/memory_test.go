package memory

import (
	"context"
	"errors"
	"testing"

	"arcade/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "a/b")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Update(ctx, store.Writes{"a/b": []byte("1"), "a/c": []byte("2")}))
	v, err := s.Get(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))

	w := store.Writes{}
	w.Delete("a/b")
	require.NoError(t, s.Update(ctx, w))
	_, err = s.Get(ctx, "a/b")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestStore_TransactAbortsOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Update(ctx, store.Writes{"k": []byte("old")}))

	boom := errors.New("boom")
	err := s.Transact(ctx, []string{"k", "missing"}, func(cur map[string][]byte) (store.Writes, error) {
		assert.Equal(t, "old", string(cur["k"]))
		_, ok := cur["missing"]
		assert.False(t, ok)
		return store.Writes{"k": []byte("new")}, boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "old", string(v))
}

func TestStore_ScanPrefix(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Update(ctx, store.Writes{
		"scores/1/click":  []byte("3"),
		"scores/10/click": []byte("4"),
		"profiles/1":      []byte("{}"),
	}))

	got, err := s.Scan(ctx, store.Prefix("scores", "1"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "scores/1/click")

	got, err = s.Scan(ctx, "scores/")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	buf := []byte("abc")
	require.NoError(t, s.Update(ctx, store.Writes{"k": buf}))
	buf[0] = 'z'

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestStore_ClosedAndFailing(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.FailWith = errors.New("down")
	assert.Error(t, s.Ping(ctx))

	s.FailWith = nil
	require.NoError(t, s.Close())
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrClosed)
}
