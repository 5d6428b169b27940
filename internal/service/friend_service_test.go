package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"arcade/internal/models"
	"arcade/internal/repository"
	"arcade/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestFriendService_SendRequestGuards(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "a", "b")
	a, b := ids[0], ids[1]

	_, err := ts.friends.SendRequest(ctx, a, a)
	assertCode(t, err, models.CodeInvalidArgument)

	_, err = ts.friends.SendRequest(ctx, a, 404)
	assertCode(t, err, models.CodeNotFound)

	req, err := ts.friends.SendRequest(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, a, req.Source)
	assert.Equal(t, "a", req.SourceNickname)
	assert.True(t, req.IsPending())

	_, err = ts.friends.SendRequest(ctx, a, b)
	assertCode(t, err, models.CodeDuplicateRequest)
}

func TestFriendService_ReverseRequestIsDuplicate(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "a", "b")
	a, b := ids[0], ids[1]

	_, err := ts.friends.SendRequest(ctx, a, b)
	require.NoError(t, err)

	_, err = ts.friends.SendRequest(ctx, b, a)
	assertCode(t, err, models.CodeDuplicateRequest)

	// No auto-accept happened and B's request was not written.
	status, err := ts.friends.FriendStatus(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, models.FriendStatusRequestReceived, status)
	_, err = ts.store.Get(ctx, repository.RequestPath(a, b))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFriendService_AcceptFlow(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "a", "b")
	a, b := ids[0], ids[1]

	_, err := ts.friends.SendRequest(ctx, a, b)
	require.NoError(t, err)

	status, err := ts.friends.FriendStatus(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, models.FriendStatusRequestSent, status)

	pending, err := ts.friends.ListPendingRequests(ctx, b)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a, pending[0].FromID)
	require.NotNil(t, pending[0].Profile)
	assert.Equal(t, "a", pending[0].Profile.Nickname)

	require.NoError(t, ts.friends.AcceptRequest(ctx, b, a))

	for _, pair := range [][2]uint64{{a, b}, {b, a}} {
		status, err := ts.friends.FriendStatus(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, models.FriendStatusFriend, status)
		_, err = ts.store.Get(ctx, repository.FriendPath(pair[0], pair[1]))
		require.NoError(t, err)
	}
	_, err = ts.store.Get(ctx, repository.RequestPath(b, a))
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A second tab resolving the same request sees it gone.
	assertCode(t, ts.friends.AcceptRequest(ctx, b, a), models.CodeNotFound)
	assertCode(t, ts.friends.RejectRequest(ctx, b, a), models.CodeNotFound)

	_, err = ts.friends.SendRequest(ctx, b, a)
	assertCode(t, err, models.CodeAlreadyFriends)

	friends, err := ts.friends.ListFriends(ctx, a)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, b, friends[0].ID)
}

func TestFriendService_RejectAndCancel(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "a", "b", "c")
	a, b, c := ids[0], ids[1], ids[2]

	_, err := ts.friends.SendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = ts.friends.SendRequest(ctx, a, c)
	require.NoError(t, err)

	sent, err := ts.friends.ListSentRequests(ctx, a)
	require.NoError(t, err)
	assert.Len(t, sent, 2)

	require.NoError(t, ts.friends.RejectRequest(ctx, b, a))
	assertCode(t, ts.friends.RejectRequest(ctx, b, a), models.CodeNotFound)

	status, err := ts.friends.FriendStatus(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, models.FriendStatusNone, status)

	require.NoError(t, ts.friends.CancelRequest(ctx, a, c))
	assertCode(t, ts.friends.CancelRequest(ctx, a, c), models.CodeNotFound)

	sent, err = ts.friends.ListSentRequests(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, sent)
}

func TestFriendService_RemoveFriend(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "a", "b")
	a, b := ids[0], ids[1]

	before := ts.store.(interface{ Len() int }).Len()
	assertCode(t, ts.friends.RemoveFriend(ctx, a, b), models.CodeNotFound)
	assert.Equal(t, before, ts.store.(interface{ Len() int }).Len())

	_, err := ts.friends.SendRequest(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, ts.friends.AcceptRequest(ctx, b, a))
	require.NoError(t, ts.friends.RemoveFriend(ctx, a, b))

	for _, path := range []string{repository.FriendPath(a, b), repository.FriendPath(b, a)} {
		_, err := ts.store.Get(ctx, path)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestFriendService_RemoveRepairsOneSidedEdge(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "a", "b")
	a, b := ids[0], ids[1]
	require.NoError(t, ts.store.Update(ctx, store.Writes{
		repository.FriendPath(b, a): []byte(models.FriendEdgeAccepted),
	}))

	require.NoError(t, ts.friends.RemoveFriend(ctx, a, b))
	_, err := ts.store.Get(ctx, repository.FriendPath(b, a))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFriendService_StatusSelfAndOrder(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServices(t)
	ids := ts.createProfiles(t, "a", "b", "c")

	status, err := ts.friends.FriendStatus(ctx, ids[0], ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.FriendStatusSelf, status)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.friends.now = func() time.Time { return t0.Add(time.Hour) }
	_, err = ts.friends.SendRequest(ctx, ids[1], ids[0])
	require.NoError(t, err)
	ts.friends.now = func() time.Time { return t0 }
	_, err = ts.friends.SendRequest(ctx, ids[2], ids[0])
	require.NoError(t, err)

	pending, err := ts.friends.ListPendingRequests(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[2], pending[0].FromID, "oldest first")
	assert.Equal(t, ids[1], pending[1].FromID)
}

func TestFriendService_ConcurrentAcceptIsSymmetric(t *testing.T) {
	ctx := context.Background()
	ts := newRedisServices(t)
	ids := ts.createProfiles(t, "a", "b")
	a, b := ids[0], ids[1]

	_, err := ts.friends.SendRequest(ctx, a, b)
	require.NoError(t, err)

	// Two devices accept and reject at once: exactly one wins.
	results := make([]error, 2)
	var g errgroup.Group
	g.Go(func() error { results[0] = ts.friends.AcceptRequest(ctx, b, a); return nil })
	g.Go(func() error { results[1] = ts.friends.RejectRequest(ctx, b, a); return nil })
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assertCode(t, err, models.CodeNotFound)
		}
	}
	assert.Equal(t, 1, wins)

	ab, err := ts.store.GetMany(ctx, []string{repository.FriendPath(a, b), repository.FriendPath(b, a)})
	require.NoError(t, err)
	assert.True(t, len(ab) == 0 || len(ab) == 2, "friend edges must be symmetric")
}
