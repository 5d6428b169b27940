package service

import (
	"context"
	"sort"
	"time"

	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/repository"
)

// FriendService provides friend-request and friendship business logic.
type FriendService struct {
	friendRepo  repository.FriendRepository
	profileRepo repository.ProfileRepository
	now         func() time.Time
}

// NewFriendService returns a new FriendService.
func NewFriendService(friendRepo repository.FriendRepository, profileRepo repository.ProfileRepository) *FriendService {
	return &FriendService{
		friendRepo:  friendRepo,
		profileRepo: profileRepo,
		now:         time.Now,
	}
}

func transition(name string) {
	observability.FriendTransitions.WithLabelValues(name).Inc()
}

// SendRequest records a pending request from fromID to toID. A request the
// target already sent the other way is not auto-accepted; the caller is told
// to accept it instead.
func (s *FriendService) SendRequest(ctx context.Context, fromID, toID uint64) (_ *models.FriendRequest, err error) {
	ctx, end := traced(ctx, "friend", "SendRequest")
	defer func() { end(err) }()

	if fromID == toID {
		return nil, models.NewInvalidArgumentError("Cannot send friend request to yourself")
	}

	now := s.now().UTC()
	var created *models.FriendRequest
	err = s.friendRepo.Pair(ctx, fromID, toID, func(st *repository.PairState) error {
		if st.ProfileA == nil {
			return models.NewNotFoundError("Profile", fromID)
		}
		if st.ProfileB == nil {
			return models.NewNotFoundError("Profile", toID)
		}
		if st.Friends() {
			return models.NewAlreadyFriendsError()
		}
		if st.Outgoing != nil {
			return models.NewDuplicateRequestError("Friend request already sent")
		}
		if st.Incoming != nil {
			return models.NewDuplicateRequestError("You already have a pending friend request from this user; accept it instead")
		}
		req, err := models.NewFriendRequest(fromID, toID, st.ProfileA.Nickname, now)
		if err != nil {
			return err
		}
		st.Outgoing = req
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	transition("request_sent")
	return created, nil
}

// AcceptRequest turns the pending request fromID sent to ownerID into a
// friendship. Both edges are set and the request (plus any stale reverse
// request) is removed in the same transaction.
func (s *FriendService) AcceptRequest(ctx context.Context, ownerID, fromID uint64) (err error) {
	ctx, end := traced(ctx, "friend", "AcceptRequest")
	defer func() { end(err) }()

	err = s.friendRepo.Pair(ctx, ownerID, fromID, func(st *repository.PairState) error {
		if !st.Incoming.IsPending() {
			return models.NewNotFoundError("Friend request", fromID)
		}
		st.Incoming = nil
		st.Outgoing = nil
		st.EdgeAB, st.EdgeBA = true, true
		return nil
	})
	if err != nil {
		return err
	}
	transition("accepted")
	return nil
}

// RejectRequest deletes the pending request fromID sent to ownerID.
func (s *FriendService) RejectRequest(ctx context.Context, ownerID, fromID uint64) (err error) {
	ctx, end := traced(ctx, "friend", "RejectRequest")
	defer func() { end(err) }()

	err = s.friendRepo.Pair(ctx, ownerID, fromID, func(st *repository.PairState) error {
		if !st.Incoming.IsPending() {
			return models.NewNotFoundError("Friend request", fromID)
		}
		st.Incoming = nil
		return nil
	})
	if err != nil {
		return err
	}
	transition("rejected")
	return nil
}

// CancelRequest withdraws the pending request fromID sent to toID.
func (s *FriendService) CancelRequest(ctx context.Context, fromID, toID uint64) (err error) {
	ctx, end := traced(ctx, "friend", "CancelRequest")
	defer func() { end(err) }()

	err = s.friendRepo.Pair(ctx, fromID, toID, func(st *repository.PairState) error {
		if !st.Outgoing.IsPending() {
			return models.NewNotFoundError("Friend request", toID)
		}
		st.Outgoing = nil
		return nil
	})
	if err != nil {
		return err
	}
	transition("cancelled")
	return nil
}

// RemoveFriend deletes both directions of the friendship between a and b.
// A one-sided edge left by an older writer counts as a friendship and is
// removed too.
func (s *FriendService) RemoveFriend(ctx context.Context, a, b uint64) (err error) {
	ctx, end := traced(ctx, "friend", "RemoveFriend")
	defer func() { end(err) }()

	err = s.friendRepo.Pair(ctx, a, b, func(st *repository.PairState) error {
		if !st.Friends() {
			return models.NewNotFoundError("Friendship", b)
		}
		st.EdgeAB, st.EdgeBA = false, false
		return nil
	})
	if err != nil {
		return err
	}
	transition("removed")
	return nil
}

// FriendStatus reports the relation of b as seen from a.
func (s *FriendService) FriendStatus(ctx context.Context, a, b uint64) (models.FriendStatus, error) {
	if a == b {
		return models.FriendStatusSelf, nil
	}
	st, err := s.friendRepo.Snapshot(ctx, a, b)
	if err != nil {
		return "", err
	}
	switch {
	case st.Friends():
		return models.FriendStatusFriend, nil
	case st.Outgoing != nil:
		return models.FriendStatusRequestSent, nil
	case st.Incoming != nil:
		return models.FriendStatusRequestReceived, nil
	default:
		return models.FriendStatusNone, nil
	}
}

// ListFriends returns the friends of id ordered by profile ID. Edges to
// profiles that no longer resolve are skipped.
func (s *FriendService) ListFriends(ctx context.Context, id uint64) ([]*models.Profile, error) {
	ids, err := s.friendRepo.ListFriendIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	profiles, err := s.profileRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	friends := make([]*models.Profile, 0, len(ids))
	for _, fid := range ids {
		if p, ok := profiles[fid]; ok {
			friends = append(friends, p)
		}
	}
	return friends, nil
}

// ListPendingRequests returns the inbox of id, oldest first.
func (s *FriendService) ListPendingRequests(ctx context.Context, id uint64) ([]models.PendingRequest, error) {
	inbox, err := s.friendRepo.ListIncoming(ctx, id)
	if err != nil {
		return nil, err
	}
	senders := make([]uint64, 0, len(inbox))
	for from := range inbox {
		senders = append(senders, from)
	}
	profiles, err := s.profileRepo.GetMany(ctx, senders)
	if err != nil {
		return nil, err
	}

	pending := make([]models.PendingRequest, 0, len(inbox))
	for from, req := range inbox {
		if !req.IsPending() {
			continue
		}
		pending = append(pending, models.PendingRequest{FromID: from, Request: req, Profile: profiles[from]})
	}
	sort.Slice(pending, func(i, j int) bool {
		ti, tj := pending[i].Request.CreatedAt, pending[j].Request.CreatedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return pending[i].FromID < pending[j].FromID
	})
	return pending, nil
}

// ListSentRequests returns the requests id has sent that are still pending,
// oldest first.
func (s *FriendService) ListSentRequests(ctx context.Context, id uint64) ([]models.SentRequest, error) {
	outbox, err := s.friendRepo.ListOutgoing(ctx, id)
	if err != nil {
		return nil, err
	}
	sent := make([]models.SentRequest, 0, len(outbox))
	for to, req := range outbox {
		if req.IsPending() {
			sent = append(sent, models.SentRequest{ToID: to, Request: req})
		}
	}
	sort.Slice(sent, func(i, j int) bool {
		ti, tj := sent[i].Request.CreatedAt, sent[j].Request.CreatedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return sent[i].ToID < sent[j].ToID
	})
	return sent, nil
}
