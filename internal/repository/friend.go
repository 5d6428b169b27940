package repository

import (
	"context"
	"log/slog"
	"strings"

	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/store"
)

// PairState is the social-graph state of an ordered profile pair (A, B)
// together with both profiles. Profiles are read-only; the edges and requests
// may be mutated by a Pair callback.
type PairState struct {
	A, B     uint64
	ProfileA *models.Profile
	ProfileB *models.Profile

	// EdgeAB is friends/A/B, EdgeBA is friends/B/A.
	EdgeAB, EdgeBA bool
	// Outgoing is A's request to B, stored at requests/B/A.
	Outgoing *models.FriendRequest
	// Incoming is B's request to A, stored at requests/A/B.
	Incoming *models.FriendRequest
}

// Friends reports whether either edge direction exists.
func (s *PairState) Friends() bool {
	return s.EdgeAB || s.EdgeBA
}

// FriendRepository defines the interface for friend data operations
type FriendRepository interface {
	// Pair runs fn over the pair state in one transaction and commits the
	// changes fn makes to edges and requests atomically.
	Pair(ctx context.Context, a, b uint64, fn func(*PairState) error) error
	// Snapshot reads the pair state without a transaction.
	Snapshot(ctx context.Context, a, b uint64) (*PairState, error)
	ListFriendIDs(ctx context.Context, id uint64) ([]uint64, error)
	ListIncoming(ctx context.Context, id uint64) (map[uint64]*models.FriendRequest, error)
	ListOutgoing(ctx context.Context, id uint64) (map[uint64]*models.FriendRequest, error)
}

type friendRepository struct {
	store   store.Store
	edges   *observability.RepoLogger
	inboxes *observability.RepoLogger
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(s store.Store) FriendRepository {
	return &friendRepository{
		store:   s,
		edges:   observability.NewRepoLogger(FriendsRoot),
		inboxes: observability.NewRepoLogger(RequestsRoot),
	}
}

type pairPaths struct {
	edgeAB, edgeBA     string
	outgoing, incoming string
	profileA, profileB string
}

func newPairPaths(a, b uint64) pairPaths {
	return pairPaths{
		edgeAB:   FriendPath(a, b),
		edgeBA:   FriendPath(b, a),
		outgoing: RequestPath(b, a),
		incoming: RequestPath(a, b),
		profileA: ProfilePath(a),
		profileB: ProfilePath(b),
	}
}

func (p pairPaths) all() []string {
	return []string{p.edgeAB, p.edgeBA, p.outgoing, p.incoming, p.profileA, p.profileB}
}

func decodePair(a, b uint64, paths pairPaths, current map[string][]byte) (*PairState, error) {
	state := &PairState{A: a, B: b}
	_, state.EdgeAB = current[paths.edgeAB]
	_, state.EdgeBA = current[paths.edgeBA]

	var err error
	if raw, ok := current[paths.outgoing]; ok {
		if state.Outgoing, err = decodeRequest(paths.outgoing, raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := current[paths.incoming]; ok {
		if state.Incoming, err = decodeRequest(paths.incoming, raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := current[paths.profileA]; ok {
		if state.ProfileA, err = decodeProfile(paths.profileA, raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := current[paths.profileB]; ok {
		if state.ProfileB, err = decodeProfile(paths.profileB, raw); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func diffEdge(w store.Writes, path string, before, after bool) {
	switch {
	case after && !before:
		w.Set(path, []byte(models.FriendEdgeAccepted))
	case !after && before:
		w.Delete(path)
	}
}

// diffRequest writes a request whose pointer was replaced and deletes one
// that was cleared.
func diffRequest(w store.Writes, path string, before, after *models.FriendRequest) error {
	switch {
	case after == nil && before != nil:
		w.Delete(path)
	case after != nil && after != before:
		body, err := encodeJSON(after)
		if err != nil {
			return err
		}
		w.Set(path, body)
	}
	return nil
}

func (r *friendRepository) Pair(ctx context.Context, a, b uint64, fn func(*PairState) error) error {
	paths := newPairPaths(a, b)
	var writes store.Writes
	err := r.store.Transact(ctx, paths.all(), func(current map[string][]byte) (store.Writes, error) {
		before, err := decodePair(a, b, paths, current)
		if err != nil {
			return nil, err
		}
		after := *before
		if err := fn(&after); err != nil {
			return nil, err
		}

		w := store.Writes{}
		diffEdge(w, paths.edgeAB, before.EdgeAB, after.EdgeAB)
		diffEdge(w, paths.edgeBA, before.EdgeBA, after.EdgeBA)
		if err := diffRequest(w, paths.outgoing, before.Outgoing, after.Outgoing); err != nil {
			return nil, err
		}
		if err := diffRequest(w, paths.incoming, before.Incoming, after.Incoming); err != nil {
			return nil, err
		}
		writes = w
		return w, nil
	})
	if err != nil {
		return storeError(err)
	}
	r.logWrites(ctx, writes)
	return nil
}

func (r *friendRepository) logWrites(ctx context.Context, w store.Writes) {
	for _, path := range w.Paths() {
		logger := r.edges
		if strings.HasPrefix(path, RequestsRoot+"/") {
			logger = r.inboxes
		}
		if w[path] == nil {
			logger.LogDelete(ctx, slog.String("path", path))
		} else {
			logger.LogCreate(ctx, slog.String("path", path))
		}
	}
}

func (r *friendRepository) Snapshot(ctx context.Context, a, b uint64) (*PairState, error) {
	paths := newPairPaths(a, b)
	current, err := r.store.GetMany(ctx, paths.all())
	if err != nil {
		return nil, storeError(err)
	}
	return decodePair(a, b, paths, current)
}

// ListFriendIDs returns the IDs under friends/{id}/ in no particular order.
func (r *friendRepository) ListFriendIDs(ctx context.Context, id uint64) ([]uint64, error) {
	entries, err := r.store.Scan(ctx, store.Prefix(FriendsRoot, idSegment(id)))
	if err != nil {
		return nil, storeError(err)
	}
	ids := make([]uint64, 0, len(entries))
	for path := range entries {
		segments := store.Split(path)
		if len(segments) != 3 {
			continue
		}
		if other, ok := parseIDSegment(segments[2]); ok {
			ids = append(ids, other)
		}
	}
	return ids, nil
}

// ListIncoming returns the requests in id's inbox keyed by sender.
func (r *friendRepository) ListIncoming(ctx context.Context, id uint64) (map[uint64]*models.FriendRequest, error) {
	entries, err := r.store.Scan(ctx, store.Prefix(RequestsRoot, idSegment(id)))
	if err != nil {
		return nil, storeError(err)
	}
	return collectRequests(entries, func(target, source uint64) (uint64, bool) {
		return source, target == id
	})
}

// ListOutgoing returns the requests id has sent, keyed by target. Requests
// are indexed by target, so this scans every inbox.
func (r *friendRepository) ListOutgoing(ctx context.Context, id uint64) (map[uint64]*models.FriendRequest, error) {
	entries, err := r.store.Scan(ctx, store.Prefix(RequestsRoot))
	if err != nil {
		return nil, storeError(err)
	}
	return collectRequests(entries, func(target, source uint64) (uint64, bool) {
		return target, source == id
	})
}

func collectRequests(entries map[string][]byte, pick func(target, source uint64) (uint64, bool)) (map[uint64]*models.FriendRequest, error) {
	out := make(map[uint64]*models.FriendRequest)
	for path, raw := range entries {
		segments := store.Split(path)
		if len(segments) != 3 {
			continue
		}
		target, okT := parseIDSegment(segments[1])
		source, okS := parseIDSegment(segments[2])
		if !okT || !okS {
			continue
		}
		key, ok := pick(target, source)
		if !ok {
			continue
		}
		req, err := decodeRequest(path, raw)
		if err != nil {
			return nil, err
		}
		out[key] = req
	}
	return out, nil
}
