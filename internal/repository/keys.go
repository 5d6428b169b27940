package repository

import (
	"strconv"

	"arcade/internal/store"
)

// Top-level collections of the persisted layout.
const (
	ProfilesRoot      = "profiles"
	IdentityIndexRoot = "identityIndex"
	FriendsRoot       = "friends"
	RequestsRoot      = "requests"
	ScoresRoot        = "scores"

	sequenceCounterSegment = "sequenceCounter"
)

func idSegment(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseIDSegment(s string) (uint64, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	return id, err == nil && id > 0
}

// SequenceCounterPath is profiles/sequenceCounter.
func SequenceCounterPath() string {
	return store.Join(ProfilesRoot, sequenceCounterSegment)
}

// ProfilePath is profiles/{id}.
func ProfilePath(id uint64) string {
	return store.Join(ProfilesRoot, idSegment(id))
}

// IdentityIndexPath is identityIndex/{externalId}.
func IdentityIndexPath(externalID string) string {
	return store.Join(IdentityIndexRoot, externalID)
}

// FriendPath is friends/{id}/{otherId}.
func FriendPath(id, other uint64) string {
	return store.Join(FriendsRoot, idSegment(id), idSegment(other))
}

// RequestPath is requests/{targetId}/{sourceId}.
func RequestPath(target, source uint64) string {
	return store.Join(RequestsRoot, idSegment(target), idSegment(source))
}

// ScorePath is scores/{id}/{gameKey}.
func ScorePath(id uint64, gameKey string) string {
	return store.Join(ScoresRoot, idSegment(id), gameKey)
}
