package models

import "time"

// FriendRequestRecordVersion is the current on-store schema version of FriendRequest.
const FriendRequestRecordVersion = 1

// FriendEdgeAccepted is the value stored at friends/{id}/{otherId}.
const FriendEdgeAccepted = "accepted"

// FriendshipStatus represents the status of a friendship request.
type FriendshipStatus string

const (
	// FriendshipStatusPending indicates a pending friendship request.
	FriendshipStatusPending FriendshipStatus = "pending"
)

// FriendRequest is the record stored at requests/{targetId}/{sourceId}.
type FriendRequest struct {
	Version        int              `json:"v"`
	Source         uint64           `json:"source"`
	SourceNickname string           `json:"sourceNickname"`
	Status         FriendshipStatus `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// NewFriendRequest builds a pending request from source to target.
func NewFriendRequest(source, target uint64, sourceNickname string, now time.Time) (*FriendRequest, error) {
	if source == 0 || target == 0 {
		return nil, NewInvalidArgumentError("Profile IDs must be positive")
	}
	if source == target {
		return nil, NewInvalidArgumentError("Cannot send friend request to yourself")
	}
	return &FriendRequest{
		Version:        FriendRequestRecordVersion,
		Source:         source,
		SourceNickname: sourceNickname,
		Status:         FriendshipStatusPending,
		CreatedAt:      now,
	}, nil
}

// IsPending reports whether the request is still awaiting a decision.
func (r *FriendRequest) IsPending() bool {
	return r != nil && r.Status == FriendshipStatusPending
}

// FriendStatus is the relation between two profiles as seen from the first.
type FriendStatus string

const (
	FriendStatusSelf            FriendStatus = "self"
	FriendStatusFriend          FriendStatus = "friend"
	FriendStatusRequestSent     FriendStatus = "request_sent"
	FriendStatusRequestReceived FriendStatus = "request_received"
	FriendStatusNone            FriendStatus = "none"
)

// PendingRequest is an inbox entry joined with the sender's profile.
type PendingRequest struct {
	FromID  uint64         `json:"fromId"`
	Request *FriendRequest `json:"request"`
	Profile *Profile       `json:"profile,omitempty"`
}

// SentRequest is an outgoing pending request.
type SentRequest struct {
	ToID    uint64         `json:"toId"`
	Request *FriendRequest `json:"request"`
}
