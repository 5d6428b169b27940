// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"
)

// ProfileRecordVersion is the current on-store schema version of Profile.
const ProfileRecordVersion = 1

const (
	// MaxNicknameLength is the nickname cap in characters.
	MaxNicknameLength = 12
	// MaxBioLength is the bio cap in characters.
	MaxBioLength = 200
)

// Role is the privilege level of a profile.
type Role string

const (
	// RoleUser is the default role.
	RoleUser Role = "user"
	// RoleAdmin may change roles and list all profiles.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Profile is the record stored at profiles/{id}.
type Profile struct {
	Version            int       `json:"v"`
	ID                 uint64    `json:"id"`
	ExternalID         string    `json:"externalId"`
	Nickname           string    `json:"nickname"`
	Bio                string    `json:"bio"`
	Role               Role      `json:"role"`
	CreatedAt          time.Time `json:"createdAt"`
	LastLoginAt        time.Time `json:"lastLoginAt"`
	LastSeenAnnounceAt time.Time `json:"lastSeenAnnounceAt"`
}

// NewProfile builds a fresh profile for a first login.
func NewProfile(id uint64, externalID, nicknameHint string, now time.Time) (*Profile, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, NewInvalidIdentityError("External identity is required")
	}
	p := &Profile{
		Version:     ProfileRecordVersion,
		ID:          id,
		ExternalID:  externalID,
		Nickname:    SanitizeNickname(nicknameHint),
		Role:        RoleUser,
		CreatedAt:   now,
		LastLoginAt: now,
	}
	return p, p.Validate()
}

// Validate checks the record invariants.
func (p *Profile) Validate() error {
	if p.ID == 0 {
		return NewInvalidArgumentError("Profile ID must be positive")
	}
	if p.ExternalID == "" {
		return NewInvalidIdentityError("External identity is required")
	}
	if utf8.RuneCountInString(p.Nickname) > MaxNicknameLength {
		return NewInvalidArgumentError(fmt.Sprintf("Nickname too long (max %d characters)", MaxNicknameLength))
	}
	if utf8.RuneCountInString(p.Bio) > MaxBioLength {
		return NewInvalidArgumentError(fmt.Sprintf("Bio too long (max %d characters)", MaxBioLength))
	}
	if !p.Role.Valid() {
		return NewInvalidArgumentError("Unknown role")
	}
	return nil
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// SanitizeNickname trims the hint, caps it at MaxNicknameLength characters and
// strips angle brackets. An empty result is replaced by a generated name.
func SanitizeNickname(hint string) string {
	name := truncateRunes(strings.TrimSpace(hint), MaxNicknameLength)
	name = strings.NewReplacer("<", "", ">", "").Replace(name)
	if strings.TrimSpace(name) == "" {
		return fmt.Sprintf("用户%d", rand.IntN(10000))
	}
	return name
}

// TruncateBio caps a bio at MaxBioLength characters.
func TruncateBio(bio string) string {
	return truncateRunes(bio, MaxBioLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
