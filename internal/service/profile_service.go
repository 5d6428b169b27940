// Package service implements the profile, social graph, score ledger and
// leaderboard operations on top of the repositories.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/repository"
)

// ProfileService provides identity resolution and profile business logic.
type ProfileService struct {
	profiles repository.ProfileRepository
	now      func() time.Time
}

// NewProfileService returns a new ProfileService.
func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles, now: time.Now}
}

// ResolveOrCreate returns the profile ID of externalID, creating the profile
// on first login with a nickname derived from nicknameHint.
func (s *ProfileService) ResolveOrCreate(ctx context.Context, externalID, nicknameHint string) (_ uint64, err error) {
	ctx, end := traced(ctx, "profile", "ResolveOrCreate")
	defer func() { end(err) }()

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return 0, models.NewInvalidIdentityError("External identity is required")
	}
	id, created, err := s.profiles.ResolveOrCreate(ctx, externalID, nicknameHint, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if created {
		observability.ProfilesCreated.Inc()
		observability.GlobalLogger.InfoContext(ctx, "profile created", slog.Uint64("profile_id", id))
	}
	return id, nil
}

// GetProfile returns the profile with id.
func (s *ProfileService) GetProfile(ctx context.Context, id uint64) (*models.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// GetProfileByExternalID returns the profile bound to externalID.
func (s *ProfileService) GetProfileByExternalID(ctx context.Context, externalID string) (*models.Profile, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, models.NewInvalidIdentityError("External identity is required")
	}
	return s.profiles.GetByExternalID(ctx, externalID)
}

// UpdateBio replaces the bio of id. Only the profile's own identity may do so.
func (s *ProfileService) UpdateBio(ctx context.Context, id uint64, bio, callerExternalID string) (*models.Profile, error) {
	return s.profiles.Modify(ctx, id, func(p *models.Profile) error {
		if p.ExternalID != callerExternalID {
			return models.NewPermissionDeniedError("You can only edit your own bio")
		}
		p.Bio = models.TruncateBio(bio)
		return nil
	})
}

// RecordLogin stamps the last login time of id.
func (s *ProfileService) RecordLogin(ctx context.Context, id uint64) (*models.Profile, error) {
	now := s.now().UTC()
	return s.profiles.Modify(ctx, id, func(p *models.Profile) error {
		p.LastLoginAt = now
		return nil
	})
}

// MarkAnnouncementsSeen records that id has seen every announcement up to now.
func (s *ProfileService) MarkAnnouncementsSeen(ctx context.Context, id uint64) (time.Time, error) {
	now := s.now().UTC()
	p, err := s.profiles.Modify(ctx, id, func(p *models.Profile) error {
		p.LastSeenAnnounceAt = now
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return p.LastSeenAnnounceAt, nil
}

// LastSeenAnnouncement returns when id last marked announcements seen. The
// zero time means never.
func (s *ProfileService) LastSeenAnnouncement(ctx context.Context, id uint64) (time.Time, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return p.LastSeenAnnounceAt, nil
}

// IsAdmin reports whether externalID resolves to an admin profile. An unknown
// identity is not an admin.
func (s *ProfileService) IsAdmin(ctx context.Context, externalID string) (bool, error) {
	p, err := s.GetProfileByExternalID(ctx, externalID)
	if models.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.IsAdmin(), nil
}

func (s *ProfileService) requireAdmin(ctx context.Context, callerExternalID string) error {
	admin, err := s.IsAdmin(ctx, callerExternalID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewPermissionDeniedError("Admin role required")
	}
	return nil
}

// UpdateRole changes the role of targetID on behalf of an admin caller.
func (s *ProfileService) UpdateRole(ctx context.Context, callerExternalID string, targetID uint64, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, models.NewInvalidArgumentError("Unknown role")
	}
	if err := s.requireAdmin(ctx, callerExternalID); err != nil {
		return nil, err
	}
	p, err := s.SetRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}
	observability.GlobalLogger.InfoContext(ctx, "profile role changed",
		slog.Uint64("profile_id", targetID),
		slog.String("role", string(role)),
	)
	return p, nil
}

// SetRole changes the role of targetID without a caller check. It backs the
// admin command, which runs with operator privileges.
func (s *ProfileService) SetRole(ctx context.Context, targetID uint64, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, models.NewInvalidArgumentError("Unknown role")
	}
	return s.profiles.Modify(ctx, targetID, func(p *models.Profile) error {
		p.Role = role
		return nil
	})
}

// ListProfiles returns every profile for an admin caller.
func (s *ProfileService) ListProfiles(ctx context.Context, callerExternalID string) ([]*models.Profile, error) {
	if err := s.requireAdmin(ctx, callerExternalID); err != nil {
		return nil, err
	}
	return s.profiles.List(ctx)
}

// ListAdmins returns the profiles carrying the admin role.
func (s *ProfileService) ListAdmins(ctx context.Context) ([]*models.Profile, error) {
	all, err := s.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	admins := make([]*models.Profile, 0)
	for _, p := range all {
		if p.IsAdmin() {
			admins = append(admins, p)
		}
	}
	return admins, nil
}
