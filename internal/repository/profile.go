// Package repository maps the domain records onto paths of the transactional
// store. Every operation that touches more than one path does so in exactly
// one store transaction.
package repository

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/store"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	GetByID(ctx context.Context, id uint64) (*models.Profile, error)
	GetIDByExternalID(ctx context.Context, externalID string) (uint64, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Profile, error)
	GetMany(ctx context.Context, ids []uint64) (map[uint64]*models.Profile, error)
	ResolveOrCreate(ctx context.Context, externalID, nicknameHint string, now time.Time) (id uint64, created bool, err error)
	Modify(ctx context.Context, id uint64, fn func(*models.Profile) error) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
}

type profileRepository struct {
	store store.Store
	log   *observability.RepoLogger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(s store.Store) ProfileRepository {
	return &profileRepository{store: s, log: observability.NewRepoLogger(ProfilesRoot)}
}

func (r *profileRepository) GetByID(ctx context.Context, id uint64) (*models.Profile, error) {
	path := ProfilePath(id)
	raw, err := r.store.Get(ctx, path)
	if isAbsent(err) {
		return nil, models.NewNotFoundError("Profile", id)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return decodeProfile(path, raw)
}

func (r *profileRepository) GetIDByExternalID(ctx context.Context, externalID string) (uint64, error) {
	path := IdentityIndexPath(externalID)
	raw, err := r.store.Get(ctx, path)
	if isAbsent(err) {
		return 0, models.NewNotFoundError("Profile", externalID)
	}
	if err != nil {
		return 0, storeError(err)
	}
	return decodeUint(path, raw)
}

func (r *profileRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Profile, error) {
	id, err := r.GetIDByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *profileRepository) GetMany(ctx context.Context, ids []uint64) (map[uint64]*models.Profile, error) {
	paths := make([]string, len(ids))
	for i, id := range ids {
		paths[i] = ProfilePath(id)
	}
	raw, err := r.store.GetMany(ctx, paths)
	if err != nil {
		return nil, storeError(err)
	}
	out := make(map[uint64]*models.Profile, len(raw))
	for i, id := range ids {
		v, ok := raw[paths[i]]
		if !ok {
			continue
		}
		p, err := decodeProfile(paths[i], v)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

// ResolveOrCreate returns the profile ID bound to externalID, creating the
// profile on first sight. The profile record, the index entry and the
// advanced counter are written by one transaction that watches the index
// entry and the counter, so a concurrent first login for the same identity
// forces a retry that finds the winner's entry and returns its ID.
func (r *profileRepository) ResolveOrCreate(ctx context.Context, externalID, nicknameHint string, now time.Time) (uint64, bool, error) {
	id, err := r.GetIDByExternalID(ctx, externalID)
	if err == nil {
		return id, false, nil
	}
	if !models.IsNotFound(err) {
		return 0, false, err
	}

	indexPath := IdentityIndexPath(externalID)
	counterPath := SequenceCounterPath()
	var created bool
	err = r.store.Transact(ctx, []string{indexPath, counterPath}, func(current map[string][]byte) (store.Writes, error) {
		if raw, ok := current[indexPath]; ok {
			existing, err := decodeUint(indexPath, raw)
			if err != nil {
				return nil, err
			}
			id, created = existing, false
			return nil, nil
		}

		next, err := nextSequence(current)
		if err != nil {
			return nil, err
		}
		profile, err := models.NewProfile(next, externalID, nicknameHint, now)
		if err != nil {
			return nil, err
		}
		body, err := encodeJSON(profile)
		if err != nil {
			return nil, err
		}
		id, created = next, true
		return store.Writes{
			ProfilePath(next): body,
			indexPath:         encodeUint(next),
			counterPath:       encodeUint(next),
		}, nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "resolve_or_create")
		return 0, false, storeError(err)
	}
	if created {
		r.log.LogCreate(ctx, slog.Uint64("profile_id", id))
	}
	return id, created, nil
}

// Modify applies fn to the stored profile inside a transaction and writes the
// result back if it still validates.
func (r *profileRepository) Modify(ctx context.Context, id uint64, fn func(*models.Profile) error) (*models.Profile, error) {
	path := ProfilePath(id)
	var updated *models.Profile
	err := r.store.Transact(ctx, []string{path}, func(current map[string][]byte) (store.Writes, error) {
		raw, ok := current[path]
		if !ok {
			return nil, models.NewNotFoundError("Profile", id)
		}
		p, err := decodeProfile(path, raw)
		if err != nil {
			return nil, err
		}
		externalID := p.ExternalID
		if err := fn(p); err != nil {
			return nil, err
		}
		// ID and identity are immutable once assigned.
		p.ID, p.ExternalID = id, externalID
		if err := p.Validate(); err != nil {
			return nil, err
		}
		body, err := encodeJSON(p)
		if err != nil {
			return nil, err
		}
		updated = p
		return store.Writes{path: body}, nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	r.log.LogUpdate(ctx, slog.Uint64("profile_id", id))
	return updated, nil
}

// List returns every profile ordered by ID. The sequence counter shares the
// collection prefix and is skipped.
func (r *profileRepository) List(ctx context.Context) ([]*models.Profile, error) {
	entries, err := r.store.Scan(ctx, store.Prefix(ProfilesRoot))
	if err != nil {
		return nil, storeError(err)
	}
	counterPath := SequenceCounterPath()
	profiles := make([]*models.Profile, 0, len(entries))
	for path, raw := range entries {
		if path == counterPath {
			continue
		}
		p, err := decodeProfile(path, raw)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}
