package repository

import (
	"context"
	"log/slog"

	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/store"
)

// ScoreRepository defines the interface for score ledger operations
type ScoreRepository interface {
	// Submit stores value as the personal best iff it strictly beats the
	// current one under policy. It returns whether it did and the best value
	// after the call.
	Submit(ctx context.Context, id uint64, gameKey string, value int64, policy models.ScorePolicy) (improved bool, best int64, err error)
	Get(ctx context.Context, id uint64, gameKey string) (value int64, found bool, err error)
	ListGame(ctx context.Context, gameKey string) ([]models.ScoreRecord, error)
}

type scoreRepository struct {
	store store.Store
	log   *observability.RepoLogger
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(s store.Store) ScoreRepository {
	return &scoreRepository{store: s, log: observability.NewRepoLogger(ScoresRoot)}
}

func (r *scoreRepository) Submit(ctx context.Context, id uint64, gameKey string, value int64, policy models.ScorePolicy) (bool, int64, error) {
	scorePath := ScorePath(id, gameKey)
	profilePath := ProfilePath(id)
	var improved bool
	var best int64
	err := r.store.Transact(ctx, []string{scorePath, profilePath}, func(current map[string][]byte) (store.Writes, error) {
		if _, ok := current[profilePath]; !ok {
			return nil, models.NewNotFoundError("Profile", id)
		}
		stored := policy.Baseline()
		if raw, ok := current[scorePath]; ok {
			v, err := decodeInt(scorePath, raw)
			if err != nil {
				return nil, err
			}
			stored = v
		}
		if !policy.Better(value, stored) {
			improved, best = false, stored
			return nil, nil
		}
		improved, best = true, value
		return store.Writes{scorePath: encodeInt(value)}, nil
	})
	if err != nil {
		return false, 0, storeError(err)
	}
	if improved {
		r.log.LogUpdate(ctx, slog.Uint64("profile_id", id), slog.String("game", gameKey), slog.Int64("value", value))
	}
	return improved, best, nil
}

func (r *scoreRepository) Get(ctx context.Context, id uint64, gameKey string) (int64, bool, error) {
	path := ScorePath(id, gameKey)
	raw, err := r.store.Get(ctx, path)
	if isAbsent(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeError(err)
	}
	v, err := decodeInt(path, raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// ListGame scans the whole ledger and keeps the records of gameKey. Entries
// whose path does not parse as scores/{id}/{key} are skipped.
func (r *scoreRepository) ListGame(ctx context.Context, gameKey string) ([]models.ScoreRecord, error) {
	entries, err := r.store.Scan(ctx, store.Prefix(ScoresRoot))
	if err != nil {
		return nil, storeError(err)
	}
	records := make([]models.ScoreRecord, 0)
	for path, raw := range entries {
		segments := store.Split(path)
		if len(segments) != 3 || segments[2] != gameKey {
			continue
		}
		id, ok := parseIDSegment(segments[1])
		if !ok {
			continue
		}
		v, err := decodeInt(path, raw)
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "skipping malformed score record", "path", path, "error", err)
			continue
		}
		records = append(records, models.ScoreRecord{ProfileID: id, GameKey: gameKey, Value: v})
	}
	return records, nil
}
