package service

import (
	"context"
	"sort"

	"arcade/internal/models"
	"arcade/internal/repository"
)

// AnonymousNickname is shown for ledger entries whose profile is missing.
const AnonymousNickname = "匿名用户"

const (
	DefaultLeaderboardLimit = 5
	MaxLeaderboardLimit     = 100
)

// LeaderboardService ranks the score ledger. It never writes.
type LeaderboardService struct {
	scoreRepo    repository.ScoreRepository
	profileRepo  repository.ProfileRepository
	catalog      models.GameCatalog
	defaultLimit int
	maxLimit     int
}

// NewLeaderboardService returns a new LeaderboardService. Non-positive limits
// fall back to the package defaults.
func NewLeaderboardService(scoreRepo repository.ScoreRepository, profileRepo repository.ProfileRepository, catalog models.GameCatalog, defaultLimit, maxLimit int) *LeaderboardService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLeaderboardLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = max(MaxLeaderboardLimit, defaultLimit)
	}
	return &LeaderboardService{
		scoreRepo:    scoreRepo,
		profileRepo:  profileRepo,
		catalog:      catalog,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (s *LeaderboardService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	return min(limit, s.maxLimit)
}

// Top ranks gameKey with the policy the catalog assigns to it.
func (s *LeaderboardService) Top(ctx context.Context, gameKey string, limit int) ([]models.LeaderboardEntry, error) {
	game, err := s.catalog.Lookup(gameKey)
	if err != nil {
		return nil, err
	}
	return s.Rank(ctx, gameKey, limit, game.Policy)
}

// Rank returns the leaderboard of gameKey under policy.
func (s *LeaderboardService) Rank(ctx context.Context, gameKey string, limit int, policy models.ScorePolicy) (_ []models.LeaderboardEntry, err error) {
	ctx, end := traced(ctx, "leaderboard", "Rank")
	defer func() { end(err) }()

	if err = models.ValidateGameKey(gameKey); err != nil {
		return nil, err
	}
	if !policy.Valid() {
		return nil, models.NewInvalidArgumentError("Unknown score policy")
	}
	limit = s.clampLimit(limit)

	records, err := s.scoreRepo.ListGame(ctx, gameKey)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	// Rank first so only the window needs nicknames.
	entries := make([]models.LeaderboardEntry, len(records))
	for i, r := range records {
		entries[i] = models.LeaderboardEntry{ProfileID: r.ProfileID, Value: r.Value}
	}
	ranked := RankEntries(entries, limit, policy)

	ids := make([]uint64, len(ranked))
	for i, e := range ranked {
		ids[i] = e.ProfileID
	}
	profiles, err := s.profileRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range ranked {
		if p, ok := profiles[ranked[i].ProfileID]; ok && p.Nickname != "" {
			ranked[i].Nickname = p.Nickname
		} else {
			ranked[i].Nickname = AnonymousNickname
		}
	}
	return ranked, nil
}

// RankEntries sorts entries best-first under policy, assigns competition
// ranks (1, 1, 3) and keeps the first limit entries plus every entry tied
// with the last one kept, never more than 2*limit. Equal values are ordered
// by profile ID. A non-positive limit yields no entries.
func RankEntries(entries []models.LeaderboardEntry, limit int, policy models.ScorePolicy) []models.LeaderboardEntry {
	if limit <= 0 || len(entries) == 0 {
		return []models.LeaderboardEntry{}
	}
	sorted := make([]models.LeaderboardEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Value != b.Value {
			return policy.Better(a.Value, b.Value)
		}
		return a.ProfileID < b.ProfileID
	})

	for i := range sorted {
		if i > 0 && sorted[i].Value == sorted[i-1].Value {
			sorted[i].Rank = sorted[i-1].Rank
		} else {
			sorted[i].Rank = i + 1
		}
	}

	if len(sorted) <= limit {
		return sorted
	}
	cut := limit
	boundary := sorted[limit-1].Value
	for cut < len(sorted) && sorted[cut].Value == boundary {
		cut++
	}
	cut = min(cut, 2*limit)
	return sorted[:cut]
}
