package service

import (
	"context"
	"log/slog"
	"strconv"

	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/repository"
)

// ScoreService provides personal-best bookkeeping for the game catalog.
type ScoreService struct {
	scoreRepo repository.ScoreRepository
	catalog   models.GameCatalog
}

// NewScoreService returns a new ScoreService.
func NewScoreService(scoreRepo repository.ScoreRepository, catalog models.GameCatalog) *ScoreService {
	return &ScoreService{scoreRepo: scoreRepo, catalog: catalog}
}

// Games returns the catalog ordered by key.
func (s *ScoreService) Games() []models.Game {
	return s.catalog.List()
}

// Submission is the outcome of one score submission. Best is the personal
// best after the write, read in the same transaction.
type Submission struct {
	Improved bool
	Best     int64
}

// Submit stores value for (id, gameKey) if it strictly beats the personal
// best under policy.
func (s *ScoreService) Submit(ctx context.Context, id uint64, gameKey string, value int64, policy models.ScorePolicy) (_ Submission, err error) {
	ctx, end := traced(ctx, "score", "SubmitScore")
	defer func() { end(err) }()

	if err = models.ValidateGameKey(gameKey); err != nil {
		return Submission{}, err
	}
	if !policy.Valid() {
		err = models.NewInvalidArgumentError("Unknown score policy")
		return Submission{}, err
	}
	if policy == models.LowerIsBetter && value < 0 {
		err = models.NewInvalidArgumentError("Elapsed time cannot be negative")
		return Submission{}, err
	}

	improved, best, err := s.scoreRepo.Submit(ctx, id, gameKey, value, policy)
	if err != nil {
		return Submission{}, err
	}
	observability.ScoreSubmissions.WithLabelValues(gameKey, strconv.FormatBool(improved)).Inc()
	if improved {
		observability.GlobalLogger.InfoContext(ctx, "personal best improved",
			slog.Uint64("profile_id", id),
			slog.String("game", gameKey),
			slog.Int64("value", best),
		)
	}
	return Submission{Improved: improved, Best: best}, nil
}

// SubmitScore is Submit reporting only whether the personal best improved.
func (s *ScoreService) SubmitScore(ctx context.Context, id uint64, gameKey string, value int64, policy models.ScorePolicy) (bool, error) {
	sub, err := s.Submit(ctx, id, gameKey, value, policy)
	return sub.Improved, err
}

// SubmitToGame is Submit with the policy the catalog assigns to gameKey.
func (s *ScoreService) SubmitToGame(ctx context.Context, id uint64, gameKey string, value int64) (Submission, error) {
	game, err := s.catalog.Lookup(gameKey)
	if err != nil {
		return Submission{}, err
	}
	return s.Submit(ctx, id, gameKey, value, game.Policy)
}

// SubmitGameScore is SubmitScore with the policy the catalog assigns to gameKey.
func (s *ScoreService) SubmitGameScore(ctx context.Context, id uint64, gameKey string, value int64) (bool, error) {
	sub, err := s.SubmitToGame(ctx, id, gameKey, value)
	return sub.Improved, err
}

// GetPersonalBest returns the stored best of (id, gameKey). found is false
// when nothing was submitted yet.
func (s *ScoreService) GetPersonalBest(ctx context.Context, id uint64, gameKey string) (value int64, found bool, err error) {
	if err := models.ValidateGameKey(gameKey); err != nil {
		return 0, false, err
	}
	return s.scoreRepo.Get(ctx, id, gameKey)
}
