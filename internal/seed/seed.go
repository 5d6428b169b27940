// Package seed populates a store with fake profiles, friendships and scores
// for development and load testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configuration for the seeder
type Options struct {
	NumProfiles int
	// FriendsPerProfile requests are sent and accepted by each profile.
	FriendsPerProfile int
	// PendingPerProfile requests are sent and left open.
	PendingPerProfile int
	// ScoreChance is the probability that a profile has played a given game.
	ScoreChance float64
}

// DefaultOptions mirrors the flag defaults of cmd/seed.
func DefaultOptions() Options {
	return Options{
		NumProfiles:       50,
		FriendsPerProfile: 3,
		PendingPerProfile: 1,
		ScoreChance:       0.6,
	}
}

// Result counts what a run created.
type Result struct {
	ProfileIDs  []uint64
	Friendships int
	Pending     int
	Scores      int
}

// Seeder drives the services with fake data, so seeded state obeys the same
// invariants as state written through the API.
type Seeder struct {
	profiles *service.ProfileService
	friends  *service.FriendService
	scores   *service.ScoreService
	faker    *gofakeit.Faker
}

// NewSeeder creates a Seeder. seed zero picks a random source.
func NewSeeder(profiles *service.ProfileService, friends *service.FriendService, scores *service.ScoreService, seed int64) *Seeder {
	return &Seeder{
		profiles: profiles,
		friends:  friends,
		scores:   scores,
		faker:    gofakeit.New(seed),
	}
}

// Run seeds profiles, then friendships, then scores.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	ids, err := s.SeedProfiles(ctx, opts.NumProfiles)
	if err != nil {
		return nil, fmt.Errorf("failed to create profiles: %w", err)
	}
	observability.GlobalLogger.InfoContext(ctx, "profiles created", slog.Int("count", len(ids)))

	res := &Result{ProfileIDs: ids}
	res.Friendships, res.Pending, err = s.SeedFriendships(ctx, ids, opts.FriendsPerProfile, opts.PendingPerProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create friendships: %w", err)
	}
	observability.GlobalLogger.InfoContext(ctx, "friendships created",
		slog.Int("friends", res.Friendships), slog.Int("pending", res.Pending))

	res.Scores, err = s.SeedScores(ctx, ids, opts.ScoreChance)
	if err != nil {
		return nil, fmt.Errorf("failed to submit scores: %w", err)
	}
	observability.GlobalLogger.InfoContext(ctx, "scores submitted", slog.Int("count", res.Scores))
	return res, nil
}

// SeedProfiles creates n profiles with fake nicknames and bios.
func (s *Seeder) SeedProfiles(ctx context.Context, n int) ([]uint64, error) {
	ids := make([]uint64, 0, n)
	for range n {
		externalID := "seed|" + s.faker.UUID()
		id, err := s.profiles.ResolveOrCreate(ctx, externalID, s.faker.Username())
		if err != nil {
			return nil, err
		}
		if _, err := s.profiles.UpdateBio(ctx, id, s.faker.Sentence(8), externalID); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// conflict reports errors expected when random pairs repeat.
func conflict(err error) bool {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == models.CodeDuplicateRequest || appErr.Code == models.CodeAlreadyFriends
}

// SeedFriendships sends friends+pending requests from every profile to random
// others and accepts the first friends of them.
func (s *Seeder) SeedFriendships(ctx context.Context, ids []uint64, friends, pending int) (accepted, open int, err error) {
	if len(ids) < 2 {
		return 0, 0, nil
	}
	for _, from := range ids {
		for k := range friends + pending {
			to := ids[s.faker.Number(0, len(ids)-1)]
			if to == from {
				continue
			}
			if _, err := s.friends.SendRequest(ctx, from, to); err != nil {
				if conflict(err) {
					continue
				}
				return accepted, open, err
			}
			if k < friends {
				if err := s.friends.AcceptRequest(ctx, to, from); err != nil {
					return accepted, open, err
				}
				accepted++
				continue
			}
			open++
		}
	}
	return accepted, open, nil
}

// fakeScore draws a plausible value for g.
func (s *Seeder) fakeScore(g models.Game) int64 {
	if g.Policy == models.LowerIsBetter {
		return int64(s.faker.Number(5_000, 600_000))
	}
	return int64(s.faker.Number(1, 500))
}

// SeedScores submits, for each profile, a few attempts at the games it
// played. It returns the number of submissions.
func (s *Seeder) SeedScores(ctx context.Context, ids []uint64, chance float64) (int, error) {
	submitted := 0
	games := s.scores.Games()
	for _, id := range ids {
		for _, g := range games {
			if s.faker.Float64Range(0, 1) >= chance {
				continue
			}
			for range s.faker.Number(1, 3) {
				if _, err := s.scores.SubmitGameScore(ctx, id, g.Key, s.fakeScore(g)); err != nil {
					return submitted, err
				}
				submitted++
			}
		}
	}
	return submitted, nil
}
