// Command seed fills the configured store with fake arcade data.
package main

import (
	"context"
	"flag"
	"log"

	"arcade/internal/bootstrap"
	"arcade/internal/config"
	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/repository"
	"arcade/internal/seed"
	"arcade/internal/service"
	"arcade/internal/store"
)

func main() {
	defaults := seed.DefaultOptions()
	numProfiles := flag.Int("profiles", defaults.NumProfiles, "Number of profiles to create")
	friends := flag.Int("friends", defaults.FriendsPerProfile, "Accepted friend requests sent per profile")
	pending := flag.Int("pending", defaults.PendingPerProfile, "Open friend requests sent per profile")
	scoreChance := flag.Float64("score-chance", defaults.ScoreChance, "Probability that a profile played a given game")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	logWrites := flag.Bool("log-writes", false, "Log every repository write")
	flag.Parse()
	observability.RepoLogging = *logWrites

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StoreDriver == config.DriverMemory {
		log.Fatal("Seeding the memory store is pointless; set STORE_DRIVER to a persistent backend")
	}

	ctx := observability.WithCorrelationID(context.Background(), observability.GenerateCorrelationID())
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	log.Printf("Target: %d profiles, %d friends and %d pending requests each", *numProfiles, *friends, *pending)
	res, err := seedStore(ctx, rt.Store, *randSeed, seed.Options{
		NumProfiles:       *numProfiles,
		FriendsPerProfile: *friends,
		PendingPerProfile: *pending,
		ScoreChance:       *scoreChance,
	})
	if err != nil {
		_ = rt.Close(ctx)
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Done: %d profiles, %d friendships, %d pending requests, %d scores",
		len(res.ProfileIDs), res.Friendships, res.Pending, res.Scores)
}

// seedStore runs the seeder over the services built on st.
func seedStore(ctx context.Context, st store.Store, randSeed int64, opts seed.Options) (*seed.Result, error) {
	profileRepo := repository.NewProfileRepository(st)
	seeder := seed.NewSeeder(
		service.NewProfileService(profileRepo),
		service.NewFriendService(repository.NewFriendRepository(st), profileRepo),
		service.NewScoreService(repository.NewScoreRepository(st), models.DefaultGameCatalog()),
		randSeed,
	)
	return seeder.Run(ctx, opts)
}
