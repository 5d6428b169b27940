// Package bootstrap opens the store backend and the shared runtime clients
// selected by configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"arcade/internal/cache"
	"arcade/internal/config"
	"arcade/internal/database"
	"arcade/internal/middleware"
	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/service"
	"arcade/internal/store"
	"arcade/internal/store/memory"
	"arcade/internal/store/redisstore"
	"arcade/internal/store/sqlstore"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	// Tracing installs the OpenTelemetry provider described by the config.
	Tracing bool
	// RateLimiter connects the Redis client used by the per-route limits.
	RateLimiter bool
}

// Runtime holds the process-wide resources opened at startup.
type Runtime struct {
	Store store.Store
	// Redis backs the rate limiter. It is nil when Redis is unreachable.
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// RetryConfig derives the transaction retry bounds from cfg.
func RetryConfig(cfg *config.Config) store.RetryConfig {
	rc := store.DefaultRetryConfig()
	if cfg.StoreTxMaxRetries > 0 {
		rc.MaxTries = uint(cfg.StoreTxMaxRetries)
	}
	return rc
}

// OpenStore connects the backend named by cfg.StoreDriver. For the redis
// driver the returned client is the one the store uses.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, *redis.Client, error) {
	retry := RetryConfig(cfg)

	switch cfg.StoreDriver {
	case config.DriverRedis:
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis store connection failed: %w", err)
		}
		st := redisstore.New(client,
			redisstore.WithKeyPrefix(cfg.RedisKeyPrefix),
			redisstore.WithRetry(retry),
			redisstore.WithOwnedConnection(),
		)
		return st, client, nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		st := sqlstore.New(db, sqlstore.WithRetry(retry), sqlstore.WithOwnedConnection())
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, nil, fmt.Errorf("store migration failed: %w", err)
		}
		return st, nil, nil

	case config.DriverMemory:
		return memory.New(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// InitRuntime configures logging, then opens the store and, if requested,
// tracing and the rate limiter client.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	logger := middleware.NewLogger(cfg.Env, os.Stdout)
	middleware.Logger = logger
	observability.SetLogger(logger)

	rt := &Runtime{}
	if opts.Tracing {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "arcade-api",
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TracingSamplerRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	st, storeClient, err := OpenStore(ctx, cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Store = st

	if opts.RateLimiter {
		switch {
		case storeClient != nil:
			cache.SetClient(storeClient)
		case cfg.RedisURL != "":
			cache.InitRedis(cfg.RedisURL)
		}
		rt.Redis = cache.GetClient()
	}

	observability.GlobalLogger.InfoContext(ctx, "runtime initialized",
		slog.String("store", cfg.StoreDriver),
		slog.Bool("rate_limiter", rt.Redis != nil),
	)
	return rt, nil
}

// Close releases the store, the rate limiter client and the tracer provider.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	// With the redis driver the store has already closed the shared client.
	if r.Redis != nil && r.Store != nil && !sharesClient(r.Store) {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

func sharesClient(st store.Store) bool {
	_, ok := st.(*redisstore.Store)
	return ok
}

// EnsureDevRootAdmin promotes the profile of cfg.DevRootExternalID to admin,
// creating it if needed. It only acts in development.
func EnsureDevRootAdmin(ctx context.Context, cfg *config.Config, profiles *service.ProfileService) error {
	if cfg == nil || profiles == nil || !cfg.IsDevelopment() {
		return nil
	}
	externalID := strings.TrimSpace(cfg.DevRootExternalID)
	if externalID == "" {
		return nil
	}

	id, err := profiles.ResolveOrCreate(ctx, externalID, "root")
	if err != nil {
		return fmt.Errorf("resolve root profile: %w", err)
	}
	if _, err := profiles.SetRole(ctx, id, models.RoleAdmin); err != nil {
		return fmt.Errorf("promote root profile: %w", err)
	}
	observability.GlobalLogger.InfoContext(ctx, "development root admin ensured", slog.Uint64("profile_id", id))
	return nil
}
