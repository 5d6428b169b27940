// Command server is the entry point for the arcade API server.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"arcade/internal/bootstrap"
	"arcade/internal/config"
	"arcade/internal/observability"
	"arcade/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Tracing: true, RateLimiter: true})
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg, rt.Store, rt.Redis)
	if err := bootstrap.EnsureDevRootAdmin(ctx, cfg, srv.Profiles()); err != nil {
		_ = rt.Close(context.Background())
		return err
	}
	app := srv.NewApp()

	listenErr := make(chan error, 1)
	go func() {
		observability.GlobalLogger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("store", cfg.StoreDriver),
		)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		observability.GlobalLogger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(err, app.ShutdownWithContext(shutdownCtx), rt.Close(shutdownCtx))
}
