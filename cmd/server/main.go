package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"vistoria/internal/app/server/api"
	"vistoria/internal/app/server/config"
	"vistoria/internal/app/server/metrics"
	"vistoria/internal/infrastructure/storage/blob"
	"vistoria/internal/infrastructure/storage/postgres"
	"vistoria/internal/utils/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.NewWithLevel(cfg.Env, cfg.Logger.LogLevel)
	log.Info("starting vistoria sync server", slog.String("env", cfg.Env), slog.String("address", cfg.Server.RunAddress))

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.New(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer storage.Close()

	blobs, err := blob.NewFSStore(cfg.Photos.Dir, cfg.Photos.PublicURL, log)
	if err != nil {
		return err
	}

	router := api.New(cfg, api.Deps{
		Repo:    postgres.NewSyncRepository(storage.Pool(), log),
		Blobs:   blobs,
		DB:      storage,
		Metrics: metrics.New(),
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
