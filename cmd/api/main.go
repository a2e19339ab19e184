package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/vault/internal/api"
	"github.com/dvloznov/vault/internal/app"
	"github.com/dvloznov/vault/internal/config"
	"github.com/dvloznov/vault/internal/jobs"
	"github.com/dvloznov/vault/internal/jobs/inmemory"
	"github.com/dvloznov/vault/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	envFile := flag.String("env", "", ".env file to load (default is ./.env when present)")
	port := flag.String("port", "", "HTTP server port (overrides VAULT_API_PORT)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		boot := logger.New(logger.Options{})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.API.Port = *port
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.API.Token == "" {
		log.Warn().Msg("No API token configured - /api routes are unauthenticated")
	}

	ctx := logger.WithContext(context.Background(), log)

	vaultApp, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open vault")
	}

	tasks, err := vaultApp.Tasks()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure jobs")
	}

	// Start the job queue in background
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)
	if err := jobQueue.Start(workerCtx, tasks.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	go reconcileLoop(workerCtx, jobQueue, cfg.Reconcile.Interval, log)

	handler := api.NewRouter(vaultApp.Vault, vaultApp.Rates, log, api.Options{
		Token:   cfg.API.Token,
		Session: vaultApp.Session,
		Jobs:    &api.JobsOptions{Publisher: jobQueue, Store: jobStore, Tasks: tasks},
	})

	server := &http.Server{
		Addr:         ":" + cfg.API.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.API.Port).Str("remote", cfg.Storage.Remote).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Flush pending remote writes before releasing the stores
	vaultApp.Close(shutdownCtx)

	log.Info().Msg("Server exited")
}

// reconcileLoop enqueues a billing pass on every tick so subscriptions
// advance while the server runs across billing dates.
func reconcileLoop(ctx context.Context, q jobs.Publisher, every time.Duration, log zerolog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.Publish(ctx, &jobs.Job{Type: jobs.JobTypeReconcile}); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Failed to enqueue reconcile job")
			}
		}
	}
}
