package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/vault/internal/app"
	"github.com/dvloznov/vault/internal/config"
	"github.com/dvloznov/vault/internal/jobs"
	"github.com/dvloznov/vault/internal/jobs/inmemory"
	"github.com/dvloznov/vault/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	envFile := flag.String("env", "", ".env file to load (default is ./.env when present)")
	once := flag.Bool("once", false, "run every configured job once and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		boot := logger.New(logger.Options{})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	vaultApp, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open vault")
	}

	tasks, err := vaultApp.Tasks()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure jobs")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.WithWorkers(1))
	if err := jobQueue.Start(ctx, tasks.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	enqueue := func() { enqueueRound(ctx, jobQueue, tasks, log) }

	log.Info().
		Dur("interval", cfg.Reconcile.Interval).
		Int("tasks", len(tasks)).
		Msg("Worker service started")
	enqueue()

	if *once {
		waitIdle(ctx, jobStore)
	} else {
		ticker := time.NewTicker(cfg.Reconcile.Interval)
		defer ticker.Stop()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	loop:
		for {
			select {
			case <-ticker.C:
				enqueue()
			case <-quit:
				break loop
			}
		}
	}

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()
	vaultApp.Close(shutdownCtx)

	log.Info().Msg("Worker service exited")
}

// roundOrder runs reconcile first so reminders see current billing dates,
// and flush last so the round's changes reach the remote store.
var roundOrder = []jobs.JobType{jobs.JobTypeReconcile, jobs.JobTypeRemind, jobs.JobTypeExportBigQuery, jobs.JobTypeFlush}

// enqueueRound publishes one job for every configured task type and returns
// how many were queued.
func enqueueRound(ctx context.Context, pub jobs.Publisher, tasks jobs.Tasks, log zerolog.Logger) int {
	queued := 0
	for _, typ := range roundOrder {
		if _, ok := tasks[typ]; !ok {
			continue
		}
		if err := pub.Publish(ctx, &jobs.Job{Type: typ}); err != nil {
			log.Error().Err(err).Str("job_type", string(typ)).Msg("Failed to enqueue job")
			continue
		}
		queued++
	}
	return queued
}

// waitIdle blocks until no job is pending, running or waiting for a retry.
func waitIdle(ctx context.Context, store jobs.Store) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		busy := false
		for _, status := range []jobs.JobStatus{jobs.JobStatusPending, jobs.JobStatusRunning, jobs.JobStatusRetrying} {
			list, err := store.ListJobs(ctx, jobs.Filter{Status: status, Limit: 1})
			if err == nil && len(list) > 0 {
				busy = true
			}
		}
		if !busy {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
