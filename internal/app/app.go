// Package app assembles a vault and its integrations from configuration.
// The binaries under cmd/ share it so every surface sees the same wiring.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/vault/internal/auth"
	"github.com/dvloznov/vault/internal/categorize"
	"github.com/dvloznov/vault/internal/config"
	bq "github.com/dvloznov/vault/internal/infra/bigquery"
	"github.com/dvloznov/vault/internal/jobs"
	"github.com/dvloznov/vault/internal/logger"
	"github.com/dvloznov/vault/internal/notify"
	"github.com/dvloznov/vault/internal/rates"
	"github.com/dvloznov/vault/internal/storage"
	"github.com/dvloznov/vault/internal/storage/bolt"
	"github.com/dvloznov/vault/internal/storage/gcs"
	"github.com/dvloznov/vault/internal/storage/memory"
	"github.com/dvloznov/vault/internal/storage/mongo"
	"github.com/dvloznov/vault/internal/storage/sqlite"
	"github.com/dvloznov/vault/internal/syncer"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/rs/zerolog"
)

// connectTimeout bounds the initial remote store connection.
const connectTimeout = 10 * time.Second

// App is a loaded vault with its session and rate provider.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Vault   *vault.Vault
	Session *auth.Session
	Rates   rates.Provider
	KV      storage.KeyValue

	closers []func() error
	unbind  func()
}

// Open builds the local and remote stores, loads the vault and, when a user
// id is configured, signs that user in.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	a := &App{Config: cfg, Log: log}

	kv, err := a.openLocal()
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.KV = kv

	remote, err := a.openRemote(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	local := storage.NewLocalAdapter(kv, logger.Component(log, "local"))
	var orch *syncer.Orchestrator
	if remote != nil {
		orch = syncer.New(local, remote, logger.Component(log, "sync"), syncer.WithDebounce(cfg.Sync.Debounce))
	} else {
		orch = syncer.New(local, nil, logger.Component(log, "sync"), syncer.WithDebounce(cfg.Sync.Debounce))
	}

	a.Vault = vault.New(orch, logger.Component(log, "vault"))
	if err := a.Vault.Load(); err != nil {
		orch.Close()
		a.closeAll()
		return nil, err
	}

	a.Rates = rates.NewHTTPProvider(cfg.Rates.URL,
		rates.WithCache(kv),
		rates.WithTTL(cfg.Rates.TTL),
		rates.WithLogger(logger.Component(log, "rates")),
	)

	a.Session = auth.NewSession()
	a.unbind = a.Vault.Bind(ctx, a.Session)
	if cfg.Sync.UserID != "" {
		if err := a.Session.Login(ctx, auth.User{ID: cfg.Sync.UserID}); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("Open: signing in: %w", err)
		}
	}
	return a, nil
}

// Close flushes pending writes and releases every backend.
func (a *App) Close(ctx context.Context) {
	if a.unbind != nil {
		a.unbind()
	}
	if a.Vault != nil {
		a.Vault.Close(ctx)
	}
	a.closeAll()
}

// Notifier creates a Discord notifier. The returned function closes the
// bot session.
func (a *App) Notifier() (*notify.Notifier, func() error, error) {
	if err := a.Config.Require(config.KeyDiscordToken, config.KeyDiscordChannel); err != nil {
		return nil, nil, err
	}
	n, session, err := notify.NewDiscord(a.Config.Discord.BotToken, a.Config.Discord.ChannelID, logger.Component(a.Log, "notify"))
	if err != nil {
		return nil, nil, err
	}
	return n, session.Close, nil
}

// Suggester creates a Gemini-backed category suggester.
func (a *App) Suggester(ctx context.Context) (*categorize.Suggester, error) {
	model, err := categorize.NewGeminiModel(ctx, a.Config.Gemini.Model)
	if err != nil {
		return nil, err
	}
	return categorize.NewSuggester(model, logger.Component(a.Log, "categorize")), nil
}

// Exporter connects to the configured BigQuery dataset.
func (a *App) Exporter(ctx context.Context) (*bq.Exporter, error) {
	if err := a.Config.Require(config.KeyBQProject, config.KeyBQDataset); err != nil {
		return nil, err
	}
	return bq.Open(ctx, a.Config.BigQuery.Project, a.Config.BigQuery.Dataset, logger.Component(a.Log, "bigquery"))
}

// Tasks returns the maintenance jobs this configuration supports. Reminder
// and export jobs are registered only when Discord or BigQuery is configured.
func (a *App) Tasks() (jobs.Tasks, error) {
	tasks := jobs.Tasks{
		jobs.JobTypeReconcile: func(ctx context.Context) error {
			if a.Vault.ReconcileSubscriptions() {
				a.Log.Info().Msg("subscription billing dates advanced")
			}
			return nil
		},
		jobs.JobTypeFlush: func(ctx context.Context) error {
			return a.Vault.Flush(ctx)
		},
	}

	if a.Config.Require(config.KeyDiscordToken, config.KeyDiscordChannel) == nil {
		n, closeFn, err := a.Notifier()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeFn)
		tasks[jobs.JobTypeRemind] = func(ctx context.Context) error {
			_, err := n.Remind(ctx, notify.Build(a.Vault))
			return err
		}
	}

	if a.Config.Require(config.KeyBQProject) == nil {
		tasks[jobs.JobTypeExportBigQuery] = func(ctx context.Context) error {
			exporter, err := a.Exporter(ctx)
			if err != nil {
				return err
			}
			defer exporter.Close()

			userID := "local"
			if u := a.Vault.User(); u != nil {
				userID = u.ID
			}
			_, err = exporter.Export(ctx, userID, a.Vault.Snapshot())
			return err
		}
	}
	return tasks, nil
}

func (a *App) openLocal() (storage.KeyValue, error) {
	cfg := a.Config
	if cfg.Storage.Local == config.LocalMemory {
		return memory.NewKV(), nil
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("openLocal: creating data dir: %w", err)
	}

	switch cfg.Storage.Local {
	case config.LocalSQLite:
		db, err := sqlite.Open(cfg.LocalPath())
		if err != nil {
			return nil, fmt.Errorf("openLocal: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	default:
		db, err := bolt.Open(cfg.LocalPath())
		if err != nil {
			return nil, fmt.Errorf("openLocal: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	}
}

// openRemote returns nil when no remote backend is configured.
func (a *App) openRemote(ctx context.Context) (*storage.RemoteAdapter, error) {
	cfg := a.Config
	log := logger.Component(a.Log, "remote")

	var store storage.DocumentStore
	switch cfg.Storage.Remote {
	case config.RemoteMemory:
		store = memory.NewDocumentStore()
	case config.RemoteMongo:
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		client, err := mongo.Connect(cctx, cfg.Storage.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("openRemote: %w", err)
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		store = mongo.NewFromClient(client, cfg.Storage.MongoDatabase)
	case config.RemoteGCS:
		s, closeFn, err := gcs.Open(ctx, cfg.Storage.GCSBucket, log)
		if err != nil {
			return nil, fmt.Errorf("openRemote: %w", err)
		}
		a.closers = append(a.closers, closeFn)
		store = s
	default:
		return nil, nil
	}

	a.Log.Info().Str("backend", cfg.Storage.Remote).Msg("remote store ready")
	return storage.NewRemoteAdapter(store, log), nil
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn().Err(err).Msg("closing backend")
		}
	}
	a.closers = nil
}
