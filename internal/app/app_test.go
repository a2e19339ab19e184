package app

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/vault/internal/config"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/jobs"
	"github.com/rs/zerolog"
)

func testConfig(t *testing.T, local, remote string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.Local = local
	cfg.Storage.Remote = remote
	return cfg
}

func TestOpen_LocalBackendsPersist(t *testing.T) {
	for _, backend := range []string{config.LocalBolt, config.LocalSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend, config.RemoteNone)

			a, err := Open(ctx, cfg, zerolog.Nop())
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if _, err := a.Vault.AddAccount(domain.Account{Name: "Wallet"}); err != nil {
				t.Fatalf("AddAccount() error = %v", err)
			}
			a.Close(ctx)

			reopened, err := Open(ctx, cfg, zerolog.Nop())
			if err != nil {
				t.Fatalf("reopen error = %v", err)
			}
			defer reopened.Close(ctx)
			if got := reopened.Vault.Accounts(); len(got) != 1 || got[0].Name != "Wallet" {
				t.Errorf("accounts after reopen = %+v", got)
			}
		})
	}
}

func TestOpen_SignsInConfiguredUser(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.LocalMemory, config.RemoteMemory)
	cfg.Sync.UserID = "u1"

	a, err := Open(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer a.Close(ctx)

	if u := a.Vault.User(); u == nil || u.ID != "u1" {
		t.Errorf("vault user = %+v, want u1", u)
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "floppy", config.RemoteNone)
	if _, err := Open(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Error("Open() with an unknown local backend should fail")
	}
}

func TestIntegrationsRequireSettings(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig(t, config.LocalMemory, config.RemoteNone), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(ctx)

	if _, _, err := a.Notifier(); !errors.Is(err, config.ErrMissing) {
		t.Errorf("Notifier() error = %v, want ErrMissing", err)
	}
	a.Config.BigQuery.Dataset = ""
	if _, err := a.Exporter(ctx); !errors.Is(err, config.ErrMissing) {
		t.Errorf("Exporter() error = %v, want ErrMissing", err)
	}
}

func TestTasks_RegistersConfiguredIntegrations(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.LocalMemory, config.RemoteNone)
	a, err := Open(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(ctx)

	tasks, err := a.Tasks()
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	for _, typ := range []jobs.JobType{jobs.JobTypeReconcile, jobs.JobTypeFlush} {
		if _, ok := tasks[typ]; !ok {
			t.Errorf("missing task %s", typ)
		}
	}
	for _, typ := range []jobs.JobType{jobs.JobTypeRemind, jobs.JobTypeExportBigQuery} {
		if _, ok := tasks[typ]; ok {
			t.Errorf("task %s registered without configuration", typ)
		}
	}
	if err := tasks[jobs.JobTypeReconcile](ctx); err != nil {
		t.Errorf("reconcile task error = %v", err)
	}

	cfg.Discord.BotToken = "token"
	cfg.Discord.ChannelID = "chan"
	tasks, err = a.Tasks()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tasks[jobs.JobTypeRemind]; !ok {
		t.Error("remind task not registered with Discord configured")
	}
}
