package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(KeyConfigFile, "")
	t.Setenv(KeyLocalBackend, "")
	t.Setenv(KeySyncDebounce, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Local != LocalBolt || cfg.Storage.Remote != RemoteNone {
		t.Errorf("backends = %s/%s", cfg.Storage.Local, cfg.Storage.Remote)
	}
	if cfg.Sync.Debounce != time.Second || cfg.Rates.TTL != time.Hour {
		t.Errorf("durations = %s/%s", cfg.Sync.Debounce, cfg.Rates.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.yaml")
	yamlDoc := `
storage:
  local: sqlite
  remote: mongo
  mongoUri: mongodb://yaml
sync:
  debounce: 3s
discord:
  channelId: "123"
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(KeyConfigFile, path)
	t.Setenv(KeyMongoURI, "mongodb://env")
	t.Setenv(KeyLocalBackend, "")
	t.Setenv(KeyRemoteBackend, "")
	t.Setenv(KeySyncDebounce, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Local != LocalSQLite {
		t.Errorf("local = %s, want sqlite from yaml", cfg.Storage.Local)
	}
	if cfg.Storage.MongoURI != "mongodb://env" {
		t.Errorf("mongo uri = %s, want env override", cfg.Storage.MongoURI)
	}
	if cfg.Sync.Debounce != 3*time.Second {
		t.Errorf("debounce = %s, want 3s", cfg.Sync.Debounce)
	}
	if cfg.Discord.ChannelID != "123" {
		t.Errorf("channel = %q", cfg.Discord.ChannelID)
	}
	if got := cfg.LocalPath(); filepath.Base(got) != "vault.sqlite" {
		t.Errorf("LocalPath() = %s", got)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv(KeyConfigFile, "")
	t.Setenv(KeyRatesTTL, "soon")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject an unparsable duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "mongo without uri", mutate: func(c *Config) { c.Storage.Remote = RemoteMongo }, wantErr: ErrMissing},
		{name: "gcs with bucket", mutate: func(c *Config) { c.Storage.Remote = RemoteGCS; c.Storage.GCSBucket = "b" }},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Storage.Remote = RemoteGCS }, wantErr: ErrMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	cfg := Default()
	cfg.Storage.Local = "floppy"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject an unknown local backend")
	}
}

func TestRequire(t *testing.T) {
	cfg := Default()
	cfg.BigQuery.Project = "p"

	if err := cfg.Require(KeyBQProject, KeyBQDataset); err != nil {
		t.Errorf("Require() error = %v", err)
	}
	if err := cfg.Require(KeyDiscordToken, KeyDiscordChannel); !errors.Is(err, ErrMissing) {
		t.Errorf("Require() error = %v, want ErrMissing", err)
	}
}
