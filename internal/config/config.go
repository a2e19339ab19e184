// Package config loads the vault configuration from the environment, an
// optional .env file and an optional YAML file named by VAULT_CONFIG.
// Environment variables take precedence over the YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissing is returned when a required setting is empty.
var ErrMissing = errors.New("missing required configuration")

// Environment keys.
const (
	KeyLogLevel          = "VAULT_LOG_LEVEL"
	KeyLogFormat         = "VAULT_LOG_FORMAT"
	KeyDataDir           = "VAULT_DATA_DIR"
	KeyLocalBackend      = "VAULT_LOCAL_BACKEND"
	KeyRemoteBackend     = "VAULT_REMOTE_BACKEND"
	KeyMongoURI          = "VAULT_MONGO_URI"
	KeyMongoDatabase     = "VAULT_MONGO_DATABASE"
	KeyGCSBucket         = "VAULT_GCS_BUCKET"
	KeyUserID            = "VAULT_USER_ID"
	KeySyncDebounce      = "VAULT_SYNC_DEBOUNCE"
	KeyRatesURL          = "VAULT_RATES_URL"
	KeyRatesTTL          = "VAULT_RATES_TTL"
	KeyBQProject         = "VAULT_BQ_PROJECT"
	KeyBQDataset         = "VAULT_BQ_DATASET"
	KeyGeminiModel       = "VAULT_GEMINI_MODEL"
	KeyDiscordToken      = "DISCORD_BOT_TOKEN"
	KeyDiscordChannel    = "DISCORD_CHANNEL_ID"
	KeyAPIPort           = "VAULT_API_PORT"
	KeyAPIToken          = "VAULT_API_TOKEN"
	KeyReconcileInterval = "VAULT_RECONCILE_INTERVAL"
	KeyConfigFile        = "VAULT_CONFIG"
)

// Local backends.
const (
	LocalBolt   = "bolt"
	LocalSQLite = "sqlite"
	LocalMemory = "memory"
)

// Remote backends.
const (
	RemoteNone   = "none"
	RemoteMongo  = "mongo"
	RemoteGCS    = "gcs"
	RemoteMemory = "memory"
)

// Config is the complete runtime configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Sync      SyncConfig      `yaml:"sync"`
	Rates     RatesConfig     `yaml:"rates"`
	BigQuery  BigQueryConfig  `yaml:"bigquery"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Discord   DiscordConfig   `yaml:"discord"`
	API       APIConfig       `yaml:"api"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StorageConfig struct {
	DataDir       string `yaml:"dataDir"`
	Local         string `yaml:"local"`
	Remote        string `yaml:"remote"`
	MongoURI      string `yaml:"mongoUri"`
	MongoDatabase string `yaml:"mongoDatabase"`
	GCSBucket     string `yaml:"gcsBucket"`
}

type SyncConfig struct {
	UserID   string        `yaml:"userId"`
	Debounce time.Duration `yaml:"debounce"`
}

type RatesConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

type BigQueryConfig struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
}

type GeminiConfig struct {
	Model string `yaml:"model"`
}

type DiscordConfig struct {
	BotToken  string `yaml:"botToken"`
	ChannelID string `yaml:"channelId"`
}

type APIConfig struct {
	Port string `yaml:"port"`
	// Token is the bearer token required on /api routes. Empty disables auth.
	Token string `yaml:"token"`
}

type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: "info", Format: "console"},
		Storage:   StorageConfig{DataDir: ".vault", Local: LocalBolt, Remote: RemoteNone, MongoDatabase: "vault"},
		Sync:      SyncConfig{Debounce: time.Second},
		Rates:     RatesConfig{URL: "https://open.er-api.com/v6/latest", TTL: time.Hour},
		BigQuery:  BigQueryConfig{Dataset: "vault"},
		Gemini:    GeminiConfig{Model: "gemini-2.5-flash"},
		API:       APIConfig{Port: "8080"},
		Reconcile: ReconcileConfig{Interval: time.Hour},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded when present; pass envPath to require a specific one.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()
	if path := os.Getenv(KeyConfigFile); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Log.Level, KeyLogLevel)
	setString(&c.Log.Format, KeyLogFormat)
	setString(&c.Storage.DataDir, KeyDataDir)
	setString(&c.Storage.Local, KeyLocalBackend)
	setString(&c.Storage.Remote, KeyRemoteBackend)
	setString(&c.Storage.MongoURI, KeyMongoURI)
	setString(&c.Storage.MongoDatabase, KeyMongoDatabase)
	setString(&c.Storage.GCSBucket, KeyGCSBucket)
	setString(&c.Sync.UserID, KeyUserID)
	setString(&c.Rates.URL, KeyRatesURL)
	setString(&c.BigQuery.Project, KeyBQProject)
	setString(&c.BigQuery.Dataset, KeyBQDataset)
	setString(&c.Gemini.Model, KeyGeminiModel)
	setString(&c.Discord.BotToken, KeyDiscordToken)
	setString(&c.Discord.ChannelID, KeyDiscordChannel)
	setString(&c.API.Port, KeyAPIPort)
	setString(&c.API.Token, KeyAPIToken)

	for key, dst := range map[string]*time.Duration{
		KeySyncDebounce:      &c.Sync.Debounce,
		KeyRatesTTL:          &c.Rates.TTL,
		KeyReconcileInterval: &c.Reconcile.Interval,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the selected backends are known and carry their
// connection settings.
func (c *Config) Validate() error {
	switch c.Storage.Local {
	case LocalBolt, LocalSQLite, LocalMemory:
	default:
		return fmt.Errorf("invalid %s: %q", KeyLocalBackend, c.Storage.Local)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid %s: %q", KeyLogFormat, c.Log.Format)
	}
	if _, err := strconv.Atoi(c.API.Port); err != nil {
		return fmt.Errorf("invalid %s: %q", KeyAPIPort, c.API.Port)
	}
	if c.Reconcile.Interval <= 0 {
		return fmt.Errorf("invalid %s: %s", KeyReconcileInterval, c.Reconcile.Interval)
	}

	switch c.Storage.Remote {
	case RemoteNone, RemoteMemory:
		return nil
	case RemoteMongo:
		return c.Require(KeyMongoURI)
	case RemoteGCS:
		return c.Require(KeyGCSBucket)
	default:
		return fmt.Errorf("invalid %s: %q", KeyRemoteBackend, c.Storage.Remote)
	}
}

// Require reports every listed key whose value is empty.
func (c *Config) Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if c.value(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s\nPlease check your .env file or environment variables", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// LocalPath is the file backing the local store for the selected backend.
func (c *Config) LocalPath() string {
	switch c.Storage.Local {
	case LocalSQLite:
		return filepath.Join(c.Storage.DataDir, "vault.sqlite")
	default:
		return filepath.Join(c.Storage.DataDir, "vault.db")
	}
}

func (c *Config) value(key string) string {
	switch key {
	case KeyMongoURI:
		return c.Storage.MongoURI
	case KeyMongoDatabase:
		return c.Storage.MongoDatabase
	case KeyGCSBucket:
		return c.Storage.GCSBucket
	case KeyUserID:
		return c.Sync.UserID
	case KeyBQProject:
		return c.BigQuery.Project
	case KeyBQDataset:
		return c.BigQuery.Dataset
	case KeyGeminiModel:
		return c.Gemini.Model
	case KeyDiscordToken:
		return c.Discord.BotToken
	case KeyDiscordChannel:
		return c.Discord.ChannelID
	case KeyRatesURL:
		return c.Rates.URL
	case KeyDataDir:
		return c.Storage.DataDir
	case KeyAPIToken:
		return c.API.Token
	}
	return ""
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration value for %s: %s", key, value)
	}
	*dst = d
	return nil
}
