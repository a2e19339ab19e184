package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/rs/zerolog"
)

// LocalAdapter stores a snapshot as one key per collection and per setting.
// Collections are JSON arrays; scalar settings are plain strings.
type LocalAdapter struct {
	kv  KeyValue
	loc *time.Location
	log zerolog.Logger
}

// NewLocalAdapter wraps kv. Stored timestamps are truncated to dates in the
// local time zone.
func NewLocalAdapter(kv KeyValue, log zerolog.Logger) *LocalAdapter {
	return &LocalAdapter{kv: kv, loc: time.Local, log: log}
}

// Load reads and migrates the stored snapshot. hasData reports whether any
// user records were found. Missing keys yield defaults; malformed values
// are logged and treated as missing.
func (a *LocalAdapter) Load() (snap domain.Snapshot, hasData bool, err error) {
	var raw RawSnapshot

	arrays := []struct {
		key  string
		dest any
	}{
		{KeyTransactions, &raw.Transactions},
		{KeyAccounts, &raw.Accounts},
		{KeySubscriptions, &raw.Subscriptions},
		{KeyBudgets, &raw.Budgets},
		{KeyCategories, &raw.Categories},
		{KeyCustomCurrencies, &raw.CustomCurrencies},
	}
	for _, arr := range arrays {
		data, ok, err := a.kv.Get(arr.key)
		if err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("Load: reading %s: %w", arr.key, err)
		}
		if !ok || len(data) == 0 {
			continue
		}
		if err := json.Unmarshal(data, arr.dest); err != nil {
			a.log.Warn().Err(err).Str("key", arr.key).Msg("ignoring malformed local value")
		}
	}

	if raw.Currency, err = a.getString(KeyCurrency); err != nil {
		return domain.Snapshot{}, false, err
	}
	if raw.Theme, err = a.getString(KeyTheme); err != nil {
		return domain.Snapshot{}, false, err
	}
	version, err := a.getString(KeySchemaVersion)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	if version != "" {
		raw.SchemaVersion, _ = strconv.Atoi(version)
	}

	snap, rep := Migrate(raw, a.loc)
	if rep.FromVersion < SchemaVersion && snap.HasData() {
		a.log.Info().
			Int("from_version", rep.FromVersion).
			Int("defaulted", rep.Defaulted).
			Msg("migrated local vault data")
	}
	for _, p := range rep.Problems {
		a.log.Warn().Str("problem", p).Msg("local vault data")
	}

	return snap, snap.HasData(), nil
}

// Save writes every collection and setting of s.
func (a *LocalAdapter) Save(s domain.Snapshot) error {
	r := newRecord(s)

	arrays := []struct {
		key   string
		value any
	}{
		{KeyTransactions, r.Transactions},
		{KeyAccounts, r.Accounts},
		{KeySubscriptions, r.Subscriptions},
		{KeyBudgets, r.Budgets},
		{KeyCategories, r.Categories},
		{KeyCustomCurrencies, r.CustomCurrencies},
	}
	for _, arr := range arrays {
		data, err := json.Marshal(arr.value)
		if err != nil {
			return fmt.Errorf("Save: encoding %s: %w", arr.key, err)
		}
		if err := a.kv.Set(arr.key, data); err != nil {
			return fmt.Errorf("Save: writing %s: %w", arr.key, err)
		}
	}

	scalars := map[string]string{
		KeyCurrency:      r.Currency,
		KeyTheme:         r.Theme,
		KeySchemaVersion: strconv.Itoa(r.SchemaVersion),
	}
	for key, value := range scalars {
		if err := a.kv.Set(key, []byte(value)); err != nil {
			return fmt.Errorf("Save: writing %s: %w", key, err)
		}
	}

	return nil
}

// Reset deletes every key the adapter owns.
func (a *LocalAdapter) Reset() error {
	for _, key := range LocalKeys {
		if err := a.kv.Delete(key); err != nil {
			return fmt.Errorf("Reset: deleting %s: %w", key, err)
		}
	}
	return nil
}

// KV exposes the underlying store for collaborators that keep their own
// keys next to the vault's, such as the rate cache.
func (a *LocalAdapter) KV() KeyValue {
	return a.kv
}

// getString reads a scalar setting. Values written as JSON strings by older
// clients are unquoted.
func (a *LocalAdapter) getString(key string) (string, error) {
	data, ok, err := a.kv.Get(key)
	if err != nil {
		return "", fmt.Errorf("Load: reading %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return s, nil
}
