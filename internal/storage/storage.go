// Package storage persists vault snapshots. A snapshot is written either to
// a synchronous local key-value store, one key per collection and setting,
// or to a per-user document in a remote store. Both layouts share the
// versioned schema in schema.go and are decoded through Migrate.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a remote document does not exist.
	ErrNotFound = errors.New("document not found")
)

// Local keys, one per collection and per setting.
const (
	KeyTransactions     = "vault_transactions"
	KeyAccounts         = "vault_accounts"
	KeySubscriptions    = "vault_subscriptions"
	KeyBudgets          = "vault_budgets"
	KeyCategories       = "vault_categories"
	KeyCurrency         = "vault_currency"
	KeyTheme            = "vault_theme"
	KeyCustomCurrencies = "vault_custom_currencies"
	KeySchemaVersion    = "vault_schema_version"
)

// LocalKeys lists every key the local adapter owns.
var LocalKeys = []string{
	KeyTransactions,
	KeyAccounts,
	KeySubscriptions,
	KeyBudgets,
	KeyCategories,
	KeyCurrency,
	KeyTheme,
	KeyCustomCurrencies,
	KeySchemaVersion,
}

// KeyValue is a synchronous string-keyed byte store.
type KeyValue interface {
	// Get returns the value for key and whether it was present.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Document is the JSON-shaped body of a remote per-user document.
type Document map[string]any

// DocumentStore holds one document per user.
type DocumentStore interface {
	// Get returns the user's document or ErrNotFound.
	Get(ctx context.Context, userID string) (Document, error)
	// Merge writes the top-level fields of doc into the user's document,
	// creating it if needed. Fields absent from doc are left as they are.
	Merge(ctx context.Context, userID string, doc Document) error
}
