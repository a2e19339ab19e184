package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/rs/zerolog"
)

// RemoteAdapter stores a snapshot as one document per user.
type RemoteAdapter struct {
	store DocumentStore
	loc   *time.Location
	log   zerolog.Logger
}

// NewRemoteAdapter wraps store.
func NewRemoteAdapter(store DocumentStore, log zerolog.Logger) *RemoteAdapter {
	return &RemoteAdapter{store: store, loc: time.Local, log: log}
}

// Load fetches and migrates the user's document. It returns ErrNotFound,
// wrapped, when the user has no document yet.
func (a *RemoteAdapter) Load(ctx context.Context, userID string) (domain.Snapshot, error) {
	doc, err := a.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Snapshot{}, fmt.Errorf("Load: user %s: %w", userID, ErrNotFound)
		}
		return domain.Snapshot{}, fmt.Errorf("Load: fetching document for %s: %w", userID, err)
	}

	snap, rep, err := DecodeDocument(doc, a.loc)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("Load: decoding document for %s: %w", userID, err)
	}
	if rep.FromVersion < SchemaVersion {
		a.log.Info().
			Str("user_id", userID).
			Int("from_version", rep.FromVersion).
			Int("defaulted", rep.Defaulted).
			Msg("migrated remote vault document")
	}
	for _, p := range rep.Problems {
		a.log.Warn().Str("user_id", userID).Str("problem", p).Msg("remote vault data")
	}
	return snap, nil
}

// Save merge-writes the full snapshot into the user's document.
func (a *RemoteAdapter) Save(ctx context.Context, userID string, s domain.Snapshot) error {
	doc, err := EncodeDocument(s)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	if err := a.store.Merge(ctx, userID, doc); err != nil {
		return fmt.Errorf("Save: writing document for %s: %w", userID, err)
	}
	return nil
}
