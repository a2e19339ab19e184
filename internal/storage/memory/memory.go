// Package memory provides in-memory implementations of the storage
// interfaces. Data is lost when the process exits; use it for tests and
// throwaway sessions.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dvloznov/vault/internal/storage"
)

// KV is an in-memory storage.KeyValue. It is safe for concurrent use.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKV creates an empty KV.
func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

// Get implements storage.KeyValue.
func (k *KV) Get(key string) ([]byte, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, ok := k.data[key]
	if !ok {
		return nil, false, nil
	}
	// Return a copy to avoid external modifications
	return append([]byte(nil), v...), true, nil
}

// Set implements storage.KeyValue.
func (k *KV) Set(key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements storage.KeyValue.
func (k *KV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	delete(k.data, key)
	return nil
}

// Len returns the number of stored keys.
func (k *KV) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.data)
}

// DocumentStore is an in-memory storage.DocumentStore. Documents are kept
// JSON-encoded so callers never share maps with the store.
type DocumentStore struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	writes int
}

// NewDocumentStore creates an empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string][]byte)}
}

// Get implements storage.DocumentStore.
func (s *DocumentStore) Get(ctx context.Context, userID string) (storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	var doc storage.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

// Merge implements storage.DocumentStore. Like the real stores it rejects
// nil values.
func (s *DocumentStore) Merge(ctx context.Context, userID string, doc storage.Document) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	for k, v := range doc {
		if v == nil {
			return fmt.Errorf("field %q: nil values are not allowed", k)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := map[string]any{}
	if data, ok := s.docs[userID]; ok {
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("decoding document: %w", err)
		}
	}
	for k, v := range doc {
		current[k] = v
	}
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	s.docs[userID] = data
	s.writes++
	return nil
}

// WriteCount returns the number of successful Merge calls.
func (s *DocumentStore) WriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Ensure the types implement the storage interfaces.
var (
	_ storage.KeyValue      = (*KV)(nil)
	_ storage.DocumentStore = (*DocumentStore)(nil)
)
