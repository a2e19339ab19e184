// Package bolt implements storage.KeyValue on a bbolt database file.
package bolt

import (
	"fmt"
	"time"

	"github.com/dvloznov/vault/internal/storage"
	bolt "go.etcd.io/bbolt"
)

// BucketVault holds every vault key.
const BucketVault = "vault"

// Store represents the bbolt database wrapper.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path and initializes the bucket.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketVault)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketVault, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements storage.KeyValue.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketVault))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketVault)
		}
		// Values are only valid for the life of the transaction.
		if data := b.Get([]byte(key)); data != nil {
			value = make([]byte, len(data))
			copy(value, data)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Set implements storage.KeyValue.
func (s *Store) Set(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketVault))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketVault)
		}
		if value == nil {
			value = []byte{}
		}
		return b.Put([]byte(key), value)
	})
}

// Delete implements storage.KeyValue. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketVault))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketVault)
		}
		return b.Delete([]byte(key))
	})
}

// Keys lists every stored key in byte order.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketVault))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketVault)
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

var _ storage.KeyValue = (*Store)(nil)
