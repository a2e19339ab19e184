// Package gcs implements storage.DocumentStore on Cloud Storage, one JSON
// object per user. Merges are read-modify-write guarded by the object's
// generation so concurrent writers do not drop each other's fields.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"github.com/dvloznov/vault/internal/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	objectPrefix = "vaults/"
	maxAttempts  = 5
)

// ErrPreconditionFailed is returned by ObjectStore.Write when the object's
// generation no longer matches.
var ErrPreconditionFailed = errors.New("generation precondition failed")

// ObjectStore is the subset of bucket operations the store needs.
type ObjectStore interface {
	// Read returns the object body and generation, or gcs.ErrObjectNotExist.
	Read(ctx context.Context, name string) ([]byte, int64, error)
	// Write replaces the object if its generation still equals generation.
	// Generation 0 means the object must not exist yet.
	Write(ctx context.Context, name string, data []byte, generation int64) error
}

// Bucket adapts a *gcs.BucketHandle to ObjectStore.
type Bucket struct {
	handle *gcs.BucketHandle
}

// NewBucket wraps handle.
func NewBucket(handle *gcs.BucketHandle) *Bucket {
	return &Bucket{handle: handle}
}

// Read implements ObjectStore.
func (b *Bucket) Read(ctx context.Context, name string) ([]byte, int64, error) {
	rc, err := b.handle.Object(name).NewReader(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, 0, fmt.Errorf("reading object %s: %w", name, err)
	}
	return data, rc.Attrs.Generation, nil
}

// Write implements ObjectStore.
func (b *Bucket) Write(ctx context.Context, name string, data []byte, generation int64) error {
	cond := gcs.Conditions{DoesNotExist: true}
	if generation != 0 {
		cond = gcs.Conditions{GenerationMatch: generation}
	}

	w := b.handle.Object(name).If(cond).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return b.translate(name, err)
	}
	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return b.translate(name, err)
	}
	return nil
}

func (b *Bucket) translate(name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("object %s: %w", name, ErrPreconditionFailed)
	}
	return fmt.Errorf("writing object %s: %w", name, err)
}

// Store is a storage.DocumentStore on an ObjectStore.
type Store struct {
	objects ObjectStore
	log     zerolog.Logger
}

// New creates a Store.
func New(objects ObjectStore, log zerolog.Logger) *Store {
	return &Store{objects: objects, log: log}
}

// Open creates a storage client and a Store on bucketName. The returned
// close function releases the client.
func Open(ctx context.Context, bucketName string, log zerolog.Logger, opts ...option.ClientOption) (*Store, func() error, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	return New(NewBucket(client.Bucket(bucketName)), log), client.Close, nil
}

// ObjectName is where a user's document lives.
func ObjectName(userID string) string {
	return objectPrefix + userID + ".json"
}

// Get implements storage.DocumentStore.
func (s *Store) Get(ctx context.Context, userID string) (storage.Document, error) {
	doc, _, err := s.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	return doc, nil
}

// Merge implements storage.DocumentStore.
func (s *Store) Merge(ctx context.Context, userID string, doc storage.Document) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	clean, _ := storage.Sanitize(map[string]any(doc)).(map[string]any)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		current, generation, err := s.read(ctx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			current = storage.Document{}
		}
		for k, v := range clean {
			current[k] = v
		}

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}

		err = s.objects.Write(ctx, ObjectName(userID), data, generation)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrPreconditionFailed) {
			return err
		}
		s.log.Debug().Str("user_id", userID).Int("attempt", attempt).Msg("concurrent write, retrying merge")
	}
	return fmt.Errorf("merge for %s: gave up after %d attempts: %w", userID, maxAttempts, ErrPreconditionFailed)
}

// read returns a nil document when the object does not exist.
func (s *Store) read(ctx context.Context, userID string) (storage.Document, int64, error) {
	data, generation, err := s.objects.Read(ctx, ObjectName(userID))
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading document for %s: %w", userID, err)
	}

	var doc storage.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("decoding document for %s: %w", userID, err)
	}
	if doc == nil {
		doc = storage.Document{}
	}
	return doc, generation, nil
}

var _ storage.DocumentStore = (*Store)(nil)
