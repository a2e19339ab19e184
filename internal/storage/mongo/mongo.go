// Package mongo implements storage.DocumentStore on a MongoDB collection,
// one document per user keyed by _id.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvloznov/vault/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultDatabase is used when no database name is configured.
	DefaultDatabase = "vault"
	// CollectionVaults holds the per-user documents.
	CollectionVaults = "vaults"
)

// ---- Abstractions for Testability ----

// Collection is the subset of collection operations the store needs.
type Collection interface {
	// FindByID returns the raw document or mongo.ErrNoDocuments.
	FindByID(ctx context.Context, id string) (bson.Raw, error)
	// UpsertFields sets the given top-level fields, creating the document if needed.
	UpsertFields(ctx context.Context, id string, fields bson.M) error
}

// MongoCollection adapts *mongo.Collection to Collection.
type MongoCollection struct {
	*mongo.Collection
}

// FindByID performs a FindOne on _id.
func (c *MongoCollection) FindByID(ctx context.Context, id string) (bson.Raw, error) {
	raw, err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		return nil, fmt.Errorf("failed to perform FindOne: %w", err)
	}
	return raw, nil
}

// UpsertFields performs an upserting $set on _id.
func (c *MongoCollection) UpsertFields(ctx context.Context, id string, fields bson.M) error {
	_, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to perform UpdateOne: %w", err)
	}
	return nil
}

// Store is a storage.DocumentStore backed by a Collection.
type Store struct {
	coll Collection
}

// New creates a Store on coll.
func New(coll Collection) *Store {
	return &Store{coll: coll}
}

// NewFromClient creates a Store on the vaults collection of database.
func NewFromClient(client *mongo.Client, database string) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	return New(&MongoCollection{client.Database(database).Collection(CollectionVaults)})
}

// Connect establishes a connection to MongoDB and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// Get implements storage.DocumentStore.
func (s *Store) Get(ctx context.Context, userID string) (storage.Document, error) {
	raw, err := s.coll.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
		}
		return nil, err
	}

	// Relaxed extended JSON keeps strings, numbers and arrays as plain JSON.
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	var doc storage.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	delete(doc, "_id")
	return doc, nil
}

// Merge implements storage.DocumentStore.
func (s *Store) Merge(ctx context.Context, userID string, doc storage.Document) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	clean, _ := storage.Sanitize(map[string]any(doc)).(map[string]any)
	delete(clean, "_id")
	if len(clean) == 0 {
		return nil
	}
	return s.coll.UpsertFields(ctx, userID, bson.M(clean))
}

var _ storage.DocumentStore = (*Store)(nil)
