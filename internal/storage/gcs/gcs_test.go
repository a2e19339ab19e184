package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/dvloznov/vault/internal/logger"
	"github.com/dvloznov/vault/internal/storage"
)

type object struct {
	data       []byte
	generation int64
}

// fakeObjects is an ObjectStore honouring generation preconditions.
type fakeObjects struct {
	objects map[string]object
	writes  int

	// beforeWrite runs before each write, e.g. to simulate a concurrent writer.
	beforeWrite func(name string)
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string]object{}}
}

func (f *fakeObjects) Read(ctx context.Context, name string) ([]byte, int64, error) {
	o, ok := f.objects[name]
	if !ok {
		return nil, 0, gcs.ErrObjectNotExist
	}
	return o.data, o.generation, nil
}

func (f *fakeObjects) Write(ctx context.Context, name string, data []byte, generation int64) error {
	if f.beforeWrite != nil {
		f.beforeWrite(name)
	}
	current := f.objects[name]
	if current.generation != generation {
		return fmt.Errorf("object %s: %w", name, ErrPreconditionFailed)
	}
	f.writes++
	f.objects[name] = object{data: data, generation: current.generation + 1}
	return nil
}

func TestObjectName(t *testing.T) {
	if got := ObjectName("u1"); got != "vaults/u1.json" {
		t.Errorf("ObjectName() = %q", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := New(newFakeObjects(), logger.Nop())

	if _, err := s.Get(context.Background(), "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_MergeKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	objects := newFakeObjects()
	s := New(objects, logger.Nop())

	if err := s.Merge(ctx, "u1", storage.Document{"currency": "USD", "theme": "dark"}); err != nil {
		t.Fatalf("first Merge() error = %v", err)
	}
	if err := s.Merge(ctx, "u1", storage.Document{"theme": "light", "skip": nil}); err != nil {
		t.Fatalf("second Merge() error = %v", err)
	}

	doc, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc["currency"] != "USD" || doc["theme"] != "light" {
		t.Errorf("document = %v", doc)
	}
	if _, ok := doc["skip"]; ok {
		t.Error("nil field should not be written")
	}
}

func TestStore_MergeRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	objects := newFakeObjects()
	s := New(objects, logger.Nop())

	if err := s.Merge(ctx, "u1", storage.Document{"currency": "USD"}); err != nil {
		t.Fatalf("seed Merge() error = %v", err)
	}

	raced := false
	objects.beforeWrite = func(name string) {
		if raced {
			return
		}
		raced = true
		// Another device writes a field between our read and write.
		o := objects.objects[name]
		var doc map[string]any
		_ = json.Unmarshal(o.data, &doc)
		doc["budgets"] = []any{}
		data, _ := json.Marshal(doc)
		objects.objects[name] = object{data: data, generation: o.generation + 1}
	}

	if err := s.Merge(ctx, "u1", storage.Document{"theme": "light"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	doc, _ := s.Get(ctx, "u1")
	if _, ok := doc["budgets"]; !ok {
		t.Error("concurrent field should survive the retry")
	}
	if doc["theme"] != "light" {
		t.Errorf("theme = %v", doc["theme"])
	}
}

func TestStore_MergeGivesUp(t *testing.T) {
	objects := newFakeObjects()
	objects.beforeWrite = func(name string) {
		o := objects.objects[name]
		objects.objects[name] = object{data: []byte("{}"), generation: o.generation + 1}
	}
	s := New(objects, logger.Nop())

	err := s.Merge(context.Background(), "u1", storage.Document{"theme": "light"})
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("Merge() error = %v, want ErrPreconditionFailed", err)
	}
}
