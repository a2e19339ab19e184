package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/vault/internal/storage"
)

func TestKV_CopiesValues(t *testing.T) {
	kv := NewKV()
	value := []byte("abc")

	_ = kv.Set("k", value)
	value[0] = 'x'

	got, ok, _ := kv.Get("k")
	if !ok || string(got) != "abc" {
		t.Errorf("Get() = %q, want stored copy abc", got)
	}
}

func TestDocumentStore_Merge(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()

	if _, err := s.Get(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}

	if err := s.Merge(ctx, "u1", storage.Document{"currency": "USD", "theme": "dark"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if err := s.Merge(ctx, "u1", storage.Document{"currency": "EUR"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	doc, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc["currency"] != "EUR" || doc["theme"] != "dark" {
		t.Errorf("merged document = %v", doc)
	}
	if s.WriteCount() != 2 {
		t.Errorf("WriteCount() = %d, want 2", s.WriteCount())
	}
}

func TestDocumentStore_RejectsNil(t *testing.T) {
	s := NewDocumentStore()

	if err := s.Merge(context.Background(), "u1", storage.Document{"note": nil}); err == nil {
		t.Error("expected nil values to be rejected")
	}
}
