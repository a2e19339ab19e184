package sqlite

import (
	"path/filepath"
	"testing"
)

func TestDatabase_Upsert(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "vault.sqlite"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, ok, err := db.Get("vault_budgets"); err != nil || ok {
		t.Fatalf("Get() on empty database = ok %v, err %v", ok, err)
	}

	if err := db.Set("vault_budgets", []byte("[]")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := db.Set("vault_budgets", []byte(`[{"id":"b1"}]`)); err != nil {
		t.Fatalf("second Set() error = %v", err)
	}

	got, ok, err := db.Get("vault_budgets")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if string(got) != `[{"id":"b1"}]` {
		t.Errorf("Get() = %s, want latest value", got)
	}

	var count int64
	db.db.Model(&Entry{}).Count(&count)
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestDatabase_Delete(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "vault.sqlite"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := db.Set("vault_theme", []byte("light")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := db.Delete("vault_theme"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := db.Get("vault_theme"); ok {
		t.Error("key should be gone after Delete()")
	}
}
