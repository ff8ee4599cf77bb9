package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Errorf("expected miss for absent key, ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "key", []byte("value")); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := store.Get(ctx, "key")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(value) != "value" {
		t.Errorf("expected value, got %q", value)
	}

	// Upsert replaces the blob.
	if err := store.Set(ctx, "key", []byte("updated")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, _, _ = store.Get(ctx, "key")
	if string(value) != "updated" {
		t.Errorf("expected updated value, got %q", value)
	}

	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "key"); ok {
		t.Error("expected key gone after delete")
	}
}

func TestStore_Ping(t *testing.T) {
	store := openTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}
