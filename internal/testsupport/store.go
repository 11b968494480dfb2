package testsupport

import (
	"context"
	"testing"

	"tether/internal/config"
	"tether/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedItem registers an item and forces it into the requested status.
func SeedItem(t testing.TB, st *store.Store, hash, name string, files []store.FileEntry, status store.Status) *store.Item {
	t.Helper()

	ctx := context.Background()
	if _, err := st.Upsert(ctx, hash, name, files, ""); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	item, err := st.GetByHash(ctx, hash)
	if err != nil {
		t.Fatalf("store.GetByHash: %v", err)
	}
	if status != "" && status != item.Status {
		item.Status = status
		if err := st.Update(ctx, item); err != nil {
			t.Fatalf("store.Update: %v", err)
		}
	}
	return item
}
