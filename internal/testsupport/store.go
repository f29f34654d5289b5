package testsupport

import (
	"context"
	"testing"

	"garland/internal/catalog"
	"garland/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedMovie inserts a catalogue entry for tests using the provided store.
func SeedMovie(t testing.TB, store *catalog.Store, movie catalog.Movie) *catalog.Movie {
	t.Helper()

	saved, _, err := store.UpsertMovie(context.Background(), movie)
	if err != nil {
		t.Fatalf("store.UpsertMovie: %v", err)
	}
	return saved
}
