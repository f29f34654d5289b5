package catalog

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"garland/internal/tmdb"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func elfDetails() *tmdb.Details {
	return &tmdb.Details{
		ID:          10719,
		Title:       "Elf",
		ReleaseDate: "2003-11-07",
		Overview:    "A human raised by elves.",
		PosterPath:  "/elf.jpg",
		Runtime:     97,
		Genres:      []tmdb.Genre{{ID: 35, Name: "Comedy"}},
		Credits: tmdb.Credits{
			Cast: []tmdb.CastMember{{Name: "Will Ferrell"}, {Name: "James Caan"}},
			Crew: []tmdb.CrewMember{{Name: "Jon Favreau", Job: "Director"}, {Name: "Greg Gardiner", Job: "Director of Photography"}},
		},
	}
}

func TestFromDetailsFormatting(t *testing.T) {
	movie := FromDetails(&tmdb.Details{
		ID:          1,
		Title:       "The Grinch",
		ReleaseDate: "2018-11-08",
		PosterPath:  "/grinch.jpg",
	})
	if movie.SortTitle != "Grinch" {
		t.Errorf("sort title = %q", movie.SortTitle)
	}
	if movie.PosterURL != "https://image.tmdb.org/t/p/w500/grinch.jpg" {
		t.Errorf("poster url = %q", movie.PosterURL)
	}
	found := false
	for _, kw := range movie.Keywords {
		if kw == "2018" {
			found = true
		}
	}
	if !found {
		t.Errorf("keywords missing release year: %v", movie.Keywords)
	}
}

func TestFromDetailsDirectorsAndCast(t *testing.T) {
	movie := FromDetails(elfDetails())
	if !reflect.DeepEqual(movie.Directors, []string{"Jon Favreau"}) {
		t.Errorf("directors = %v", movie.Directors)
	}
	if !reflect.DeepEqual(movie.Cast, []string{"Will Ferrell", "James Caan"}) {
		t.Errorf("cast = %v", movie.Cast)
	}
}

func TestUpsertMovieCreatesOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, created, err := store.UpsertMovie(ctx, FromDetails(elfDetails()))
	if err != nil {
		t.Fatalf("UpsertMovie: %v", err)
	}
	if !created {
		t.Fatal("expected first upsert to create")
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}

	details := elfDetails()
	details.Overview = "Updated overview."
	second, created, err := store.UpsertMovie(ctx, FromDetails(details))
	if err != nil {
		t.Fatalf("UpsertMovie update: %v", err)
	}
	if created {
		t.Fatal("expected second upsert to update")
	}
	if second.ID != first.ID {
		t.Fatalf("id changed across upserts: %q -> %q", first.ID, second.ID)
	}
	if second.Overview != "Updated overview." {
		t.Fatalf("overview = %q", second.Overview)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("creation time should survive merge")
	}

	movies, err := store.ListMovies(ctx)
	if err != nil {
		t.Fatalf("ListMovies: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("expected one catalogue entry, got %d", len(movies))
	}
}

func TestUpsertMovieIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	once, _, err := store.UpsertMovie(ctx, FromDetails(elfDetails()))
	if err != nil {
		t.Fatalf("UpsertMovie: %v", err)
	}
	twice, _, err := store.UpsertMovie(ctx, FromDetails(elfDetails()))
	if err != nil {
		t.Fatalf("UpsertMovie repeat: %v", err)
	}
	if once.ID != twice.ID || once.Title != twice.Title || once.Overview != twice.Overview {
		t.Fatalf("repeated upsert diverged: %+v vs %+v", once, twice)
	}
}

func TestAnnotationUpsertMerge(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	movie, _, err := store.UpsertMovie(ctx, FromDetails(elfDetails()))
	if err != nil {
		t.Fatalf("UpsertMovie: %v", err)
	}

	watched := true
	rating := 8.0
	first, created, err := store.UpsertAnnotation(ctx, "user-1", movie.ID, AnnotationPatch{Watched: &watched, Rating: &rating})
	if err != nil {
		t.Fatalf("UpsertAnnotation: %v", err)
	}
	if !created {
		t.Fatal("expected creation")
	}
	if !first.Watched || first.Rating == nil || *first.Rating != 8.0 {
		t.Fatalf("annotation = %+v", first)
	}
	if first.Favorite {
		t.Fatal("new annotations default to unfavorited")
	}

	review := "great"
	second, created, err := store.UpsertAnnotation(ctx, "user-1", movie.ID, AnnotationPatch{Review: &review})
	if err != nil {
		t.Fatalf("UpsertAnnotation merge: %v", err)
	}
	if created {
		t.Fatal("expected merge, not creation")
	}
	if !second.Watched || second.Rating == nil || *second.Rating != 8.0 {
		t.Fatalf("merge dropped prior fields: %+v", second)
	}
	if second.Review != "great" {
		t.Fatalf("review = %q", second.Review)
	}
	if !second.AddedAt.Equal(first.AddedAt) {
		t.Fatal("added time should survive merge")
	}
}

func TestAnnotationWatchedDate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	movie, _, err := store.UpsertMovie(ctx, FromDetails(elfDetails()))
	if err != nil {
		t.Fatalf("UpsertMovie: %v", err)
	}

	watched := true
	watchedDate := time.Date(2024, time.December, 24, 0, 0, 0, 0, time.UTC)
	first, _, err := store.UpsertAnnotation(ctx, "user-1", movie.ID,
		AnnotationPatch{Watched: &watched, WatchedDate: &watchedDate})
	if err != nil {
		t.Fatalf("UpsertAnnotation: %v", err)
	}
	if first.WatchedDate == nil || !first.WatchedDate.Equal(watchedDate) {
		t.Fatalf("watched date = %v, want %v", first.WatchedDate, watchedDate)
	}

	// An unrelated merge keeps the watched date.
	rating := 9.0
	second, _, err := store.UpsertAnnotation(ctx, "user-1", movie.ID, AnnotationPatch{Rating: &rating})
	if err != nil {
		t.Fatalf("UpsertAnnotation merge: %v", err)
	}
	if second.WatchedDate == nil || !second.WatchedDate.Equal(watchedDate) {
		t.Fatalf("merge dropped watched date: %+v", second)
	}

	// Marking unwatched clears the date.
	unwatched := false
	third, _, err := store.UpsertAnnotation(ctx, "user-1", movie.ID, AnnotationPatch{Watched: &unwatched})
	if err != nil {
		t.Fatalf("UpsertAnnotation unwatch: %v", err)
	}
	if third.WatchedDate != nil {
		t.Fatalf("unwatching should clear the watched date, got %v", third.WatchedDate)
	}
}

func TestAnnotationIsolatedPerUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	movie, _, err := store.UpsertMovie(ctx, FromDetails(elfDetails()))
	if err != nil {
		t.Fatalf("UpsertMovie: %v", err)
	}

	watched := true
	if _, _, err := store.UpsertAnnotation(ctx, "user-1", movie.ID, AnnotationPatch{Watched: &watched}); err != nil {
		t.Fatalf("UpsertAnnotation: %v", err)
	}

	other, err := store.GetAnnotation(ctx, "user-2", movie.ID)
	if err != nil {
		t.Fatalf("GetAnnotation: %v", err)
	}
	if other != nil {
		t.Fatalf("user-2 should have no annotation, got %+v", other)
	}
}

func TestListCollectionOrdersBySortTitle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	grinch := FromDetails(&tmdb.Details{ID: 1, Title: "The Grinch", ReleaseDate: "2018-11-08"})
	elf := FromDetails(&tmdb.Details{ID: 2, Title: "Elf", ReleaseDate: "2003-11-07"})

	for _, movie := range []Movie{grinch, elf} {
		stored, _, err := store.UpsertMovie(ctx, movie)
		if err != nil {
			t.Fatalf("UpsertMovie: %v", err)
		}
		if _, _, err := store.UpsertAnnotation(ctx, "user-1", stored.ID, AnnotationPatch{}); err != nil {
			t.Fatalf("UpsertAnnotation: %v", err)
		}
	}

	entries, err := store.ListCollection(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListCollection: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	// "Elf" before "Grinch" (article stripped from "The Grinch").
	if entries[0].Movie.Title != "Elf" || entries[1].Movie.Title != "The Grinch" {
		t.Fatalf("unexpected order: %q, %q", entries[0].Movie.Title, entries[1].Movie.Title)
	}
}

func TestDeleteAnnotationKeepsCatalogue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	movie, _, err := store.UpsertMovie(ctx, FromDetails(elfDetails()))
	if err != nil {
		t.Fatalf("UpsertMovie: %v", err)
	}
	if _, _, err := store.UpsertAnnotation(ctx, "user-1", movie.ID, AnnotationPatch{}); err != nil {
		t.Fatalf("UpsertAnnotation: %v", err)
	}

	removed, err := store.DeleteAnnotation(ctx, "user-1", movie.ID)
	if err != nil {
		t.Fatalf("DeleteAnnotation: %v", err)
	}
	if !removed {
		t.Fatal("expected deletion")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Movies != 1 || stats.Annotations != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
