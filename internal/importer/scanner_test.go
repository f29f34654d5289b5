package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"garland/internal/catalog"
	"garland/internal/services"
	"garland/internal/tmdb"
)

type fakeSearcher struct {
	mu          sync.Mutex
	responses   map[string]*tmdb.Response
	details     map[int64]*tmdb.Details
	searchErrs  map[string]error
	detailErrs  map[int64]error
	searchCalls int
	detailCalls int
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		responses:  make(map[string]*tmdb.Response),
		details:    make(map[int64]*tmdb.Details),
		searchErrs: make(map[string]error),
		detailErrs: make(map[int64]error),
	}
}

func (f *fakeSearcher) addMovie(query string, details *tmdb.Details) {
	f.responses[query] = &tmdb.Response{
		Results:      []tmdb.Result{{ID: details.ID, Title: details.Title, ReleaseDate: details.ReleaseDate}},
		TotalResults: 1,
	}
	f.details[details.ID] = details
}

func (f *fakeSearcher) SearchMovie(_ context.Context, query string) (*tmdb.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if err, ok := f.searchErrs[query]; ok {
		return nil, err
	}
	if resp, ok := f.responses[query]; ok {
		return resp, nil
	}
	return &tmdb.Response{}, nil
}

func (f *fakeSearcher) GetMovieDetails(_ context.Context, movieID int64) (*tmdb.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if err, ok := f.detailErrs[movieID]; ok {
		return nil, err
	}
	if details, ok := f.details[movieID]; ok {
		return details, nil
	}
	return nil, fmt.Errorf("no details for id %d", movieID)
}

type fakeStore struct {
	mu          sync.Mutex
	movies      map[int64]*catalog.Movie
	annotations map[string]*catalog.UserMovie
	findErr     error
	upsertErrs  map[int64]error
	nextID      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		movies:      make(map[int64]*catalog.Movie),
		annotations: make(map[string]*catalog.UserMovie),
		upsertErrs:  make(map[int64]error),
	}
}

func annotationKey(userID, movieID string) string {
	return userID + "/" + movieID
}

func (f *fakeStore) FindMovieByTMDBID(_ context.Context, tmdbID int64) (*catalog.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if movie, ok := f.movies[tmdbID]; ok {
		copied := *movie
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) GetAnnotation(_ context.Context, userID, movieID string) (*catalog.UserMovie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if annotation, ok := f.annotations[annotationKey(userID, movieID)]; ok {
		copied := *annotation
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) UpsertMovie(_ context.Context, movie catalog.Movie) (*catalog.Movie, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.upsertErrs[movie.TMDBID]; ok {
		return nil, false, err
	}
	if existing, ok := f.movies[movie.TMDBID]; ok {
		movie.ID = existing.ID
		f.movies[movie.TMDBID] = &movie
		copied := movie
		return &copied, false, nil
	}
	f.nextID++
	movie.ID = fmt.Sprintf("movie-%d", f.nextID)
	f.movies[movie.TMDBID] = &movie
	copied := movie
	return &copied, true, nil
}

func (f *fakeStore) UpsertAnnotation(_ context.Context, userID, movieID string, patch catalog.AnnotationPatch) (*catalog.UserMovie, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := annotationKey(userID, movieID)
	annotation, exists := f.annotations[key]
	if !exists {
		annotation = &catalog.UserMovie{UserID: userID, MovieID: movieID}
	}
	if patch.Watched != nil {
		annotation.Watched = *patch.Watched
	}
	if patch.WatchedDate != nil {
		watchedDate := *patch.WatchedDate
		annotation.WatchedDate = &watchedDate
	}
	if patch.Rating != nil {
		rating := *patch.Rating
		annotation.Rating = &rating
	}
	if patch.Review != nil {
		annotation.Review = *patch.Review
	}
	if patch.Favorite != nil {
		annotation.Favorite = *patch.Favorite
	}
	f.annotations[key] = annotation
	copied := *annotation
	return &copied, !exists, nil
}

func makeDetails(id int64, title, releaseDate string) *tmdb.Details {
	return &tmdb.Details{ID: id, Title: title, ReleaseDate: releaseDate}
}

func TestScanOrdersAndClassifies(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.addMovie("Elf 2003", makeDetails(550, "Elf", "2003-11-07"))
	searcher.addMovie("Grinch Movie 2000", makeDetails(551, "How the Grinch Stole Christmas", "2000-11-17"))

	rec, err := NewReconciler(searcher, newFakeStore(), WithConcurrency(2))
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}

	rows := []Row{
		{Index: 0, Title: "Elf", ReleaseDate: "2003"},
		{Index: 1, Title: "Grinch Movie", ReleaseDate: "2000"},
		{Index: 2, Title: "Totally Unknown Film", ReleaseDate: "1999"},
	}
	batch, err := rec.Scan(context.Background(), "user-1", rows)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if batch.ID == "" {
		t.Fatal("expected batch id to be assigned")
	}
	if len(batch.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(batch.Candidates))
	}

	for i, candidate := range batch.Candidates {
		if candidate.Row.Index != i {
			t.Fatalf("candidate %d carries row index %d; order must follow row order", i, candidate.Row.Index)
		}
	}

	elf := batch.Candidates[0]
	if elf.Status != StatusMatched || !elf.Selected || elf.Confidence != 100 {
		t.Fatalf("unexpected Elf candidate: status=%s selected=%v confidence=%d",
			elf.Status, elf.Selected, elf.Confidence)
	}

	grinch := batch.Candidates[1]
	if grinch.Status != StatusNeedsReview {
		t.Fatalf("expected low-confidence candidate to need review, got %s", grinch.Status)
	}
	if !grinch.Selected {
		t.Fatal("review candidates stay selected for the commit default")
	}

	unknown := batch.Candidates[2]
	if unknown.Status != StatusUnmatched || unknown.Selected || unknown.Match != nil {
		t.Fatalf("unexpected unmatched candidate: %+v", unknown)
	}

	if got := batch.SelectedCount(); got != 2 {
		t.Fatalf("expected 2 selected candidates, got %d", got)
	}
}

func TestScanRowFailureDoesNotAbort(t *testing.T) {
	searcher := newFakeSearcher()
	for i := 0; i < 5; i++ {
		title := fmt.Sprintf("Movie %d", i)
		searcher.addMovie(title+" 2010", makeDetails(int64(600+i), title, "2010-12-01"))
	}
	searcher.searchErrs["Movie 2 2010"] = fmt.Errorf("%w: search/movie", tmdb.ErrRateLimited)

	rec, err := NewReconciler(searcher, newFakeStore())
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}

	rows := make([]Row, 5)
	for i := range rows {
		rows[i] = Row{Index: i, Title: fmt.Sprintf("Movie %d", i), ReleaseDate: "2010"}
	}
	batch, err := rec.Scan(context.Background(), "user-1", rows)
	if err != nil {
		t.Fatalf("a row failure must not fail the scan: %v", err)
	}

	failed := batch.Candidates[2]
	if failed.Status != StatusUnmatched || failed.Selected {
		t.Fatalf("failed row should degrade to unmatched and unselected: %+v", failed)
	}
	if failed.Error == "" || !strings.Contains(failed.Error, "rate limit") {
		t.Fatalf("expected a rate-limit error message, got %q", failed.Error)
	}

	for _, i := range []int{0, 1, 3, 4} {
		if batch.Candidates[i].Status != StatusMatched {
			t.Fatalf("row %d should still match, got %s", i, batch.Candidates[i].Status)
		}
	}
}

func TestScanFlagsDuplicates(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.addMovie("Elf", makeDetails(550, "Elf", "2003-11-07"))

	store := newFakeStore()
	ctx := context.Background()
	movie, _, err := store.UpsertMovie(ctx, catalog.Movie{TMDBID: 550, Title: "Elf"})
	if err != nil {
		t.Fatalf("seed movie: %v", err)
	}
	if _, _, err := store.UpsertAnnotation(ctx, "user-1", movie.ID, catalog.AnnotationPatch{}); err != nil {
		t.Fatalf("seed annotation: %v", err)
	}

	rec, err := NewReconciler(searcher, store)
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}

	batch, err := rec.Scan(ctx, "user-1", []Row{{Index: 0, Title: "Elf"}})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	candidate := batch.Candidates[0]
	if candidate.Status != StatusDuplicate {
		t.Fatalf("expected duplicate status, got %s", candidate.Status)
	}
	if candidate.Selected {
		t.Fatal("duplicates must be deselected by default")
	}
	if !candidate.AlreadyInCollection || candidate.MovieID != movie.ID {
		t.Fatalf("expected duplicate to reference existing movie: %+v", candidate)
	}

	// A second user with no annotation for the same catalogue entry is not
	// a duplicate; the shared entry is just reused.
	other, err := rec.Scan(ctx, "user-2", []Row{{Index: 0, Title: "Elf"}})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	second := other.Candidates[0]
	if second.Status == StatusDuplicate || !second.Selected {
		t.Fatalf("catalogue presence alone is not a duplicate: %+v", second)
	}
	if second.MovieID != movie.ID {
		t.Fatalf("expected existing catalogue id %q, got %q", movie.ID, second.MovieID)
	}
}

func TestScanDuplicateLookupFailureDegradesRow(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.addMovie("Elf", makeDetails(550, "Elf", "2003-11-07"))

	store := newFakeStore()
	store.findErr = errors.New("database locked")

	rec, err := NewReconciler(searcher, store)
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}
	batch, err := rec.Scan(context.Background(), "user-1", []Row{{Index: 0, Title: "Elf"}})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	candidate := batch.Candidates[0]
	if candidate.Status != StatusUnmatched || candidate.Selected {
		t.Fatalf("expected degraded row, got %+v", candidate)
	}
	if candidate.Error == "" {
		t.Fatal("expected error to be recorded on the candidate")
	}
}

func TestScanProgressIsMonotonic(t *testing.T) {
	searcher := newFakeSearcher()
	rows := make([]Row, 8)
	for i := range rows {
		title := fmt.Sprintf("Movie %d", i)
		rows[i] = Row{Index: i, Title: title}
		searcher.addMovie(title, makeDetails(int64(700+i), title, "2015-12-01"))
	}

	// Stalling the first delivery gives every other worker time to finish;
	// if callbacks could be delivered outside the counter lock the caller
	// would see a later count arrive before the stalled one.
	var (
		mu       sync.Mutex
		observed []int
	)
	rec, err := NewReconciler(searcher, newFakeStore(),
		WithConcurrency(4),
		WithProgress(func(done, total int) {
			if total != len(rows) {
				t.Errorf("progress total = %d, want %d", total, len(rows))
			}
			if done == 1 {
				time.Sleep(200 * time.Millisecond)
			}
			mu.Lock()
			observed = append(observed, done)
			mu.Unlock()
		}))
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}

	if _, err := rec.Scan(context.Background(), "user-1", rows); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != len(rows) {
		t.Fatalf("expected %d progress calls, got %d", len(rows), len(observed))
	}
	for i := 1; i < len(observed); i++ {
		if observed[i] != observed[i-1]+1 {
			t.Fatalf("progress went backwards as observed by the caller: %v", observed)
		}
	}
	if observed[len(observed)-1] != len(rows) {
		t.Fatalf("final progress = %d, want %d", observed[len(observed)-1], len(rows))
	}
}

func TestScanRequiresUserID(t *testing.T) {
	rec, err := NewReconciler(newFakeSearcher(), newFakeStore())
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}
	if _, err := rec.Scan(context.Background(), "  ", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewReconcilerRequiresDependencies(t *testing.T) {
	if _, err := NewReconciler(nil, newFakeStore()); err == nil {
		t.Fatal("expected error for nil searcher")
	}
	if _, err := NewReconciler(newFakeSearcher(), nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestOverrideReplacesMatch(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.addMovie("Elf 2003", makeDetails(550, "Bad Santa", "2003-11-21"))
	searcher.details[999] = makeDetails(999, "Elf", "2003-11-07")

	rec, err := NewReconciler(searcher, newFakeStore())
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}
	batch, err := rec.Scan(context.Background(), "user-1", []Row{{Index: 0, Title: "Elf", ReleaseDate: "2003"}})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if err := rec.Override(context.Background(), batch, 0, 999); err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	candidate := batch.Candidates[0]
	if candidate.Match == nil || candidate.Match.ID != 999 {
		t.Fatalf("expected match replaced with id 999: %+v", candidate.Match)
	}
	if candidate.Status != StatusMatched || !candidate.Selected || candidate.Confidence != 100 {
		t.Fatalf("override should rescore and select: status=%s selected=%v confidence=%d",
			candidate.Status, candidate.Selected, candidate.Confidence)
	}
}

func TestOverrideValidatesIndex(t *testing.T) {
	rec, err := NewReconciler(newFakeSearcher(), newFakeStore())
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}
	batch := &Batch{ID: "b", UserID: "user-1", Candidates: make([]Candidate, 1)}
	if err := rec.Override(context.Background(), batch, 5, 999); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := rec.Override(context.Background(), nil, 0, 999); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for nil batch, got %v", err)
	}
}

func TestResearch(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.addMovie("Elf", makeDetails(550, "Elf", "2003-11-07"))

	rec, err := NewReconciler(searcher, newFakeStore())
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}
	results, err := rec.Research(context.Background(), "Elf")
	if err != nil {
		t.Fatalf("Research failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != 550 {
		t.Fatalf("unexpected research results: %+v", results)
	}
	if _, err := rec.Research(context.Background(), "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty query, got %v", err)
	}
}
