package importer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"garland/internal/catalog"
	"garland/internal/logging"
	"garland/internal/services"
	"garland/internal/tmdb"
)

// Store is the slice of the catalogue the reconciler needs: duplicate
// lookups during scan, upserts during commit.
type Store interface {
	FindMovieByTMDBID(ctx context.Context, tmdbID int64) (*catalog.Movie, error)
	GetAnnotation(ctx context.Context, userID, movieID string) (*catalog.UserMovie, error)
	UpsertMovie(ctx context.Context, movie catalog.Movie) (*catalog.Movie, bool, error)
	UpsertAnnotation(ctx context.Context, userID, movieID string, patch catalog.AnnotationPatch) (*catalog.UserMovie, bool, error)
}

var _ Store = (*catalog.Store)(nil)

// ProgressFunc observes stage progress after each row completes. Calls are
// serialized and done only increases.
type ProgressFunc func(done, total int)

// Reconciler drives the scan, override, and commit stages against a provider
// and the catalogue store.
type Reconciler struct {
	searcher    tmdb.Searcher
	store       Store
	logger      *slog.Logger
	concurrency int
	onProgress  ProgressFunc
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConcurrency bounds in-flight provider requests during a scan.
// Values are clamped to [1, 5].
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n < 1 {
			n = 1
		}
		if n > 5 {
			n = 5
		}
		r.concurrency = n
	}
}

// WithProgress registers a progress observer shared by scan and commit.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Reconciler) {
		r.onProgress = fn
	}
}

// NewReconciler creates a reconciler. The searcher and store are required;
// everything else has defaults.
func NewReconciler(searcher tmdb.Searcher, store Store, opts ...Option) (*Reconciler, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	rec := &Reconciler{
		searcher:    searcher,
		store:       store,
		logger:      logging.NewNop(),
		concurrency: 3,
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec, nil
}

// Scan resolves a provider candidate for every row. Row-level provider
// failures degrade that row to unmatched and the scan continues; the final
// candidate order always follows row order regardless of which request
// finished first.
func (r *Reconciler) Scan(ctx context.Context, userID string, rows []Row) (*Batch, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, services.Wrap(services.ErrValidation, "scan", "", "user id is required", nil)
	}

	batch := &Batch{
		ID:         uuid.NewString(),
		UserID:     userID,
		Candidates: make([]Candidate, len(rows)),
	}
	ctx = services.WithBatchID(ctx, batch.ID)
	ctx = services.WithUserID(ctx, userID)
	ctx = services.WithStage(ctx, "scan")

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("starting scan",
		logging.Int("rows", len(rows)),
		logging.Int("concurrency", r.concurrency))

	total := len(rows)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	slots := make(chan struct{}, r.concurrency)
	for i := range rows {
		wg.Add(1)
		slots <- struct{}{}
		go func(index int) {
			defer wg.Done()
			defer func() { <-slots }()

			rowCtx := services.WithRowIndex(ctx, rows[index].Index)
			batch.Candidates[index] = r.scanRow(rowCtx, userID, rows[index])

			// The callback runs under the counter mutex so deliveries cannot
			// reorder: the caller always observes done increasing.
			mu.Lock()
			done++
			if r.onProgress != nil {
				r.onProgress(done, total)
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	logger.Info("scan complete", logging.Int("rows", total), logging.Int("selected", batch.SelectedCount()))
	return batch, nil
}

func (r *Reconciler) scanRow(ctx context.Context, userID string, row Row) Candidate {
	logger := logging.WithContext(ctx, r.logger)
	candidate := Candidate{Row: row}

	query := strings.TrimSpace(row.Title + " " + row.ReleaseDate)
	response, err := r.searcher.SearchMovie(ctx, query)
	if err != nil {
		candidate.Error = r.classifyProviderError("search", query, err).Error()
		logger.Warn("row search failed", logging.String("query", query), logging.Error(err))
		candidate.normalize()
		return candidate
	}
	if len(response.Results) == 0 {
		logger.Info("no provider results", logging.String("query", query))
		candidate.normalize()
		return candidate
	}

	first := response.Results[0]
	details, err := r.searcher.GetMovieDetails(ctx, first.ID)
	if err != nil {
		candidate.Error = r.classifyProviderError("details", query, err).Error()
		logger.Warn("detail fetch failed", logging.Int64("tmdb_id", first.ID), logging.Error(err))
		candidate.normalize()
		return candidate
	}

	candidate.Match = details
	candidate.Confidence = Confidence(row.Title, row.ReleaseDate, details.Title, details.ReleaseDate)

	if err := r.checkDuplicate(ctx, userID, &candidate); err != nil {
		candidate.Match = nil
		candidate.Error = err.Error()
		logger.Warn("duplicate lookup failed", logging.Int64("tmdb_id", details.ID), logging.Error(err))
		candidate.normalize()
		return candidate
	}

	candidate.normalize()
	candidate.deriveSelection()
	logger.Info("row scanned",
		logging.String("title", row.Title),
		logging.Int64("tmdb_id", details.ID),
		logging.String("match_title", details.Title),
		logging.Int("confidence", candidate.Confidence),
		logging.String("status", string(candidate.Status)))
	return candidate
}

// checkDuplicate resolves an existing catalogue entry for the candidate's
// provider id and whether the user already annotates it.
func (r *Reconciler) checkDuplicate(ctx context.Context, userID string, candidate *Candidate) error {
	movie, err := r.store.FindMovieByTMDBID(ctx, candidate.Match.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "scan", "duplicate lookup", "find catalogue entry", err)
	}
	if movie == nil {
		candidate.MovieID = ""
		candidate.AlreadyInCollection = false
		return nil
	}
	candidate.MovieID = movie.ID
	annotation, err := r.store.GetAnnotation(ctx, userID, movie.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "scan", "duplicate lookup", "read annotation", err)
	}
	candidate.AlreadyInCollection = annotation != nil
	return nil
}

func (r *Reconciler) classifyProviderError(operation, query string, err error) error {
	marker := services.ErrProvider
	if errors.Is(err, tmdb.ErrRateLimited) {
		marker = services.ErrRateLimit
	}
	return services.Wrap(marker, "scan", operation, query, err)
}
