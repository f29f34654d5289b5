package importer

import (
	"context"
	"fmt"
	"strings"

	"garland/internal/logging"
	"garland/internal/services"
	"garland/internal/tmdb"
)

// Research runs a replacement free-text search for the manual override step
// and returns the provider's alternatives for the user to choose from.
func (r *Reconciler) Research(ctx context.Context, query string) ([]tmdb.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "review", "research", "query must not be empty", nil)
	}
	response, err := r.searcher.SearchMovie(ctx, query)
	if err != nil {
		return nil, r.classifyProviderError("research", query, err)
	}
	return response.Results, nil
}

// Override replaces a candidate's match with an explicit provider id,
// recomputing confidence, re-running the duplicate check, and selecting the
// row unless it turns out to be a duplicate.
func (r *Reconciler) Override(ctx context.Context, batch *Batch, index int, tmdbID int64) error {
	if batch == nil {
		return services.Wrap(services.ErrValidation, "review", "override", "batch is required", nil)
	}
	if index < 0 || index >= len(batch.Candidates) {
		return services.Wrap(services.ErrValidation, "review", "override",
			fmt.Sprintf("candidate index %d out of range", index), nil)
	}

	ctx = services.WithBatchID(ctx, batch.ID)
	ctx = services.WithUserID(ctx, batch.UserID)
	ctx = services.WithStage(ctx, "review")
	ctx = services.WithRowIndex(ctx, batch.Candidates[index].Row.Index)
	logger := logging.WithContext(ctx, r.logger)

	details, err := r.searcher.GetMovieDetails(ctx, tmdbID)
	if err != nil {
		return r.classifyProviderError("override", fmt.Sprintf("tmdb id %d", tmdbID), err)
	}

	candidate := &batch.Candidates[index]
	candidate.Match = details
	candidate.Error = ""
	candidate.Confidence = Confidence(candidate.Row.Title, candidate.Row.ReleaseDate, details.Title, details.ReleaseDate)
	if err := r.checkDuplicate(ctx, batch.UserID, candidate); err != nil {
		candidate.Match = nil
		candidate.Error = err.Error()
		candidate.normalize()
		return err
	}
	candidate.normalize()
	candidate.deriveSelection()

	logger.Info("candidate overridden",
		logging.Int64("tmdb_id", details.ID),
		logging.String("match_title", details.Title),
		logging.Int("confidence", candidate.Confidence),
		logging.String("status", string(candidate.Status)))
	return nil
}
