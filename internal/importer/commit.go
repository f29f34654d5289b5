package importer

import (
	"context"

	"garland/internal/catalog"
	"garland/internal/logging"
	"garland/internal/services"
)

// Commit persists every selected candidate: the shared catalogue entry is
// resolved or created by provider id, then the user's annotation is
// merge-upserted with the row's watched/rating/note values. A failure on one
// row is counted and the commit moves on; nothing is rolled back.
func (r *Reconciler) Commit(ctx context.Context, batch *Batch) (*Summary, error) {
	if batch == nil {
		return nil, services.Wrap(services.ErrValidation, "commit", "", "batch is required", nil)
	}

	ctx = services.WithBatchID(ctx, batch.ID)
	ctx = services.WithUserID(ctx, batch.UserID)
	ctx = services.WithStage(ctx, "commit")
	logger := logging.WithContext(ctx, r.logger)

	summary := &Summary{}
	total := batch.SelectedCount()
	committed := 0

	logger.Info("starting commit", logging.Int("selected", total))

	for i := range batch.Candidates {
		candidate := &batch.Candidates[i]
		if !candidate.Selected || candidate.Match == nil {
			summary.Skipped++
			continue
		}

		rowCtx := services.WithRowIndex(ctx, candidate.Row.Index)
		movieID, err := r.commitRow(rowCtx, batch.UserID, candidate)

		committed++
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, RowFailure{
				RowIndex: candidate.Row.Index,
				Title:    candidate.Row.Title,
				Err:      err.Error(),
			})
			logging.WithContext(rowCtx, r.logger).Warn("row commit failed",
				logging.String("title", candidate.Row.Title),
				logging.Error(err))
		} else {
			summary.Imported++
			summary.MovieIDs = append(summary.MovieIDs, movieID)
			candidate.MovieID = movieID
		}
		if r.onProgress != nil {
			r.onProgress(committed, total)
		}
	}

	logger.Info("commit complete",
		logging.Int("imported", summary.Imported),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped))
	return summary, nil
}

func (r *Reconciler) commitRow(ctx context.Context, userID string, candidate *Candidate) (string, error) {
	movie, _, err := r.store.UpsertMovie(ctx, catalog.FromDetails(candidate.Match))
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "commit", "upsert catalogue entry", candidate.Match.Title, err)
	}

	patch := catalog.AnnotationPatch{}
	if candidate.Row.Watched != nil {
		watched := *candidate.Row.Watched
		patch.Watched = &watched
	}
	if candidate.Row.Rating != nil {
		rating := *candidate.Row.Rating
		patch.Rating = &rating
	}
	if candidate.Row.Note != "" {
		note := candidate.Row.Note
		patch.Review = &note
	}

	if _, _, err := r.store.UpsertAnnotation(ctx, userID, movie.ID, patch); err != nil {
		return "", services.Wrap(services.ErrPersistence, "commit", "upsert annotation", candidate.Match.Title, err)
	}
	return movie.ID, nil
}
