package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"garland/internal/services"
)

// Plan is the on-disk form of a scanned batch, written between the scan and
// commit steps so the user can review it: toggle selected, or set
// override_tmdb_id to replace a row's match.
type Plan struct {
	BatchID     string    `json:"batch_id"`
	UserID      string    `json:"user_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Rows        []PlanRow `json:"rows"`
}

// PlanRow is one reviewable candidate. Only Selected and OverrideTMDBID are
// meant to be edited by hand.
type PlanRow struct {
	Candidate
	OverrideTMDBID int64 `json:"override_tmdb_id,omitempty"`
}

// NewPlan snapshots a batch for review.
func NewPlan(batch *Batch) *Plan {
	plan := &Plan{
		BatchID:     batch.ID,
		UserID:      batch.UserID,
		GeneratedAt: time.Now().UTC(),
		Rows:        make([]PlanRow, len(batch.Candidates)),
	}
	for i := range batch.Candidates {
		plan.Rows[i] = PlanRow{Candidate: batch.Candidates[i]}
	}
	return plan
}

// WritePlan serializes a plan as indented JSON.
func WritePlan(w io.Writer, plan *Plan) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(plan); err != nil {
		return services.Wrap(services.ErrValidation, "review", "write plan", "encode json", err)
	}
	return nil
}

// ReadPlan deserializes a plan file.
func ReadPlan(r io.Reader) (*Plan, error) {
	var plan Plan
	if err := json.NewDecoder(r).Decode(&plan); err != nil {
		return nil, services.Wrap(services.ErrValidation, "review", "read plan", "decode json", err)
	}
	if plan.UserID == "" {
		return nil, services.Wrap(services.ErrValidation, "review", "read plan", "plan has no user id", nil)
	}
	for i := range plan.Rows {
		status, ok := ParseStatus(string(plan.Rows[i].Status))
		if !ok {
			detail := fmt.Sprintf("row %d has unknown status %q", i+1, plan.Rows[i].Status)
			return nil, services.Wrap(services.ErrValidation, "review", "read plan", detail, nil)
		}
		plan.Rows[i].Status = status
	}
	return &plan, nil
}

// Resolve turns an edited plan back into a committable batch. Manual
// overrides are re-fetched and re-scored through the reconciler; candidate
// invariants are re-enforced so a hand-edited plan cannot select an
// unmatched row.
func (p *Plan) Resolve(ctx context.Context, rec *Reconciler) (*Batch, error) {
	batch := &Batch{
		ID:         p.BatchID,
		UserID:     p.UserID,
		Candidates: make([]Candidate, len(p.Rows)),
	}
	for i := range p.Rows {
		batch.Candidates[i] = p.Rows[i].Candidate
	}

	for i := range p.Rows {
		override := p.Rows[i].OverrideTMDBID
		if override == 0 {
			continue
		}
		if current := batch.Candidates[i].Match; current != nil && current.ID == override {
			continue
		}
		if err := rec.Override(ctx, batch, i, override); err != nil {
			return nil, err
		}
	}

	for i := range batch.Candidates {
		candidate := &batch.Candidates[i]
		selected := candidate.Selected
		candidate.normalize()
		// Respect the user's explicit selection except where the invariants
		// forbid it (no match); duplicates stay overridable.
		if candidate.Match != nil {
			candidate.Selected = selected
		}
	}
	return batch, nil
}
