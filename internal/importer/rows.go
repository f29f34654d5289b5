package importer

import (
	"strings"

	"garland/internal/tmdb"
)

// Row is one parsed spreadsheet line. Watched and Rating are nil when the
// source cell was empty or unusable; absence is no signal, not a value.
type Row struct {
	Index       int      `json:"index"`
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Watched     *bool    `json:"watched,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Note        string   `json:"note,omitempty"`
}

// Status classifies a match candidate after scanning.
type Status string

const (
	// StatusMatched means confidence cleared the auto-match threshold.
	StatusMatched Status = "matched"
	// StatusUnmatched means no provider result exists for the row, either
	// because the search was empty or because the row's requests failed.
	StatusUnmatched Status = "unmatched"
	// StatusDuplicate means the user already holds this movie.
	StatusDuplicate Status = "duplicate"
	// StatusNeedsReview means a candidate exists but confidence is too low
	// to trust without a human look.
	StatusNeedsReview Status = "needs_review"
)

var statusSet = map[Status]struct{}{
	StatusMatched:     {},
	StatusUnmatched:   {},
	StatusDuplicate:   {},
	StatusNeedsReview: {},
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// matchThreshold is the confidence at which a candidate auto-matches.
// Below it a candidate always goes to review; the breakpoint is inherited
// behavior, kept deliberately.
const matchThreshold = 70

// Candidate pairs a spreadsheet row with its best provider match. It exists
// only between scan and commit; nothing is persisted until commit.
type Candidate struct {
	Row                 Row           `json:"row"`
	Match               *tmdb.Details `json:"match,omitempty"`
	Confidence          int           `json:"confidence"`
	Status              Status        `json:"status"`
	AlreadyInCollection bool          `json:"already_in_collection"`
	MovieID             string        `json:"movie_id,omitempty"`
	Selected            bool          `json:"selected"`
	Error               string        `json:"error,omitempty"`
}

// normalize enforces the candidate invariants: no match means unmatched and
// unselected, a duplicate is deselected by default but stays overridable.
func (c *Candidate) normalize() {
	if c.Match == nil {
		c.Status = StatusUnmatched
		c.Selected = false
		c.Confidence = 0
		return
	}
	if c.AlreadyInCollection {
		c.Status = StatusDuplicate
		return
	}
	if c.Confidence >= matchThreshold {
		c.Status = StatusMatched
	} else {
		c.Status = StatusNeedsReview
	}
}

// deriveSelection applies the default selection rule after a scan or
// override: everything importable is selected except duplicates.
func (c *Candidate) deriveSelection() {
	c.Selected = c.Match != nil && c.Status != StatusDuplicate
}

// Batch is the transient result of scanning one spreadsheet, ordered by row
// index.
type Batch struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Candidates []Candidate `json:"candidates"`
}

// SelectedCount reports how many candidates will be committed.
func (b *Batch) SelectedCount() int {
	count := 0
	for i := range b.Candidates {
		if b.Candidates[i].Selected && b.Candidates[i].Match != nil {
			count++
		}
	}
	return count
}

// RowFailure records one row-scoped commit failure.
type RowFailure struct {
	RowIndex int    `json:"row_index"`
	Title    string `json:"title"`
	Err      string `json:"error"`
}

// Summary reports a commit outcome. The commit is not atomic: partial
// completion is an accepted result, described here rather than rolled back.
type Summary struct {
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
	Skipped  int          `json:"skipped"`
	MovieIDs []string     `json:"movie_ids,omitempty"`
	Failures []RowFailure `json:"failures,omitempty"`
}
