package catalog

import (
	"strings"
	"time"

	"garland/internal/titles"
	"garland/internal/tmdb"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

const backdropBaseURL = "https://image.tmdb.org/t/p/original"

// Movie is the shared, de-duplicated catalogue entry for a film. One row
// exists per TMDB id regardless of how many users hold it in their
// collections.
type Movie struct {
	ID            string
	TMDBID        int64
	Title         string
	SortTitle     string
	OriginalTitle string
	ReleaseDate   string
	Overview      string
	PosterURL     string
	BackdropURL   string
	Runtime       int
	Genres        []string
	Cast          []string
	Directors     []string
	Keywords      []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserMovie is one user's annotation of a catalogue entry, keyed by
// (UserID, MovieID).
type UserMovie struct {
	UserID      string
	MovieID     string
	Watched     bool
	WatchedDate *time.Time
	Rating      *float64
	Review      string
	Favorite    bool
	AddedAt     time.Time
	UpdatedAt   time.Time
}

// AnnotationPatch carries the fields an upsert wants to change. Nil fields
// leave the existing value untouched, which is what makes re-running an
// import converge instead of clobbering.
type AnnotationPatch struct {
	Watched     *bool
	WatchedDate *time.Time
	Rating      *float64
	Review      *string
	Favorite    *bool
}

// FromDetails builds a catalogue entry from a TMDB detail record, applying
// the repository formatting rules: sort title without leading article,
// absolute poster/backdrop URLs, top-10 cast, directors from crew, and
// normalized search keywords.
func FromDetails(details *tmdb.Details) Movie {
	movie := Movie{
		TMDBID:        details.ID,
		Title:         details.Title,
		SortTitle:     titles.SortTitle(details.Title),
		OriginalTitle: details.OriginalTitle,
		ReleaseDate:   details.ReleaseDate,
		Overview:      details.Overview,
		Runtime:       details.Runtime,
	}
	if details.PosterPath != "" {
		movie.PosterURL = posterBaseURL + details.PosterPath
	}
	if details.BackdropPath != "" {
		movie.BackdropURL = backdropBaseURL + details.BackdropPath
	}
	for _, genre := range details.Genres {
		if name := strings.TrimSpace(genre.Name); name != "" {
			movie.Genres = append(movie.Genres, name)
		}
	}
	cast := details.Credits.Cast
	if len(cast) > 10 {
		cast = cast[:10]
	}
	for _, member := range cast {
		if name := strings.TrimSpace(member.Name); name != "" {
			movie.Cast = append(movie.Cast, name)
		}
	}
	for _, member := range details.Credits.Crew {
		if member.Job == "Director" {
			if name := strings.TrimSpace(member.Name); name != "" {
				movie.Directors = append(movie.Directors, name)
			}
		}
	}
	movie.Keywords = buildKeywords(movie)
	return movie
}

// buildKeywords assembles the normalized token set used for local search:
// title and original title (whole and per word), release year, genres, and
// the top five cast names. Capped to keep rows bounded.
func buildKeywords(movie Movie) []string {
	const maxKeywords = 200

	seen := make(map[string]struct{})
	var keywords []string
	push := func(text string) {
		norm := titles.Normalize(text)
		if norm == "" {
			return
		}
		for _, token := range append([]string{norm}, strings.Fields(norm)...) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			keywords = append(keywords, token)
		}
	}

	push(movie.Title)
	push(movie.OriginalTitle)
	if year := titles.Year(movie.ReleaseDate); year != "" {
		if _, ok := seen[year]; !ok {
			seen[year] = struct{}{}
			keywords = append(keywords, year)
		}
	}
	for _, genre := range movie.Genres {
		push(genre)
	}
	castLimit := len(movie.Cast)
	if castLimit > 5 {
		castLimit = 5
	}
	for _, name := range movie.Cast[:castLimit] {
		push(name)
	}

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// mergeFrom overlays incoming metadata onto an existing catalogue row,
// keeping identity and creation time.
func (m *Movie) mergeFrom(incoming Movie) {
	incoming.ID = m.ID
	incoming.CreatedAt = m.CreatedAt
	*m = incoming
}
