package importer

import (
	"context"
	"strings"
	"time"

	"garland/internal/cache"
	"garland/internal/tmdb"
)

// CachedSearcher wraps a tmdb.Searcher with TTL caches so repeated queries
// inside one session (or across the scan and review steps) do not re-hit the
// provider. Errors are never cached.
type CachedSearcher struct {
	inner    tmdb.Searcher
	searches *cache.TTL[string, *tmdb.Response]
	details  *cache.TTL[int64, *tmdb.Details]
}

var _ tmdb.Searcher = (*CachedSearcher)(nil)

// NewCachedSearcher wraps inner with caches whose entries expire after ttl.
func NewCachedSearcher(inner tmdb.Searcher, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{
		inner:    inner,
		searches: cache.NewTTL[string, *tmdb.Response](ttl),
		details:  cache.NewTTL[int64, *tmdb.Details](ttl),
	}
}

// SearchMovie serves the query from cache when possible, keyed on the
// whitespace-trimmed lowercase query.
func (s *CachedSearcher) SearchMovie(ctx context.Context, query string) (*tmdb.Response, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if resp, ok := s.searches.Get(key); ok {
		return resp, nil
	}
	resp, err := s.inner.SearchMovie(ctx, query)
	if err != nil {
		return nil, err
	}
	s.searches.Set(key, resp)
	return resp, nil
}

// GetMovieDetails serves the detail record from cache when possible.
func (s *CachedSearcher) GetMovieDetails(ctx context.Context, movieID int64) (*tmdb.Details, error) {
	if details, ok := s.details.Get(movieID); ok {
		return details, nil
	}
	details, err := s.inner.GetMovieDetails(ctx, movieID)
	if err != nil {
		return nil, err
	}
	s.details.Set(movieID, details)
	return details, nil
}

// Invalidate drops every cached entry.
func (s *CachedSearcher) Invalidate() {
	s.searches.Clear()
	s.details.Clear()
}
