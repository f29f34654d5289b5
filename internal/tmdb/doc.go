// Package tmdb provides a minimal client for The Movie Database API: free-text
// movie search and detail fetches with credits appended. Throttled requests
// are retried with exponential backoff before surfacing ErrRateLimited.
package tmdb
