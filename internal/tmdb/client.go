package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrRateLimited indicates TMDB rejected a request with HTTP 429 and all
// backoff attempts were exhausted.
var ErrRateLimited = errors.New("tmdb: rate limited")

// Result represents a single TMDB search match.
type Result struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    string  `json:"poster_path"`
	Popularity    float64 `json:"popularity"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int64   `json:"vote_count"`
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Genre is a TMDB genre entry on the detail payload.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CastMember is an actor credit.
type CastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// CrewMember is a crew credit; Job distinguishes directors.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Credits carries the appended credits payload.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Details is the full movie record returned by the detail endpoint with
// credits appended.
type Details struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	Runtime       int     `json:"runtime"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int64   `json:"vote_count"`
	Genres        []Genre `json:"genres"`
	Credits       Credits `json:"credits"`
}

// Searcher defines the TMDB operations the import reconciler consumes.
type Searcher interface {
	SearchMovie(ctx context.Context, query string) (*Response, error)
	GetMovieDetails(ctx context.Context, movieID int64) (*Details, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey           string
	baseURL          string
	language         string
	httpClient       *http.Client
	timeout          time.Duration
	rateLimitRetries uint64
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default per-request timeout. The timeout is
// applied after all options run, so it holds regardless of option order.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimitRetries sets how many times a 429 response is retried with
// exponential backoff before surfacing ErrRateLimited.
func WithRateLimitRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.rateLimitRetries = uint64(retries)
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:           apiKey,
		baseURL:          strings.TrimRight(baseURL, "/"),
		language:         strings.TrimSpace(language),
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		rateLimitRetries: 3,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.timeout > 0 {
		client.httpClient.Timeout = client.timeout
	}
	return client, nil
}

// SearchMovie searches TMDB for the supplied free-text query.
func (c *Client) SearchMovie(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")

	var payload Response
	if err := c.getJSON(ctx, "/search/movie", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetMovieDetails fetches the full movie record by TMDB id, with credits
// appended so cast and directors arrive in one round trip.
func (c *Client) GetMovieDetails(ctx context.Context, movieID int64) (*Details, error) {
	if movieID <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	params := url.Values{}
	params.Set("append_to_response", "credits")

	var payload Details
	if err := c.getJSON(ctx, "/movie/"+strconv.FormatInt(movieID, 10), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	backoff := retry.WithMaxRetries(c.rateLimitRetries, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		requestStart := time.Now()
		resp, err := c.httpClient.Do(req)
		latency := time.Since(requestStart)
		if err != nil {
			return fmt.Errorf("execute request (latency=%v): %w", latency, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("%w: %s (latency=%v)", ErrRateLimited, path, latency))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("tmdb %s returned %d (latency=%v)", path, resp.StatusCode, latency)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode tmdb response: %w", err)
		}
		return nil
	})
}
