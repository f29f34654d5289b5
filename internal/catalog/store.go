package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"garland/internal/config"
)

// Store manages catalogue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalogue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the catalogue database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertMovie resolves-or-creates the catalogue entry for the movie's TMDB
// id. When a row already exists its metadata is merge-updated in place; the
// stable id and creation time survive. Returns the stored row and whether it
// was created.
func (s *Store) UpsertMovie(ctx context.Context, movie Movie) (*Movie, bool, error) {
	if movie.TMDBID <= 0 {
		return nil, false, errors.New("movie tmdb id must be positive")
	}

	existing, err := s.FindMovieByTMDBID(ctx, movie.TMDBID)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	movie.UpdatedAt = now

	if existing == nil {
		movie.ID = uuid.NewString()
		movie.CreatedAt = now
		if err := s.insertMovie(ctx, movie); err != nil {
			return nil, false, err
		}
		stored, err := s.GetMovie(ctx, movie.ID)
		return stored, true, err
	}

	existing.mergeFrom(movie)
	existing.UpdatedAt = now
	if err := s.updateMovie(ctx, *existing); err != nil {
		return nil, false, err
	}
	stored, err := s.GetMovie(ctx, existing.ID)
	return stored, false, err
}

func (s *Store) insertMovie(ctx context.Context, movie Movie) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO movies (
            id, tmdb_id, title, sort_title, original_title, release_date,
            overview, poster_url, backdrop_url, runtime,
            genres_json, cast_json, directors_json, keywords_json,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movie.ID,
		movie.TMDBID,
		movie.Title,
		movie.SortTitle,
		nullableString(movie.OriginalTitle),
		nullableString(movie.ReleaseDate),
		nullableString(movie.Overview),
		nullableString(movie.PosterURL),
		nullableString(movie.BackdropURL),
		movie.Runtime,
		marshalStrings(movie.Genres),
		marshalStrings(movie.Cast),
		marshalStrings(movie.Directors),
		marshalStrings(movie.Keywords),
		movie.CreatedAt.Format(time.RFC3339Nano),
		movie.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}
	return nil
}

func (s *Store) updateMovie(ctx context.Context, movie Movie) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE movies
         SET title = ?, sort_title = ?, original_title = ?, release_date = ?,
             overview = ?, poster_url = ?, backdrop_url = ?, runtime = ?,
             genres_json = ?, cast_json = ?, directors_json = ?, keywords_json = ?,
             updated_at = ?
         WHERE id = ?`,
		movie.Title,
		movie.SortTitle,
		nullableString(movie.OriginalTitle),
		nullableString(movie.ReleaseDate),
		nullableString(movie.Overview),
		nullableString(movie.PosterURL),
		nullableString(movie.BackdropURL),
		movie.Runtime,
		marshalStrings(movie.Genres),
		marshalStrings(movie.Cast),
		marshalStrings(movie.Directors),
		marshalStrings(movie.Keywords),
		movie.UpdatedAt.Format(time.RFC3339Nano),
		movie.ID,
	)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	return nil
}

// GetMovie fetches a catalogue entry by identifier. Returns nil when absent.
func (s *Store) GetMovie(ctx context.Context, id string) (*Movie, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	movie, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	return movie, nil
}

// FindMovieByTMDBID returns the catalogue entry holding a TMDB id, or nil.
func (s *Store) FindMovieByTMDBID(ctx context.Context, tmdbID int64) (*Movie, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE tmdb_id = ?`, tmdbID)
	movie, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find movie by tmdb id: %w", err)
	}
	return movie, nil
}

// ListMovies returns every catalogue entry ordered by sort title.
func (s *Store) ListMovies(ctx context.Context) ([]*Movie, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY sort_title COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var movies []*Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	return movies, rows.Err()
}

// GetAnnotation fetches one user's annotation for a catalogue entry.
// Returns nil when the user does not hold the movie.
func (s *Store) GetAnnotation(ctx context.Context, userID, movieID string) (*UserMovie, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+annotationColumns+` FROM user_movies WHERE user_id = ? AND movie_id = ?`,
		userID, movieID,
	)
	annotation, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get annotation: %w", err)
	}
	return annotation, nil
}

// UpsertAnnotation creates or merge-updates the (user, movie) annotation.
// Nil patch fields keep existing values; new rows start unwatched and
// unfavorited. Returns the stored row and whether it was created.
func (s *Store) UpsertAnnotation(ctx context.Context, userID, movieID string, patch AnnotationPatch) (*UserMovie, bool, error) {
	if userID == "" || movieID == "" {
		return nil, false, errors.New("user id and movie id are required")
	}

	existing, err := s.GetAnnotation(ctx, userID, movieID)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	created := existing == nil
	if created {
		existing = &UserMovie{
			UserID:  userID,
			MovieID: movieID,
			AddedAt: now,
		}
	}
	if patch.Watched != nil {
		existing.Watched = *patch.Watched
		if !existing.Watched {
			existing.WatchedDate = nil
		}
	}
	if patch.WatchedDate != nil {
		watchedDate := *patch.WatchedDate
		existing.WatchedDate = &watchedDate
	}
	if patch.Rating != nil {
		rating := *patch.Rating
		existing.Rating = &rating
	}
	if patch.Review != nil {
		existing.Review = *patch.Review
	}
	if patch.Favorite != nil {
		existing.Favorite = *patch.Favorite
	}
	existing.UpdatedAt = now

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO user_movies (user_id, movie_id, watched, watched_date, rating, review, favorite, added_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (user_id, movie_id) DO UPDATE SET
             watched = excluded.watched, watched_date = excluded.watched_date,
             rating = excluded.rating, review = excluded.review,
             favorite = excluded.favorite, updated_at = excluded.updated_at`,
		existing.UserID,
		existing.MovieID,
		boolToInt(existing.Watched),
		nullableTime(existing.WatchedDate),
		nullableFloat(existing.Rating),
		nullableString(existing.Review),
		boolToInt(existing.Favorite),
		existing.AddedAt.Format(time.RFC3339Nano),
		existing.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert annotation: %w", err)
	}

	stored, err := s.GetAnnotation(ctx, userID, movieID)
	return stored, created, err
}

// ListAnnotations returns every annotation a user holds, oldest first.
func (s *Store) ListAnnotations(ctx context.Context, userID string) ([]*UserMovie, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+annotationColumns+` FROM user_movies WHERE user_id = ? ORDER BY added_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var annotations []*UserMovie
	for rows.Next() {
		annotation, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, annotation)
	}
	return annotations, rows.Err()
}

// DeleteAnnotation removes a user's annotation. The shared catalogue entry
// stays.
func (s *Store) DeleteAnnotation(ctx context.Context, userID, movieID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_movies WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete annotation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CollectionEntry pairs a catalogue entry with the owning user's annotation.
type CollectionEntry struct {
	Movie      Movie
	Annotation UserMovie
}

// ListCollection joins a user's annotations with their catalogue entries,
// ordered by sort title.
func (s *Store) ListCollection(ctx context.Context, userID string) ([]CollectionEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+prefixedMovieColumns+`, `+prefixedAnnotationColumns+`
         FROM user_movies um
         JOIN movies m ON m.id = um.movie_id
         WHERE um.user_id = ?
         ORDER BY m.sort_title COLLATE NOCASE`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	var entries []CollectionEntry
	for rows.Next() {
		entry, err := scanCollectionEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats summarizes catalogue contents.
type Stats struct {
	Movies      int
	Annotations int
}

// Stats returns row counts for diagnostics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM movies`).Scan(&stats.Movies); err != nil {
		return stats, fmt.Errorf("count movies: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM user_movies`).Scan(&stats.Annotations); err != nil {
		return stats, fmt.Errorf("count annotations: %w", err)
	}
	return stats, nil
}

const movieColumns = "id, tmdb_id, title, sort_title, original_title, release_date, overview, poster_url, backdrop_url, runtime, genres_json, cast_json, directors_json, keywords_json, created_at, updated_at"

const annotationColumns = "user_id, movie_id, watched, watched_date, rating, review, favorite, added_at, updated_at"

const prefixedMovieColumns = "m.id, m.tmdb_id, m.title, m.sort_title, m.original_title, m.release_date, m.overview, m.poster_url, m.backdrop_url, m.runtime, m.genres_json, m.cast_json, m.directors_json, m.keywords_json, m.created_at, m.updated_at"

const prefixedAnnotationColumns = "um.user_id, um.movie_id, um.watched, um.watched_date, um.rating, um.review, um.favorite, um.added_at, um.updated_at"

type scanner interface{ Scan(dest ...any) error }

func scanMovie(sc scanner) (*Movie, error) {
	var (
		id            string
		tmdbID        int64
		title         string
		sortTitle     string
		originalTitle sql.NullString
		releaseDate   sql.NullString
		overview      sql.NullString
		posterURL     sql.NullString
		backdropURL   sql.NullString
		runtime       sql.NullInt64
		genresJSON    sql.NullString
		castJSON      sql.NullString
		directorsJSON sql.NullString
		keywordsJSON  sql.NullString
		createdRaw    string
		updatedRaw    string
	)
	if err := sc.Scan(
		&id, &tmdbID, &title, &sortTitle, &originalTitle, &releaseDate,
		&overview, &posterURL, &backdropURL, &runtime,
		&genresJSON, &castJSON, &directorsJSON, &keywordsJSON,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	movie := &Movie{
		ID:            id,
		TMDBID:        tmdbID,
		Title:         title,
		SortTitle:     sortTitle,
		OriginalTitle: originalTitle.String,
		ReleaseDate:   releaseDate.String,
		Overview:      overview.String,
		PosterURL:     posterURL.String,
		BackdropURL:   backdropURL.String,
		Runtime:       int(runtime.Int64),
		Genres:        unmarshalStrings(genresJSON.String),
		Cast:          unmarshalStrings(castJSON.String),
		Directors:     unmarshalStrings(directorsJSON.String),
		Keywords:      unmarshalStrings(keywordsJSON.String),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		movie.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		movie.UpdatedAt = updated
	}
	return movie, nil
}

func scanAnnotation(sc scanner) (*UserMovie, error) {
	var (
		userID     string
		movieID    string
		watched    int
		watchedRaw sql.NullString
		rating     sql.NullFloat64
		review     sql.NullString
		favorite   int
		addedRaw   string
		updatedRaw string
	)
	if err := sc.Scan(&userID, &movieID, &watched, &watchedRaw, &rating, &review, &favorite, &addedRaw, &updatedRaw); err != nil {
		return nil, err
	}

	annotation := &UserMovie{
		UserID:   userID,
		MovieID:  movieID,
		Watched:  watched != 0,
		Review:   review.String,
		Favorite: favorite != 0,
	}
	if watchedRaw.Valid {
		if watchedDate, err := parseTimeString(watchedRaw.String); err == nil {
			annotation.WatchedDate = &watchedDate
		}
	}
	if rating.Valid {
		value := rating.Float64
		annotation.Rating = &value
	}
	if added, err := parseTimeString(addedRaw); err == nil {
		annotation.AddedAt = added
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		annotation.UpdatedAt = updated
	}
	return annotation, nil
}

func scanCollectionEntry(sc scanner) (CollectionEntry, error) {
	var (
		entry         CollectionEntry
		originalTitle sql.NullString
		releaseDate   sql.NullString
		overview      sql.NullString
		posterURL     sql.NullString
		backdropURL   sql.NullString
		runtime       sql.NullInt64
		genresJSON    sql.NullString
		castJSON      sql.NullString
		directorsJSON sql.NullString
		keywordsJSON  sql.NullString
		movieCreated  string
		movieUpdated  string
		watched       int
		watchedRaw    sql.NullString
		rating        sql.NullFloat64
		review        sql.NullString
		favorite      int
		addedRaw      string
		updatedRaw    string
	)
	if err := sc.Scan(
		&entry.Movie.ID, &entry.Movie.TMDBID, &entry.Movie.Title, &entry.Movie.SortTitle,
		&originalTitle, &releaseDate, &overview, &posterURL, &backdropURL, &runtime,
		&genresJSON, &castJSON, &directorsJSON, &keywordsJSON, &movieCreated, &movieUpdated,
		&entry.Annotation.UserID, &entry.Annotation.MovieID, &watched, &watchedRaw, &rating, &review, &favorite,
		&addedRaw, &updatedRaw,
	); err != nil {
		return entry, err
	}

	entry.Movie.OriginalTitle = originalTitle.String
	entry.Movie.ReleaseDate = releaseDate.String
	entry.Movie.Overview = overview.String
	entry.Movie.PosterURL = posterURL.String
	entry.Movie.BackdropURL = backdropURL.String
	entry.Movie.Runtime = int(runtime.Int64)
	entry.Movie.Genres = unmarshalStrings(genresJSON.String)
	entry.Movie.Cast = unmarshalStrings(castJSON.String)
	entry.Movie.Directors = unmarshalStrings(directorsJSON.String)
	entry.Movie.Keywords = unmarshalStrings(keywordsJSON.String)
	if created, err := parseTimeString(movieCreated); err == nil {
		entry.Movie.CreatedAt = created
	}
	if updated, err := parseTimeString(movieUpdated); err == nil {
		entry.Movie.UpdatedAt = updated
	}

	entry.Annotation.Watched = watched != 0
	if watchedRaw.Valid {
		if watchedDate, err := parseTimeString(watchedRaw.String); err == nil {
			entry.Annotation.WatchedDate = &watchedDate
		}
	}
	if rating.Valid {
		value := rating.Float64
		entry.Annotation.Rating = &value
	}
	entry.Annotation.Review = review.String
	entry.Annotation.Favorite = favorite != 0
	if added, err := parseTimeString(addedRaw); err == nil {
		entry.Annotation.AddedAt = added
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entry.Annotation.UpdatedAt = updated
	}
	return entry, nil
}

func marshalStrings(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(data)
}

func unmarshalStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
