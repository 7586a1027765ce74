package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const movieColumns = `id, tmdb_id, profile_id, title, overview, poster_url, backdrop_url,
	release_date, runtime, status, watched_at, rating, quality, added_at`

// CreateMovieInput contains fields for inserting a movie.
type CreateMovieInput struct {
	TMDBID      int
	ProfileID   string
	Title       string
	Overview    string
	PosterURL   string
	BackdropURL string
	ReleaseDate *time.Time
	Runtime     int
	Quality     string
}

// CreateMovie inserts a movie and returns it.
func (s *Store) CreateMovie(ctx context.Context, input CreateMovieInput) (*Movie, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO movies (tmdb_id, profile_id, title, overview, poster_url, backdrop_url,
			release_date, runtime, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.TMDBID, nullString(input.ProfileID), input.Title, nullString(input.Overview),
		nullString(input.PosterURL), nullString(input.BackdropURL),
		nullTime(input.ReleaseDate), nullInt64(int64(input.Runtime)), nullString(input.Quality))
	if err != nil {
		return nil, fmt.Errorf("failed to insert movie: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get movie id: %w", err)
	}

	return s.GetMovie(ctx, id)
}

// GetMovie retrieves a movie by local id.
func (s *Store) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	return s.scanMovie(row)
}

// GetMovieByIdentity retrieves a movie by its (tmdbID, profile) identity.
func (s *Store) GetMovieByIdentity(ctx context.Context, tmdbID int, profileID string) (*Movie, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies
		 WHERE tmdb_id = ? AND ifnull(profile_id, '') = ?`, tmdbID, profileID)
	return s.scanMovie(row)
}

// ListMovies returns all movies, optionally scoped to a profile.
func (s *Store) ListMovies(ctx context.Context, profileID string) ([]*Movie, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if profileID != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+movieColumns+` FROM movies WHERE profile_id = ? ORDER BY title`, profileID)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+movieColumns+` FROM movies ORDER BY title`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	var movies []*Movie
	for rows.Next() {
		movie, err := s.scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	return movies, rows.Err()
}

// SetMovieStatus updates the watch status. The watched date is set when the
// status becomes watched and cleared otherwise.
func (s *Store) SetMovieStatus(ctx context.Context, id int64, status WatchStatus, watchedAt *time.Time) error {
	var at sql.NullTime
	if status == StatusWatched {
		when := time.Now().UTC()
		if watchedAt != nil {
			when = *watchedAt
		}
		at = sql.NullTime{Time: when, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET status = ?, watched_at = ? WHERE id = ?`,
		string(status), at, id)
	if err != nil {
		return fmt.Errorf("failed to update movie status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// SetMovieRating stores the personal rating.
func (s *Store) SetMovieRating(ctx context.Context, id int64, rating int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET rating = ? WHERE id = ?`, nullInt64(int64(rating)), id)
	if err != nil {
		return fmt.Errorf("failed to update movie rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// DeleteMovie deletes a movie; cast members cascade.
func (s *Store) DeleteMovie(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

func (s *Store) scanMovie(row rowScanner) (*Movie, error) {
	var (
		movie       Movie
		profileID   sql.NullString
		overview    sql.NullString
		posterURL   sql.NullString
		backdropURL sql.NullString
		releaseDate sql.NullTime
		runtime     sql.NullInt64
		status      string
		watchedAt   sql.NullTime
		rating      sql.NullInt64
		quality     sql.NullString
	)

	err := row.Scan(&movie.ID, &movie.TMDBID, &profileID, &movie.Title, &overview,
		&posterURL, &backdropURL, &releaseDate, &runtime, &status, &watchedAt,
		&rating, &quality, &movie.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to scan movie: %w", err)
	}

	movie.ProfileID = profileID.String
	movie.Overview = overview.String
	movie.PosterURL = posterURL.String
	movie.BackdropURL = backdropURL.String
	movie.ReleaseDate = timePtr(releaseDate)
	movie.Runtime = int(runtime.Int64)
	movie.Status = WatchStatus(status)
	movie.WatchedAt = timePtr(watchedAt)
	movie.Rating = int(rating.Int64)
	movie.Quality = quality.String

	return &movie, nil
}
