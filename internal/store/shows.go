package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const showColumns = `id, tvmaze_id, quality, profile_id, name, overview, image_url, banner_url,
	network, status, tmdb_id, thetvdb_id, imdb_id, last_revision, added_at`

// CreateShowInput contains fields for inserting a show.
type CreateShowInput struct {
	TVMazeID  int
	Quality   string
	ProfileID string
	Name      string
	Overview  string
	ImageURL  string
	BannerURL string
	Network   string
	Status    string
	TMDBID    int
	TheTVDBID int
	IMDBID    string
}

// CreateShow inserts a show and returns it.
func (s *Store) CreateShow(ctx context.Context, input CreateShowInput) (*Show, error) {
	status := input.Status
	if status == "" {
		status = "running"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shows (tvmaze_id, quality, profile_id, name, overview, image_url,
			banner_url, network, status, tmdb_id, thetvdb_id, imdb_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.TVMazeID, input.Quality, nullString(input.ProfileID), input.Name,
		nullString(input.Overview), nullString(input.ImageURL), nullString(input.BannerURL),
		nullString(input.Network), status, nullInt64(int64(input.TMDBID)),
		nullInt64(int64(input.TheTVDBID)), nullString(input.IMDBID))
	if err != nil {
		return nil, fmt.Errorf("failed to insert show: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get show id: %w", err)
	}

	return s.GetShow(ctx, id)
}

// GetShow retrieves a show by local id.
func (s *Store) GetShow(ctx context.Context, id int64) (*Show, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	return s.scanShow(row)
}

// GetShowByIdentity retrieves a show by its (tvmazeID, quality, profile) identity.
func (s *Store) GetShowByIdentity(ctx context.Context, tvmazeID int, quality, profileID string) (*Show, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+showColumns+` FROM shows
		 WHERE tvmaze_id = ? AND quality = ? AND ifnull(profile_id, '') = ?`,
		tvmazeID, quality, profileID)
	return s.scanShow(row)
}

// FindShowsByTVMazeID returns every local record tracking the given
// upstream show within a profile, one per quality tag.
func (s *Store) FindShowsByTVMazeID(ctx context.Context, tvmazeID int, profileID string) ([]*Show, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+showColumns+` FROM shows
		 WHERE tvmaze_id = ? AND ifnull(profile_id, '') = ? ORDER BY id`,
		tvmazeID, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to find shows: %w", err)
	}
	defer rows.Close()

	var shows []*Show
	for rows.Next() {
		show, err := s.scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, show)
	}
	return shows, rows.Err()
}

// ListShows returns all shows, optionally scoped to a profile.
func (s *Store) ListShows(ctx context.Context, profileID string) ([]*Show, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if profileID != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+showColumns+` FROM shows WHERE profile_id = ? ORDER BY name`, profileID)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+showColumns+` FROM shows ORDER BY name`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	defer rows.Close()

	var shows []*Show
	for rows.Next() {
		show, err := s.scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, show)
	}
	return shows, rows.Err()
}

// UpdateShowRevision overwrites the stored upstream revision. The revision
// only moves forward; smaller values are ignored.
func (s *Store) UpdateShowRevision(ctx context.Context, id, revision int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE shows SET last_revision = ? WHERE id = ? AND last_revision < ?`,
		revision, id, revision)
	if err != nil {
		return fmt.Errorf("failed to update show revision: %w", err)
	}
	return nil
}

// UpdateShowDetails refreshes the mutable metadata fields of a show.
func (s *Store) UpdateShowDetails(ctx context.Context, show *Show) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE shows SET name = ?, overview = ?, image_url = ?, banner_url = ?,
			network = ?, status = ?, tmdb_id = ?, thetvdb_id = ?, imdb_id = ?
		WHERE id = ?`,
		show.Name, nullString(show.Overview), nullString(show.ImageURL),
		nullString(show.BannerURL), nullString(show.Network), show.Status,
		nullInt64(int64(show.TMDBID)), nullInt64(int64(show.TheTVDBID)),
		nullString(show.IMDBID), show.ID)
	if err != nil {
		return fmt.Errorf("failed to update show: %w", err)
	}
	return nil
}

// DeleteShow deletes a show; episodes and cast members cascade.
func (s *Store) DeleteShow(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete show: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrShowNotFound
	}
	return nil
}

// MigrateOrphanShows assigns shows and movies without an owning profile to
// the given profile. One-time repair for libraries created before profiles
// existed.
func (s *Store) MigrateOrphanShows(ctx context.Context, profileID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shows SET profile_id = ? WHERE profile_id IS NULL`, profileID)
	if err != nil {
		return 0, fmt.Errorf("failed to migrate orphan shows: %w", err)
	}
	migrated, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx,
		`UPDATE movies SET profile_id = ? WHERE profile_id IS NULL`, profileID)
	if err != nil {
		return migrated, fmt.Errorf("failed to migrate orphan movies: %w", err)
	}
	n, _ := res.RowsAffected()
	return migrated + n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanShow(row rowScanner) (*Show, error) {
	var (
		show      Show
		profileID sql.NullString
		overview  sql.NullString
		imageURL  sql.NullString
		bannerURL sql.NullString
		network   sql.NullString
		tmdbID    sql.NullInt64
		thetvdbID sql.NullInt64
		imdbID    sql.NullString
	)

	err := row.Scan(&show.ID, &show.TVMazeID, &show.Quality, &profileID, &show.Name,
		&overview, &imageURL, &bannerURL, &network, &show.Status, &tmdbID, &thetvdbID,
		&imdbID, &show.LastRevision, &show.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, fmt.Errorf("failed to scan show: %w", err)
	}

	show.ProfileID = profileID.String
	show.Overview = overview.String
	show.ImageURL = imageURL.String
	show.BannerURL = bannerURL.String
	show.Network = network.String
	show.TMDBID = int(tmdbID.Int64)
	show.TheTVDBID = int(thetvdbID.Int64)
	show.IMDBID = imdbID.String

	return &show, nil
}
