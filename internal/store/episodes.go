package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const episodeColumns = `id, show_id, source_id, season, number, title, overview,
	overview_translated, air_date, runtime, watched, watched_at`

// EpisodeID builds the deterministic composite episode identifier from the
// local show id and the provider's episode id. Uniqueness holds across the
// whole store even when two shows share a source episode id.
func EpisodeID(showID int64, sourceID int) string {
	return fmt.Sprintf("%d-%d", showID, sourceID)
}

// CreateEpisodeInput contains fields for inserting an episode.
type CreateEpisodeInput struct {
	ShowID             int64
	SourceID           int
	Season             int
	Number             int
	Title              string
	Overview           string
	OverviewTranslated bool
	AirDate            *time.Time
	Runtime            int
}

// CreateEpisode inserts an episode with its composite id and returns it.
func (s *Store) CreateEpisode(ctx context.Context, input CreateEpisodeInput) (*Episode, error) {
	id := EpisodeID(input.ShowID, input.SourceID)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, show_id, source_id, season, number, title, overview,
			overview_translated, air_date, runtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.ShowID, input.SourceID, input.Season, input.Number,
		nullString(input.Title), nullString(input.Overview), boolToInt(input.OverviewTranslated),
		nullTime(input.AirDate), nullInt64(int64(input.Runtime)))
	if err != nil {
		return nil, fmt.Errorf("failed to insert episode: %w", err)
	}

	return s.GetEpisode(ctx, id)
}

// GetEpisode retrieves an episode by composite id.
func (s *Store) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	return s.scanEpisode(row)
}

// GetEpisodeBySource retrieves an episode by show and provider episode id.
func (s *Store) GetEpisodeBySource(ctx context.Context, showID int64, sourceID int) (*Episode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE show_id = ? AND source_id = ?`,
		showID, sourceID)
	return s.scanEpisode(row)
}

// GetEpisodeByNumber retrieves an episode by show, season and episode number.
func (s *Store) GetEpisodeByNumber(ctx context.Context, showID int64, season, number int) (*Episode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE show_id = ? AND season = ? AND number = ?`,
		showID, season, number)
	return s.scanEpisode(row)
}

// ListEpisodes returns all episodes of a show ordered by season and number.
func (s *Store) ListEpisodes(ctx context.Context, showID int64) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE show_id = ? ORDER BY season, number`,
		showID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		ep, err := s.scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// ListUpcomingEpisodes returns unaired episodes across the profile's shows
// with an air date inside [now, now+days]. Episodes without a known air
// date never appear here.
func (s *Store) ListUpcomingEpisodes(ctx context.Context, profileID string, days int) ([]*Episode, error) {
	now := time.Now().UTC()
	until := now.AddDate(0, 0, days)

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.show_id, e.source_id, e.season, e.number, e.title, e.overview,
			e.overview_translated, e.air_date, e.runtime, e.watched, e.watched_at
		FROM episodes e
		JOIN shows s ON s.id = e.show_id
		WHERE ifnull(s.profile_id, '') = ?
			AND e.air_date IS NOT NULL AND e.air_date >= ? AND e.air_date <= ?
		ORDER BY e.air_date`,
		profileID, now, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		ep, err := s.scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// SetEpisodeWatched sets or clears the watched flag. The watched date is
// set when marking watched and cleared when unmarking.
func (s *Store) SetEpisodeWatched(ctx context.Context, id string, watched bool, watchedAt *time.Time) error {
	var at sql.NullTime
	if watched {
		when := time.Now().UTC()
		if watchedAt != nil {
			when = *watchedAt
		}
		at = sql.NullTime{Time: when, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE episodes SET watched = ?, watched_at = ? WHERE id = ?`,
		boolToInt(watched), at, id)
	if err != nil {
		return fmt.Errorf("failed to update episode watched state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEpisodeNotFound
	}
	return nil
}

// UpdateEpisodeAirDate updates the air date in place.
func (s *Store) UpdateEpisodeAirDate(ctx context.Context, id string, airDate *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE episodes SET air_date = ? WHERE id = ?`, nullTime(airDate), id)
	if err != nil {
		return fmt.Errorf("failed to update episode air date: %w", err)
	}
	return nil
}

// CountEpisodes returns the number of episodes of a show.
func (s *Store) CountEpisodes(ctx context.Context, showID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM episodes WHERE show_id = ?`, showID).Scan(&count)
	return count, err
}

func (s *Store) scanEpisode(row rowScanner) (*Episode, error) {
	var (
		ep         Episode
		title      sql.NullString
		overview   sql.NullString
		translated int64
		airDate    sql.NullTime
		runtime    sql.NullInt64
		watched    int64
		watchedAt  sql.NullTime
	)

	err := row.Scan(&ep.ID, &ep.ShowID, &ep.SourceID, &ep.Season, &ep.Number,
		&title, &overview, &translated, &airDate, &runtime, &watched, &watchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("failed to scan episode: %w", err)
	}

	ep.Title = title.String
	ep.Overview = overview.String
	ep.OverviewTranslated = translated == 1
	ep.AirDate = timePtr(airDate)
	ep.Runtime = int(runtime.Int64)
	ep.Watched = watched == 1
	ep.WatchedAt = timePtr(watchedAt)

	return &ep, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
