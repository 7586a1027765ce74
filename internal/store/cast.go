package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CastInput contains fields for attaching a cast member.
type CastInput struct {
	PersonID      int
	Name          string
	CharacterName string
	ImageURL      string
}

// AddShowCast attaches a cast member to a show.
func (s *Store) AddShowCast(ctx context.Context, showID int64, input CastInput) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cast_members (person_id, name, character_name, image_url, show_id)
		VALUES (?, ?, ?, ?, ?)`,
		input.PersonID, input.Name, nullString(input.CharacterName),
		nullString(input.ImageURL), showID)
	if err != nil {
		return fmt.Errorf("failed to insert show cast member: %w", err)
	}
	return nil
}

// AddMovieCast attaches a cast member to a movie.
func (s *Store) AddMovieCast(ctx context.Context, movieID int64, input CastInput) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cast_members (person_id, name, character_name, image_url, movie_id)
		VALUES (?, ?, ?, ?, ?)`,
		input.PersonID, input.Name, nullString(input.CharacterName),
		nullString(input.ImageURL), movieID)
	if err != nil {
		return fmt.Errorf("failed to insert movie cast member: %w", err)
	}
	return nil
}

// ListShowCast returns the cast of a show.
func (s *Store) ListShowCast(ctx context.Context, showID int64) ([]*CastMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, name, character_name, image_url, show_id, movie_id
		FROM cast_members WHERE show_id = ? ORDER BY id`, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to list show cast: %w", err)
	}
	defer rows.Close()
	return scanCast(rows)
}

// ListMovieCast returns the cast of a movie.
func (s *Store) ListMovieCast(ctx context.Context, movieID int64) ([]*CastMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, name, character_name, image_url, show_id, movie_id
		FROM cast_members WHERE movie_id = ? ORDER BY id`, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movie cast: %w", err)
	}
	defer rows.Close()
	return scanCast(rows)
}

func scanCast(rows *sql.Rows) ([]*CastMember, error) {
	var members []*CastMember
	for rows.Next() {
		var (
			m             CastMember
			characterName sql.NullString
			imageURL      sql.NullString
			showID        sql.NullInt64
			movieID       sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.PersonID, &m.Name, &characterName, &imageURL,
			&showID, &movieID); err != nil {
			return nil, fmt.Errorf("failed to scan cast member: %w", err)
		}
		m.CharacterName = characterName.String
		m.ImageURL = imageURL.String
		if showID.Valid {
			id := showID.Int64
			m.ShowID = &id
		}
		if movieID.Valid {
			id := movieID.Int64
			m.MovieID = &id
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}
