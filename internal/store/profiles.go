package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateProfile inserts a profile with a generated id.
func (s *Store) CreateProfile(ctx context.Context, name string) (*Profile, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	return s.GetProfile(ctx, id)
}

// GetProfile retrieves a profile by id.
func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// ListProfiles returns all profiles ordered by creation time.
func (s *Store) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

// EnsureDefaultProfile returns the oldest profile, creating one when the
// table is empty, and adopts any orphaned shows/movies into it.
func (s *Store) EnsureDefaultProfile(ctx context.Context) (*Profile, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	var def *Profile
	if len(profiles) > 0 {
		def = profiles[0]
	} else {
		def, err = s.CreateProfile(ctx, "Default")
		if err != nil {
			return nil, err
		}
	}

	migrated, err := s.MigrateOrphanShows(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	if migrated > 0 {
		s.logger.Info().Int64("migrated", migrated).Str("profileId", def.ID).
			Msg("Adopted orphaned library items into default profile")
	}

	return def, nil
}

// SaveTraktToken stores or replaces the external-service session of a profile.
func (s *Store) SaveTraktToken(ctx context.Context, token TraktToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trakt_tokens (profile_id, access_token, refresh_token, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			created_at = excluded.created_at`,
		token.ProfileID, token.AccessToken, nullString(token.RefreshToken), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save trakt token: %w", err)
	}
	return nil
}

// GetTraktToken retrieves the stored session of a profile.
func (s *Store) GetTraktToken(ctx context.Context, profileID string) (*TraktToken, error) {
	var (
		t       TraktToken
		refresh sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT profile_id, access_token, refresh_token, created_at
		 FROM trakt_tokens WHERE profile_id = ?`, profileID).
		Scan(&t.ProfileID, &t.AccessToken, &refresh, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get trakt token: %w", err)
	}
	t.RefreshToken = refresh.String
	return &t, nil
}

// DeleteTraktToken removes the stored session of a profile.
func (s *Store) DeleteTraktToken(ctx context.Context, profileID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM trakt_tokens WHERE profile_id = ?`, profileID)
	if err != nil {
		return fmt.Errorf("failed to delete trakt token: %w", err)
	}
	return nil
}
