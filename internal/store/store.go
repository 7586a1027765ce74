// Package store provides typed access to the shared library database.
// All components funnel their reads and writes through it; the single
// SQLite connection serializes mutations.
package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrShowNotFound    = errors.New("show not found")
	ErrEpisodeNotFound = errors.New("episode not found")
	ErrMovieNotFound   = errors.New("movie not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrTokenNotFound   = errors.New("token not found")
)

// Store provides library persistence operations.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New creates a new store.
func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// WatchStatus is the watch state of a movie.
type WatchStatus string

const (
	StatusToWatch   WatchStatus = "toWatch"
	StatusWatched   WatchStatus = "watched"
	StatusAbandoned WatchStatus = "abandoned"
)

// Show is the canonical local aggregate for a tracked series. The same
// upstream show may exist several times, distinguished by quality tag.
type Show struct {
	ID           int64     `json:"id"`
	TVMazeID     int       `json:"tvmazeId"`
	Quality      string    `json:"quality"`
	ProfileID    string    `json:"profileId,omitempty"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	BannerURL    string    `json:"bannerUrl,omitempty"`
	Network      string    `json:"network,omitempty"`
	Status       string    `json:"status"`
	TMDBID       int       `json:"tmdbId,omitempty"`
	TheTVDBID    int       `json:"thetvdbId,omitempty"`
	IMDBID       string    `json:"imdbId,omitempty"`
	LastRevision int64     `json:"lastRevision"`
	AddedAt      time.Time `json:"addedAt"`
}

// Episode belongs to a Show. Its ID is the composite of the local show id
// and the provider's episode id, which keeps it unique across shows even
// when two providers hand out colliding episode ids.
type Episode struct {
	ID                 string     `json:"id"`
	ShowID             int64      `json:"showId"`
	SourceID           int        `json:"sourceId"`
	Season             int        `json:"season"`
	Number             int        `json:"number"`
	Title              string     `json:"title,omitempty"`
	Overview           string     `json:"overview,omitempty"`
	OverviewTranslated bool       `json:"overviewTranslated,omitempty"`
	AirDate            *time.Time `json:"airDate,omitempty"`
	Runtime            int        `json:"runtime,omitempty"`
	Watched            bool       `json:"watched"`
	WatchedAt          *time.Time `json:"watchedAt,omitempty"`
}

// Movie is a tracked movie, keyed by TMDB id and profile.
type Movie struct {
	ID          int64       `json:"id"`
	TMDBID      int         `json:"tmdbId"`
	ProfileID   string      `json:"profileId,omitempty"`
	Title       string      `json:"title"`
	Overview    string      `json:"overview,omitempty"`
	PosterURL   string      `json:"posterUrl,omitempty"`
	BackdropURL string      `json:"backdropUrl,omitempty"`
	ReleaseDate *time.Time  `json:"releaseDate,omitempty"`
	Runtime     int         `json:"runtime,omitempty"`
	Status      WatchStatus `json:"status"`
	WatchedAt   *time.Time  `json:"watchedAt,omitempty"`
	Rating      int         `json:"rating,omitempty"`
	Quality     string      `json:"quality,omitempty"`
	AddedAt     time.Time   `json:"addedAt"`
}

// CastMember is shared between show and movie casts; it links to exactly
// one of the two.
type CastMember struct {
	ID            int64  `json:"id"`
	PersonID      int    `json:"personId"`
	Name          string `json:"name"`
	CharacterName string `json:"characterName,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
	ShowID        *int64 `json:"showId,omitempty"`
	MovieID       *int64 `json:"movieId,omitempty"`
}

// Profile partitions shows and movies per local user.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// TraktToken is a persisted external-service session, keyed per profile.
type TraktToken struct {
	ProfileID    string    `json:"profileId"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
