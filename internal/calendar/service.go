// Package calendar builds the upcoming-episodes feed over the local
// library. Only episodes with a known air date appear.
package calendar

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/store"
)

// Entry is one upcoming episode with its show context.
type Entry struct {
	EpisodeID string    `json:"episodeId"`
	ShowID    int64     `json:"showId"`
	ShowName  string    `json:"showName"`
	Season    int       `json:"season"`
	Number    int       `json:"number"`
	Title     string    `json:"title,omitempty"`
	AirDate   time.Time `json:"airDate"`
	Network   string    `json:"network,omitempty"`
}

// Service serves the calendar feed.
type Service struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewService creates a calendar service.
func NewService(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With().Str("component", "calendar").Logger(),
	}
}

// Upcoming returns the episodes airing within the next days for a
// profile, sorted by air date.
func (s *Service) Upcoming(ctx context.Context, profileID string, days int) ([]Entry, error) {
	if days <= 0 {
		days = 30
	}

	episodes, err := s.store.ListUpcomingEpisodes(ctx, profileID, days)
	if err != nil {
		return nil, err
	}

	shows, err := s.store.ListShows(ctx, profileID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*store.Show, len(shows))
	for _, show := range shows {
		byID[show.ID] = show
	}

	entries := make([]Entry, 0, len(episodes))
	for _, ep := range episodes {
		entry := Entry{
			EpisodeID: ep.ID,
			ShowID:    ep.ShowID,
			Season:    ep.Season,
			Number:    ep.Number,
			Title:     ep.Title,
			AirDate:   *ep.AirDate,
		}
		if show, ok := byID[ep.ShowID]; ok {
			entry.ShowName = show.Name
			entry.Network = show.Network
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
