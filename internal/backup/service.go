// Package backup exports the library to a portable JSON document and
// imports such documents additively.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/store"
	"github.com/watchlog/watchlog/internal/syncer"
)

// FormatVersion is the current backup document version.
const FormatVersion = 1

// Document is the portable backup format. Air dates and cast are left
// out on purpose; a follow-up sync pass backfills them after import.
type Document struct {
	Version int          `json:"version"`
	Date    time.Time    `json:"date"`
	Shows   []BackupShow `json:"shows"`
}

// BackupShow is one show with its episodes.
type BackupShow struct {
	ScheduleID int             `json:"scheduleId"`
	Name       string          `json:"name"`
	Overview   string          `json:"overview,omitempty"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	BannerURL  string          `json:"bannerUrl,omitempty"`
	Network    string          `json:"network,omitempty"`
	Status     string          `json:"status,omitempty"`
	Quality    string          `json:"quality"`
	Episodes   []BackupEpisode `json:"episodes"`
}

// BackupEpisode is one episode entry.
type BackupEpisode struct {
	ScheduleID  int        `json:"scheduleId"`
	Title       string     `json:"title,omitempty"`
	Season      int        `json:"season"`
	Number      int        `json:"number"`
	IsWatched   bool       `json:"isWatched"`
	WatchedDate *time.Time `json:"watchedDate,omitempty"`
	Overview    string     `json:"overview,omitempty"`
}

// ImportSummary aggregates one import run.
type ImportSummary struct {
	ShowsAdded    int `json:"showsAdded"`
	ShowsSkipped  int `json:"showsSkipped"`
	EpisodesAdded int `json:"episodesAdded"`
	SyncedShows   int `json:"syncedShows"`
}

// Service exports and imports library backups.
type Service struct {
	store  *store.Store
	syncer *syncer.Service
	logger zerolog.Logger
}

// NewService creates a backup service. The syncer runs the follow-up
// pass after imports; pass nil to skip it.
func NewService(st *store.Store, sync *syncer.Service, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		syncer: sync,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Export builds the backup document for a profile.
func (s *Service) Export(ctx context.Context, profileID string) (*Document, error) {
	shows, err := s.store.ListShows(ctx, profileID)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Version: FormatVersion,
		Date:    time.Now().UTC(),
		Shows:   make([]BackupShow, 0, len(shows)),
	}

	for _, show := range shows {
		episodes, err := s.store.ListEpisodes(ctx, show.ID)
		if err != nil {
			return nil, err
		}

		entry := BackupShow{
			ScheduleID: show.TVMazeID,
			Name:       show.Name,
			Overview:   show.Overview,
			ImageURL:   show.ImageURL,
			BannerURL:  show.BannerURL,
			Network:    show.Network,
			Status:     show.Status,
			Quality:    show.Quality,
			Episodes:   make([]BackupEpisode, 0, len(episodes)),
		}
		for _, ep := range episodes {
			entry.Episodes = append(entry.Episodes, BackupEpisode{
				ScheduleID:  ep.SourceID,
				Title:       ep.Title,
				Season:      ep.Season,
				Number:      ep.Number,
				IsWatched:   ep.Watched,
				WatchedDate: ep.WatchedAt,
				Overview:    ep.Overview,
			})
		}
		doc.Shows = append(doc.Shows, entry)
	}

	s.logger.Info().Int("shows", len(doc.Shows)).Str("profileId", profileID).
		Msg("Library exported")
	return doc, nil
}

// WriteTo serializes a document as indented JSON.
func (s *Service) WriteTo(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Read parses a backup document.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse backup document: %w", err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("unsupported backup version %d", doc.Version)
	}
	return &doc, nil
}

// Import merges a document into the profile's library. Strictly
// additive: a show already present under the same id and quality tag is
// skipped untouched, so re-importing the same file is idempotent. A
// follow-up sync pass backfills the air dates and cast the backup format
// omits.
func (s *Service) Import(ctx context.Context, doc *Document, profileID string) (*ImportSummary, error) {
	summary := &ImportSummary{}

	for _, entry := range doc.Shows {
		existing, err := s.store.GetShowByIdentity(ctx, entry.ScheduleID, entry.Quality, profileID)
		if err == nil && existing != nil {
			summary.ShowsSkipped++
			continue
		}
		if err != store.ErrShowNotFound {
			return nil, err
		}

		show, err := s.store.CreateShow(ctx, store.CreateShowInput{
			TVMazeID:  entry.ScheduleID,
			Quality:   entry.Quality,
			ProfileID: profileID,
			Name:      entry.Name,
			Overview:  entry.Overview,
			ImageURL:  entry.ImageURL,
			BannerURL: entry.BannerURL,
			Network:   entry.Network,
			Status:    entry.Status,
		})
		if err != nil {
			s.logger.Warn().Err(err).Int("scheduleId", entry.ScheduleID).
				Msg("Failed to import show, skipping")
			continue
		}
		summary.ShowsAdded++

		for _, ep := range entry.Episodes {
			created, err := s.store.CreateEpisode(ctx, store.CreateEpisodeInput{
				ShowID:   show.ID,
				SourceID: ep.ScheduleID,
				Season:   ep.Season,
				Number:   ep.Number,
				Title:    ep.Title,
				Overview: ep.Overview,
			})
			if err != nil {
				s.logger.Warn().Err(err).Int("scheduleId", ep.ScheduleID).
					Msg("Failed to import episode")
				continue
			}
			summary.EpisodesAdded++

			if ep.IsWatched {
				if err := s.store.SetEpisodeWatched(ctx, created.ID, true, ep.WatchedDate); err != nil {
					s.logger.Warn().Err(err).Str("episodeId", created.ID).
						Msg("Failed to restore watched state")
				}
			}
		}
	}

	s.logger.Info().
		Int("showsAdded", summary.ShowsAdded).
		Int("showsSkipped", summary.ShowsSkipped).
		Int("episodesAdded", summary.EpisodesAdded).
		Msg("Backup imported")

	if s.syncer != nil && summary.ShowsAdded > 0 {
		syncSummary, err := s.syncer.Synchronize(ctx, profileID)
		if err != nil {
			// The import itself succeeded; the backfill will happen on the
			// next scheduled pass.
			s.logger.Warn().Err(err).Msg("Post-import sync failed")
		} else {
			summary.SyncedShows = syncSummary.UpdatedShows
		}
	}

	return summary, nil
}
