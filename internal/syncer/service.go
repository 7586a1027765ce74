// Package syncer implements the incremental sync engine. It compares the
// schedule provider's bulk revision map against locally stored revisions
// and refreshes only the shows that changed upstream.
package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/metadata"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
	"github.com/watchlog/watchlog/internal/store"
)

// Summary aggregates the result of one sync pass.
type Summary struct {
	TotalShows   int `json:"totalShows"`
	UpdatedShows int `json:"updatedShows"`
	FailedShows  int `json:"failedShows"`
	NewEpisodes  int `json:"newEpisodes"`
}

// Notifier receives sync lifecycle events. The events hub satisfies it.
type Notifier interface {
	Broadcast(msgType string, payload interface{}) error
}

// ReminderScheduler schedules a local reminder for an upcoming episode.
type ReminderScheduler interface {
	ScheduleReminder(showName string, episode *store.Episode)
}

// Service runs incremental sync passes.
type Service struct {
	store     *store.Store
	tvmaze    *tvmaze.Client
	notifier  Notifier
	reminders ReminderScheduler
	showDelay time.Duration
	logger    zerolog.Logger
}

// NewService creates a sync service. showDelayMs spaces consecutive
// per-show fetches as rate-limit courtesy to the upstream API.
func NewService(st *store.Store, tvmazeClient *tvmaze.Client, notifier Notifier,
	showDelayMs int, logger zerolog.Logger) *Service {
	if showDelayMs <= 0 {
		showDelayMs = 500
	}
	return &Service{
		store:     st,
		tvmaze:    tvmazeClient,
		notifier:  notifier,
		showDelay: time.Duration(showDelayMs) * time.Millisecond,
		logger:    logger.With().Str("component", "syncer").Logger(),
	}
}

// SetReminderScheduler attaches the reminder collaborator.
func (s *Service) SetReminderScheduler(r ReminderScheduler) {
	s.reminders = r
}

func (s *Service) notify(msgType string, payload interface{}) {
	if s.notifier != nil {
		_ = s.notifier.Broadcast(msgType, payload)
	}
}

// Synchronize runs one incremental pass over the tracked shows,
// optionally scoped to a profile. Shows are processed sequentially by
// design; the upstream API is public and rate limited, so fetches are
// throttled rather than parallelized.
func (s *Service) Synchronize(ctx context.Context, profileID string) (*Summary, error) {
	shows, err := s.store.ListShows(ctx, profileID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{TotalShows: len(shows)}
	if len(shows) == 0 {
		return summary, nil
	}

	s.notify("sync:started", map[string]interface{}{"totalShows": len(shows)})

	// One request covers the entire upstream catalog.
	updates, err := s.tvmaze.GetUpdates(ctx)
	if err != nil {
		s.notify("sync:failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	var marked []*store.Show
	for _, show := range shows {
		revision, ok := updates[show.TVMazeID]
		if !ok || revision <= show.LastRevision {
			continue
		}
		// The stored revision advances before content is fetched. A fetch
		// failure below leaves the show current-by-revision until the
		// upstream revision moves again; sync trades a retry for never
		// re-fetching an unchanged show.
		if err := s.store.UpdateShowRevision(ctx, show.ID, revision); err != nil {
			s.logger.Error().Err(err).Int64("showId", show.ID).Msg("Failed to advance revision")
			continue
		}
		marked = append(marked, show)
	}

	s.logger.Info().
		Int("totalShows", len(shows)).
		Int("markedShows", len(marked)).
		Msg("Sync pass starting")

	for i, show := range marked {
		if i > 0 {
			select {
			case <-time.After(s.showDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}

		added, err := s.refreshShow(ctx, show)
		if err != nil {
			// One failing show never aborts the pass.
			s.logger.Warn().Err(err).Int64("showId", show.ID).Str("name", show.Name).
				Msg("Show refresh failed, skipping")
			summary.FailedShows++
			continue
		}
		summary.UpdatedShows++
		summary.NewEpisodes += added
	}

	s.logger.Info().
		Int("updatedShows", summary.UpdatedShows).
		Int("failedShows", summary.FailedShows).
		Int("newEpisodes", summary.NewEpisodes).
		Msg("Sync pass completed")
	s.notify("sync:completed", summary)

	return summary, nil
}

// castLimit caps backfilled credits per show, matching the limit the
// library applies at add time.
const castLimit = 10

// refreshShow reconciles one show's episode list against upstream.
// Missing episodes are inserted with the simplified overview, changed
// air dates are updated in place, and nothing is ever deleted.
func (s *Service) refreshShow(ctx context.Context, show *store.Show) (int, error) {
	episodes, err := s.tvmaze.GetEpisodes(ctx, show.TVMazeID)
	if err != nil {
		return 0, err
	}

	s.backfillCast(ctx, show)

	added := 0
	for _, ep := range episodes {
		existing, err := s.store.GetEpisodeBySource(ctx, show.ID, ep.ID)
		if err == store.ErrEpisodeNotFound {
			created, err := s.store.CreateEpisode(ctx, store.CreateEpisodeInput{
				ShowID:   show.ID,
				SourceID: ep.ID,
				Season:   ep.Season,
				Number:   ep.Number,
				Title:    ep.Name,
				Overview: metadata.StripMarkup(ep.Summary),
				AirDate:  parseAirStamp(ep.AirStamp, ep.AirDate),
				Runtime:  ep.Runtime,
			})
			if err != nil {
				s.logger.Warn().Err(err).Int("sourceId", ep.ID).Msg("Failed to insert episode")
				continue
			}
			added++
			s.maybeRemind(show.Name, created)
			continue
		}
		if err != nil {
			return added, err
		}

		upstream := parseAirStamp(ep.AirStamp, ep.AirDate)
		if airDateDiffers(existing.AirDate, upstream) {
			if err := s.store.UpdateEpisodeAirDate(ctx, existing.ID, upstream); err != nil {
				s.logger.Warn().Err(err).Str("episodeId", existing.ID).Msg("Failed to update air date")
			}
		}
	}
	return added, nil
}

// backfillCast attaches credits to shows that have none, such as shows
// restored from a backup where only identity survived. Best effort.
func (s *Service) backfillCast(ctx context.Context, show *store.Show) {
	members, err := s.store.ListShowCast(ctx, show.ID)
	if err != nil || len(members) > 0 {
		return
	}

	credits, err := s.tvmaze.GetCast(ctx, show.TVMazeID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("showId", show.ID).Msg("Failed to fetch cast")
		return
	}
	if len(credits) > castLimit {
		credits = credits[:castLimit]
	}
	for _, credit := range credits {
		input := store.CastInput{
			PersonID:      credit.Person.ID,
			Name:          credit.Person.Name,
			CharacterName: credit.Character.Name,
		}
		if credit.Person.Image != nil {
			input.ImageURL = credit.Person.Image.Medium
		}
		if err := s.store.AddShowCast(ctx, show.ID, input); err != nil {
			s.logger.Warn().Err(err).Int("personId", credit.Person.ID).Msg("Failed to attach cast member")
		}
	}
}

func (s *Service) maybeRemind(showName string, ep *store.Episode) {
	if s.reminders == nil || ep.AirDate == nil {
		return
	}
	if ep.AirDate.After(time.Now()) {
		s.reminders.ScheduleReminder(showName, ep)
	}
}

func airDateDiffers(local, upstream *time.Time) bool {
	if local == nil && upstream == nil {
		return false
	}
	if local == nil || upstream == nil {
		return true
	}
	return !local.Equal(*upstream)
}

func parseAirStamp(airStamp, airDate string) *time.Time {
	if airStamp != "" {
		if t, err := time.Parse(time.RFC3339, airStamp); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	if airDate == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", airDate)
	if err != nil {
		return nil
	}
	return &t
}
