// Package library implements the reconciler that turns provider catalog
// entries into local Show and Movie aggregates.
package library

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/metadata"
	"github.com/watchlog/watchlog/internal/metadata/fanart"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
	"github.com/watchlog/watchlog/internal/store"
)

// Outcome classifies the result of an add operation.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "alreadyExists"
	OutcomeUpdated       Outcome = "updated"
)

// Notifier receives domain events. The events hub satisfies it.
type Notifier interface {
	Broadcast(msgType string, payload interface{}) error
}

// ReminderScheduler schedules a local reminder for an upcoming episode.
// Implementations live outside this core.
type ReminderScheduler interface {
	ScheduleReminder(showName string, episode *store.Episode)
}

// WatchedPusher mirrors local watched marks to an external service.
// Calls are fire-and-forget; implementations must not block the caller
// on network failures.
type WatchedPusher interface {
	PushEpisodeWatched(ctx context.Context, show *store.Show, episode *store.Episode)
	PushMovieWatched(ctx context.Context, movie *store.Movie)
}

// AddOptions tunes AddOrUpdate behavior.
type AddOptions struct {
	// MergeOnDuplicate runs an episode catch-up when the show already
	// exists instead of returning alreadyExists untouched.
	MergeOnDuplicate bool
}

// Service is the library reconciler.
type Service struct {
	store     *store.Store
	tvmaze    *tvmaze.Client
	resolver  *metadata.Resolver
	fanart    *fanart.Client
	notifier  Notifier
	reminders ReminderScheduler
	pusher    WatchedPusher
	castLimit int
	logger    zerolog.Logger
}

// NewService creates a library service.
func NewService(st *store.Store, tvmazeClient *tvmaze.Client, resolver *metadata.Resolver,
	fanartClient *fanart.Client, notifier Notifier, castLimit int, logger zerolog.Logger) *Service {
	if castLimit <= 0 {
		castLimit = 10
	}
	return &Service{
		store:     st,
		tvmaze:    tvmazeClient,
		resolver:  resolver,
		fanart:    fanartClient,
		notifier:  notifier,
		castLimit: castLimit,
		logger:    logger.With().Str("component", "library").Logger(),
	}
}

// SetReminderScheduler attaches the reminder collaborator.
func (s *Service) SetReminderScheduler(r ReminderScheduler) {
	s.reminders = r
}

// SetWatchedPusher attaches the external watch-history observer. Set
// after construction to break the cycle with the synchronizer, which
// itself needs the library.
func (s *Service) SetWatchedPusher(p WatchedPusher) {
	s.pusher = p
}

func (s *Service) notify(msgType string, payload interface{}) {
	if s.notifier != nil {
		_ = s.notifier.Broadcast(msgType, payload)
	}
}

// AddOrUpdate adds a show identified by its schedule-provider id under a
// quality tag. The same upstream show may be tracked several times with
// different tags. A duplicate add writes nothing unless
// opts.MergeOnDuplicate is set, in which case the episode list is caught
// up in place.
func (s *Service) AddOrUpdate(ctx context.Context, tvmazeID int, quality, profileID string, opts AddOptions) (Outcome, *store.Show, error) {
	existing, err := s.store.GetShowByIdentity(ctx, tvmazeID, quality, profileID)
	if err == nil {
		if !opts.MergeOnDuplicate {
			s.logger.Info().Int("tvmazeId", tvmazeID).Str("quality", quality).
				Msg("Show already tracked")
			s.notify("show:exists", existing)
			return OutcomeAlreadyExists, existing, nil
		}
		if err := s.mergeEpisodes(ctx, existing); err != nil {
			return OutcomeAlreadyExists, existing, err
		}
		s.notify("show:updated", existing)
		return OutcomeUpdated, existing, nil
	}
	if err != store.ErrShowNotFound {
		return "", nil, err
	}

	// Fresh details so network/status/artwork are current at add time.
	details, err := s.tvmaze.GetShow(ctx, tvmazeID)
	if err != nil {
		s.notify("show:add-failed", map[string]interface{}{"tvmazeId": tvmazeID, "error": err.Error()})
		return "", nil, fmt.Errorf("failed to fetch show details: %w", err)
	}

	enrichment := s.resolver.Enrich(ctx, details)

	input := store.CreateShowInput{
		TVMazeID:  details.ID,
		Quality:   quality,
		ProfileID: profileID,
		Name:      details.Name,
		Overview:  s.resolver.MergeOverview(enrichment.Overview, details.Summary),
		Network:   details.NetworkName(),
		Status:    normalizeStatus(details.Status),
		TMDBID:    enrichment.TMDBID,
		TheTVDBID: details.Externals.TheTVDB,
		IMDBID:    details.Externals.IMDB,
	}
	if details.Image != nil {
		input.ImageURL = details.Image.Original
	}
	if enrichment.Poster != "" && input.ImageURL == "" {
		input.ImageURL = enrichment.Poster
	}
	input.BannerURL = s.lookupBanner(ctx, details)

	show, err := s.store.CreateShow(ctx, input)
	if err != nil {
		s.notify("show:add-failed", map[string]interface{}{"tvmazeId": tvmazeID, "error": err.Error()})
		return "", nil, fmt.Errorf("failed to create show: %w", err)
	}

	show.TMDBID = enrichment.TMDBID
	if err := s.populateEpisodes(ctx, show, details.Language); err != nil {
		// Episode enrichment is best effort; the show aggregate exists.
		s.logger.Warn().Err(err).Int64("showId", show.ID).Msg("Episode population incomplete")
	}
	s.attachCast(ctx, show)

	s.logger.Info().Int64("showId", show.ID).Str("name", show.Name).
		Str("quality", quality).Msg("Show added to library")
	s.notify("show:added", show)

	return OutcomeCreated, show, nil
}

// populateEpisodes fetches the full episode list, groups it by season
// and inserts every episode with the merged overview and composite id.
func (s *Service) populateEpisodes(ctx context.Context, show *store.Show, language string) error {
	episodes, err := s.tvmaze.GetEpisodes(ctx, show.TVMazeID)
	if err != nil {
		return fmt.Errorf("failed to fetch episodes: %w", err)
	}

	bySeason := make(map[int][]tvmaze.Episode)
	for _, ep := range episodes {
		bySeason[ep.Season] = append(bySeason[ep.Season], ep)
	}

	for season, seasonEpisodes := range bySeason {
		// Localized overviews for the whole season in one call, best effort.
		localized := s.resolver.SeasonOverviews(ctx, show.TMDBID, season, language)

		for _, ep := range seasonEpisodes {
			overview, translated := s.resolver.EpisodeOverview(ctx, localized[ep.Number], ep.Summary)

			airDate := parseAirStamp(ep.AirStamp, ep.AirDate)
			created, err := s.store.CreateEpisode(ctx, store.CreateEpisodeInput{
				ShowID:             show.ID,
				SourceID:           ep.ID,
				Season:             ep.Season,
				Number:             ep.Number,
				Title:              ep.Name,
				Overview:           overview,
				OverviewTranslated: translated,
				AirDate:            airDate,
				Runtime:            ep.Runtime,
			})
			if err != nil {
				// Per-episode failures never fail the add.
				s.logger.Warn().Err(err).Int("sourceId", ep.ID).Msg("Failed to insert episode")
				continue
			}
			s.maybeRemind(show.Name, created)
		}
	}
	return nil
}

// mergeEpisodes inserts episodes missing locally for an already tracked
// show. Existing episodes are left untouched.
func (s *Service) mergeEpisodes(ctx context.Context, show *store.Show) error {
	episodes, err := s.tvmaze.GetEpisodes(ctx, show.TVMazeID)
	if err != nil {
		return fmt.Errorf("failed to fetch episodes: %w", err)
	}

	for _, ep := range episodes {
		if _, err := s.store.GetEpisodeBySource(ctx, show.ID, ep.ID); err == nil {
			continue
		}
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
		s.maybeRemind(show.Name, created)
	}
	return nil
}

// attachCast stores the first castLimit credits. Failures are swallowed.
func (s *Service) attachCast(ctx context.Context, show *store.Show) {
	credits, err := s.tvmaze.GetCast(ctx, show.TVMazeID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("showId", show.ID).Msg("Failed to fetch cast")
		return
	}

	if len(credits) > s.castLimit {
		credits = credits[:s.castLimit]
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

// lookupBanner asks the artwork provider for a banner in the show's
// native language. Best effort.
func (s *Service) lookupBanner(ctx context.Context, details *tvmaze.Show) string {
	if s.fanart == nil || !s.fanart.IsConfigured() || details.Externals.TheTVDB == 0 {
		return ""
	}
	banner, err := s.fanart.SeriesBanner(ctx, details.Externals.TheTVDB, artworkLanguage(details.Language))
	if err != nil {
		s.logger.Debug().Err(err).Int("thetvdbId", details.Externals.TheTVDB).
			Msg("Banner lookup failed")
		return ""
	}
	return banner
}

func (s *Service) maybeRemind(showName string, ep *store.Episode) {
	if s.reminders == nil || ep.AirDate == nil {
		return
	}
	if ep.AirDate.After(time.Now()) {
		s.reminders.ScheduleReminder(showName, ep)
	}
}

// Delete removes a show aggregate. Episodes and cast cascade in the
// store; no confirmation logic lives here.
func (s *Service) Delete(ctx context.Context, showID int64) error {
	if err := s.store.DeleteShow(ctx, showID); err != nil {
		return err
	}
	s.logger.Info().Int64("showId", showID).Msg("Show deleted from library")
	s.notify("show:deleted", map[string]interface{}{"showId": showID})
	return nil
}

// ToggleWatched flips the watched flag of an episode. Marking watched
// sets the watched date and mirrors the mark to the external service;
// unmarking clears the date. Applying it twice restores the prior state.
func (s *Service) ToggleWatched(ctx context.Context, episodeID string) (*store.Episode, error) {
	ep, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetEpisodeWatched(ctx, episodeID, !ep.Watched, nil); err != nil {
		return nil, err
	}

	updated, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	if updated.Watched && s.pusher != nil {
		if show, err := s.store.GetShow(ctx, updated.ShowID); err == nil {
			s.pusher.PushEpisodeWatched(ctx, show, updated)
		}
	}

	s.notify("episode:watched", updated)
	return updated, nil
}

// AddMovie adds a movie by rich-metadata id under a quality tag.
func (s *Service) AddMovie(ctx context.Context, tmdbID int, quality, profileID string) (Outcome, *store.Movie, error) {
	existing, err := s.store.GetMovieByIdentity(ctx, tmdbID, profileID)
	if err == nil {
		s.notify("movie:exists", existing)
		return OutcomeAlreadyExists, existing, nil
	}
	if err != store.ErrMovieNotFound {
		return "", nil, err
	}

	details, err := s.resolver.Movie(ctx, tmdbID)
	if err != nil {
		s.notify("movie:add-failed", map[string]interface{}{"tmdbId": tmdbID, "error": err.Error()})
		return "", nil, fmt.Errorf("failed to fetch movie details: %w", err)
	}

	movie, err := s.store.CreateMovie(ctx, store.CreateMovieInput{
		TMDBID:      details.ID,
		ProfileID:   profileID,
		Title:       details.Title,
		Overview:    details.Overview,
		PosterURL:   s.resolver.ImageURL(details.PosterPath),
		BackdropURL: s.resolver.ImageURL(details.BackdropPath),
		ReleaseDate: parseDate(details.ReleaseDate),
		Runtime:     details.Runtime,
		Quality:     quality,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to create movie: %w", err)
	}

	if details.Credits != nil {
		credits := details.Credits.Cast
		if len(credits) > s.castLimit {
			credits = credits[:s.castLimit]
		}
		for _, credit := range credits {
			input := store.CastInput{
				PersonID:      credit.ID,
				Name:          credit.Name,
				CharacterName: credit.Character,
				ImageURL:      s.resolver.ImageURL(credit.ProfilePath),
			}
			if err := s.store.AddMovieCast(ctx, movie.ID, input); err != nil {
				s.logger.Warn().Err(err).Int("personId", credit.ID).Msg("Failed to attach cast member")
			}
		}
	}

	s.logger.Info().Int64("movieId", movie.ID).Str("title", movie.Title).Msg("Movie added to library")
	s.notify("movie:added", movie)
	return OutcomeCreated, movie, nil
}

// SetMovieStatus updates a movie's watch status and mirrors a watched
// mark to the external service.
func (s *Service) SetMovieStatus(ctx context.Context, movieID int64, status store.WatchStatus, watchedAt *time.Time) (*store.Movie, error) {
	if err := s.store.SetMovieStatus(ctx, movieID, status, watchedAt); err != nil {
		return nil, err
	}

	movie, err := s.store.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}

	if status == store.StatusWatched && s.pusher != nil {
		s.pusher.PushMovieWatched(ctx, movie)
	}

	s.notify("movie:status", movie)
	return movie, nil
}

// RateMovie stores the personal rating of a movie on a 1-10 scale.
func (s *Service) RateMovie(ctx context.Context, movieID int64, rating int) (*store.Movie, error) {
	if rating < 1 || rating > 10 {
		return nil, fmt.Errorf("rating %d out of range", rating)
	}
	if err := s.store.SetMovieRating(ctx, movieID, rating); err != nil {
		return nil, err
	}

	movie, err := s.store.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	s.notify("movie:status", movie)
	return movie, nil
}

// artworkLanguage maps the schedule provider's language names to the
// artwork provider's three-letter codes. Unknown languages fall through
// to the English/any priority chain.
func artworkLanguage(language string) string {
	switch language {
	case "English":
		return "eng"
	case "German":
		return "deu"
	case "French":
		return "fra"
	case "Spanish":
		return "spa"
	case "Italian":
		return "ita"
	case "Japanese":
		return "jpn"
	case "Korean":
		return "kor"
	default:
		return ""
	}
}

// normalizeStatus maps provider status strings to the local vocabulary.
func normalizeStatus(status string) string {
	switch status {
	case "Running", "In Development":
		return "running"
	case "Ended":
		return "ended"
	case "To Be Determined":
		return "tbd"
	default:
		if status == "" {
			return "running"
		}
		return status
	}
}

// parseAirStamp prefers the full timestamp and falls back to the bare
// date. Unknown air dates stay nil.
func parseAirStamp(airStamp, airDate string) *time.Time {
	if airStamp != "" {
		if t, err := time.Parse(time.RFC3339, airStamp); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return parseDate(airDate)
}

func parseDate(date string) *time.Time {
	if date == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil
	}
	return &t
}
