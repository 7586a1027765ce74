package traktsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/backup"
	"github.com/watchlog/watchlog/internal/library"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
	"github.com/watchlog/watchlog/internal/store"
)

// SessionState is the per-profile authentication state.
type SessionState string

const (
	StateSignedOut        SessionState = "signedOut"
	StateAwaitingCallback SessionState = "awaitingCallback"
	StateExchangingToken  SessionState = "exchangingToken"
	StateSignedIn         SessionState = "signedIn"
)

// Quality tag assigned to shows the pull flow creates locally.
const pullQuality = "default"

// PullSummary aggregates one history import.
type PullSummary struct {
	Shows    int `json:"shows"`
	Episodes int `json:"episodes"`
	Movies   int `json:"movies"`
	Errors   int `json:"errors"`
}

// Notifier receives synchronizer events. The events hub satisfies it.
type Notifier interface {
	Broadcast(msgType string, payload interface{}) error
}

// Service drives the two sync flows and the per-profile OAuth session
// state machine. It also implements library.WatchedPusher.
type Service struct {
	store    *store.Store
	client   *Client
	library  *library.Service
	tvmaze   *tvmaze.Client
	notifier Notifier
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]SessionState
}

// NewService creates a watch-state synchronizer.
func NewService(st *store.Store, client *Client, lib *library.Service,
	tvmazeClient *tvmaze.Client, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		client:   client,
		library:  lib,
		tvmaze:   tvmazeClient,
		notifier: notifier,
		logger:   logger.With().Str("component", "traktsync").Logger(),
		sessions: make(map[string]SessionState),
	}
}

func (s *Service) setState(profileID string, state SessionState) {
	s.mu.Lock()
	s.sessions[profileID] = state
	s.mu.Unlock()
}

// State reports the session state of a profile. A persisted token means
// signed in regardless of in-memory state.
func (s *Service) State(ctx context.Context, profileID string) SessionState {
	if _, err := s.store.GetTraktToken(ctx, profileID); err == nil {
		return StateSignedIn
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.sessions[profileID]; ok {
		return state
	}
	return StateSignedOut
}

// BeginAuthorization moves the profile to AwaitingCallback and returns
// the URL the user agent must open.
func (s *Service) BeginAuthorization(profileID string) (string, error) {
	if !s.client.IsConfigured() {
		return "", ErrNotConfigured
	}
	s.setState(profileID, StateAwaitingCallback)
	return s.client.AuthorizeURL(), nil
}

// CompleteAuthorization exchanges the callback code and persists the
// token. Any failure drops the session back to SignedOut.
func (s *Service) CompleteAuthorization(ctx context.Context, profileID, code string) error {
	s.setState(profileID, StateExchangingToken)

	token, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		s.setState(profileID, StateSignedOut)
		return fmt.Errorf("code exchange failed: %w", err)
	}

	if err := s.store.SaveTraktToken(ctx, store.TraktToken{
		ProfileID:    profileID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}); err != nil {
		s.setState(profileID, StateSignedOut)
		return err
	}

	s.setState(profileID, StateSignedIn)
	s.logger.Info().Str("profileId", profileID).Msg("Watch-history session established")
	return nil
}

// SignOut clears the stored token and resets the session.
func (s *Service) SignOut(ctx context.Context, profileID string) error {
	if err := s.store.DeleteTraktToken(ctx, profileID); err != nil {
		return err
	}
	s.setState(profileID, StateSignedOut)
	s.logger.Info().Str("profileId", profileID).Msg("Watch-history session cleared")
	return nil
}

// accessToken returns the stored token, refreshing it once if a call
// already failed with ErrUnauthorized.
func (s *Service) accessToken(ctx context.Context, profileID string) (string, error) {
	token, err := s.store.GetTraktToken(ctx, profileID)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (s *Service) refreshSession(ctx context.Context, profileID string) (string, error) {
	token, err := s.store.GetTraktToken(ctx, profileID)
	if err != nil {
		return "", err
	}
	fresh, err := s.client.RefreshToken(ctx, token.RefreshToken)
	if err != nil {
		return "", err
	}
	if err := s.store.SaveTraktToken(ctx, store.TraktToken{
		ProfileID:    profileID,
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
	}); err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// Pull imports the complete remote watch history into the local library.
// Items that cannot be resolved to the schedule catalog are counted as
// errors and skipped, never fatal.
func (s *Service) Pull(ctx context.Context, profileID string) (*PullSummary, error) {
	accessToken, err := s.accessToken(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("pull requires a signed-in session: %w", err)
	}

	watchedShows, err := s.client.GetWatchedShows(ctx, accessToken)
	if err == ErrUnauthorized {
		if accessToken, err = s.refreshSession(ctx, profileID); err == nil {
			watchedShows, err = s.client.GetWatchedShows(ctx, accessToken)
		}
	}
	if err != nil {
		return nil, err
	}

	watchedMovies, err := s.client.GetWatchedMovies(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	summary := &PullSummary{}
	for i := range watchedShows {
		s.pullShow(ctx, profileID, &watchedShows[i], summary)
	}
	for i := range watchedMovies {
		s.pullMovie(ctx, profileID, &watchedMovies[i], summary)
	}

	s.logger.Info().
		Int("shows", summary.Shows).
		Int("episodes", summary.Episodes).
		Int("movies", summary.Movies).
		Int("errors", summary.Errors).
		Msg("Watch history pull completed")
	if s.notifier != nil {
		_ = s.notifier.Broadcast("trakt:pull", summary)
	}
	return summary, nil
}

// pullShow merges one remote show's play data into the local library.
func (s *Service) pullShow(ctx context.Context, profileID string, remote *WatchedShow, summary *PullSummary) {
	local, err := s.resolveShow(ctx, profileID, remote)
	if err != nil {
		s.logger.Warn().Err(err).Str("title", remote.Show.Title).Msg("Skipping unresolved show")
		summary.Errors++
		return
	}
	summary.Shows++

	for _, season := range remote.Seasons {
		for _, watched := range season.Episodes {
			ep, err := s.store.GetEpisodeByNumber(ctx, local.ID, season.Number, watched.Number)
			if err != nil {
				continue
			}
			if ep.Watched {
				continue
			}
			at := parseRemoteTime(watched.LastWatchedAt)
			if err := s.store.SetEpisodeWatched(ctx, ep.ID, true, at); err != nil {
				s.logger.Warn().Err(err).Str("episodeId", ep.ID).Msg("Failed to mark episode watched")
				continue
			}
			summary.Episodes++
		}
	}
}

// resolveShow finds or creates the local show for a remote entry, going
// through the schedule provider's external-id lookup.
func (s *Service) resolveShow(ctx context.Context, profileID string, remote *WatchedShow) (*store.Show, error) {
	resolved, err := s.tvmaze.Lookup(ctx, remote.Show.IDs.IMDB, remote.Show.IDs.TVDB)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, fmt.Errorf("no schedule catalog match for %q", remote.Show.Title)
	}

	existing, err := s.store.FindShowsByTVMazeID(ctx, resolved.ID, profileID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	_, show, err := s.library.AddOrUpdate(ctx, resolved.ID, pullQuality, profileID, library.AddOptions{})
	if err != nil {
		return nil, err
	}
	return show, nil
}

// pullMovie merges one remote movie into the local library with
// status=watched.
func (s *Service) pullMovie(ctx context.Context, profileID string, remote *WatchedMovie, summary *PullSummary) {
	if remote.Movie.IDs.TMDB == 0 {
		summary.Errors++
		return
	}

	movie, err := s.store.GetMovieByIdentity(ctx, remote.Movie.IDs.TMDB, profileID)
	if err == store.ErrMovieNotFound {
		_, movie, err = s.library.AddMovie(ctx, remote.Movie.IDs.TMDB, pullQuality, profileID)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("title", remote.Movie.Title).Msg("Skipping unresolved movie")
		summary.Errors++
		return
	}

	at := parseRemoteTime(remote.LastWatchedAt)
	if err := s.store.SetMovieStatus(ctx, movie.ID, store.StatusWatched, at); err != nil {
		summary.Errors++
		return
	}
	summary.Movies++
}

// ImportWatched applies the pull merge logic to an exported backup
// document instead of the live API. Shows absent locally are created
// through the reconciler; watched marks merge by (season, number).
func (s *Service) ImportWatched(ctx context.Context, doc *backup.Document, profileID string) (*PullSummary, error) {
	summary := &PullSummary{}

	for _, entry := range doc.Shows {
		quality := entry.Quality
		if quality == "" {
			quality = pullQuality
		}

		local, err := s.store.GetShowByIdentity(ctx, entry.ScheduleID, quality, profileID)
		if err == store.ErrShowNotFound {
			_, local, err = s.library.AddOrUpdate(ctx, entry.ScheduleID, quality, profileID, library.AddOptions{})
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("name", entry.Name).Msg("Skipping unresolved show")
			summary.Errors++
			continue
		}
		summary.Shows++

		for _, ep := range entry.Episodes {
			if !ep.IsWatched {
				continue
			}
			episode, err := s.store.GetEpisodeByNumber(ctx, local.ID, ep.Season, ep.Number)
			if err != nil {
				continue
			}
			if episode.Watched {
				continue
			}
			at := ep.WatchedDate
			if at == nil {
				now := time.Now().UTC()
				at = &now
			}
			if err := s.store.SetEpisodeWatched(ctx, episode.ID, true, at); err != nil {
				continue
			}
			summary.Episodes++
		}
	}

	s.logger.Info().
		Int("shows", summary.Shows).
		Int("episodes", summary.Episodes).
		Int("errors", summary.Errors).
		Msg("Watched history imported from file")
	return summary, nil
}

// PushEpisodeWatched mirrors a local watched mark to the remote service.
// Fire-and-forget: failures are logged, never surfaced, never retried.
func (s *Service) PushEpisodeWatched(ctx context.Context, show *store.Show, episode *store.Episode) {
	accessToken, err := s.accessToken(ctx, show.ProfileID)
	if err != nil {
		// No session means push is a silent no-op.
		return
	}

	syncShow := SyncShow{
		IDs: SyncIDs{IMDB: show.IMDBID, TVDB: show.TheTVDBID, TMDB: show.TMDBID},
		Seasons: []SyncSeason{{
			Number:   episode.Season,
			Episodes: []SyncEpisode{{Number: episode.Number, WatchedAt: remoteTime(episode.WatchedAt)}},
		}},
	}
	if syncShow.IDs == (SyncIDs{}) {
		syncShow.Title = show.Name
	}

	if _, err := s.client.AddToHistory(ctx, accessToken, SyncHistoryRequest{Shows: []SyncShow{syncShow}}); err != nil {
		s.logger.Warn().Err(err).Str("episodeId", episode.ID).Msg("History push failed")
	}
}

// PushMovieWatched mirrors a local movie watched mark to the remote
// service. Same fire-and-forget semantics as episodes.
func (s *Service) PushMovieWatched(ctx context.Context, movie *store.Movie) {
	accessToken, err := s.accessToken(ctx, movie.ProfileID)
	if err != nil {
		return
	}

	syncMovie := SyncMovie{
		IDs:       SyncIDs{TMDB: movie.TMDBID},
		WatchedAt: remoteTime(movie.WatchedAt),
	}
	if syncMovie.IDs == (SyncIDs{}) {
		syncMovie.Title = movie.Title
	}

	if _, err := s.client.AddToHistory(ctx, accessToken, SyncHistoryRequest{Movies: []SyncMovie{syncMovie}}); err != nil {
		s.logger.Warn().Err(err).Int64("movieId", movie.ID).Msg("History push failed")
	}
}

// parseRemoteTime parses a remote timestamp, falling back to now.
func parseRemoteTime(value string) *time.Time {
	if value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	now := time.Now().UTC()
	return &now
}

func remoteTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
