// Package metadata ties the provider clients together: identity
// resolution between the schedule and rich-metadata catalogs, and the
// overview merge policy shared by add and sync.
package metadata

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/metadata/tmdb"
	"github.com/watchlog/watchlog/internal/metadata/translate"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
)

// Enrichment carries the rich-metadata fields resolved for a schedule
// show. The zero value means no enrichment was found.
type Enrichment struct {
	TMDBID   int
	Overview string
	Poster   string
	Backdrop string
	Language string
}

// Resolver resolves a schedule-provider show against the rich-metadata
// catalog and applies the overview merge policy.
type Resolver struct {
	tmdb      *tmdb.Client
	translate *translate.Client
	logger    zerolog.Logger
}

// NewResolver creates a resolver over the given clients.
func NewResolver(tmdbClient *tmdb.Client, translateClient *translate.Client, logger zerolog.Logger) *Resolver {
	return &Resolver{
		tmdb:      tmdbClient,
		translate: translateClient,
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Enrich resolves a schedule show to its rich-metadata entry, trying the
// shared IMDb id first and a name search second. Resolution failure is a
// valid outcome and never an error: the caller gets an empty Enrichment
// and proceeds on schedule-provider fields alone.
func (r *Resolver) Enrich(ctx context.Context, show *tvmaze.Show) Enrichment {
	if r.tmdb == nil || !r.tmdb.IsConfigured() {
		return Enrichment{}
	}

	if show.Externals.IMDB != "" {
		found, err := r.tmdb.FindByIMDbID(ctx, show.Externals.IMDB)
		if err != nil {
			r.logger.Warn().Err(err).Str("imdbId", show.Externals.IMDB).
				Msg("External id lookup failed, falling back to name search")
		} else if len(found.TVResults) > 0 {
			return r.fromSeriesResult(found.TVResults[0], show)
		}
	}

	results, err := r.tmdb.SearchSeries(ctx, show.Name)
	if err != nil {
		r.logger.Warn().Err(err).Str("name", show.Name).Msg("Name search failed, no enrichment")
		return Enrichment{}
	}
	if len(results) == 0 {
		return Enrichment{}
	}
	return r.fromSeriesResult(results[0], show)
}

func (r *Resolver) fromSeriesResult(result tmdb.SeriesResult, show *tvmaze.Show) Enrichment {
	e := Enrichment{
		TMDBID:   result.ID,
		Overview: result.Overview,
		Poster:   r.tmdb.ImageURL(result.PosterPath),
		Backdrop: r.tmdb.ImageURL(result.BackdropPath),
		Language: show.Language,
	}

	r.logger.Debug().
		Int("tvmazeId", show.ID).
		Int("tmdbId", result.ID).
		Msg("Resolved schedule show to rich-metadata entry")

	return e
}

// MergeOverview picks the show overview: the localized rich-metadata
// text when present, otherwise the schedule provider's summary with
// markup stripped.
func (r *Resolver) MergeOverview(localized, scheduleSummary string) string {
	if strings.TrimSpace(localized) != "" {
		return localized
	}
	return StripMarkup(scheduleSummary)
}

// EpisodeOverview applies the three-tier episode overview policy:
// localized text first, machine translation of the English text second,
// the raw English text last. The returned flag marks tiers two and three
// as automatic. The result is only empty when both inputs are.
func (r *Resolver) EpisodeOverview(ctx context.Context, localized, english string) (string, bool) {
	if strings.TrimSpace(localized) != "" {
		return localized, false
	}

	english = StripMarkup(english)
	if english == "" {
		return "", false
	}

	if r.translate != nil && r.translate.IsConfigured() {
		translated, err := r.translate.Translate(ctx, english)
		if err == nil && strings.TrimSpace(translated) != "" {
			return translated, true
		}
		if err != nil {
			r.logger.Debug().Err(err).Msg("Translation failed, keeping source text")
		}
	}

	return english, true
}

// Movie fetches full movie details from the rich-metadata provider.
func (r *Resolver) Movie(ctx context.Context, tmdbID int) (*tmdb.MovieDetails, error) {
	if r.tmdb == nil || !r.tmdb.IsConfigured() {
		return nil, tmdb.ErrAPIKeyMissing
	}
	return r.tmdb.GetMovie(ctx, tmdbID)
}

// ImageURL builds a full image URL from a rich-metadata image path.
func (r *Resolver) ImageURL(path string) string {
	if r.tmdb == nil {
		return ""
	}
	return r.tmdb.ImageURL(path)
}

// SeasonOverviews fetches the localized per-episode overviews of one
// season, keyed by episode number. Best effort: any failure returns nil
// and the caller falls back to the schedule provider's text.
func (r *Resolver) SeasonOverviews(ctx context.Context, tmdbID, season int, language string) map[int]string {
	if r.tmdb == nil || !r.tmdb.IsConfigured() || tmdbID == 0 {
		return nil
	}

	details, err := r.tmdb.GetSeasonDetails(ctx, tmdbID, season, language)
	if err != nil {
		r.logger.Debug().Err(err).Int("tmdbId", tmdbID).Int("season", season).
			Msg("Season details unavailable")
		return nil
	}

	overviews := make(map[int]string, len(details.Episodes))
	for _, ep := range details.Episodes {
		if strings.TrimSpace(ep.Overview) != "" {
			overviews[ep.EpisodeNumber] = ep.Overview
		}
	}
	return overviews
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripMarkup removes HTML tags from schedule-provider summaries.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}
