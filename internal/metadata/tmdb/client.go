// Package tmdb implements the rich-metadata provider client. It supplies
// long-form overviews, localized episode summaries, artwork paths and
// movie data.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/config"
)

var (
	ErrAPIKeyMissing  = errors.New("TMDB API key is not configured")
	ErrMovieNotFound  = errors.New("movie not found")
	ErrSeriesNotFound = errors.New("series not found")
	ErrAPIError       = errors.New("TMDB API error")
	ErrRateLimited    = errors.New("TMDB API rate limited")
)

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// FindByIMDbID resolves an IMDb id to TMDB series and movie matches.
func (c *Client) FindByIMDbID(ctx context.Context, imdbID string) (*FindResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/find/%s", c.config.BaseURL, url.PathEscape(imdbID))
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("external_source", "imdb_id")

	var response FindResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("imdbId", imdbID).
		Int("tvResults", len(response.TVResults)).
		Int("movieResults", len(response.MovieResults)).
		Msg("External id lookup completed")

	return &response, nil
}

// SearchSeries searches for TV series by name.
func (c *Client) SearchSeries(ctx context.Context, query string) ([]SeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/search/tv", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", query)
	params.Set("include_adult", "false")

	var response SearchSeriesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(response.Results)).
		Msg("Series search completed")

	return response.Results, nil
}

// GetSeriesDetails gets full series details with external ids and credits
// embedded in one request.
func (c *Client) GetSeriesDetails(ctx context.Context, id int) (*SeriesDetails, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/tv/%d", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("append_to_response", "external_ids,credits")

	var details SeriesDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		if errors.Is(err, ErrAPIError) {
			return nil, err
		}
		if errors.Is(err, ErrMovieNotFound) {
			return nil, ErrSeriesNotFound
		}
		return nil, err
	}
	return &details, nil
}

// GetSeasonDetails gets one season of a series in the given language.
// An empty language falls back to the configured default.
func (c *Client) GetSeasonDetails(ctx context.Context, seriesID, season int, language string) (*SeasonDetails, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if language == "" {
		language = c.config.Language
	}

	endpoint := fmt.Sprintf("%s/tv/%d/season/%d", c.config.BaseURL, seriesID, season)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	if language != "" {
		params.Set("language", language)
	}

	var details SeasonDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// SearchMovies searches for movies by name.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]MovieResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/search/movie", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", query)
	params.Set("include_adult", "false")

	var response SearchMoviesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// GetMovie gets full movie details with credits embedded.
func (c *Client) GetMovie(ctx context.Context, id int) (*MovieDetails, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("append_to_response", "credits")

	var details MovieDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// ImageURL builds a full image URL from a TMDB image path. Returns ""
// for an empty path.
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.ImageBase, "/"), strings.TrimPrefix(path, "/"))
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrMovieNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized:
		return ErrAPIKeyMissing
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("TMDB API error")
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
