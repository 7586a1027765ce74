// Package tvmaze implements the schedule provider client. It is the
// canonical source for show identity, episode lists and bulk revision
// stamps.
package tvmaze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/config"
)

var (
	ErrShowNotFound = errors.New("show not found")
	ErrAPIError     = errors.New("TVmaze API error")
	ErrRateLimited  = errors.New("TVmaze API rate limited")
)

// Client is a TVmaze API client. The API needs no key.
type Client struct {
	httpClient *http.Client
	config     config.TVMazeConfig
	logger     zerolog.Logger
}

// NewClient creates a new TVmaze client.
func NewClient(cfg config.TVMazeConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tvmaze").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tvmaze"
}

// Search searches for shows by name.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search/shows", c.config.BaseURL)
	params := url.Values{}
	params.Set("q", query)

	var results []SearchResult
	if err := c.doRequest(ctx, endpoint, params, &results); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Show search completed")

	return results, nil
}

// GetShow gets show details by TVmaze ID, with artwork embedded.
func (c *Client) GetShow(ctx context.Context, id int) (*Show, error) {
	endpoint := fmt.Sprintf("%s/shows/%d", c.config.BaseURL, id)

	var show Show
	if err := c.doRequest(ctx, endpoint, nil, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// GetEpisodes gets the full episode list of a show, specials included.
func (c *Client) GetEpisodes(ctx context.Context, showID int) ([]Episode, error) {
	endpoint := fmt.Sprintf("%s/shows/%d/episodes", c.config.BaseURL, showID)
	params := url.Values{}
	params.Set("specials", "1")

	var episodes []Episode
	if err := c.doRequest(ctx, endpoint, params, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// GetCast gets the cast of a show.
func (c *Client) GetCast(ctx context.Context, showID int) ([]CastCredit, error) {
	endpoint := fmt.Sprintf("%s/shows/%d/cast", c.config.BaseURL, showID)

	var cast []CastCredit
	if err := c.doRequest(ctx, endpoint, nil, &cast); err != nil {
		return nil, err
	}
	return cast, nil
}

// GetUpdates fetches the bulk revision map for all shows: TVmaze show id
// to the unix timestamp of the last upstream change. One request covers
// the whole catalog.
func (c *Client) GetUpdates(ctx context.Context) (map[int]int64, error) {
	endpoint := fmt.Sprintf("%s/updates/shows", c.config.BaseURL)

	var raw map[string]int64
	if err := c.doRequest(ctx, endpoint, nil, &raw); err != nil {
		return nil, err
	}

	updates := make(map[int]int64, len(raw))
	for key, rev := range raw {
		var id int
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			continue
		}
		updates[id] = rev
	}

	c.logger.Debug().Int("shows", len(updates)).Msg("Fetched bulk revision map")
	return updates, nil
}

// Lookup resolves a show by external id, preferring the IMDb id and
// falling back to the TheTVDB id when the first is missing or unknown
// upstream. A provider 404 on every attempt means the show is simply
// unknown and returns (nil, nil) rather than an error.
func (c *Client) Lookup(ctx context.Context, imdbID string, thetvdbID int) (*Show, error) {
	var attempts []url.Values
	if imdbID != "" {
		p := url.Values{}
		p.Set("imdb", imdbID)
		attempts = append(attempts, p)
	}
	if thetvdbID > 0 {
		p := url.Values{}
		p.Set("thetvdb", fmt.Sprintf("%d", thetvdbID))
		attempts = append(attempts, p)
	}
	if len(attempts) == 0 {
		return nil, fmt.Errorf("lookup requires an external id")
	}

	endpoint := fmt.Sprintf("%s/lookup/shows", c.config.BaseURL)
	for _, params := range attempts {
		var show Show
		err := c.doRequest(ctx, endpoint, params, &show)
		if errors.Is(err, ErrShowNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &show, nil
	}
	return nil, nil
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
		return ErrShowNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("TVmaze API error")
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
