// Package fanart implements the artwork provider client. The provider
// requires a JWT obtained through a login call; the token is cached and
// refreshed transparently.
package fanart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/config"
)

var (
	ErrAPIKeyMissing  = errors.New("artwork API key is not configured")
	ErrSeriesNotFound = errors.New("series not found")
	ErrAPIError       = errors.New("artwork API error")
	ErrAuthFailed     = errors.New("artwork authentication failed")
)

// Client is an artwork provider API client.
type Client struct {
	httpClient *http.Client
	config     config.FanartConfig
	logger     zerolog.Logger

	// Token management
	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new artwork client.
func NewClient(cfg config.FanartConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "fanart").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "fanart"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

type loginRequest struct {
	APIKey string `json:"apikey"`
}

type loginResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// authenticate gets or refreshes the bearer token.
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	loginURL := fmt.Sprintf("%s/login", c.config.BaseURL)
	body, err := json.Marshal(loginRequest{APIKey: c.config.APIKey})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Msg("Artwork provider authentication failed")
		return ErrAuthFailed
	}

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	c.token = loginResp.Data.Token
	// Tokens are valid for a month upstream; refresh daily to stay safe.
	c.tokenExpiry = time.Now().Add(24 * time.Hour)

	c.logger.Debug().Msg("Artwork provider authentication successful")
	return nil
}

// clearToken drops the cached token so the next call re-authenticates.
func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// Artwork is one banner or poster candidate.
type Artwork struct {
	ID       int    `json:"id"`
	Image    string `json:"image"`
	Language string `json:"language"`
	Type     int    `json:"type"`
	Score    int    `json:"score"`
}

type artworksResponse struct {
	Data struct {
		Artworks []Artwork `json:"artworks"`
	} `json:"data"`
}

// Banner artwork type of the upstream API.
const artworkTypeBanner = 1

// SeriesBanner picks the best banner for a series: the show's native
// language first, then English, then whatever is available. Returns ""
// when the series has no banner at all.
func (c *Client) SeriesBanner(ctx context.Context, thetvdbID int, nativeLanguage string) (string, error) {
	artworks, err := c.SeriesArtworks(ctx, thetvdbID)
	if err != nil {
		return "", err
	}

	var banners []Artwork
	for _, a := range artworks {
		if a.Type == artworkTypeBanner && a.Image != "" {
			banners = append(banners, a)
		}
	}
	if len(banners) == 0 {
		return "", nil
	}

	pick := func(lang string) string {
		best := ""
		bestScore := -1
		for _, b := range banners {
			if b.Language == lang && b.Score > bestScore {
				best = b.Image
				bestScore = b.Score
			}
		}
		return best
	}

	if nativeLanguage != "" {
		if img := pick(nativeLanguage); img != "" {
			return img, nil
		}
	}
	if img := pick("eng"); img != "" {
		return img, nil
	}
	return banners[0].Image, nil
}

// SeriesArtworks fetches all artwork candidates of a series.
func (c *Client) SeriesArtworks(ctx context.Context, thetvdbID int) ([]Artwork, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/series/%d/artworks", c.config.BaseURL, thetvdbID)

	var response artworksResponse
	if err := c.doRequest(ctx, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response.Data.Artworks, nil
}

// doRequest performs an authenticated HTTP GET request. A 401 clears the
// cached token and retries once with a fresh login.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.authenticate(ctx); err != nil {
			return err
		}

		reqURL := endpoint
		if len(params) > 0 {
			reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		c.mu.RLock()
		req.Header.Set("Authorization", "Bearer "+c.token)
		c.mu.RUnlock()
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err = json.NewDecoder(resp.Body).Decode(result)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		case http.StatusUnauthorized:
			resp.Body.Close()
			c.clearToken()
			continue
		case http.StatusNotFound:
			resp.Body.Close()
			return ErrSeriesNotFound
		default:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("body", string(body)).
				Msg("Artwork API error")
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}
	return ErrAuthFailed
}
