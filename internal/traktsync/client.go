// Package traktsync keeps local watch state and an external watch-history
// service in sync: OAuth session handling, bulk pull of remote history
// and fire-and-forget push of local watched marks.
package traktsync

import (
	"bytes"
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

const apiVersion = "2"

var (
	ErrNotConfigured = errors.New("watch-history service is not configured")
	ErrUnauthorized  = errors.New("watch-history token rejected")
	ErrAPIError      = errors.New("watch-history API error")
)

// Client is the watch-history service API client.
type Client struct {
	httpClient *http.Client
	config     config.TraktConfig
	logger     zerolog.Logger
}

// NewClient creates a new watch-history client.
func NewClient(cfg config.TraktConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "trakt").Logger(),
	}
}

// IsConfigured returns true if client credentials are set.
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// AuthorizeURL builds the user-facing authorization URL. The user agent
// redirects back to the configured custom-scheme callback with a code.
func (c *Client) AuthorizeURL() string {
	base := strings.Replace(c.config.BaseURL, "api.", "", 1)
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.config.ClientID)
	params.Set("redirect_uri", c.config.RedirectURI)
	return fmt.Sprintf("%s/oauth/authorize?%s", base, params.Encode())
}

// setHeaders adds the required API headers to a request.
func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.config.ClientID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

// ExchangeCode exchanges an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	return c.requestToken(ctx, map[string]string{
		"code":          code,
		"client_id":     c.config.ClientID,
		"client_secret": c.config.ClientSecret,
		"redirect_uri":  c.config.RedirectURI,
		"grant_type":    "authorization_code",
	})
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	return c.requestToken(ctx, map[string]string{
		"refresh_token": refreshToken,
		"client_id":     c.config.ClientID,
		"client_secret": c.config.ClientSecret,
		"redirect_uri":  c.config.RedirectURI,
		"grant_type":    "refresh_token",
	})
}

func (c *Client) requestToken(ctx context.Context, payload map[string]string) (*TokenResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).
			Msg("Token exchange failed")
		return nil, fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &token, nil
}

// GetWatchedShows fetches the full watched-shows history, episode play
// data included.
func (c *Client) GetWatchedShows(ctx context.Context, accessToken string) ([]WatchedShow, error) {
	var shows []WatchedShow
	if err := c.doGet(ctx, "/sync/watched/shows", accessToken, &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

// GetWatchedMovies fetches the full watched-movies history.
func (c *Client) GetWatchedMovies(ctx context.Context, accessToken string) ([]WatchedMovie, error) {
	var movies []WatchedMovie
	if err := c.doGet(ctx, "/sync/watched/movies", accessToken, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// AddToHistory posts watched marks to the remote history. The service
// answers 201 on success.
func (c *Client) AddToHistory(ctx context.Context, accessToken string, request SyncHistoryRequest) (*SyncHistoryResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/sync/history", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).
			Msg("History push rejected")
		return nil, fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var syncResp SyncHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&syncResp); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}
	return &syncResp, nil
}

func (c *Client) doGet(ctx context.Context, path, accessToken string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).
			Str("path", path).Msg("Watch-history API error")
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
