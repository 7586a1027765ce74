// Package translate implements a small machine-translation client used
// to fill episode overviews that only exist in a foreign language.
// Translation is strictly best effort; callers fall back to the original
// text on any failure.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/config"
)

var (
	ErrNotConfigured = errors.New("translation service is not configured")
	ErrAPIError      = errors.New("translation API error")
)

// Client is a machine-translation API client.
type Client struct {
	httpClient *http.Client
	config     config.TranslateConfig
	logger     zerolog.Logger
}

// NewClient creates a new translation client.
func NewClient(cfg config.TranslateConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "translate").Logger(),
	}
}

// IsConfigured returns true if the service is enabled and has a base URL.
func (c *Client) IsConfigured() bool {
	return !c.config.Disabled && c.config.BaseURL != ""
}

type translateRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate translates text into the configured target language. The
// source language is auto-detected upstream.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	if text == "" {
		return "", nil
	}

	body, err := json.Marshal(translateRequest{
		Text:   text,
		Source: "auto",
		Target: c.config.Target,
		APIKey: c.config.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal translate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/translate", c.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("Translation request rejected")
		return "", fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return result.TranslatedText, nil
}
