package fanart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/testutil"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.FanartConfig{APIKey: "k", BaseURL: baseURL, Timeout: 5}, testutil.NopLogger())
}

func artworkServer(t *testing.T, logins *int32, artworks []Artwork) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			atomic.AddInt32(logins, 1)
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["apikey"] != "k" {
				t.Errorf("apikey = %q", req["apikey"])
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data": {"token": "jwt-token"}}`))
		default:
			if got := r.Header.Get("Authorization"); got != "Bearer jwt-token" {
				t.Errorf("Authorization = %q", got)
			}
			resp := map[string]any{"data": map[string]any{"artworks": artworks}}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}
	}))
}

func TestSeriesBanner_LanguagePriority(t *testing.T) {
	var logins int32
	server := artworkServer(t, &logins, []Artwork{
		{ID: 1, Image: "http://img/eng.jpg", Language: "eng", Type: 1, Score: 10},
		{ID: 2, Image: "http://img/deu.jpg", Language: "deu", Type: 1, Score: 5},
		{ID: 3, Image: "http://img/poster.jpg", Language: "deu", Type: 2, Score: 99},
	})
	defer server.Close()

	c := newTestClient(server.URL)

	// Native language wins over English even with a lower score.
	banner, err := c.SeriesBanner(context.Background(), 220411, "deu")
	if err != nil {
		t.Fatalf("SeriesBanner() error = %v", err)
	}
	if banner != "http://img/deu.jpg" {
		t.Errorf("banner = %q, want native language pick", banner)
	}

	// Unknown native language falls back to English.
	banner, err = c.SeriesBanner(context.Background(), 220411, "fra")
	if err != nil {
		t.Fatalf("SeriesBanner() error = %v", err)
	}
	if banner != "http://img/eng.jpg" {
		t.Errorf("banner = %q, want English fallback", banner)
	}
}

func TestSeriesBanner_NoBanners(t *testing.T) {
	var logins int32
	server := artworkServer(t, &logins, []Artwork{
		{ID: 3, Image: "http://img/poster.jpg", Language: "eng", Type: 2},
	})
	defer server.Close()

	banner, err := newTestClient(server.URL).SeriesBanner(context.Background(), 1, "eng")
	if err != nil {
		t.Fatalf("SeriesBanner() error = %v", err)
	}
	if banner != "" {
		t.Errorf("banner = %q, want empty", banner)
	}
}

func TestTokenCachedAcrossRequests(t *testing.T) {
	var logins int32
	server := artworkServer(t, &logins, nil)
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()
	if _, err := c.SeriesArtworks(ctx, 1); err != nil {
		t.Fatalf("SeriesArtworks() error = %v", err)
	}
	if _, err := c.SeriesArtworks(ctx, 2); err != nil {
		t.Fatalf("SeriesArtworks() error = %v", err)
	}
	if n := atomic.LoadInt32(&logins); n != 1 {
		t.Errorf("logins = %d, want 1 (token cached)", n)
	}
}

func TestUnauthorizedRetriesWithFreshToken(t *testing.T) {
	var logins, artworkCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			atomic.AddInt32(&logins, 1)
			w.Write([]byte(`{"data": {"token": "jwt-token"}}`))
		default:
			// First artwork call rejects the token, second succeeds.
			if atomic.AddInt32(&artworkCalls, 1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"data": {"artworks": []}}`))
		}
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).SeriesArtworks(context.Background(), 1); err != nil {
		t.Fatalf("SeriesArtworks() error = %v", err)
	}
	if n := atomic.LoadInt32(&logins); n != 2 {
		t.Errorf("logins = %d, want 2 (retry re-authenticates)", n)
	}
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(config.FanartConfig{BaseURL: "http://unused", Timeout: 5}, testutil.NopLogger())
	if _, err := c.SeriesArtworks(context.Background(), 1); err != ErrAPIKeyMissing {
		t.Errorf("SeriesArtworks() error = %v, want ErrAPIKeyMissing", err)
	}
}
