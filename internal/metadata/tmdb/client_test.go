package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/testutil"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.TMDBConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		ImageBase: "https://image.example.com/t/p/w500",
		Language:  "en",
		Timeout:   5,
	}, testutil.NopLogger())
}

func TestFindByIMDbID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/find/tt1723816" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("external_source"); got != "imdb_id" {
			t.Errorf("external_source = %q", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tv_results": [{"id": 42009, "name": "Girls"}], "movie_results": []}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).FindByIMDbID(context.Background(), "tt1723816")
	if err != nil {
		t.Fatalf("FindByIMDbID() error = %v", err)
	}
	if len(resp.TVResults) != 1 || resp.TVResults[0].ID != 42009 {
		t.Errorf("tv_results = %+v", resp.TVResults)
	}
}

func TestGetSeasonDetails_Language(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/42009/season/2" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("language"); got != "de" {
			t.Errorf("language = %q, want de", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"season_number": 2, "episodes": [
			{"id": 1, "season_number": 2, "episode_number": 1, "name": "Eins", "overview": "Zusammenfassung"}
		]}`))
	}))
	defer server.Close()

	season, err := newTestClient(server.URL).GetSeasonDetails(context.Background(), 42009, 2, "de")
	if err != nil {
		t.Fatalf("GetSeasonDetails() error = %v", err)
	}
	if len(season.Episodes) != 1 || season.Episodes[0].Overview != "Zusammenfassung" {
		t.Errorf("episodes = %+v", season.Episodes)
	}
}

func TestGetSeasonDetails_DefaultLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("language"); got != "en" {
			t.Errorf("language = %q, want configured default en", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"season_number": 1, "episodes": []}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).GetSeasonDetails(context.Background(), 1, 1, ""); err != nil {
		t.Fatalf("GetSeasonDetails() error = %v", err)
	}
}

func TestGetMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("append_to_response"); got != "credits" {
			t.Errorf("append_to_response = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 603, "title": "The Matrix", "runtime": 136,
			"credits": {"cast": [{"id": 6384, "name": "Keanu Reeves", "character": "Neo", "order": 0}]}}`))
	}))
	defer server.Close()

	movie, err := newTestClient(server.URL).GetMovie(context.Background(), 603)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if movie.Title != "The Matrix" || movie.Runtime != 136 {
		t.Errorf("movie = %+v", movie)
	}
	if movie.Credits == nil || len(movie.Credits.Cast) != 1 {
		t.Fatalf("credits = %+v", movie.Credits)
	}
}

func TestImageURL(t *testing.T) {
	c := newTestClient("http://unused")
	if got := c.ImageURL("/abc.jpg"); got != "https://image.example.com/t/p/w500/abc.jpg" {
		t.Errorf("ImageURL() = %q", got)
	}
	if got := c.ImageURL(""); got != "" {
		t.Errorf("ImageURL(\"\") = %q, want empty", got)
	}
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(config.TMDBConfig{BaseURL: "http://unused", Timeout: 5}, testutil.NopLogger())
	if _, err := c.SearchSeries(context.Background(), "girls"); err != ErrAPIKeyMissing {
		t.Errorf("SearchSeries() error = %v, want ErrAPIKeyMissing", err)
	}
}
