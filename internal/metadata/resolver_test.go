package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/metadata/tmdb"
	"github.com/watchlog/watchlog/internal/metadata/translate"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
	"github.com/watchlog/watchlog/internal/testutil"
)

func newResolverWithServer(t *testing.T, handler http.HandlerFunc) (*Resolver, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tmdbClient := tmdb.NewClient(config.TMDBConfig{
		APIKey:    "k",
		BaseURL:   server.URL,
		ImageBase: "https://img/w500",
		Timeout:   5,
	}, testutil.NopLogger())

	return NewResolver(tmdbClient, nil, testutil.NopLogger()), server
}

func TestEnrich_ByIMDbID(t *testing.T) {
	r, _ := newResolverWithServer(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/find/tt1723816" {
			t.Errorf("path = %q, want external-id lookup first", req.URL.Path)
		}
		w.Write([]byte(`{"tv_results": [{"id": 42009, "overview": "A comedy.", "poster_path": "/p.jpg"}]}`))
	})

	e := r.Enrich(context.Background(), &tvmaze.Show{
		ID:   139,
		Name: "Girls",
		Externals: struct {
			TheTVDB int    `json:"thetvdb"`
			IMDB    string `json:"imdb"`
		}{TheTVDB: 220411, IMDB: "tt1723816"},
	})

	if e.TMDBID != 42009 {
		t.Errorf("TMDBID = %d, want 42009", e.TMDBID)
	}
	if e.Poster != "https://img/w500/p.jpg" {
		t.Errorf("Poster = %q", e.Poster)
	}
}

func TestEnrich_FallsBackToNameSearch(t *testing.T) {
	r, _ := newResolverWithServer(t, func(w http.ResponseWriter, req *http.Request) {
		switch {
		case req.URL.Path == "/find/tt0000001":
			w.Write([]byte(`{"tv_results": []}`))
		case req.URL.Path == "/search/tv":
			if got := req.URL.Query().Get("query"); got != "Obscure Show" {
				t.Errorf("query = %q", got)
			}
			w.Write([]byte(`{"results": [{"id": 7, "overview": "First hit."}]}`))
		default:
			t.Errorf("unexpected path %q", req.URL.Path)
		}
	})

	e := r.Enrich(context.Background(), &tvmaze.Show{
		ID:   1,
		Name: "Obscure Show",
		Externals: struct {
			TheTVDB int    `json:"thetvdb"`
			IMDB    string `json:"imdb"`
		}{IMDB: "tt0000001"},
	})

	if e.TMDBID != 7 {
		t.Errorf("TMDBID = %d, want name search result", e.TMDBID)
	}
}

func TestEnrich_NoMatchIsEmptyNotError(t *testing.T) {
	r, _ := newResolverWithServer(t, func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/search/tv":
			w.Write([]byte(`{"results": []}`))
		default:
			w.Write([]byte(`{"tv_results": []}`))
		}
	})

	e := r.Enrich(context.Background(), &tvmaze.Show{ID: 1, Name: "Nothing"})
	if e != (Enrichment{}) {
		t.Errorf("Enrichment = %+v, want zero value", e)
	}
}

func TestMergeOverview(t *testing.T) {
	r := NewResolver(nil, nil, testutil.NopLogger())

	if got := r.MergeOverview("Localized text", "<p>Schedule</p>"); got != "Localized text" {
		t.Errorf("MergeOverview() = %q, want localized preferred", got)
	}
	if got := r.MergeOverview("", "<p>Schedule <b>summary</b></p>"); got != "Schedule summary" {
		t.Errorf("MergeOverview() = %q, want stripped schedule summary", got)
	}
}

func TestEpisodeOverview_ThreeTiers(t *testing.T) {
	ctx := context.Background()

	// Tier (a): localized overview wins, not flagged automatic.
	r := NewResolver(nil, nil, testutil.NopLogger())
	text, auto := r.EpisodeOverview(ctx, "Lokalisiert", "English text")
	if text != "Lokalisiert" || auto {
		t.Errorf("tier a: (%q, %v)", text, auto)
	}

	// Tier (b): machine translation, flagged automatic.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"translatedText": "Übersetzt"}`))
	}))
	defer server.Close()
	tr := translate.NewClient(config.TranslateConfig{BaseURL: server.URL, Target: "de", Timeout: 5}, testutil.NopLogger())
	r = NewResolver(nil, tr, testutil.NopLogger())
	text, auto = r.EpisodeOverview(ctx, "", "English text")
	if text != "Übersetzt" || !auto {
		t.Errorf("tier b: (%q, %v)", text, auto)
	}

	// Tier (c): translation failure keeps the English text, flagged automatic.
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	tr = translate.NewClient(config.TranslateConfig{BaseURL: failing.URL, Target: "de", Timeout: 5}, testutil.NopLogger())
	r = NewResolver(nil, tr, testutil.NopLogger())
	text, auto = r.EpisodeOverview(ctx, "", "<p>English text</p>")
	if text != "English text" || !auto {
		t.Errorf("tier c: (%q, %v)", text, auto)
	}

	// No source text at all stays empty.
	text, auto = r.EpisodeOverview(ctx, "", "")
	if text != "" || auto {
		t.Errorf("empty: (%q, %v)", text, auto)
	}
}

func TestStripMarkup(t *testing.T) {
	if got := StripMarkup("<p>Hello <b>world</b></p>"); got != "Hello world" {
		t.Errorf("StripMarkup() = %q", got)
	}
	if got := StripMarkup(""); got != "" {
		t.Errorf("StripMarkup(\"\") = %q", got)
	}
}

func TestCache_SearchResults(t *testing.T) {
	c := NewCache(CacheConfig{})
	if _, ok := c.GetSearchResults("q:girls"); ok {
		t.Fatal("unexpected cache hit")
	}

	c.Set("q:girls", []tvmaze.SearchResult{{Show: tvmaze.Show{ID: 139}}})
	results, ok := c.GetSearchResults("q:girls")
	if !ok || len(results) != 1 || results[0].Show.ID != 139 {
		t.Errorf("GetSearchResults() = %+v, %v", results, ok)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}
