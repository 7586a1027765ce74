package tvmaze

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/testutil"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.TVMazeConfig{BaseURL: baseURL, Timeout: 5}, testutil.NopLogger())
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/shows" {
			t.Errorf("path = %q, want /search/shows", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "girls" {
			t.Errorf("q = %q, want girls", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"score": 0.9, "show": {"id": 139, "name": "Girls", "status": "Ended",
				"network": {"name": "HBO", "country": {"code": "US"}},
				"externals": {"thetvdb": 220411, "imdb": "tt1723816"},
				"image": {"medium": "http://img/m.jpg", "original": "http://img/o.jpg"}}}
		]`))
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).Search(context.Background(), "girls")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	show := results[0].Show
	if show.ID != 139 || show.Name != "Girls" {
		t.Errorf("show = %+v", show)
	}
	if show.NetworkName() != "HBO" {
		t.Errorf("NetworkName() = %q, want HBO", show.NetworkName())
	}
	if show.Externals.IMDB != "tt1723816" {
		t.Errorf("imdb = %q", show.Externals.IMDB)
	}
}

func TestGetEpisodes_IncludesSpecials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("specials"); got != "1" {
			t.Errorf("specials = %q, want 1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "name": "Pilot", "season": 1, "number": 1, "airdate": "2012-04-15"},
			{"id": 2, "name": "Special", "season": 0, "number": 1}
		]`))
	}))
	defer server.Close()

	episodes, err := newTestClient(server.URL).GetEpisodes(context.Background(), 139)
	if err != nil {
		t.Fatalf("GetEpisodes() error = %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("episodes = %d, want 2", len(episodes))
	}
	if episodes[0].AirDate != "2012-04-15" {
		t.Errorf("airdate = %q", episodes[0].AirDate)
	}
}

func TestGetUpdates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/updates/shows" {
			t.Errorf("path = %q, want /updates/shows", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"1": 1500000000, "139": 1600000000}`))
	}))
	defer server.Close()

	updates, err := newTestClient(server.URL).GetUpdates(context.Background())
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if updates[139] != 1600000000 {
		t.Errorf("updates[139] = %d, want 1600000000", updates[139])
	}
	if len(updates) != 2 {
		t.Errorf("len(updates) = %d, want 2", len(updates))
	}
}

func TestLookup_NotFoundIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	show, err := newTestClient(server.URL).Lookup(context.Background(), "tt0000000", 0)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if show != nil {
		t.Errorf("show = %+v, want nil", show)
	}
}

func TestLookup_ByTheTVDB(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("thetvdb"); got != "220411" {
			t.Errorf("thetvdb = %q, want 220411", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 139, "name": "Girls"}`))
	}))
	defer server.Close()

	show, err := newTestClient(server.URL).Lookup(context.Background(), "", 220411)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if show == nil || show.ID != 139 {
		t.Errorf("show = %+v, want id 139", show)
	}
}

func TestLookup_FallsBackToTheTVDB(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("imdb") != "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("thetvdb"); got != "220411" {
			t.Errorf("thetvdb = %q, want 220411", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 139, "name": "Girls"}`))
	}))
	defer server.Close()

	// The IMDb id is unknown upstream; the second external id still resolves.
	show, err := newTestClient(server.URL).Lookup(context.Background(), "tt0000000", 220411)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if show == nil || show.ID != 139 {
		t.Errorf("show = %+v, want id 139", show)
	}
}

func TestLookup_PrefersIMDB(t *testing.T) {
	var imdbQueries int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("imdb") == "tt1723816" {
			imdbQueries++
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": 139, "name": "Girls"}`))
			return
		}
		t.Errorf("unexpected query %q", r.URL.RawQuery)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	show, err := newTestClient(server.URL).Lookup(context.Background(), "tt1723816", 220411)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if show == nil || show.ID != 139 {
		t.Errorf("show = %+v, want id 139", show)
	}
	if imdbQueries != 1 {
		t.Errorf("imdb queries = %d, want 1", imdbQueries)
	}
}

func TestDoRequest_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetShow(context.Background(), 1)
	if err == nil {
		t.Fatal("GetShow() should fail on server error")
	}
}
