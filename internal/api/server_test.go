package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/watchlog/watchlog/internal/backup"
	"github.com/watchlog/watchlog/internal/calendar"
	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/events"
	"github.com/watchlog/watchlog/internal/library"
	"github.com/watchlog/watchlog/internal/metadata"
	"github.com/watchlog/watchlog/internal/metadata/tmdb"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
	"github.com/watchlog/watchlog/internal/store"
	"github.com/watchlog/watchlog/internal/syncer"
	"github.com/watchlog/watchlog/internal/testutil"
	"github.com/watchlog/watchlog/internal/traktsync"
)

const showPayload = `{
	"id": 139, "name": "Girls", "language": "English", "status": "Ended",
	"summary": "<p>Four girls in New York.</p>",
	"network": {"name": "HBO"},
	"externals": {"thetvdb": 220411, "imdb": "tt1723816"}
}`

// newTestServer builds a full server over a throwaway database with the
// schedule provider stubbed out.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/shows/139", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(showPayload))
	})
	mux.HandleFunc("/shows/139/episodes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "season": 1, "number": 1, "name": "Pilot", "airdate": "2012-04-15"}]`))
	})
	mux.HandleFunc("/shows/139/cast", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/search/shows", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"score": 1.0, "show": ` + showPayload + `}]`))
	})
	provider := httptest.NewServer(mux)
	t.Cleanup(provider.Close)

	tdb := testutil.NewTestDB(t)
	t.Cleanup(func() { tdb.Close() })
	logger := testutil.NopLogger()

	st := store.New(tdb.Conn, tdb.Logger)
	profile, err := st.EnsureDefaultProfile(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	tvmazeClient := tvmaze.NewClient(config.TVMazeConfig{BaseURL: provider.URL, Timeout: 5}, logger)
	tmdbClient := tmdb.NewClient(config.TMDBConfig{}, logger)
	resolver := metadata.NewResolver(tmdbClient, nil, logger)

	hub := events.NewHub()
	go hub.Run()

	libraryService := library.NewService(st, tvmazeClient, resolver, nil, hub, 10, logger)
	syncService := syncer.NewService(st, tvmazeClient, hub, 0, logger)
	traktClient := traktsync.NewClient(config.TraktConfig{}, logger)
	traktService := traktsync.NewService(st, traktClient, libraryService, tvmazeClient, hub, logger)
	backupService := backup.NewService(st, syncService, logger)
	calendarService := calendar.NewService(st, logger)

	server := NewServer(config.Default(), Deps{
		Store:            st,
		Hub:              hub,
		Library:          libraryService,
		Syncer:           syncService,
		TraktSync:        traktService,
		Backup:           backupService,
		Calendar:         calendarService,
		TVMaze:           tvmazeClient,
		TMDB:             tmdbClient,
		SearchCache:      metadata.NewCache(metadata.DefaultCacheConfig()),
		DefaultProfileID: profile.ID,
	}, logger)

	return server, st
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestProfileLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/profiles", `{"name": "Alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created store.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Name != "Alice" {
		t.Errorf("profile = %+v, want named Alice with an id", created)
	}

	rec = doRequest(server, http.MethodGet, "/api/v1/profiles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var profiles []store.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &profiles); err != nil {
		t.Fatal(err)
	}
	// The default profile plus the one just created.
	if len(profiles) != 2 {
		t.Errorf("profiles = %d, want 2", len(profiles))
	}

	rec = doRequest(server, http.MethodGet, "/api/v1/profiles/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing profile status = %d, want 404", rec.Code)
	}
}

func TestAddShowAndFetch(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/shows", `{"tvmazeId": 139, "quality": "1080p"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Outcome string     `json:"outcome"`
		Show    store.Show `json:"show"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Outcome != "created" {
		t.Errorf("outcome = %q, want created", result.Outcome)
	}

	// Same identity again reports the duplicate without writing.
	rec = doRequest(server, http.MethodPost, "/api/v1/shows", `{"tvmazeId": 139, "quality": "1080p"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate add status = %d, want 200", rec.Code)
	}

	rec = doRequest(server, http.MethodGet, "/api/v1/shows", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var shows []store.Show
	if err := json.Unmarshal(rec.Body.Bytes(), &shows); err != nil {
		t.Fatal(err)
	}
	if len(shows) != 1 {
		t.Fatalf("shows = %d, want 1", len(shows))
	}
}

func TestAddShowValidation(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/shows", `{"quality": "1080p"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing tvmazeId status = %d, want 400", rec.Code)
	}

	rec = doRequest(server, http.MethodPost, "/api/v1/shows", `{"tvmazeId": 139}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing quality status = %d, want 400", rec.Code)
	}
}

func TestSearchShows(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/v1/search/shows", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing query status = %d, want 400", rec.Code)
	}

	rec = doRequest(server, http.MethodGet, "/api/v1/search/shows?q=girls", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, want 200", rec.Code)
	}
	var results []tvmaze.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Show.Name != "Girls" {
		t.Errorf("results = %+v, want one hit for Girls", results)
	}
}

func TestTraktStatusSignedOut(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/v1/trakt/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.State != "signedOut" {
		t.Errorf("state = %q, want signedOut", status.State)
	}
}

func TestBackupExport(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/shows", `{"tvmazeId": 139, "quality": "1080p"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, want 201", rec.Code)
	}

	rec = doRequest(server, http.MethodGet, "/api/v1/backup/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, want 200", rec.Code)
	}
	var doc backup.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version != backup.FormatVersion || len(doc.Shows) != 1 {
		t.Errorf("doc = version %d with %d shows, want version %d with 1 show",
			doc.Version, len(doc.Shows), backup.FormatVersion)
	}
}
