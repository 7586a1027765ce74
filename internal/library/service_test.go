package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/metadata"
	"github.com/watchlog/watchlog/internal/metadata/tmdb"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
	"github.com/watchlog/watchlog/internal/store"
	"github.com/watchlog/watchlog/internal/testutil"
)

// fakeScheduleServer serves a minimal schedule-provider API for one show.
func fakeScheduleServer(t *testing.T, episodes string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/shows/139", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 139, "name": "Girls", "language": "English", "status": "Ended",
			"summary": "<p>A <b>comedy</b>.</p>",
			"network": {"name": "HBO", "country": {"code": "US"}},
			"image": {"medium": "http://img/m.jpg", "original": "http://img/o.jpg"},
			"externals": {"thetvdb": 220411, "imdb": "tt1723816"}}`))
	})
	mux.HandleFunc("/shows/139/episodes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(episodes))
	})
	mux.HandleFunc("/shows/139/cast", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"person": {"id": 1, "name": "Lena Dunham"}, "character": {"id": 10, "name": "Hannah"}},
			{"person": {"id": 2, "name": "Allison Williams"}, "character": {"id": 11, "name": "Marnie"}}
		]`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

const twoEpisodes = `[
	{"id": 4952, "name": "Pilot", "season": 1, "number": 1,
		"airdate": "2012-04-15", "airstamp": "2012-04-16T02:30:00+00:00", "runtime": 30,
		"summary": "<p>Hannah quits.</p>"},
	{"id": 4953, "name": "Vagina Panic", "season": 1, "number": 2,
		"airdate": "2012-04-22", "runtime": 30}
]`

func newTestService(t *testing.T, server *httptest.Server) (*Service, *store.Store, func()) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	st := store.New(tdb.Conn, tdb.Logger)

	tvmazeClient := tvmaze.NewClient(config.TVMazeConfig{BaseURL: server.URL, Timeout: 5}, testutil.NopLogger())
	// No API key: resolver yields no enrichment, which keeps the add path
	// on schedule-provider fields alone.
	tmdbClient := tmdb.NewClient(config.TMDBConfig{Timeout: 5}, testutil.NopLogger())
	resolver := metadata.NewResolver(tmdbClient, nil, testutil.NopLogger())

	svc := NewService(st, tvmazeClient, resolver, nil, nil, 10, testutil.NopLogger())
	return svc, st, tdb.Close
}

func TestAddOrUpdate_CreatedThenAlreadyExists(t *testing.T) {
	server := fakeScheduleServer(t, twoEpisodes)
	svc, st, cleanup := newTestService(t, server)
	defer cleanup()
	ctx := context.Background()

	outcome, show, err := svc.AddOrUpdate(ctx, 139, "1080p", "", AddOptions{})
	if err != nil {
		t.Fatalf("AddOrUpdate() error = %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("outcome = %q, want created", outcome)
	}
	if show.Name != "Girls" || show.Network != "HBO" {
		t.Errorf("show = %+v", show)
	}
	if show.Overview != "A comedy." {
		t.Errorf("overview = %q, want stripped schedule summary", show.Overview)
	}

	// Second identical add writes nothing.
	outcome, dup, err := svc.AddOrUpdate(ctx, 139, "1080p", "", AddOptions{})
	if err != nil {
		t.Fatalf("AddOrUpdate() second call error = %v", err)
	}
	if outcome != OutcomeAlreadyExists {
		t.Errorf("outcome = %q, want alreadyExists", outcome)
	}
	if dup.ID != show.ID {
		t.Errorf("duplicate returned id %d, want %d", dup.ID, show.ID)
	}

	shows, err := st.ListShows(ctx, "")
	if err != nil {
		t.Fatalf("ListShows() error = %v", err)
	}
	if len(shows) != 1 {
		t.Errorf("show count = %d, want 1", len(shows))
	}

	// A different quality tag is a distinct record.
	outcome, _, err = svc.AddOrUpdate(ctx, 139, "4K", "", AddOptions{})
	if err != nil {
		t.Fatalf("AddOrUpdate() 4K error = %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("outcome = %q, want created for new quality tag", outcome)
	}
}

func TestAddOrUpdate_PopulatesEpisodes(t *testing.T) {
	server := fakeScheduleServer(t, twoEpisodes)
	svc, st, cleanup := newTestService(t, server)
	defer cleanup()
	ctx := context.Background()

	_, show, err := svc.AddOrUpdate(ctx, 139, "1080p", "", AddOptions{})
	if err != nil {
		t.Fatalf("AddOrUpdate() error = %v", err)
	}

	episodes, err := st.ListEpisodes(ctx, show.ID)
	if err != nil {
		t.Fatalf("ListEpisodes() error = %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("episode count = %d, want 2", len(episodes))
	}
	if episodes[0].ID != store.EpisodeID(show.ID, 4952) {
		t.Errorf("episode id = %q, want composite id", episodes[0].ID)
	}
	if episodes[0].Overview != "Hannah quits." {
		t.Errorf("episode overview = %q", episodes[0].Overview)
	}
	if episodes[0].AirDate == nil {
		t.Error("episode air date = nil, want parsed airstamp")
	}

	cast, err := st.ListShowCast(ctx, show.ID)
	if err != nil {
		t.Fatalf("ListShowCast() error = %v", err)
	}
	if len(cast) != 2 {
		t.Errorf("cast count = %d, want 2", len(cast))
	}
}

func TestAddOrUpdate_MergeOnDuplicate(t *testing.T) {
	server := fakeScheduleServer(t, `[
		{"id": 4952, "name": "Pilot", "season": 1, "number": 1, "airdate": "2012-04-15"}
	]`)
	svc, st, cleanup := newTestService(t, server)
	defer cleanup()
	ctx := context.Background()

	_, show, err := svc.AddOrUpdate(ctx, 139, "1080p", "", AddOptions{})
	if err != nil {
		t.Fatalf("AddOrUpdate() error = %v", err)
	}

	// Upstream grows a second episode; re-add with merge enabled.
	richer := fakeScheduleServer(t, twoEpisodes)
	svc2 := newTestServiceSharingStore(t, richer, st)

	outcome, _, err := svc2.AddOrUpdate(ctx, 139, "1080p", "", AddOptions{MergeOnDuplicate: true})
	if err != nil {
		t.Fatalf("AddOrUpdate() merge error = %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("outcome = %q, want updated", outcome)
	}

	episodes, err := st.ListEpisodes(ctx, show.ID)
	if err != nil {
		t.Fatalf("ListEpisodes() error = %v", err)
	}
	if len(episodes) != 2 {
		t.Errorf("episode count after merge = %d, want 2", len(episodes))
	}
}

// newTestServiceSharingStore builds a service over an existing store so a
// test can swap the fake provider mid-flight.
func newTestServiceSharingStore(t *testing.T, server *httptest.Server, st *store.Store) *Service {
	t.Helper()
	tvmazeClient := tvmaze.NewClient(config.TVMazeConfig{BaseURL: server.URL, Timeout: 5}, testutil.NopLogger())
	tmdbClient := tmdb.NewClient(config.TMDBConfig{Timeout: 5}, testutil.NopLogger())
	resolver := metadata.NewResolver(tmdbClient, nil, testutil.NopLogger())
	return NewService(st, tvmazeClient, resolver, nil, nil, 10, testutil.NopLogger())
}

type recordingPusher struct {
	mu       sync.Mutex
	episodes []string
	movies   []int64
}

func (p *recordingPusher) PushEpisodeWatched(_ context.Context, _ *store.Show, ep *store.Episode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.episodes = append(p.episodes, ep.ID)
}

func (p *recordingPusher) PushMovieWatched(_ context.Context, m *store.Movie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movies = append(p.movies, m.ID)
}

func TestToggleWatched_SelfInverse(t *testing.T) {
	server := fakeScheduleServer(t, twoEpisodes)
	svc, st, cleanup := newTestService(t, server)
	defer cleanup()
	ctx := context.Background()

	pusher := &recordingPusher{}
	svc.SetWatchedPusher(pusher)

	_, show, err := svc.AddOrUpdate(ctx, 139, "1080p", "", AddOptions{})
	if err != nil {
		t.Fatalf("AddOrUpdate() error = %v", err)
	}
	epID := store.EpisodeID(show.ID, 4952)

	ep, err := svc.ToggleWatched(ctx, epID)
	if err != nil {
		t.Fatalf("ToggleWatched() error = %v", err)
	}
	if !ep.Watched || ep.WatchedAt == nil {
		t.Errorf("after first toggle: watched=%v watchedAt=%v", ep.Watched, ep.WatchedAt)
	}
	if len(pusher.episodes) != 1 {
		t.Errorf("push count = %d, want 1", len(pusher.episodes))
	}

	ep, err = svc.ToggleWatched(ctx, epID)
	if err != nil {
		t.Fatalf("ToggleWatched() second call error = %v", err)
	}
	if ep.Watched || ep.WatchedAt != nil {
		t.Errorf("after second toggle: watched=%v watchedAt=%v", ep.Watched, ep.WatchedAt)
	}
	// Unmarking never pushes.
	if len(pusher.episodes) != 1 {
		t.Errorf("push count after unmark = %d, want 1", len(pusher.episodes))
	}

	// State matches the store.
	stored, err := st.GetEpisode(ctx, epID)
	if err != nil {
		t.Fatalf("GetEpisode() error = %v", err)
	}
	if stored.Watched {
		t.Error("stored episode still watched")
	}
}

func TestDelete_Cascades(t *testing.T) {
	server := fakeScheduleServer(t, twoEpisodes)
	svc, st, cleanup := newTestService(t, server)
	defer cleanup()
	ctx := context.Background()

	_, show, err := svc.AddOrUpdate(ctx, 139, "1080p", "", AddOptions{})
	if err != nil {
		t.Fatalf("AddOrUpdate() error = %v", err)
	}

	if err := svc.Delete(ctx, show.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := st.GetShow(ctx, show.ID); err != store.ErrShowNotFound {
		t.Errorf("GetShow() after delete error = %v", err)
	}
	episodes, _ := st.ListEpisodes(ctx, show.ID)
	if len(episodes) != 0 {
		t.Errorf("episodes after delete = %d, want 0", len(episodes))
	}
}

func TestRateMovie(t *testing.T) {
	server := fakeScheduleServer(t, twoEpisodes)
	svc, st, cleanup := newTestService(t, server)
	defer cleanup()
	ctx := context.Background()

	movie, err := st.CreateMovie(ctx, store.CreateMovieInput{
		TMDBID: 603, Title: "The Matrix", Quality: "1080p",
	})
	if err != nil {
		t.Fatalf("CreateMovie() error = %v", err)
	}

	rated, err := svc.RateMovie(ctx, movie.ID, 9)
	if err != nil {
		t.Fatalf("RateMovie() error = %v", err)
	}
	if rated.Rating != 9 {
		t.Errorf("rating = %d, want 9", rated.Rating)
	}

	stored, err := st.GetMovie(ctx, movie.ID)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if stored.Rating != 9 {
		t.Errorf("stored rating = %d, want 9", stored.Rating)
	}

	if _, err := svc.RateMovie(ctx, movie.ID, 11); err == nil {
		t.Error("RateMovie() should reject a rating above 10")
	}
	if _, err := svc.RateMovie(ctx, movie.ID, 0); err == nil {
		t.Error("RateMovie() should reject a zero rating")
	}
	if _, err := svc.RateMovie(ctx, movie.ID+99, 5); err != store.ErrMovieNotFound {
		t.Errorf("RateMovie() on missing movie error = %v, want not found", err)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"Running":           "running",
		"Ended":             "ended",
		"To Be Determined":  "tbd",
		"In Development":    "running",
		"":                  "running",
		"SomethingUpstream": "SomethingUpstream",
	}
	for in, want := range cases {
		if got := normalizeStatus(in); got != want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
