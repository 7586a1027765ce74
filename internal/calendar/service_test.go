package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/watchlog/watchlog/internal/store"
	"github.com/watchlog/watchlog/internal/testutil"
)

func TestUpcoming(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	st := store.New(tdb.Conn, tdb.Logger)
	svc := NewService(st, testutil.NopLogger())
	ctx := context.Background()

	profile, err := st.CreateProfile(ctx, "P")
	if err != nil {
		t.Fatal(err)
	}
	show, err := st.CreateShow(ctx, store.CreateShowInput{
		TVMazeID: 1, Quality: "1080p", ProfileID: profile.ID, Name: "Girls", Network: "HBO",
	})
	if err != nil {
		t.Fatal(err)
	}

	soon := time.Now().UTC().AddDate(0, 0, 2)
	later := time.Now().UTC().AddDate(0, 0, 5)
	past := time.Now().UTC().AddDate(0, 0, -2)

	// Inserted out of order; the feed sorts by air date.
	if _, err := st.CreateEpisode(ctx, store.CreateEpisodeInput{
		ShowID: show.ID, SourceID: 2, Season: 1, Number: 2, AirDate: &later,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateEpisode(ctx, store.CreateEpisodeInput{
		ShowID: show.ID, SourceID: 1, Season: 1, Number: 1, AirDate: &soon,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateEpisode(ctx, store.CreateEpisodeInput{
		ShowID: show.ID, SourceID: 3, Season: 1, Number: 3, AirDate: &past,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateEpisode(ctx, store.CreateEpisodeInput{
		ShowID: show.ID, SourceID: 4, Season: 1, Number: 4,
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.Upcoming(ctx, profile.ID, 30)
	if err != nil {
		t.Fatalf("Upcoming() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (past and undated excluded)", len(entries))
	}
	if entries[0].Number != 1 || entries[1].Number != 2 {
		t.Errorf("order = %d, %d, want sorted by air date", entries[0].Number, entries[1].Number)
	}
	if entries[0].ShowName != "Girls" || entries[0].Network != "HBO" {
		t.Errorf("entry = %+v, want show context attached", entries[0])
	}
}
