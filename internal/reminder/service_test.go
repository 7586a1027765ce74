package reminder

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/store"
	"github.com/watchlog/watchlog/internal/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(msgType string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, msgType)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func futureEpisode(id string, in time.Duration) *store.Episode {
	airDate := time.Now().Add(in)
	return &store.Episode{
		ID:      id,
		Season:  1,
		Number:  3,
		Title:   "Pilot",
		AirDate: &airDate,
	}
}

func TestScheduleReminder_FiresWebhookAndBroadcast(t *testing.T) {
	received := make(chan Payload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- p
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	svc := NewService(config.ReminderConfig{Enabled: true, WebhookURL: server.URL}, notifier, testutil.NopLogger())
	defer svc.Stop()

	svc.ScheduleReminder("Girls", futureEpisode("1-10", 20*time.Millisecond))

	select {
	case p := <-received:
		if p.EventType != "episodeAiring" || p.SeriesTitle != "Girls" || p.SeasonNumber != 1 || p.EpisodeNumber != 3 {
			t.Errorf("payload = %+v, want episodeAiring for Girls S1E3", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never called")
	}

	if notifier.count() != 1 {
		t.Errorf("broadcasts = %d, want 1", notifier.count())
	}
	if svc.Pending() != 0 {
		t.Errorf("pending = %d, want 0 after firing", svc.Pending())
	}
}

func TestScheduleReminder_SkipsPastAndUndated(t *testing.T) {
	svc := NewService(config.ReminderConfig{Enabled: true}, &recordingNotifier{}, testutil.NopLogger())
	defer svc.Stop()

	past := time.Now().Add(-time.Hour)
	svc.ScheduleReminder("Girls", &store.Episode{ID: "1-1", AirDate: &past})
	svc.ScheduleReminder("Girls", &store.Episode{ID: "1-2"})

	if svc.Pending() != 0 {
		t.Errorf("pending = %d, want 0", svc.Pending())
	}
}

func TestScheduleReminder_Disabled(t *testing.T) {
	svc := NewService(config.ReminderConfig{Enabled: false}, &recordingNotifier{}, testutil.NopLogger())
	defer svc.Stop()

	svc.ScheduleReminder("Girls", futureEpisode("1-10", time.Hour))
	if svc.Pending() != 0 {
		t.Errorf("pending = %d, want 0 when disabled", svc.Pending())
	}
}

func TestScheduleReminder_ReplacesPendingTimer(t *testing.T) {
	svc := NewService(config.ReminderConfig{Enabled: true}, &recordingNotifier{}, testutil.NopLogger())
	defer svc.Stop()

	svc.ScheduleReminder("Girls", futureEpisode("1-10", time.Hour))
	svc.ScheduleReminder("Girls", futureEpisode("1-10", 2*time.Hour))

	if svc.Pending() != 1 {
		t.Errorf("pending = %d, want 1 after re-schedule", svc.Pending())
	}
}

func TestStop_CancelsTimers(t *testing.T) {
	svc := NewService(config.ReminderConfig{Enabled: true}, &recordingNotifier{}, testutil.NopLogger())

	svc.ScheduleReminder("Girls", futureEpisode("1-10", time.Hour))
	svc.Stop()

	if svc.Pending() != 0 {
		t.Errorf("pending = %d, want 0 after Stop", svc.Pending())
	}
}
