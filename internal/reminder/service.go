// Package reminder schedules local notifications for upcoming episode
// air dates. When a reminder fires it is broadcast to connected clients
// and optionally mirrored to a webhook.
package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/store"
)

// Notifier receives reminder events. The events hub satisfies it.
type Notifier interface {
	Broadcast(msgType string, payload interface{}) error
}

// Payload is the webhook request body for a fired reminder.
type Payload struct {
	EventType     string    `json:"eventType"`
	InstanceName  string    `json:"instanceName"`
	Timestamp     time.Time `json:"timestamp"`
	SeriesTitle   string    `json:"seriesTitle"`
	SeasonNumber  int       `json:"seasonNumber"`
	EpisodeNumber int       `json:"episodeNumber"`
	EpisodeTitle  string    `json:"episodeTitle,omitempty"`
	AirDate       string    `json:"airDate,omitempty"`
}

// Service schedules and fires episode reminders. Reminders live in
// memory only; a restart drops pending timers and the next sync or add
// re-schedules them.
type Service struct {
	notifier   Notifier
	config     config.ReminderConfig
	httpClient *http.Client
	logger     zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewService creates a reminder service.
func NewService(cfg config.ReminderConfig, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		notifier:   notifier,
		config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "reminder").Logger(),
		timers:     make(map[string]*time.Timer),
	}
}

// ScheduleReminder arms a timer for the episode's air date. Episodes
// without a future air date are ignored; re-scheduling an episode
// replaces its pending timer.
func (s *Service) ScheduleReminder(showName string, episode *store.Episode) {
	if !s.config.Enabled || episode.AirDate == nil {
		return
	}
	delay := time.Until(*episode.AirDate)
	if delay <= 0 {
		return
	}

	// Copy what the callback needs; the caller may mutate the episode.
	ep := *episode

	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[ep.ID]; ok {
		timer.Stop()
	}
	s.timers[ep.ID] = time.AfterFunc(delay, func() {
		s.fire(showName, &ep)
	})

	s.logger.Debug().Str("episodeId", ep.ID).Str("show", showName).
		Time("airDate", *ep.AirDate).Msg("Reminder scheduled")
}

// Pending reports the number of armed reminders.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all pending reminders.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Service) fire(showName string, episode *store.Episode) {
	s.mu.Lock()
	delete(s.timers, episode.ID)
	s.mu.Unlock()

	s.logger.Info().Str("show", showName).Int("season", episode.Season).
		Int("episode", episode.Number).Msg("Episode airing")

	if s.notifier != nil {
		_ = s.notifier.Broadcast("episode:airing", map[string]interface{}{
			"showName": showName,
			"episode":  episode,
		})
	}

	if s.config.WebhookURL == "" {
		return
	}

	payload := Payload{
		EventType:     "episodeAiring",
		InstanceName:  "Watchlog",
		Timestamp:     time.Now().UTC(),
		SeriesTitle:   showName,
		SeasonNumber:  episode.Season,
		EpisodeNumber: episode.Number,
		EpisodeTitle:  episode.Title,
	}
	if episode.AirDate != nil {
		payload.AirDate = episode.AirDate.Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.send(ctx, payload); err != nil {
		s.logger.Warn().Err(err).Str("show", showName).Msg("Reminder webhook failed")
	}
}

func (s *Service) send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
