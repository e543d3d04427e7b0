package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/marcus/tally/internal/events"
)

// Sink buffers bus events and delivers them as one payload on Flush.
type Sink struct {
	settings Settings
	project  string
	client   *http.Client
	log      *slog.Logger

	mu      sync.Mutex
	pending []events.Event
}

// NewSink returns a sink posting to settings.URL. A nil client uses a
// client with a 10s timeout.
func NewSink(settings Settings, project string, client *http.Client, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{settings: settings, project: project, client: client, log: log}
}

// Attach subscribes the sink to every event type on bus and returns the
// unsubscribe function.
func (s *Sink) Attach(bus *events.Bus) func() {
	return bus.Subscribe(s.Handle)
}

// Handle queues e for the next Flush.
func (s *Sink) Handle(e events.Event) {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	s.mu.Unlock()
}

// Pending returns the number of queued events.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush posts every queued event. Events stay queued when delivery fails.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 || !s.settings.Enabled() {
		return nil
	}

	payload := BuildPayload(s.project, batch, time.Now())
	if err := Dispatch(ctx, s.client, s.settings.URL, s.settings.Secret, payload); err != nil {
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		s.log.Warn("webhook delivery failed", "url", s.settings.URL, "events", len(batch), "err", err)
		return err
	}
	s.log.Debug("webhook delivered", "url", s.settings.URL, "events", len(batch))
	return nil
}
