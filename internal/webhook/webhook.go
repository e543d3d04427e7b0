package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/marcus/tally/internal/events"
)

const (
	headerTimestamp = "X-Tally-Timestamp"
	headerSignature = "X-Tally-Signature"
	userAgent       = "tally-webhook/1"
)

// Payload is the top-level webhook POST body.
type Payload struct {
	Project   string         `json:"project"`
	Timestamp string         `json:"timestamp"`
	Events    []EventPayload `json:"events"`
}

// EventPayload is one streak event within a payload.
type EventPayload struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Key       string         `json:"key"`
	Timestamp string         `json:"timestamp"`
	Detail    map[string]int `json:"detail,omitempty"`
}

// BuildPayload converts events into a webhook payload. Detail carries only
// the fields the event type defines.
func BuildPayload(project string, evs []events.Event, now time.Time) Payload {
	p := Payload{
		Project:   project,
		Timestamp: now.UTC().Format(time.RFC3339),
		Events:    make([]EventPayload, len(evs)),
	}
	for i, e := range evs {
		p.Events[i] = EventPayload{
			ID:        e.ID,
			Type:      string(e.Type),
			Key:       e.Key,
			Timestamp: e.Time.UTC().Format(time.RFC3339),
			Detail:    detailFields(e),
		}
	}
	return p
}

func detailFields(e events.Event) map[string]int {
	fields := events.PayloadFields()[e.Type]
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]int, len(fields))
	for _, f := range fields {
		switch f {
		case "milestone":
			out[f] = e.Detail.Milestone
		case "currentStreak":
			out[f] = e.Detail.CurrentStreak
		case "longestStreak":
			out[f] = e.Detail.LongestStreak
		}
	}
	return out
}

// Sign returns the hex HMAC-SHA256 of "<timestamp>.<body>" under secret.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value produced by Dispatch.
func Verify(secret, timestamp string, body []byte, header string) bool {
	want := "sha256=" + Sign(secret, timestamp, body)
	return hmac.Equal([]byte(want), []byte(header))
}

// Dispatch performs a synchronous HTTP POST to url.
// Returns nil on success (2xx status).
func Dispatch(ctx context.Context, client *http.Client, url, secret string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(headerTimestamp, ts)
	if secret != "" {
		req.Header.Set(headerSignature, "sha256="+Sign(secret, ts, body))
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}
	return nil
}
