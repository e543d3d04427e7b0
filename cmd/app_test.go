package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/db"
	"github.com/marcus/tally/internal/events"
	"github.com/marcus/tally/internal/kv"
	"github.com/marcus/tally/internal/output"
	"github.com/marcus/tally/internal/streak"
	"github.com/marcus/tally/internal/webhook"
)

// clearEnv isolates a test from TALLY_* settings in the caller's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TALLY_DIR", "TALLY_KEY", "TALLY_WEBHOOK_URL", "TALLY_WEBHOOK_SECRET", "TALLY_DISABLE_EXPERIMENTAL",
		"TALLY_FEATURE_STREAK_FREEZES", "TALLY_FEATURE_STREAK_CHALLENGE", "TALLY_FEATURE_WEBHOOK_EVENTS",
	} {
		t.Setenv(k, "")
	}
}

// initProject creates an initialized project directory.
func initProject(t *testing.T) string {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	if err := initialize(dir, initAnswers{Key: "tasks", FreezeThreshold: "5"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return dir
}

func TestOpenAppRequiresInit(t *testing.T) {
	clearEnv(t)
	_, err := openApp(t.TempDir(), nil)
	if !errors.Is(err, db.ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

func TestOpenAppPolicyFromConfig(t *testing.T) {
	dir := initProject(t)
	if err := config.SetFreezeThreshold(dir, 2); err != nil {
		t.Fatal(err)
	}
	if err := config.SetMilestones(dir, []int{10, 5}); err != nil {
		t.Fatal(err)
	}
	if err := config.SetFeatureFlag(dir, "streak_freezes", false); err != nil {
		t.Fatal(err)
	}

	a, err := openApp(dir, nil)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer a.Close()

	if a.policy.FreezeThreshold != 2 {
		t.Errorf("FreezeThreshold = %d, want 2", a.policy.FreezeThreshold)
	}
	if fmt.Sprint(a.policy.Milestones) != "[5 10]" {
		t.Errorf("Milestones = %v, want [5 10]", a.policy.Milestones)
	}
	if a.policy.FreezesEnabled {
		t.Error("streak_freezes=false should disable freezes")
	}
	if a.sink != nil {
		t.Error("webhook sink should be off by default")
	}
}

func TestOpenAppRejectsBadConfig(t *testing.T) {
	dir := initProject(t)
	if err := config.SetFreezeThreshold(dir, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := openApp(dir, nil); err == nil {
		t.Fatal("expected error for freeze_threshold 0")
	}
}

func TestOpenAppWebhookSink(t *testing.T) {
	dir := initProject(t)

	var mu sync.Mutex
	var got []webhook.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhook.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	if err := config.SetWebhook(dir, srv.URL, "s3cret"); err != nil {
		t.Fatal(err)
	}
	if err := config.SetFeatureFlag(dir, "webhook_events", true); err != nil {
		t.Fatal(err)
	}

	if _, err := recordCompletion(context.Background(), dir, "tasks", "", time.Now()); err != nil {
		t.Fatalf("recordCompletion: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("webhook requests = %d, want 1", len(got))
	}
	if len(got[0].Events) != 1 || got[0].Events[0].Type != string(events.TypeStreakUpdated) {
		t.Errorf("events = %+v", got[0].Events)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", streak.ErrInvalidKey), output.ErrCodeInvalidInput},
		{fmt.Errorf("x: %w", errInvalidInput), output.ErrCodeInvalidInput},
		{fmt.Errorf("save: %w", kv.ErrStorageFull), output.ErrCodeStorageFull},
		{db.ErrNotInitialized, output.ErrCodeNotInitialized},
		{errors.New("disk on fire"), output.ErrCodeDatabaseError},
	}
	for _, tc := range tests {
		if got := errorCode(tc.err); got != tc.want {
			t.Errorf("errorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
