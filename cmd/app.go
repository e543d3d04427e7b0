package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/db"
	"github.com/marcus/tally/internal/events"
	"github.com/marcus/tally/internal/features"
	"github.com/marcus/tally/internal/kv"
	"github.com/marcus/tally/internal/output"
	"github.com/marcus/tally/internal/streak"
	"github.com/marcus/tally/internal/webhook"
)

// webhookFlushTimeout bounds event delivery at command exit.
const webhookFlushTimeout = 5 * time.Second

// app bundles everything a command needs to talk to the streak core.
type app struct {
	baseDir string
	db      *db.DB
	bus     *events.Bus
	svc     *streak.Service
	policy  streak.Policy
	flags   features.Flags
	sink    *webhook.Sink
}

// openApp opens the project database and builds a streak service from the
// project config and feature flags. A nil clock uses the system clock.
func openApp(baseDir string, clock calendar.Clock) (*app, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags := features.Snapshot(baseDir)

	policy, err := streak.NewPolicy(cfg.Streak.FreezeThreshold, cfg.Streak.Milestones, flags.Enabled(features.StreakFreezes))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	database, err := db.Open(baseDir)
	if err != nil {
		return nil, err
	}

	a := &app{
		baseDir: baseDir,
		db:      database,
		bus:     events.NewBus(),
		policy:  policy,
		flags:   flags,
	}

	if flags.Enabled(features.WebhookEvents) {
		if settings := webhook.Load(baseDir); settings.Enabled() {
			a.sink = webhook.NewSink(settings, baseDir, nil, slog.Default())
			a.sink.Attach(a.bus)
		}
	}

	a.svc = streak.NewService(database, streak.Options{
		Policy:  &policy,
		Clock:   clock,
		Events:  a.bus,
		History: database,
		Logger:  slog.Default(),
	})
	return a, nil
}

// Close delivers pending webhook events and closes the database.
func (a *app) Close() error {
	if a.sink != nil && a.sink.Pending() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), webhookFlushTimeout)
		if err := a.sink.Flush(ctx); err != nil {
			output.Warning("webhook delivery failed: %v", err)
		}
		cancel()
	}
	return a.db.Close()
}

// errInvalidInput marks bad command-line input.
var errInvalidInput = errors.New("invalid input")

// errorCode maps an error to its structured JSON code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, streak.ErrInvalidKey), errors.Is(err, errInvalidInput):
		return output.ErrCodeInvalidInput
	case errors.Is(err, kv.ErrStorageFull):
		return output.ErrCodeStorageFull
	case errors.Is(err, db.ErrNotInitialized):
		return output.ErrCodeNotInitialized
	default:
		return output.ErrCodeDatabaseError
	}
}

// fail reports err in the command's output mode and returns it.
func fail(cmd *cobra.Command, err error) error {
	if jsonOutput(cmd) {
		output.JSONError(errorCode(err), err.Error())
	} else {
		output.Error("%v", err)
	}
	return err
}
