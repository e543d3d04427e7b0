package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/events"
	"github.com/marcus/tally/internal/streak"
)

// atRiskApp records a completion yesterday and opens an app whose clock is today.
func atRiskApp(t *testing.T, dir string) *app {
	t.Helper()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	if _, err := recordCompletion(context.Background(), dir, "tasks", "yesterday", now); err != nil {
		t.Fatal(err)
	}
	a, err := openApp(dir, calendar.Fixed(now))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestStatusRemindPublishesChallenge(t *testing.T) {
	dir := initProject(t)
	a := atRiskApp(t, dir)

	var got []events.Type
	a.bus.Subscribe(func(e events.Event) { got = append(got, e.Type) })

	snap, reminded, err := statusFor(context.Background(), a, "tasks", true)
	if err != nil {
		t.Fatal(err)
	}
	if !reminded || snap.Status.State != streak.StateGracePeriod {
		t.Errorf("reminded=%v state=%s", reminded, snap.Status.State)
	}
	if len(got) != 1 || got[0] != events.TypeStreakChallengeShow {
		t.Errorf("events = %v", got)
	}
}

func TestStatusRemindRespectsFeatureFlag(t *testing.T) {
	dir := initProject(t)
	if err := config.SetFeatureFlag(dir, "streak_challenge", false); err != nil {
		t.Fatal(err)
	}
	a := atRiskApp(t, dir)

	published := 0
	a.bus.Subscribe(func(events.Event) { published++ })

	_, reminded, err := statusFor(context.Background(), a, "tasks", true)
	if err != nil {
		t.Fatal(err)
	}
	if reminded || published != 0 {
		t.Errorf("streak_challenge off: reminded=%v published=%d", reminded, published)
	}
}

func TestStatusWithoutRemindIsQuiet(t *testing.T) {
	dir := initProject(t)
	a := atRiskApp(t, dir)

	published := 0
	a.bus.Subscribe(func(events.Event) { published++ })

	snap, reminded, err := statusFor(context.Background(), a, "tasks", false)
	if err != nil {
		t.Fatal(err)
	}
	if reminded || published != 0 || !snap.Status.AtRisk {
		t.Errorf("reminded=%v published=%d atRisk=%v", reminded, published, snap.Status.AtRisk)
	}
}

func TestMilestoneRows(t *testing.T) {
	snap := &streak.Snapshot{}
	snap.Ledger.Milestones = []int{3}
	snap.Status.EffectiveStreak = 4

	rows := milestoneRows(snap, []int{3, 7, 14})
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if !rows[0].Reached || rows[0].Next {
		t.Errorf("row 3 = %+v", rows[0])
	}
	if rows[1].Reached || !rows[1].Next {
		t.Errorf("row 7 = %+v", rows[1])
	}
	if rows[2].Next {
		t.Errorf("row 14 = %+v", rows[2])
	}
}
