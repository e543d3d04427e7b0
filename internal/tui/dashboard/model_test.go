package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/tally/internal/events"
	"github.com/marcus/tally/internal/kv"
	"github.com/marcus/tally/internal/models"
	"github.com/marcus/tally/internal/streak"
)

type fakeBackend struct {
	mu        sync.Mutex
	snaps     []streak.Snapshot
	completed []string
	err       error
}

func (f *fakeBackend) SnapshotAll(_ context.Context, keys []string) ([]streak.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snaps, f.err
}

func (f *fakeBackend) RecordCompletion(_ context.Context, key string) (*streak.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, key)
	if f.err != nil {
		return &streak.Result{}, f.err
	}
	return &streak.Result{Persisted: true}, nil
}

func sampleSnapshots() []streak.Snapshot {
	return []streak.Snapshot{
		{
			Key:    "reading",
			Ledger: models.Ledger{CurrentStreak: 5, LongestStreak: 5, TotalCompletions: 5},
			Status: streak.Status{State: streak.StateActive, EffectiveStreak: 5},
		},
		{
			Key:    "writing",
			Ledger: models.Ledger{CurrentStreak: 2, LongestStreak: 4, TotalCompletions: 8},
			Status: streak.Status{State: streak.StateGracePeriod, AtRisk: true, GracePeriodRemainingHours: 3, EffectiveStreak: 2},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	m := NewModel(backend, []string{"reading", "writing"}, streak.DefaultMilestones, nil, time.Minute)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	updated, _ = updated.Update(RefreshDataMsg{Snapshots: backend.snaps, Timestamp: time.Now()})
	return updated.(Model)
}

func TestViewBeforeSize(t *testing.T) {
	m := NewModel(&fakeBackend{}, nil, nil, nil, time.Minute)
	if got := m.View(); got != "Loading..." {
		t.Errorf("View = %q, want Loading...", got)
	}
}

func TestViewListsStreaks(t *testing.T) {
	m := loaded(t, &fakeBackend{snaps: sampleSnapshots()})
	view := ansi.Strip(m.View())

	for _, want := range []string{"tally", "> reading", "writing", "at risk", "3h", "→ 7", "→ 3", "q:quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSelectionMoves(t *testing.T) {
	m := loaded(t, &fakeBackend{snaps: sampleSnapshots()})

	updated, _ := m.Update(key("j"))
	m = updated.(Model)
	if m.Selected != 1 {
		t.Fatalf("Selected = %d after j, want 1", m.Selected)
	}
	updated, _ = m.Update(key("j"))
	if updated.(Model).Selected != 1 {
		t.Error("selection should stop at the last row")
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if updated.(Model).Selected != 0 {
		t.Error("up should move selection back")
	}
}

func TestCompleteSelected(t *testing.T) {
	backend := &fakeBackend{snaps: sampleSnapshots()}
	m := loaded(t, backend)

	updated, _ := m.Update(key("j"))
	_, cmd := updated.Update(key("c"))
	if cmd == nil {
		t.Fatal("expected a completion command")
	}
	msg, ok := cmd().(CompletedMsg)
	if !ok {
		t.Fatalf("cmd returned %T, want CompletedMsg", msg)
	}
	if msg.Key != "writing" {
		t.Errorf("completed %q, want writing", msg.Key)
	}
	if len(backend.completed) != 1 || backend.completed[0] != "writing" {
		t.Errorf("backend completions = %v", backend.completed)
	}

	after, refresh := updated.Update(msg)
	if after.(Model).Notice != "recorded writing" {
		t.Errorf("Notice = %q", after.(Model).Notice)
	}
	if refresh == nil {
		t.Error("a completion should trigger a refresh")
	}
}

func TestCompletedStorageFull(t *testing.T) {
	m := loaded(t, &fakeBackend{snaps: sampleSnapshots()})
	updated, _ := m.Update(CompletedMsg{Key: "reading", Result: &streak.Result{}, Err: kv.ErrStorageFull})
	if !strings.Contains(updated.(Model).Notice, "storage full") {
		t.Errorf("Notice = %q", updated.(Model).Notice)
	}
	if updated.(Model).Err != nil {
		t.Error("storage full is a notice, not an error")
	}
}

func TestRefreshError(t *testing.T) {
	m := loaded(t, &fakeBackend{snaps: sampleSnapshots()})
	updated, _ := m.Update(RefreshDataMsg{Err: errors.New("database is locked")})
	m = updated.(Model)
	if len(m.Snapshots) != 2 {
		t.Error("a failed refresh keeps the previous snapshots")
	}
	if !strings.Contains(ansi.Strip(m.View()), "database is locked") {
		t.Error("error should be shown")
	}
}

func TestEventsAreShownNewestFirst(t *testing.T) {
	ch := make(chan events.Event, 8)
	bus := events.NewBus()
	unsubscribe := bus.Subscribe(Forward(ch))
	defer unsubscribe()

	m := NewModel(&fakeBackend{}, nil, nil, ch, time.Minute)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	for i := 1; i <= 7; i++ {
		bus.Publish(events.Event{Type: events.TypeStreakMilestone, Key: "tasks", Detail: events.Detail{Milestone: i}})
	}
	for i := 0; i < 7; i++ {
		msg := m.waitForEvent()()
		updated, _ = m.Update(msg)
		m = updated.(Model)
	}

	if len(m.Recent) != maxRecent {
		t.Fatalf("len(Recent) = %d, want %d", len(m.Recent), maxRecent)
	}
	if m.Recent[0].Detail.Milestone != 7 {
		t.Errorf("newest event first, got milestone %d", m.Recent[0].Detail.Milestone)
	}

	close(ch)
	if msg := m.waitForEvent()(); msg != nil {
		t.Errorf("closed channel should yield nil, got %v", msg)
	}
}

func TestForwardDropsWhenFull(t *testing.T) {
	ch := make(chan events.Event, 1)
	h := Forward(ch)
	h(events.Event{Key: "a"})
	h(events.Event{Key: "b"})
	if got := (<-ch).Key; got != "a" {
		t.Errorf("got %q, want a", got)
	}
}

func TestQuit(t *testing.T) {
	m := loaded(t, &fakeBackend{snaps: sampleSnapshots()})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestMilestoneProgress(t *testing.T) {
	thresholds := []int{3, 7, 14}
	tests := []struct {
		current, next int
		want          float64
	}{
		{0, 3, 0},
		{2, 3, 2.0 / 3.0},
		{3, 7, 0},
		{5, 7, 0.5},
	}
	for _, tc := range tests {
		if got := milestoneProgress(tc.current, tc.next, thresholds); got != tc.want {
			t.Errorf("milestoneProgress(%d, %d) = %v, want %v", tc.current, tc.next, got, tc.want)
		}
	}
}

func TestCompactAndHelp(t *testing.T) {
	m := loaded(t, &fakeBackend{snaps: sampleSnapshots()})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	if !strings.Contains(updated.View(), "resize for full view") {
		t.Error("narrow terminals get the compact view")
	}

	updated, _ = m.Update(key("?"))
	if !strings.Contains(ansi.Strip(updated.View()), "toggle this help") {
		t.Error("? should show help")
	}
}
