// Package dashboard is the live streak dashboard shown by `tally watch`.
package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/tally/internal/events"
	"github.com/marcus/tally/internal/streak"
)

// Backend is the part of streak.Service the dashboard drives.
type Backend interface {
	SnapshotAll(ctx context.Context, keys []string) ([]streak.Snapshot, error)
	RecordCompletion(ctx context.Context, key string) (*streak.Result, error)
}

// MinWidth is the minimum terminal width for the full view
const MinWidth = 40

// maxRecent caps the event log shown in the footer.
const maxRecent = 5

// Model is the Bubble Tea model for the dashboard
type Model struct {
	Backend    Backend
	Keys       []string
	Milestones []int

	// Window dimensions
	Width  int
	Height int

	Snapshots   []streak.Snapshot
	Recent      []events.Event
	Selected    int
	ShowHelp    bool
	LastRefresh time.Time
	Notice      string
	Err         error

	RefreshInterval time.Duration

	events <-chan events.Event
	bar    progress.Model
}

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries refreshed snapshots
type RefreshDataMsg struct {
	Snapshots []streak.Snapshot
	Timestamp time.Time
	Err       error
}

// CompletedMsg reports the outcome of a completion started from the dashboard
type CompletedMsg struct {
	Key    string
	Result *streak.Result
	Err    error
}

// EventMsg wraps an event received from the bus
type EventMsg events.Event

// NewModel creates a dashboard for keys. evs may be nil when no bus is wired.
func NewModel(backend Backend, keys []string, milestones []int, evs <-chan events.Event, interval time.Duration) Model {
	return Model{
		Backend:         backend,
		Keys:            keys,
		Milestones:      milestones,
		RefreshInterval: interval,
		events:          evs,
		bar:             progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchData(), m.scheduleTick(), m.waitForEvent())
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Err = msg.Err
		if msg.Err == nil {
			m.Snapshots = msg.Snapshots
			m.LastRefresh = msg.Timestamp
			if m.Selected >= len(m.Snapshots) {
				m.Selected = max(len(m.Snapshots)-1, 0)
			}
		}
		return m, nil

	case CompletedMsg:
		switch {
		case msg.Result != nil && !msg.Result.Persisted:
			m.Notice = "storage full: " + msg.Key + " kept in memory only"
		case msg.Err != nil:
			m.Err = msg.Err
		default:
			m.Notice = "recorded " + msg.Key
		}
		return m, m.fetchData()

	case EventMsg:
		m.Recent = append([]events.Event{events.Event(msg)}, m.Recent...)
		if len(m.Recent) > maxRecent {
			m.Recent = m.Recent[:maxRecent]
		}
		return m, m.waitForEvent()
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.Selected < len(m.Snapshots)-1 {
			m.Selected++
		}
		return m, nil

	case "k", "up":
		if m.Selected > 0 {
			m.Selected--
		}
		return m, nil

	case "c", "enter":
		if m.Selected < len(m.Snapshots) {
			return m, m.complete(m.Snapshots[m.Selected].Key)
		}
		return m, nil

	case "r":
		return m, m.fetchData()

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) fetchData() tea.Cmd {
	backend, keys := m.Backend, m.Keys
	return func() tea.Msg {
		snaps, err := backend.SnapshotAll(context.Background(), keys)
		return RefreshDataMsg{Snapshots: snaps, Timestamp: time.Now(), Err: err}
	}
}

func (m Model) complete(key string) tea.Cmd {
	backend := m.Backend
	return func() tea.Msg {
		res, err := backend.RecordCompletion(context.Background(), key)
		return CompletedMsg{Key: key, Result: res, Err: err}
	}
}

// waitForEvent blocks on the event channel; it yields nil if the channel closes.
func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return EventMsg(e)
	}
}

// Forward returns a bus handler that feeds ch without blocking the publisher.
// Events are dropped when ch is full. ch must stay open for as long as the
// handler can be called.
func Forward(ch chan<- events.Event) events.Handler {
	return func(e events.Event) {
		select {
		case ch <- e:
		default:
		}
	}
}
