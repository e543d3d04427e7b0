package streak

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/events"
	"github.com/marcus/tally/internal/kv"
	"github.com/marcus/tally/internal/models"
	"golang.org/x/sync/errgroup"
)

// History receives an audit row for every recorded completion.
type History interface {
	AppendCompletion(ctx context.Context, c *models.Completion) error
}

// Options configures a Service. Zero fields fall back to defaults.
type Options struct {
	Policy  *Policy
	Clock   calendar.Clock
	Events  events.Publisher
	History History
	Logger  *slog.Logger
}

// Service records completions and answers status queries for any number
// of streak keys backed by one store.
type Service struct {
	store   kv.Store
	policy  Policy
	clock   calendar.Clock
	events  events.Publisher
	history History
	log     *slog.Logger
	locks   keyLocks
}

// NewService returns a Service persisting to store.
func NewService(store kv.Store, opts Options) *Service {
	s := &Service{
		store:   store,
		policy:  DefaultPolicy(),
		clock:   opts.Clock,
		events:  opts.Events,
		history: opts.History,
		log:     opts.Logger,
	}
	if opts.Policy != nil {
		s.policy = *opts.Policy
	}
	if s.clock == nil {
		s.clock = calendar.System{}
	}
	if s.events == nil {
		s.events = events.Discard
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Policy returns the policy the service applies.
func (s *Service) Policy() Policy { return s.policy }

// Snapshot is a ledger together with its status at one instant.
type Snapshot struct {
	Key    string        `json:"key"`
	Ledger models.Ledger `json:"ledger"`
	Status Status        `json:"status"`
	At     time.Time     `json:"at"`
}

// RecordCompletion records one completion for key now.
//
// The load, update and save run as one atomic step per key: calls in this
// process are serialized by a keyed mutex, and stores implementing
// kv.Updater extend that to other processes. When the updated ledger cannot be
// persisted the computed result is still returned, with Persisted=false,
// alongside the error; callers should keep using the result and warn the
// user when errors.Is(err, kv.ErrStorageFull).
func (s *Service) RecordCompletion(ctx context.Context, key string) (*Result, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(key)
	defer unlock()

	now := s.clock.Now()
	var (
		prev, next models.Ledger
		res        Result
	)
	applied, saveErr := Modify(ctx, s.store, key, func(l models.Ledger) (models.Ledger, bool) {
		prev = l
		next, res = s.policy.Apply(l, calendar.Of(now))
		return next, !res.ClockSkew
	})
	if !applied {
		return nil, saveErr
	}

	switch {
	case saveErr == nil:
		res.Persisted = true
		if res.ClockSkew {
			s.log.Warn("completion before last completion day; streak unchanged",
				"key", key, "today", calendar.Of(now).String(), "last", prev.LastCompletionDay.String())
		}
	case errors.Is(saveErr, kv.ErrStorageFull):
		s.log.Warn("storage full; streak update kept in memory only", "key", key, "err", saveErr)
		s.events.Publish(events.Event{Type: events.TypeStorageFull, Key: key, Time: now})
	default:
		s.log.Error("save streak", "key", key, "err", saveErr)
	}

	s.appendHistory(ctx, key, now, res)

	if !res.ClockSkew {
		s.events.Publish(events.Event{
			Type: events.TypeStreakUpdated,
			Key:  key,
			Time: now,
			Detail: events.Detail{
				CurrentStreak: next.CurrentStreak,
				LongestStreak: next.LongestStreak,
			},
		})
		for _, m := range res.Milestones {
			s.events.Publish(events.Event{
				Type:   events.TypeStreakMilestone,
				Key:    key,
				Time:   now,
				Detail: events.Detail{Milestone: m},
			})
		}
	}

	s.log.Debug("completion recorded",
		"key", key,
		"current", next.CurrentStreak,
		"incremented", res.StreakIncremented,
		"milestone", res.NewMilestone,
		"earned_freeze", res.EarnedFreeze,
		"freeze_used", res.FreezeUsed)

	return &res, saveErr
}

func (s *Service) appendHistory(ctx context.Context, key string, now time.Time, res Result) {
	if s.history == nil {
		return
	}
	row := &models.Completion{
		StreakKey:     key,
		Day:           calendar.Of(now),
		RecordedAt:    now,
		CurrentStreak: res.Data.CurrentStreak,
		ClockSkew:     res.ClockSkew,
	}
	if err := s.history.AppendCompletion(ctx, row); err != nil {
		s.log.Debug("append completion history", "key", key, "err", err)
	}
}

// Snapshot loads key and evaluates its status now. It never writes.
func (s *Service) Snapshot(ctx context.Context, key string) (*Snapshot, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	ledger, err := Load(ctx, s.store, key)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return &Snapshot{
		Key:    key,
		Ledger: ledger,
		Status: s.policy.Evaluate(ledger, now),
		At:     now,
	}, nil
}

// SnapshotAll evaluates several keys concurrently, preserving input order.
func (s *Service) SnapshotAll(ctx context.Context, keys []string) ([]Snapshot, error) {
	out := make([]Snapshot, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			snap, err := s.Snapshot(ctx, key)
			if err != nil {
				return err
			}
			out[i] = *snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Remind evaluates key and, when the streak is at risk, publishes a
// streakChallengeShow event. It reports whether the event was published.
func (s *Service) Remind(ctx context.Context, key string) (*Snapshot, bool, error) {
	snap, err := s.Snapshot(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !snap.Status.AtRisk {
		return snap, false, nil
	}
	s.events.Publish(events.Event{
		Type:   events.TypeStreakChallengeShow,
		Key:    snap.Key,
		Time:   snap.At,
		Detail: events.Detail{CurrentStreak: snap.Ledger.CurrentStreak},
	})
	return snap, true, nil
}
