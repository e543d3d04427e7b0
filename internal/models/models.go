package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/marcus/tally/internal/calendar"
)

// Ledger is the persisted streak record for one streak key.
type Ledger struct {
	CurrentStreak      int          `json:"current_streak"`
	LongestStreak      int          `json:"longest_streak"`
	TotalCompletions   int          `json:"total_completions"`
	LastCompletionDay  calendar.Day `json:"last_completion_day"`
	StreakFreezes      int          `json:"streak_freezes"`
	FreezesEarnedToday bool         `json:"freezes_earned_today"`
	DailyTaskCount     int          `json:"daily_task_count"`
	Milestones         []int        `json:"milestones"`
}

// HasCompletion reports whether any completion was ever recorded.
func (l Ledger) HasCompletion() bool {
	return !l.LastCompletionDay.IsZero()
}

// TodayCount returns the number of completions recorded on today.
// DailyTaskCount belongs to LastCompletionDay, so it reads as 0 on any other day.
func (l Ledger) TodayCount(today calendar.Day) int {
	if l.LastCompletionDay != today {
		return 0
	}
	return l.DailyTaskCount
}

// HasMilestone reports whether threshold was already reached.
func (l Ledger) HasMilestone(threshold int) bool {
	for _, m := range l.Milestones {
		if m == threshold {
			return true
		}
	}
	return false
}

// AddMilestone records threshold, keeping Milestones sorted and unique.
func (l *Ledger) AddMilestone(threshold int) {
	if l.HasMilestone(threshold) {
		return
	}
	l.Milestones = append(l.Milestones, threshold)
	sort.Ints(l.Milestones)
}

// Clone returns a deep copy so callers can mutate without aliasing Milestones.
func (l Ledger) Clone() Ledger {
	out := l
	if l.Milestones != nil {
		out.Milestones = append([]int(nil), l.Milestones...)
	}
	return out
}

// Validate checks the ledger invariants.
func (l Ledger) Validate() error {
	switch {
	case l.CurrentStreak < 0, l.LongestStreak < 0, l.TotalCompletions < 0,
		l.StreakFreezes < 0, l.DailyTaskCount < 0:
		return fmt.Errorf("ledger has negative counter: %+v", l)
	case l.CurrentStreak > l.LongestStreak:
		return fmt.Errorf("current streak %d exceeds longest %d", l.CurrentStreak, l.LongestStreak)
	case l.TotalCompletions < l.CurrentStreak:
		return fmt.Errorf("total completions %d below current streak %d", l.TotalCompletions, l.CurrentStreak)
	}
	return nil
}

// Completion is one row of the completion audit history.
type Completion struct {
	ID            int64        `json:"id"`
	StreakKey     string       `json:"streak_key"`
	Day           calendar.Day `json:"day"`
	RecordedAt    time.Time    `json:"recorded_at"`
	CurrentStreak int          `json:"current_streak"`
	ClockSkew     bool         `json:"clock_skew,omitempty"`
}

// WebhookConfig holds webhook settings stored in config.json.
type WebhookConfig struct {
	URL    string `json:"url,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// StreakConfig holds streak policy overrides stored in config.json.
type StreakConfig struct {
	DefaultKey      string `json:"default_key,omitempty"`
	FreezeThreshold *int   `json:"freeze_threshold,omitempty"`
	Milestones      []int  `json:"milestones,omitempty"`
}

// Config represents the local project configuration
type Config struct {
	Streak       StreakConfig    `json:"streak,omitempty"`
	Keys         []string        `json:"keys,omitempty"` // streak keys seen so far
	Webhook      *WebhookConfig  `json:"webhook,omitempty"`
	FeatureFlags map[string]bool `json:"feature_flags,omitempty"`
}
