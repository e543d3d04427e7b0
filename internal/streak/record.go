package streak

import (
	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/models"
)

// Result describes what one recorded completion changed.
type Result struct {
	Data models.Ledger `json:"data"`
	// NewMilestone is the highest threshold crossed by this completion, 0 if none.
	NewMilestone int `json:"new_milestone,omitempty"`
	// Milestones lists every threshold crossed by this completion, ascending.
	Milestones        []int `json:"milestones,omitempty"`
	EarnedFreeze      bool  `json:"earned_freeze"`
	StreakIncremented bool  `json:"streak_incremented"`
	FreezeUsed        bool  `json:"freeze_used,omitempty"`
	// ClockSkew is set when today falls before the last completion day.
	// The ledger is left untouched in that case.
	ClockSkew bool `json:"clock_skew,omitempty"`
	// Persisted is false when the updated ledger could not be saved.
	Persisted bool `json:"persisted"`
}

// Apply records one completion made on today against l and returns the new
// ledger. l is not modified.
func (p Policy) Apply(l models.Ledger, today calendar.Day) (models.Ledger, Result) {
	next := l.Clone()
	var res Result

	last := next.LastCompletionDay
	switch {
	case !last.IsZero() && today == last:
		// Another completion on a day that already counts.
		next.DailyTaskCount++
		next.TotalCompletions++

	case !last.IsZero() && today.Before(last):
		res.ClockSkew = true
		res.Data = next
		return next, res

	default:
		previous := next.CurrentStreak
		switch gap := calendar.Between(last, today); {
		case last.IsZero():
			next.CurrentStreak = 1
		case gap == 1:
			next.CurrentStreak++
		case gap == 2 && p.FreezesEnabled && next.StreakFreezes > 0:
			next.StreakFreezes--
			next.CurrentStreak++
			res.FreezeUsed = true
		default:
			next.CurrentStreak = 1
		}
		next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)

		next.DailyTaskCount = 1
		next.FreezesEarnedToday = false
		next.LastCompletionDay = today
		next.TotalCompletions++
		res.StreakIncremented = true

		res.Milestones = CrossedMilestones(previous, next.CurrentStreak, next.Milestones, p.Milestones)
		for _, m := range res.Milestones {
			next.AddMilestone(m)
		}
		if n := len(res.Milestones); n > 0 {
			res.NewMilestone = res.Milestones[n-1]
		}
	}

	if p.FreezesEnabled && !next.FreezesEarnedToday && next.DailyTaskCount >= p.freezeThreshold() {
		next.StreakFreezes++
		next.FreezesEarnedToday = true
		res.EarnedFreeze = true
	}

	res.Data = next
	return next, res
}

// Apply records a completion under the default policy.
func Apply(l models.Ledger, today calendar.Day) (models.Ledger, Result) {
	return DefaultPolicy().Apply(l, today)
}
