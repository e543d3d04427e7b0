package streak

import (
	"time"

	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/models"
)

// State classifies a streak at a point in time.
type State string

const (
	StateNew         State = "new"
	StateActive      State = "active"
	StateGracePeriod State = "grace_period"
	StateLost        State = "lost"
)

// Status is the read-only view of a ledger at a given instant.
type Status struct {
	State                     State `json:"state"`
	GracePeriodRemainingHours int   `json:"grace_period_remaining_hours"`
	AtRisk                    bool  `json:"at_risk"`
	// FreezeWillApply is set when one missed day would be covered by a
	// freeze if a completion is recorded before the day ends.
	FreezeWillApply bool `json:"freeze_will_apply,omitempty"`
	// DaysSinceCompletion is the signed day gap to the last completion.
	DaysSinceCompletion int `json:"days_since_completion"`
	// EffectiveStreak is the streak as it stands now: 0 once lost.
	EffectiveStreak int `json:"effective_streak"`
}

// Evaluate reports the status of l at now. It never modifies l.
func (p Policy) Evaluate(l models.Ledger, now time.Time) Status {
	if !l.HasCompletion() {
		return Status{State: StateNew}
	}

	gap := calendar.Between(l.LastCompletionDay, calendar.Of(now))
	st := Status{DaysSinceCompletion: gap, EffectiveStreak: l.CurrentStreak}

	switch {
	case gap <= 0:
		st.State = StateActive
	case gap == 1:
		st.State = StateGracePeriod
	case gap == 2 && p.FreezesEnabled && l.StreakFreezes > 0:
		st.State = StateGracePeriod
		st.FreezeWillApply = true
	default:
		st.State = StateLost
		st.EffectiveStreak = 0
	}

	if st.State == StateGracePeriod {
		st.AtRisk = true
		st.GracePeriodRemainingHours = calendar.HoursUntilEndOfDay(now)
	}
	return st
}

// Evaluate reports the status of l under the default policy.
func Evaluate(l models.Ledger, now time.Time) Status {
	return DefaultPolicy().Evaluate(l, now)
}
