// Package streak implements the streak and engagement state machine: it
// tracks consecutive days with at least one completion, grants and spends
// freeze tokens, detects milestone crossings, and reports whether a streak
// is active, at risk or lost.
//
// The transition functions (Apply, Evaluate, CrossedMilestones) are pure and
// operate on models.Ledger values. Service wraps them with persistence
// through a kv.Store, per-key serialization and event publication.
package streak

import (
	"fmt"
	"sort"
)

// DefaultFreezeThreshold is the number of completions in one day that earns a freeze.
const DefaultFreezeThreshold = 5

// DefaultMilestones are the streak lengths that trigger a one-time celebration.
var DefaultMilestones = []int{3, 7, 14, 30, 60, 100, 180, 365}

// Policy holds the tunable rules of the state machine.
type Policy struct {
	// FreezeThreshold is the same-day completion count that earns one freeze.
	FreezeThreshold int
	// Milestones are streak-length thresholds, kept sorted ascending.
	Milestones []int
	// FreezesEnabled turns freeze earning and consumption on.
	FreezesEnabled bool
}

// DefaultPolicy returns the stock policy.
func DefaultPolicy() Policy {
	return Policy{
		FreezeThreshold: DefaultFreezeThreshold,
		Milestones:      append([]int(nil), DefaultMilestones...),
		FreezesEnabled:  true,
	}
}

// NewPolicy builds a policy from overrides. A nil threshold or empty
// milestone list keeps the default.
func NewPolicy(freezeThreshold *int, milestones []int, freezesEnabled bool) (Policy, error) {
	p := DefaultPolicy()
	p.FreezesEnabled = freezesEnabled
	if freezeThreshold != nil {
		if *freezeThreshold < 1 {
			return Policy{}, fmt.Errorf("freeze threshold must be at least 1, got %d", *freezeThreshold)
		}
		p.FreezeThreshold = *freezeThreshold
	}
	if len(milestones) > 0 {
		cleaned, err := normalizeThresholds(milestones)
		if err != nil {
			return Policy{}, err
		}
		p.Milestones = cleaned
	}
	return p, nil
}

// normalizeThresholds sorts and de-duplicates thresholds, rejecting values below 1.
func normalizeThresholds(in []int) ([]int, error) {
	out := make([]int, 0, len(in))
	seen := make(map[int]bool, len(in))
	for _, t := range in {
		if t < 1 {
			return nil, fmt.Errorf("milestone must be at least 1, got %d", t)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (p Policy) freezeThreshold() int {
	if p.FreezeThreshold < 1 {
		return DefaultFreezeThreshold
	}
	return p.FreezeThreshold
}

// CrossedMilestones returns, in ascending order, every threshold t with
// previous < t <= current that is not already in reached. Inputs need not be
// sorted; negative or shrinking streaks yield nothing.
func CrossedMilestones(previous, current int, reached []int, thresholds []int) []int {
	if current <= previous {
		return nil
	}
	done := make(map[int]bool, len(reached))
	for _, r := range reached {
		done[r] = true
	}

	var crossed []int
	for _, t := range thresholds {
		if t > previous && t <= current && !done[t] {
			done[t] = true
			crossed = append(crossed, t)
		}
	}
	sort.Ints(crossed)
	return crossed
}

// NextMilestone returns the smallest threshold above current, or 0 when
// every threshold has been passed.
func NextMilestone(current int, thresholds []int) int {
	next := 0
	for _, t := range thresholds {
		if t > current && (next == 0 || t < next) {
			next = t
		}
	}
	return next
}
