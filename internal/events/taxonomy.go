package events

import (
	"strings"
	"unicode"
)

// Type names a streak event. Values are the wire names UI layers subscribe to.
type Type string

// Canonical event types
const (
	TypeStreakUpdated       Type = "streakUpdated"
	TypeStreakMilestone     Type = "streakMilestone"
	TypeStreakChallengeShow Type = "streakChallengeShow"
	TypeStorageFull         Type = "storageFull"
)

// AllTypes returns all valid event types.
func AllTypes() map[Type]bool {
	return map[Type]bool{
		TypeStreakUpdated:       true,
		TypeStreakMilestone:     true,
		TypeStreakChallengeShow: true,
		TypeStorageFull:         true,
	}
}

// IsValidType checks if the given event type string is a canonical name.
func IsValidType(t string) bool {
	return AllTypes()[Type(t)]
}

// NormalizeType maps loose spellings ("streak_milestone", "milestone",
// "STREAK-UPDATED") to the canonical type.
func NormalizeType(name string) (Type, bool) {
	switch squash(name) {
	case "streakupdated", "updated", "update":
		return TypeStreakUpdated, true
	case "streakmilestone", "milestone", "milestones":
		return TypeStreakMilestone, true
	case "streakchallengeshow", "challenge", "streakchallenge":
		return TypeStreakChallengeShow, true
	case "storagefull", "full":
		return TypeStorageFull, true
	default:
		return "", false
	}
}

// squash lower-cases name and drops separators.
func squash(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// PayloadFields lists which Detail fields each event type carries.
func PayloadFields() map[Type][]string {
	return map[Type][]string{
		TypeStreakUpdated:       {"currentStreak", "longestStreak"},
		TypeStreakMilestone:     {"milestone"},
		TypeStreakChallengeShow: {"currentStreak"},
		TypeStorageFull:         nil,
	}
}
