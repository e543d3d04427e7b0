// Package dateparse parses the relative and absolute day strings accepted by
// --on flags into calendar days. Completions can only be backdated, so every
// form resolves to today or earlier.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/tally/internal/calendar"
)

// ParseDay parses a day input string relative to the current local time.
//
// Supported formats:
//   - Exact dates: "2026-03-01"
//   - Relative days: "-1d", "-3d"
//   - Relative weeks: "-1w"
//   - Day names: "monday", "tuesday", etc. (most recent past occurrence)
//   - Keywords: "today", "yesterday"
func ParseDay(input string) (calendar.Day, error) {
	return ParseDayFrom(input, time.Now())
}

// ParseDayFrom parses a day input string relative to the given reference time.
// This variant enables deterministic testing with a fixed "now".
func ParseDayFrom(input string, now time.Time) (calendar.Day, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return calendar.Day{}, fmt.Errorf("empty date input")
	}
	today := calendar.Of(now)

	// Exact date: YYYY-MM-DD
	if d, err := calendar.Parse(input); err == nil {
		if today.Before(d) {
			return calendar.Day{}, fmt.Errorf("date %s is in the future", d)
		}
		return d, nil
	}

	switch input {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDays(-1), nil
	}

	// Relative offsets: -Nd, -Nw
	if strings.HasPrefix(input, "-") && len(input) >= 3 {
		suffix := input[len(input)-1]
		numStr := input[1 : len(input)-1]
		n, err := strconv.Atoi(numStr)
		if err == nil && n >= 0 {
			switch suffix {
			case 'd':
				return today.AddDays(-n), nil
			case 'w':
				return today.AddDays(-7 * n), nil
			default:
				return calendar.Day{}, fmt.Errorf("unknown relative unit %q in %q (use d or w)", string(suffix), input)
			}
		}
	}
	if strings.HasPrefix(input, "+") {
		return calendar.Day{}, fmt.Errorf("%q points to the future; use -Nd", input)
	}

	// Day names: most recent past occurrence of that weekday
	dayMap := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	if target, ok := dayMap[input]; ok {
		daysBack := (int(now.Weekday()) - int(target) + 7) % 7
		if daysBack == 0 {
			daysBack = 7 // always step back to the previous occurrence
		}
		return today.AddDays(-daysBack), nil
	}

	return calendar.Day{}, fmt.Errorf("unrecognized date format: %q", input)
}

// At returns a timestamp inside day d in loc, keeping the wall-clock time of
// now. Used to build a fixed clock for backdated completions.
func At(d calendar.Day, now time.Time) time.Time {
	h, m, s := now.Clock()
	return time.Date(d.Year, d.Month, d.Day, h, m, s, now.Nanosecond(), now.Location())
}
