// Package calendar resolves timestamps to local calendar days and measures
// whole-day distances between them.
package calendar

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const layout = "2006-01-02"

// Day is a civil calendar date with no time or location attached.
// The zero Day stands for "no day".
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// Of returns the calendar day of t in t's own location.
// Pass time.Now() to get the device-local day.
func Of(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Day, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return Of(t), nil
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats d as YYYY-MM-DD, or "" for the zero Day.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.midnightUTC().Format(layout)
}

// AddDays returns d shifted by n days (n may be negative).
func (d Day) AddDays(n int) Day {
	return Of(d.midnightUTC().AddDate(0, 0, n))
}

// Before reports whether d falls strictly before o.
func (d Day) Before(o Day) bool {
	return Between(d, o) > 0
}

// In returns local midnight at the start of d in loc.
func (d Day) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// midnightUTC anchors the date in UTC so day arithmetic never sees DST.
func (d Day) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields
// the zero Day.
func (d *Day) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON writes the zero Day as null.
func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "" or "YYYY-MM-DD".
func (d *Day) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Day{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("day: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

// Between returns the signed number of whole days from a to b (b - a).
func Between(a, b Day) int {
	hours := b.midnightUTC().Sub(a.midnightUTC()).Hours()
	return int(math.Round(hours / 24))
}

// EndOfDay returns the instant the calendar day containing now ends
// (the next local midnight).
func EndOfDay(now time.Time) time.Time {
	return Of(now).AddDays(1).In(now.Location())
}

// HoursUntilEndOfDay returns the hours left before local midnight,
// rounded up so that any remaining time counts as at least one hour.
func HoursUntilEndOfDay(now time.Time) int {
	remaining := EndOfDay(now).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours()))
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock in the device's local zone.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return time.Time(f) }
