package timerange

import (
	"fmt"
	"time"

	"github.com/daypick/daypick/internal/apperr"
)

// DayFormat is the lossless day-only layout used everywhere in the core.
const DayFormat = "2006-01-02"

// Normalize truncates an instant to UTC midnight of its UTC calendar day.
// Every stored date and every date comparison in the core goes through this;
// only the vote deadline is compared as a raw instant.
func Normalize(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Normalize(a).Equal(Normalize(b))
}

// Days returns the inclusive ordered sequence of UTC calendar days between
// start and end. Returns apperr.ErrInvalidRange when start's day is after
// end's day.
func Days(start, end time.Time) ([]time.Time, error) {
	first := Normalize(start)
	last := Normalize(end)
	if first.After(last) {
		return nil, fmt.Errorf("%w: %s is after %s", apperr.ErrInvalidRange, FormatDay(first), FormatDay(last))
	}

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

// ParseDay parses a YYYY-MM-DD string into a UTC midnight instant.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}

// FormatDay formats an instant as the YYYY-MM-DD of its UTC calendar day.
// FormatDay(ParseDay(s)) == s for every valid s.
func FormatDay(t time.Time) string {
	return Normalize(t).Format(DayFormat)
}

// Contains reports whether day lies within the inclusive [start, end] window,
// all compared as UTC calendar days.
func Contains(start, end, day time.Time) bool {
	d := Normalize(day)
	return !d.Before(Normalize(start)) && !d.After(Normalize(end))
}
