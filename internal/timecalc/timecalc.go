// Package timecalc parses command-line dates and device timestamps and does calendar-day arithmetic.
package timecalc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the MM/DD/YYYY format accepted on the command line.
const DateLayout = "01/02/2006"

// WireLayout is the ISO-8601 UTC millisecond format sent to the attendance API.
const WireLayout = "2006-01-02T15:04:05.000Z"

// ErrInvalidDate is returned by ParseDate for input that is not MM/DD/YYYY.
var ErrInvalidDate = errors.New("invalid date format, use MM/DD/YYYY")

// ParseDate parses a MM/DD/YYYY date in loc and returns its midnight.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: got %q", ErrInvalidDate, s)
	}
	return d, nil
}

// ParseTimestamp parses a device timestamp. Values carrying an offset are
// taken as-is; naive values are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	// Device exports use a space separator; the API format uses T with
	// fractional seconds.
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// FormatWire formats t in the API's UTC millisecond format.
func FormatWire(t time.Time) string {
	return t.UTC().Format(WireLayout)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Yesterday returns the start of the day before t.
func Yesterday(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -1)
}

// DateRange returns the start of every day in [from, to], ascending.
// It returns nil when to is before from.
func DateRange(from, to time.Time) []time.Time {
	from, to = StartOfDay(from), StartOfDay(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
