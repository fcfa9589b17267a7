// Package isoweek maps calendar dates onto the ISO-8601 week calendar and
// produces the canonical "YYYY-Www" period keys used across the pipeline.
package isoweek

import (
	"fmt"
	"regexp"
	"time"
)

// KeyPattern is the wire-visible shape of every period key.
var KeyPattern = regexp.MustCompile(`^\d{4}-W\d{2}$`)

// Key returns the ISO-week period key for a date, e.g. "2025-W07".
// The ISO year can differ from the calendar year at year boundaries.
func Key(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// Fields returns the ISO year and week number for a date.
func Fields(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// Parse splits a "YYYY-Www" key into its ISO year and week number.
func Parse(key string) (year, week int, err error) {
	if !KeyPattern.MatchString(key) {
		return 0, 0, fmt.Errorf("invalid period key %q", key)
	}
	if _, err := fmt.Sscanf(key, "%04d-W%02d", &year, &week); err != nil {
		return 0, 0, fmt.Errorf("invalid period key %q: %w", key, err)
	}
	if week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("invalid period key %q: week out of range", key)
	}
	return year, week, nil
}

// Valid reports whether key is a well-formed ISO-week period key.
func Valid(key string) bool {
	_, _, err := Parse(key)
	return err == nil
}

// MondayOf returns the Monday that starts ISO week `week` of ISO year `year`.
// Week 1 is the week containing January 4th, per ISO-8601.
func MondayOf(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	// Monday-based weekday offset: Monday=0 .. Sunday=6
	offset := (int(jan4.Weekday()) + 6) % 7
	firstMonday := jan4.AddDate(0, 0, -offset)
	return firstMonday.AddDate(0, 0, (week-1)*7)
}

// WeeksInYear returns the number of ISO weeks in the given ISO year (52 or 53).
func WeeksInYear(year int) int {
	// Dec 28 always falls in the last ISO week of its year.
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// WeeksOverlappingMonth returns every distinct ISO-week key with at least one
// day in the given calendar month, in ascending order.
func WeeksOverlappingMonth(year int, month time.Month) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	var keys []string
	seen := make(map[string]struct{})
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		k := Key(d)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
