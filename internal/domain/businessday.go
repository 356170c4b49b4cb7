package domain

import "time"

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay returns true if a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysBetween returns the number of calendar days from a to b,
// negative when b is before a. Time-of-day is ignored.
func DaysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}

// IsBusinessDay returns true Monday through Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// AddBusinessDays advances one calendar day at a time starting the day
// after t, counting only business days, until n have been counted.
// n must be >= 1.
func AddBusinessDays(t time.Time, n int) time.Time {
	d := t
	for counted := 0; counted < n; {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			counted++
		}
	}
	return d
}

// IsNextBusinessDay reports whether b is the business day immediately
// following a: either exactly one calendar day later, or the Monday
// after a Friday. Friday PTO followed by Monday PTO counts as
// contiguous, skipping the weekend.
func IsNextBusinessDay(a, b time.Time) bool {
	gap := DaysBetween(a, b)
	if gap == 1 {
		return true
	}
	return a.Weekday() == time.Friday && b.Weekday() == time.Monday && gap == 3
}
