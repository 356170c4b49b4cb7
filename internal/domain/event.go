package domain

import "time"

// CalendarEvent represents a single entry from the family calendar.
// A recurring template event carries the raw RRULE value; occurrences
// produced by expansion never do, which prevents re-expansion.
type CalendarEvent struct {
	Summary string
	Start   time.Time
	End     time.Time

	// RRule is the raw recurrence rule value (e.g. "FREQ=WEEKLY;BYDAY=MO"),
	// set only on template events.
	RRule string

	// ExDates lists instants the recurrence must skip.
	ExDates []time.Time

	// RecurrenceGroup is shared by all occurrences expanded from the same
	// template within one run; zero for plain events.
	RecurrenceGroup int
}

// IsRecurring returns true for a template event that still needs expansion.
func (e CalendarEvent) IsRecurring() bool {
	return e.RRule != ""
}

// Span is a run of time-ordered PTO events contiguous by the
// business-day adjacency rule, anchored at today.
type Span []CalendarEvent

// IsEmpty returns true when no PTO is active.
func (s Span) IsEmpty() bool {
	return len(s) == 0
}

// Start returns the start of the first event in the span.
func (s Span) Start() time.Time {
	return s[0].Start
}

// End returns the end of the last event in the span.
func (s Span) End() time.Time {
	return s[len(s)-1].End
}

// Status is the resolved chat status for one run. An empty Text means
// the status should be left unchanged.
type Status struct {
	Text      string
	Emoji     string
	ExpiresAt time.Time
}

// Empty reports whether this run produced no status to set.
func (s Status) Empty() bool {
	return s.Text == ""
}
