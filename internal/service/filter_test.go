package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkummer/homepi/internal/domain"
	"github.com/bkummer/homepi/internal/service"
)

func TestFilterAbsencesMatchesNameAndKeyword(t *testing.T) {
	r := service.NewResolver("Brian", testLog())
	windowStart := date(2024, time.January, 8)
	windowEnd := date(2024, time.January, 29)

	events := []domain.CalendarEvent{
		{Summary: "Brian PTO", Start: date(2024, time.January, 9), End: date(2024, time.January, 10)},
		{Summary: "brian vacation in the mountains", Start: date(2024, time.January, 10), End: date(2024, time.January, 11)},
		{Summary: "Alice PTO", Start: date(2024, time.January, 9), End: date(2024, time.January, 10)},
		{Summary: "Brian dentist", Start: date(2024, time.January, 9), End: date(2024, time.January, 10)},
		{Start: date(2024, time.January, 9), End: date(2024, time.January, 10)},
	}

	matched := r.FilterAbsences(events, windowStart, windowEnd)

	require.Len(t, matched, 2)
	assert.Equal(t, "Brian PTO", matched[0].Summary)
	assert.Equal(t, "brian vacation in the mountains", matched[1].Summary)
}

func TestFilterAbsencesWindowOverlap(t *testing.T) {
	r := service.NewResolver("Brian", testLog())
	windowStart := date(2024, time.January, 8)
	windowEnd := date(2024, time.January, 29)

	events := []domain.CalendarEvent{
		// Started before the window but still in progress at its start.
		pto(date(2024, time.January, 5), date(2024, time.January, 9)),
		// Over before the window starts.
		pto(date(2024, time.January, 3), date(2024, time.January, 5)),
		// Starts at the window end.
		pto(date(2024, time.January, 29), date(2024, time.January, 30)),
	}

	matched := r.FilterAbsences(events, windowStart, windowEnd)

	require.Len(t, matched, 1)
	assert.Equal(t, date(2024, time.January, 5), matched[0].Start)
}

func TestFilterAbsencesExpandsRecurringTemplate(t *testing.T) {
	r := service.NewResolver("Brian", testLog())
	windowStart := date(2024, time.January, 8)
	windowEnd := date(2024, time.January, 11)

	events := []domain.CalendarEvent{
		{
			Summary: "Brian PTO",
			Start:   at(2024, time.January, 1, 9, 0),
			End:     at(2024, time.January, 1, 17, 0),
			RRule:   "FREQ=DAILY;COUNT=30",
		},
	}

	matched := r.FilterAbsences(events, windowStart, windowEnd)

	// Only the occurrences inside the window survive, never the
	// template itself.
	require.Len(t, matched, 3)
	for _, ev := range matched {
		assert.False(t, ev.IsRecurring())
		assert.Equal(t, 1, ev.RecurrenceGroup)
	}
	assert.Equal(t, at(2024, time.January, 8, 9, 0), matched[0].Start)
	assert.Equal(t, at(2024, time.January, 10, 9, 0), matched[2].Start)
}

func TestFilterAbsencesSkipsBadRecurrenceRule(t *testing.T) {
	r := service.NewResolver("Brian", testLog())
	windowStart := date(2024, time.January, 8)
	windowEnd := date(2024, time.January, 29)

	events := []domain.CalendarEvent{
		{
			Summary: "Brian PTO",
			Start:   date(2024, time.January, 9),
			End:     date(2024, time.January, 10),
			RRule:   "FREQ=SOMETIMES",
		},
		pto(date(2024, time.January, 9), date(2024, time.January, 10)),
	}

	matched := r.FilterAbsences(events, windowStart, windowEnd)

	require.Len(t, matched, 1)
	assert.False(t, matched[0].IsRecurring())
}
