package service

import (
	"sort"
	"time"

	"github.com/bkummer/homepi/internal/domain"
)

// MergeSpan merges the filtered events into the single contiguous PTO
// span that starts today. today must be a start-of-day instant.
//
// Events are sorted ascending by start (stable, so equal starts keep
// their enumeration order) and accumulated until the first pair that is
// not business-day adjacent; everything after that gap is discarded,
// even if a later contiguous run exists. The 21-day lookahead window
// plus the discard rule below keep that simplification harmless.
//
// A span whose first event starts at or after tomorrow is discarded
// entirely: only a span covering today is of interest.
func MergeSpan(events []domain.CalendarEvent, today time.Time) domain.Span {
	if len(events) == 0 {
		return nil
	}

	run := make([]domain.CalendarEvent, len(events))
	copy(run, events)
	sort.SliceStable(run, func(i, j int) bool {
		return run[i].Start.Before(run[j].Start)
	})

	for i := 1; i < len(run); i++ {
		prev := domain.StartOfDay(run[i-1].Start)
		cur := domain.StartOfDay(run[i].Start)
		if !domain.IsNextBusinessDay(prev, cur) {
			run = run[:i]
			break
		}
	}

	tomorrow := today.AddDate(0, 0, 1)
	if !run[0].Start.Before(tomorrow) {
		return nil
	}

	return domain.Span(run)
}
