package service

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/bkummer/homepi/internal/domain"
)

// maxOccurrencesPerTemplate caps expansion of rules without an UNTIL or
// COUNT clause.
const maxOccurrencesPerTemplate = 1000

// ExpandOccurrences turns a recurring template event into concrete
// occurrences, one per date the rule yields. Every occurrence keeps the
// template's time-of-day and duration but takes its date from the rule;
// the rule itself is cleared so an occurrence can never be re-expanded.
// Dates listed in the template's ExDates are dropped.
//
// Expansion is deliberately not limited to the caller's search window:
// windowed recurrence queries misbehave around UNTIL boundaries, so we
// over-generate here and let the event filter narrow the result.
func ExpandOccurrences(tmpl domain.CalendarEvent, group int) ([]domain.CalendarEvent, error) {
	rule, err := rrule.StrToRRule(tmpl.RRule)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence rule %q: %w", tmpl.RRule, err)
	}
	rule.DTStart(tmpl.Start)

	duration := tmpl.End.Sub(tmpl.Start)
	next := rule.Iterator()

	var occurrences []domain.CalendarEvent
	for i := 0; i < maxOccurrencesPerTemplate; i++ {
		day, ok := next()
		if !ok {
			break
		}

		start := time.Date(day.Year(), day.Month(), day.Day(),
			tmpl.Start.Hour(), tmpl.Start.Minute(), tmpl.Start.Second(), 0,
			tmpl.Start.Location())

		if isExcluded(tmpl.ExDates, start) {
			continue
		}

		occurrences = append(occurrences, domain.CalendarEvent{
			Summary:         tmpl.Summary,
			Start:           start,
			End:             start.Add(duration),
			RecurrenceGroup: group,
		})
	}

	return occurrences, nil
}

func isExcluded(exDates []time.Time, start time.Time) bool {
	for _, ex := range exDates {
		if domain.SameDay(ex, start) {
			return true
		}
	}
	return false
}
