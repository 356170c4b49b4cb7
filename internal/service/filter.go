package service

import (
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bkummer/homepi/internal/domain"
)

// Resolver narrows a raw calendar event set down to the tracked person's
// absence events.
type Resolver struct {
	pattern *regexp.Regexp
	log     *logrus.Entry
}

// NewResolver builds a Resolver for the given person. An event counts as
// an absence when its summary mentions the person's name followed by
// "pto" or "vacation", case-insensitively.
func NewResolver(personName string, log *logrus.Entry) *Resolver {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(personName) + `.*(pto|vacation)`)
	return &Resolver{pattern: pattern, log: log}
}

// FilterAbsences returns the person's absence events inside the window
// [windowStart, windowEnd). Recurring templates are never included
// directly; their expanded occurrences are evaluated in their place, so
// a template and its instances are not double-counted. Events with no
// summary or with an unparseable recurrence rule are skipped, never
// fatal. The result is unordered and may contain occurrences from the
// same recurrence group.
func (r *Resolver) FilterAbsences(events []domain.CalendarEvent, windowStart, windowEnd time.Time) []domain.CalendarEvent {
	var matched []domain.CalendarEvent
	group := 0

	for _, ev := range events {
		if ev.Summary == "" {
			continue
		}
		if !ev.Start.Before(windowEnd) {
			continue
		}
		if !r.pattern.MatchString(ev.Summary) {
			continue
		}

		if ev.IsRecurring() {
			group++
			occurrences, err := ExpandOccurrences(ev, group)
			if err != nil {
				r.log.WithError(err).WithField("summary", ev.Summary).
					Warn("skipping event with bad recurrence rule")
				continue
			}
			for _, occ := range occurrences {
				if inWindow(occ, windowStart, windowEnd) {
					matched = append(matched, occ)
				}
			}
			continue
		}

		if inWindow(ev, windowStart, windowEnd) {
			matched = append(matched, ev)
		}
	}

	return matched
}

// inWindow applies the overlap rule: an event belongs to [start, end)
// when it begins inside the window, or began earlier and is still in
// progress at the window start.
func inWindow(ev domain.CalendarEvent, start, end time.Time) bool {
	if !ev.Start.Before(end) {
		return false
	}
	if !ev.Start.Before(start) {
		return true
	}
	return ev.End.After(start)
}
