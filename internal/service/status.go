package service

import (
	"time"

	"github.com/bkummer/homepi/internal/domain"
)

// statusCutoff is how far into the day PTO may start and still count as
// starting today.
const statusCutoff = 8 * time.Hour

// BuildStatus derives the chat status for a non-empty PTO span. today
// must be a start-of-day instant.
//
// When the span starts after 08:00 today the morning is still a work
// morning and an empty status is returned; the calendar add-in on the
// work machine owns that same-day transition. Otherwise the text says
// either "On PTO today" or "On PTO until <return day>", where a span
// ending exactly at midnight means the last PTO day was the day before
// and the return day is the next business day after it. An end time
// that is not midnight is appended as " around 3:04 pm".
func BuildStatus(span domain.Span, today time.Time, emoji string) domain.Status {
	start := span.Start()
	end := span.End()

	if start.After(today.Add(statusCutoff)) {
		return domain.Status{Emoji: emoji}
	}

	status := domain.Status{Emoji: emoji}
	endsAtMidnight := end.Equal(domain.StartOfDay(end))

	if domain.SameDay(end, today) {
		status.Text = "On PTO today"
		status.ExpiresAt = end
	} else {
		// If PTO does not end at midnight, end itself is the day we are
		// back at work. If it ends at midnight, the last PTO day is the
		// day before end, and the return day is the next business day
		// after that.
		returnDay := end
		if endsAtMidnight {
			returnDay = domain.AddBusinessDays(end.AddDate(0, 0, -1), 1)
		}

		layout := "Monday"
		if domain.DaysBetween(today, returnDay) >= 7 {
			layout = "Monday, Jan 2"
		}
		status.Text = "On PTO until " + returnDay.Format(layout)
		status.ExpiresAt = returnDay
	}

	if !endsAtMidnight {
		status.Text += " around " + end.Format("3:04 pm")
	}

	return status
}
