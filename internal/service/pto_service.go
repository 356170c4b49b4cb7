package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bkummer/homepi/internal/domain"
	"github.com/bkummer/homepi/internal/storage"
)

// lookaheadDays bounds how far into the future absence events are
// searched; wide enough to cover any realistic contiguous PTO block.
const lookaheadDays = 21

// CalendarSource supplies raw calendar events. Sources backed by a flat
// feed may ignore the window and return everything.
type CalendarSource interface {
	Events(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error)
}

// StatusSink sets the user-visible chat status.
type StatusSink interface {
	SetStatus(ctx context.Context, st domain.Status) error
}

// Messenger delivers an opaque payload to the phone.
type Messenger interface {
	Send(ctx context.Context, payload string) error
}

// Notifier posts a human-readable note to the family chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// PtoService resolves today's PTO span from the family calendar and
// dispatches the results to the configured sinks.
type PtoService struct {
	source   CalendarSource
	status   StatusSink
	phone    Messenger
	notifier Notifier
	store    *storage.Storage
	resolver *Resolver
	emoji    string
	log      *logrus.Entry
}

// NewPtoService creates the PTO orchestrator. status, phone, notifier
// and store may each be nil; the corresponding dispatch is skipped.
func NewPtoService(source CalendarSource, status StatusSink, phone Messenger, notifier Notifier, store *storage.Storage, personName, emoji string, log *logrus.Entry) *PtoService {
	return &PtoService{
		source:   source,
		status:   status,
		phone:    phone,
		notifier: notifier,
		store:    store,
		resolver: NewResolver(personName, log),
		emoji:    emoji,
		log:      log,
	}
}

// Run performs one full resolution pass anchored at now: fetch, filter,
// merge, build status, dispatch. A calendar read failure aborts the run
// before any dispatch; sink failures are logged and never retried.
func (s *PtoService) Run(ctx context.Context, now time.Time) error {
	today := domain.StartOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	windowEnd := today.AddDate(0, 0, lookaheadDays)

	events, err := s.source.Events(ctx, today, windowEnd)
	if err != nil {
		err = fmt.Errorf("read family calendar: %w", err)
		s.recordRun(now, nil, domain.Status{}, "", err)
		return err
	}

	matched := s.resolver.FilterAbsences(events, today, windowEnd)
	span := MergeSpan(matched, today)

	startHHMM, endHHMM := "", ""
	var status domain.Status

	if span.IsEmpty() {
		s.log.Info("no PTO today, leaving chat status unchanged")
	} else {
		startHHMM = span.Start().Format("1504")
		if span.End().After(tomorrow) {
			endHHMM = "2359"
		} else {
			endHHMM = span.End().Format("1504")
		}

		status = BuildStatus(span, today, s.emoji)
		s.dispatchStatus(ctx, status)
	}

	payload := fmt.Sprintf("today_pto|%s|%s|%s|",
		now.Format("200601021504"), startHHMM, endHHMM)
	if s.phone != nil {
		if err := s.phone.Send(ctx, payload); err != nil {
			s.log.WithError(err).Error("failed to send PTO message to phone")
		}
	}

	if s.notifier != nil && !status.Empty() {
		if err := s.notifier.Notify(ctx, status.Text); err != nil {
			s.log.WithError(err).Error("failed to send family briefing")
		}
	}

	s.recordRun(now, span, status, payload, nil)
	return nil
}

func (s *PtoService) dispatchStatus(ctx context.Context, status domain.Status) {
	if status.Empty() {
		// PTO starts later this morning; the same-day transition is
		// handled at the time it starts, not by this run.
		s.log.Info("PTO starts after the morning cutoff, not changing chat status")
		return
	}
	if s.status == nil {
		return
	}

	if err := s.status.SetStatus(ctx, status); err != nil {
		s.log.WithError(err).WithField("status", status.Text).
			Error("failed to update chat status")
		return
	}
	s.log.WithFields(logrus.Fields{
		"status":  status.Text,
		"expires": status.ExpiresAt.Format(time.RFC3339),
	}).Info("chat status updated")
}

func (s *PtoService) recordRun(startedAt time.Time, span domain.Span, status domain.Status, payload string, runErr error) {
	if s.store == nil {
		return
	}

	run := &storage.Run{
		Job:        "pto",
		StartedAt:  startedAt,
		StatusText: status.Text,
		Payload:    payload,
	}
	if !span.IsEmpty() {
		start, end := span.Start(), span.End()
		run.PtoStart = &start
		run.PtoEnd = &end
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := s.store.RecordRun(run); err != nil {
		s.log.WithError(err).Error("failed to record run history")
	}
}
