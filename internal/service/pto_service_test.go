package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkummer/homepi/internal/domain"
	"github.com/bkummer/homepi/internal/service"
)

type fakeSource struct {
	events []domain.CalendarEvent
	err    error
}

func (f *fakeSource) Events(_ context.Context, _, _ time.Time) ([]domain.CalendarEvent, error) {
	return f.events, f.err
}

type fakeStatusSink struct {
	statuses []domain.Status
}

func (f *fakeStatusSink) SetStatus(_ context.Context, st domain.Status) error {
	f.statuses = append(f.statuses, st)
	return nil
}

type fakeMessenger struct {
	payloads []string
	err      error
}

func (f *fakeMessenger) Send(_ context.Context, payload string) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

type fakeNotifier struct {
	texts []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func TestPtoServiceRunNoPto(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeStatusSink{}
	phone := &fakeMessenger{}
	notifier := &fakeNotifier{}
	svc := service.NewPtoService(source, sink, phone, notifier, nil, "Brian", emoji, testLog())

	now := at(2024, time.January, 8, 5, 30)
	require.NoError(t, svc.Run(context.Background(), now))

	// The phone still hears about the run, with empty span fields.
	require.Len(t, phone.payloads, 1)
	assert.Equal(t, "today_pto|202401080530|||", phone.payloads[0])
	assert.Empty(t, sink.statuses)
	assert.Empty(t, notifier.texts)
}

func TestPtoServiceRunSingleDay(t *testing.T) {
	source := &fakeSource{events: []domain.CalendarEvent{
		pto(date(2024, time.January, 8), at(2024, time.January, 8, 23, 59)),
	}}
	sink := &fakeStatusSink{}
	phone := &fakeMessenger{}
	notifier := &fakeNotifier{}
	svc := service.NewPtoService(source, sink, phone, notifier, nil, "Brian", emoji, testLog())

	now := at(2024, time.January, 8, 5, 30)
	require.NoError(t, svc.Run(context.Background(), now))

	require.Len(t, phone.payloads, 1)
	assert.Equal(t, "today_pto|202401080530|0000|2359|", phone.payloads[0])

	require.Len(t, sink.statuses, 1)
	assert.Equal(t, "On PTO today around 11:59 pm", sink.statuses[0].Text)

	require.Len(t, notifier.texts, 1)
	assert.Equal(t, "On PTO today around 11:59 pm", notifier.texts[0])
}

func TestPtoServiceRunClampsEndBeyondTomorrow(t *testing.T) {
	source := &fakeSource{events: []domain.CalendarEvent{
		pto(date(2024, time.January, 8), date(2024, time.January, 10)),
	}}
	sink := &fakeStatusSink{}
	phone := &fakeMessenger{}
	svc := service.NewPtoService(source, sink, phone, nil, nil, "Brian", emoji, testLog())

	now := at(2024, time.January, 8, 5, 30)
	require.NoError(t, svc.Run(context.Background(), now))

	require.Len(t, phone.payloads, 1)
	assert.Equal(t, "today_pto|202401080530|0000|2359|", phone.payloads[0])

	require.Len(t, sink.statuses, 1)
	assert.Equal(t, "On PTO until Wednesday", sink.statuses[0].Text)
}

func TestPtoServiceRunLateStartSkipsStatus(t *testing.T) {
	source := &fakeSource{events: []domain.CalendarEvent{
		pto(at(2024, time.January, 8, 9, 30), at(2024, time.January, 8, 17, 0)),
	}}
	sink := &fakeStatusSink{}
	phone := &fakeMessenger{}
	notifier := &fakeNotifier{}
	svc := service.NewPtoService(source, sink, phone, notifier, nil, "Brian", emoji, testLog())

	now := at(2024, time.January, 8, 5, 30)
	require.NoError(t, svc.Run(context.Background(), now))

	// The phone gets the span times anyway; the chat status transition
	// later that morning is not this run's job.
	require.Len(t, phone.payloads, 1)
	assert.Equal(t, "today_pto|202401080530|0930|1700|", phone.payloads[0])
	assert.Empty(t, sink.statuses)
	assert.Empty(t, notifier.texts)
}

func TestPtoServiceRunSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("feed unreachable")}
	phone := &fakeMessenger{}
	svc := service.NewPtoService(source, nil, phone, nil, nil, "Brian", emoji, testLog())

	err := svc.Run(context.Background(), at(2024, time.January, 8, 5, 30))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read family calendar")
	assert.Empty(t, phone.payloads)
}

func TestPtoServiceRunPhoneFailureIsNotFatal(t *testing.T) {
	source := &fakeSource{events: []domain.CalendarEvent{
		pto(date(2024, time.January, 8), date(2024, time.January, 9)),
	}}
	phone := &fakeMessenger{err: errors.New("autoremote down")}
	svc := service.NewPtoService(source, nil, phone, nil, nil, "Brian", emoji, testLog())

	assert.NoError(t, svc.Run(context.Background(), at(2024, time.January, 8, 5, 30)))
}
