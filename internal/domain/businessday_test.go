package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bkummer/homepi/internal/domain"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestIsBusinessDay(t *testing.T) {
	assert.True(t, domain.IsBusinessDay(date(2018, time.March, 5)))  // Monday
	assert.True(t, domain.IsBusinessDay(date(2018, time.March, 9)))  // Friday
	assert.False(t, domain.IsBusinessDay(date(2018, time.March, 10))) // Saturday
	assert.False(t, domain.IsBusinessDay(date(2018, time.March, 11))) // Sunday
}

func TestIsNextBusinessDay_OneCalendarDayApart(t *testing.T) {
	mon := date(2018, time.March, 5)
	tue := date(2018, time.March, 6)
	assert.True(t, domain.IsNextBusinessDay(mon, tue))
}

func TestIsNextBusinessDay_FridayToMonday(t *testing.T) {
	fri := date(2018, time.March, 9)
	mon := date(2018, time.March, 12)
	assert.True(t, domain.IsNextBusinessDay(fri, mon))
}

func TestIsNextBusinessDay_FridayToTuesday(t *testing.T) {
	fri := date(2018, time.March, 9)
	tue := date(2018, time.March, 13)
	assert.False(t, domain.IsNextBusinessDay(fri, tue))
}

func TestIsNextBusinessDay_NotAdjacent(t *testing.T) {
	mon := date(2018, time.March, 5)
	wed := date(2018, time.March, 7)
	assert.False(t, domain.IsNextBusinessDay(mon, wed))
	assert.False(t, domain.IsNextBusinessDay(wed, mon))
}

func TestAddBusinessDays(t *testing.T) {
	// Monday + 1 business day = Tuesday
	assert.Equal(t, date(2018, time.March, 6), domain.AddBusinessDays(date(2018, time.March, 5), 1))
	// Friday + 1 business day = Monday
	assert.Equal(t, date(2018, time.March, 12), domain.AddBusinessDays(date(2018, time.March, 9), 1))
	// Thursday + 3 business days = Tuesday
	assert.Equal(t, date(2018, time.March, 13), domain.AddBusinessDays(date(2018, time.March, 8), 3))
	// Starting on a Saturday still lands on a business day
	assert.Equal(t, date(2018, time.March, 12), domain.AddBusinessDays(date(2018, time.March, 10), 1))
}

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	at := time.Date(2018, time.March, 5, 14, 30, 12, 0, loc)
	got := domain.StartOfDay(at)
	assert.Equal(t, time.Date(2018, time.March, 5, 0, 0, 0, 0, loc), got)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, domain.DaysBetween(date(2018, time.March, 5), date(2018, time.March, 5)))
	assert.Equal(t, 3, domain.DaysBetween(date(2018, time.March, 9), date(2018, time.March, 12)))
	assert.Equal(t, -1, domain.DaysBetween(date(2018, time.March, 6), date(2018, time.March, 5)))
	// Time-of-day never changes the answer.
	a := time.Date(2018, time.March, 5, 23, 59, 0, 0, time.UTC)
	b := time.Date(2018, time.March, 6, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, domain.DaysBetween(a, b))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2018, time.March, 5, 0, 0, 0, 0, time.UTC)
	b := time.Date(2018, time.March, 5, 23, 59, 59, 0, time.UTC)
	assert.True(t, domain.SameDay(a, b))
	assert.False(t, domain.SameDay(a, a.AddDate(0, 0, 1)))
	// Same year day in a different year is a different day.
	assert.False(t, domain.SameDay(a, a.AddDate(1, 0, 0)))
}
