package icsfeed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/bkummer/homepi/internal/domain"
)

var (
	calendarMarker = regexp.MustCompile(`(?i)vcalendar`)

	// The feed omits the timezone on the UNTIL clause of recurring
	// all-day events, which trips the parser. The \b keeps values that
	// already end in Z untouched.
	bareUntilClause = regexp.MustCompile(`(?i)(UNTIL=\d{8}T\d{6})\b`)
)

// Client fetches the published family calendar as a flat ICS feed.
type Client struct {
	url        string
	loc        *time.Location
	httpClient *http.Client
}

// NewClient creates a feed client. loc is the timezone used for
// floating (zone-less) timestamps in the feed.
func NewClient(url string, loc *time.Location) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		url: url,
		loc: loc,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// IsConfigured returns true if a feed URL is set.
func (c *Client) IsConfigured() bool {
	return c.url != ""
}

// Events fetches and parses the whole feed. The window arguments are
// ignored: the feed is returned in full and narrowed downstream.
func (c *Client) Events(ctx context.Context, _, _ time.Time) ([]domain.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch calendar: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar body: %w", err)
	}

	if !calendarMarker.Match(body) {
		return nil, fmt.Errorf("response does not look like an iCalendar feed")
	}

	return c.parse(Repair(body))
}

// Repair works around known quirks in the feed before parsing.
func Repair(data []byte) []byte {
	return bareUntilClause.ReplaceAll(data, []byte("${1}Z"))
}

func (c *Client) parse(data []byte) ([]domain.CalendarEvent, error) {
	dec := ical.NewDecoder(bytes.NewReader(data))

	var events []domain.CalendarEvent
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse calendar: %w", err)
		}

		for _, child := range cal.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			ev, err := c.parseEvent(child)
			if err != nil {
				continue // Skip events the feed mangled
			}
			events = append(events, ev)
		}
	}

	return events, nil
}

func (c *Client) parseEvent(comp *ical.Component) (domain.CalendarEvent, error) {
	var ev domain.CalendarEvent

	if p := comp.Props.Get(ical.PropSummary); p != nil {
		ev.Summary = p.Value
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, fmt.Errorf("event has no DTSTART")
	}
	start, err := startProp.DateTime(c.loc)
	if err != nil {
		return ev, fmt.Errorf("parse DTSTART: %w", err)
	}
	ev.Start = start
	ev.End = start

	if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
		if end, err := p.DateTime(c.loc); err == nil {
			ev.End = end
		}
	}

	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		ev.RRule = p.Value
	}

	// EXDATE may appear multiple times, each with one or more values.
	for _, p := range comp.Props.Values(ical.PropExceptionDates) {
		for _, value := range strings.Split(p.Value, ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if t, err := parseICSTime(value, c.loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	return ev, nil
}

// parseICSTime handles the UTC, floating date-time and date-only forms
// that EXDATE values come in.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
