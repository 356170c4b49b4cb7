package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/bkummer/homepi/internal/domain"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// Client reads the family calendar from a CalDAV server. It is an
// alternative to the flat ICS feed for calendars that are not published
// as a URL.
type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	loc          *time.Location
	client       *caldav.Client
}

// Calendar describes one calendar found on the server.
type Calendar struct {
	Path        string
	DisplayName string
}

// NewClient creates a CalDAV calendar source. loc is the timezone used
// for floating timestamps.
func NewClient(baseURL, username, password, calendarPath string, loc *time.Location) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL:      baseURL,
		username:     username,
		password:     password,
		calendarPath: calendarPath,
		loc:          loc,
	}
}

// IsConfigured returns true if the client has credentials.
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// connect establishes the connection to the CalDAV server.
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user, for picking the
// one to configure as the source.
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			Path:        cal.Path,
			DisplayName: cal.Name,
		})
	}

	return result, nil
}

// Events returns the raw events overlapping [from, to], recurring
// templates included with their rule and exception dates intact so the
// caller can expand them itself.
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	if c.calendarPath == "" {
		return nil, fmt.Errorf("calendar path not specified")
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []domain.CalendarEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, comp := range obj.Data.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev, err := c.parseEvent(comp)
			if err != nil {
				continue // Skip invalid events
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
