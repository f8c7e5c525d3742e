package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

// GoogleClient implements Service against the Google Calendar v3 API.
type GoogleClient struct {
	svc      *gcal.Service
	timezone string
	logger   *logging.Logger
}

// NewGoogleClient builds a client authenticated with a service-account
// credentials file. timezone is the IANA zone events are created in.
func NewGoogleClient(ctx context.Context, credentialsFile, timezone string, logger *logging.Logger) (*GoogleClient, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("calendar: credentials file required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: init service: %w", err)
	}
	return &GoogleClient{svc: svc, timezone: timezone, logger: logger}, nil
}

// InsertEvent creates a timed event, or a date event when ev.AllDay is set.
func (c *GoogleClient) InsertEvent(ctx context.Context, calendarID string, ev Event) (string, error) {
	created, err := c.svc.Events.Insert(calendarID, c.toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	c.logger.Debug("calendar event created", "calendar_id", calendarID, "event_id", created.Id)
	return created.Id, nil
}

// PatchEvent rewrites the time/summary fields of an existing event.
func (c *GoogleClient) PatchEvent(ctx context.Context, calendarID, eventID string, ev Event) error {
	if _, err := c.svc.Events.Patch(calendarID, eventID, c.toGoogle(ev)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: patch event %s: %w", eventID, err)
	}
	return nil
}

func (c *GoogleClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete event %s: %w", eventID, err)
	}
	return nil
}

// FreeBusy queries busy intervals for the given calendars.
func (c *GoogleClient) FreeBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) (map[string][]BusyBlock, error) {
	req := &gcal.FreeBusyRequest{
		TimeMin:  timeMin.Format(time.RFC3339),
		TimeMax:  timeMax.Format(time.RFC3339),
		TimeZone: c.timezone,
	}
	for _, id := range calendarIDs {
		req.Items = append(req.Items, &gcal.FreeBusyRequestItem{Id: id})
	}
	resp, err := c.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: freebusy query: %w", err)
	}

	out := make(map[string][]BusyBlock, len(resp.Calendars))
	for id, cal := range resp.Calendars {
		for _, period := range cal.Busy {
			start, err := time.Parse(time.RFC3339, period.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, period.End)
			if err != nil {
				continue
			}
			out[id] = append(out[id], BusyBlock{Start: start, End: end})
		}
	}
	return out, nil
}

func (c *GoogleClient) toGoogle(ev Event) *gcal.Event {
	out := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
	}
	if ev.AllDay {
		day := ev.Start.Format("2006-01-02")
		out.Start = &gcal.EventDateTime{Date: day}
		out.End = &gcal.EventDateTime{Date: ev.End.Format("2006-01-02")}
		return out
	}
	out.Start = &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: c.timezone}
	out.End = &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: c.timezone}
	return out
}
