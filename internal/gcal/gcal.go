// Package gcal wraps the Google Calendar API for a single property
// calendar. The remote calendar is the source of truth for availability;
// everything here reads or writes that one calendar.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bayfront/internal/daterange"
)

// ErrEventNotFound is returned when the remote event no longer exists,
// including events Google reports as cancelled.
var ErrEventNotFound = errors.New("calendar event not found")

// Event is the gateway's normalized view of a remote calendar event.
// Times are always expressed in the property timezone.
type Event struct {
	ID          string
	Summary     string
	Description string
	Status      string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Range returns the event's occupancy as a half-open date range.
func (e Event) Range() daterange.Range {
	return daterange.New(e.Start, e.End)
}

// EventInput carries the fields for creating a remote event.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Attendees   []string
}

// Service talks to one Google calendar using a service account.
type Service struct {
	cal        *calendar.Service
	calendarID string
	loc        *time.Location
	cache      *eventCache
	logger     zerolog.Logger
}

// New authenticates with the service-account credentials file and binds
// the client to calendarID. Event times are normalized to loc.
func New(ctx context.Context, credentialsPath, calendarID string, loc *time.Location, logger zerolog.Logger) (*Service, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	cal, err := calendar.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}

	return &Service{
		cal:        cal,
		calendarID: calendarID,
		loc:        loc,
		logger:     logger.With().Str("component", "gcal").Logger(),
	}, nil
}

// ListEvents returns all non-cancelled events intersecting the half-open
// range, expanded from recurring series and ordered by start time.
func (s *Service) ListEvents(ctx context.Context, r daterange.Range) ([]Event, error) {
	if events, ok := s.cacheGet(ctx, r); ok {
		return events, nil
	}

	call := s.cal.Events.List(s.calendarID).
		Context(ctx).
		TimeMin(r.Start.Format(time.RFC3339)).
		TimeMax(r.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(2500)

	var events []Event
	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		for _, item := range resp.Items {
			if item.Status == "cancelled" {
				continue
			}
			ev, err := s.normalize(item)
			if err != nil {
				s.logger.Warn().Err(err).Str("event_id", item.Id).Msg("skipping unparseable event")
				continue
			}
			events = append(events, ev)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	s.cachePut(ctx, r, events)
	return events, nil
}

// GetEvent fetches a single event. Deleted, expired, and cancelled events
// all come back as ErrEventNotFound.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	item, err := s.cal.Events.Get(s.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) &&
			(apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	if item.Status == "cancelled" {
		return nil, ErrEventNotFound
	}

	ev, err := s.normalize(item)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// CreateEvent creates a remote event and returns its id. Default popup
// reminders are replaced with a single one-day email reminder.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	item := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	s.applyTimes(item, in)
	for _, a := range in.Attendees {
		item.Attendees = append(item.Attendees, &calendar.EventAttendee{Email: a})
	}

	created, err := s.cal.Events.Insert(s.calendarID, item).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}

	s.cacheInvalidate(ctx)
	s.logger.Info().Str("event_id", created.Id).Str("summary", in.Summary).Msg("calendar event created")
	return created.Id, nil
}

// UpdateEvent replaces the event's summary, description and times.
func (s *Service) UpdateEvent(ctx context.Context, eventID string, in EventInput) error {
	item := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
	}
	s.applyTimes(item, in)

	_, err := s.cal.Events.Update(s.calendarID, eventID, item).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) &&
			(apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return ErrEventNotFound
		}
		return fmt.Errorf("update event %s: %w", eventID, err)
	}

	s.cacheInvalidate(ctx)
	return nil
}

// DeleteEvent removes a remote event. Deleting an already-gone event is
// not an error.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) error {
	err := s.cal.Events.Delete(s.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) &&
			(apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}

	s.cacheInvalidate(ctx)
	s.logger.Info().Str("event_id", eventID).Msg("calendar event deleted")
	return nil
}

func (s *Service) applyTimes(item *calendar.Event, in EventInput) {
	if in.AllDay {
		item.Start = &calendar.EventDateTime{Date: in.Start.Format("2006-01-02")}
		item.End = &calendar.EventDateTime{Date: in.End.Format("2006-01-02")}
		return
	}
	item.Start = &calendar.EventDateTime{
		DateTime: in.Start.Format(time.RFC3339),
		TimeZone: s.loc.String(),
	}
	item.End = &calendar.EventDateTime{
		DateTime: in.End.Format(time.RFC3339),
		TimeZone: s.loc.String(),
	}
}

// normalize converts an API event into the gateway's Event, resolving
// all-day dates and timed events into the property timezone.
func (s *Service) normalize(item *calendar.Event) (Event, error) {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Status:      item.Status,
	}

	var err error
	ev.Start, ev.AllDay, err = s.parseEventTime(item.Start)
	if err != nil {
		return Event{}, fmt.Errorf("event %s start: %w", item.Id, err)
	}
	ev.End, _, err = s.parseEventTime(item.End)
	if err != nil {
		return Event{}, fmt.Errorf("event %s end: %w", item.Id, err)
	}
	return ev, nil
}

func (s *Service) parseEventTime(edt *calendar.EventDateTime) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, errors.New("missing event time")
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", edt.Date, s.loc)
		return t, true, err
	}
	t, err := time.Parse(time.RFC3339, edt.DateTime)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.In(s.loc), false, nil
}
