// Package changes watches confirmed bookings for out-of-band edits to
// their calendar events. Owners sometimes move or delete events directly
// in the calendar; guests and stakeholders need to hear about it.
package changes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bayfront/internal/gcal"
	"bayfront/internal/metrics"
	"bayfront/internal/models"
)

// Kind of change detected on a booking's calendar event.
const (
	KindDeleted  = "deleted"
	KindModified = "modified"
)

// Change is one detected discrepancy between a confirmed booking and its
// calendar event.
type Change struct {
	Kind     string
	Booking  *models.BookingRequest
	OldStart time.Time
	OldEnd   time.Time
	NewStart time.Time
	NewEnd   time.Time
}

// EventGetter fetches single events from the live calendar.
type EventGetter interface {
	GetEvent(ctx context.Context, eventID string) (*gcal.Event, error)
}

// Store supplies the confirmed bookings, keeps the local event mirror
// honest, and records run logs.
type Store interface {
	ListConfirmedWithEvents(ctx context.Context) ([]*models.BookingRequest, error)
	DeleteEventByGoogleID(ctx context.Context, googleEventID string) error
	AppendSyncLog(ctx context.Context, l *models.SyncLog) error
}

// Notifier delivers change notifications. Failures never stop the pass;
// the returned errors are only counted into the run log.
type Notifier interface {
	NotifyEventDeleted(ctx context.Context, b *models.BookingRequest) error
	NotifyEventModified(ctx context.Context, b *models.BookingRequest, newStart, newEnd time.Time) error
}

// Detector runs change-detection passes.
type Detector struct {
	calendar EventGetter
	store    Store
	notifier Notifier
	loc      *time.Location
	logger   zerolog.Logger
}

func NewDetector(calendar EventGetter, store Store, notifier Notifier,
	loc *time.Location, logger zerolog.Logger) *Detector {
	return &Detector{
		calendar: calendar,
		store:    store,
		notifier: notifier,
		loc:      loc,
		logger:   logger.With().Str("component", "changes").Logger(),
	}
}

// Run checks confirmed bookings' events against the live calendar,
// notifies on each discrepancy, and records the pass in the sync log.
// lookBack limits the pass to bookings that ended within the window;
// zero means every confirmed booking is checked.
func (d *Detector) Run(ctx context.Context, lookBack time.Duration) ([]Change, error) {
	started := time.Now().UTC()

	changes, checked, notifyFailed, err := d.detect(ctx, lookBack)
	log := d.buildLog(changes, checked, notifyFailed, err, started)
	metrics.IncSyncRun(models.SyncTypeChanges, log.Status)

	if logErr := d.store.AppendSyncLog(ctx, log); logErr != nil {
		d.logger.Error().Err(logErr).Msg("failed to record sync log")
	}
	return changes, err
}

func (d *Detector) detect(ctx context.Context, lookBack time.Duration) ([]Change, int, int, error) {
	bookings, err := d.store.ListConfirmedWithEvents(ctx)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("list confirmed bookings: %w", err)
	}

	var cutoff time.Time
	if lookBack > 0 {
		cutoff = time.Now().In(d.loc).Add(-lookBack)
	}

	var changes []Change
	checked, notifyFailed := 0, 0
	for _, b := range bookings {
		if !cutoff.IsZero() && b.EndDate.Before(cutoff) {
			continue
		}
		checked++
		ev, err := d.calendar.GetEvent(ctx, b.GoogleEventID)
		if errors.Is(err, gcal.ErrEventNotFound) {
			c := Change{Kind: KindDeleted, Booking: b, OldStart: b.StartDate, OldEnd: b.EndDate}
			changes = append(changes, c)
			d.logger.Warn().Int64("booking_id", b.ID).Str("event_id", b.GoogleEventID).
				Msg("calendar event for confirmed booking was deleted")
			if err := d.store.DeleteEventByGoogleID(ctx, b.GoogleEventID); err != nil {
				d.logger.Error().Err(err).Str("event_id", b.GoogleEventID).
					Msg("failed to drop mirrored event")
			}
			if err := d.notifier.NotifyEventDeleted(ctx, b); err != nil {
				notifyFailed++
			}
			continue
		}
		if err != nil {
			// Transient calendar trouble is not a detected change. Skip
			// this booking; the next pass will see it again.
			d.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("event check failed")
			continue
		}

		if d.datesMoved(b, ev) {
			c := Change{
				Kind:     KindModified,
				Booking:  b,
				OldStart: b.StartDate,
				OldEnd:   b.EndDate,
				NewStart: ev.Start,
				NewEnd:   ev.End,
			}
			changes = append(changes, c)
			d.logger.Warn().Int64("booking_id", b.ID).
				Time("new_start", ev.Start).Time("new_end", ev.End).
				Msg("calendar event dates changed")
			if err := d.notifier.NotifyEventModified(ctx, b, ev.Start, ev.End); err != nil {
				notifyFailed++
			}
		}
	}
	return changes, checked, notifyFailed, nil
}

// datesMoved compares booking and event on calendar dates only. Events
// carry check-in and check-out clock times that the booking rows do not.
func (d *Detector) datesMoved(b *models.BookingRequest, ev *gcal.Event) bool {
	sameDay := func(a, c time.Time) bool {
		a, c = a.In(d.loc), c.In(d.loc)
		return a.Year() == c.Year() && a.Month() == c.Month() && a.Day() == c.Day()
	}
	return !sameDay(b.StartDate, ev.Start) || !sameDay(b.EndDate, ev.End)
}

func (d *Detector) buildLog(changes []Change, checked, notifyFailed int, err error, started time.Time) *models.SyncLog {
	log := &models.SyncLog{
		SyncType:    models.SyncTypeChanges,
		Status:      models.SyncStatusSuccess,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}

	if err != nil {
		log.Status = models.SyncStatusError
		log.ErrorDetails = err.Error()
		return log
	}

	log.EventsProcessed = checked
	log.DiscrepanciesFound = len(changes)
	log.Message = fmt.Sprintf("%d confirmed bookings checked, %d changes detected", checked, len(changes))
	if notifyFailed > 0 {
		log.Message += fmt.Sprintf(", %d notifications failed", notifyFailed)
		log.ErrorDetails = fmt.Sprintf("%d change notifications could not be delivered", notifyFailed)
	}
	if len(changes) > 0 || notifyFailed > 0 {
		log.Status = models.SyncStatusWarning
	}
	return log
}
