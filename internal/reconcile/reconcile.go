// Package reconcile keeps the property calendar aligned with the rental
// platform's listing calendar. Bookings made on the platform only show
// up on its public page; reconciliation scrapes that page and writes
// blocking events for any taken dates the calendar does not cover yet.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bayfront/internal/daterange"
	"bayfront/internal/gcal"
	"bayfront/internal/metrics"
	"bayfront/internal/models"
	"bayfront/internal/scraper"
)

// BlockSummary is the summary used for events that mirror platform
// bookings onto the property calendar.
const BlockSummary = "Blocked - Not Available"

// Calendar is the slice of the gateway reconciliation needs.
type Calendar interface {
	ListEvents(ctx context.Context, r daterange.Range) ([]gcal.Event, error)
	CreateEvent(ctx context.Context, in gcal.EventInput) (string, error)
}

// Lister fetches the platform's availability calendar.
type Lister interface {
	Fetch(ctx context.Context) (*scraper.Result, error)
}

// Store persists the event mirror and the run log.
type Store interface {
	UpsertEvent(ctx context.Context, e *models.CalendarEvent) (bool, error)
	AppendSyncLog(ctx context.Context, l *models.SyncLog) error
}

// Alerter delivers operator alerts. Best-effort.
type Alerter interface {
	Alert(ctx context.Context, subject, body string)
}

// Engine runs reconciliation passes.
type Engine struct {
	calendar Calendar
	listing  Lister
	store    Store
	alerter  Alerter
	window   time.Duration
	loc      *time.Location
	logger   zerolog.Logger
}

func NewEngine(calendar Calendar, listing Lister, store Store, alerter Alerter,
	window time.Duration, loc *time.Location, logger zerolog.Logger) *Engine {
	return &Engine{
		calendar: calendar,
		listing:  listing,
		store:    store,
		alerter:  alerter,
		window:   window,
		loc:      loc,
		logger:   logger.With().Str("component", "reconcile").Logger(),
	}
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	BlockedSpans   []daterange.Span
	Covered        int
	Created        []daterange.Span
	CreateErrors   []string
	EventsMirrored int
	Diff           Diff
	DryRun         bool
}

// Diff is the two-way, date-granularity comparison between the listing's
// blocked dates and the property calendar's busy dates.
type Diff struct {
	RentalOnly []time.Time // blocked on the listing, free on the calendar
	RemoteOnly []time.Time // busy on the calendar, open on the listing
	SyncNeeded bool
}

// Compare reduces the calendar events to a busy-date set and diffs it
// against the scraped blocked-date set. Sync is needed whenever either
// side knows about dates the other does not.
func Compare(scrapedBlocked []time.Time, events []gcal.Event) Diff {
	remote := make(map[string]time.Time)
	for _, ev := range events {
		for _, day := range ev.Range().Days() {
			remote[day.Format("2006-01-02")] = day
		}
	}

	scraped := make(map[string]time.Time, len(scrapedBlocked))
	for _, d := range scrapedBlocked {
		day := daterange.Day(d)
		scraped[day.Format("2006-01-02")] = day
	}

	var diff Diff
	for key, day := range scraped {
		if _, ok := remote[key]; !ok {
			diff.RentalOnly = append(diff.RentalOnly, day)
		}
	}
	for key, day := range remote {
		if _, ok := scraped[key]; !ok {
			diff.RemoteOnly = append(diff.RemoteOnly, day)
		}
	}
	sortDates(diff.RentalOnly)
	sortDates(diff.RemoteOnly)
	diff.SyncNeeded = len(diff.RentalOnly) > 0 || len(diff.RemoteOnly) > 0
	return diff
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

// Run executes one reconciliation pass over the configured window and
// records it in the sync log. With dryRun set, missing blocks are
// reported but no events are created.
func (e *Engine) Run(ctx context.Context, dryRun bool) (*Report, error) {
	started := time.Now().UTC()

	report, err := e.reconcile(ctx, dryRun)
	log := e.buildLog(report, err, started)
	metrics.IncSyncRun(models.SyncTypeCalendar, log.Status)

	if logErr := e.store.AppendSyncLog(ctx, log); logErr != nil {
		e.logger.Error().Err(logErr).Msg("failed to record sync log")
	}

	if err != nil {
		e.alerter.Alert(ctx, "Calendar sync failed", err.Error())
		return nil, err
	}
	if len(report.CreateErrors) > 0 {
		e.alerter.Alert(ctx, "Calendar sync finished with errors",
			strings.Join(report.CreateErrors, "\n"))
	}
	return report, nil
}

func (e *Engine) reconcile(ctx context.Context, dryRun bool) (*Report, error) {
	report := &Report{DryRun: dryRun}

	now := time.Now().In(e.loc)
	window := daterange.New(now, now.Add(e.window))

	events, err := e.calendar.ListEvents(ctx, window)
	if err != nil {
		return report, fmt.Errorf("list calendar events: %w", err)
	}
	report.EventsMirrored = e.mirror(ctx, events)

	listing, err := e.listing.Fetch(ctx)
	if err != nil {
		return report, fmt.Errorf("scrape listing calendar: %w", err)
	}
	report.BlockedSpans = listing.BlockedRanges()
	report.Diff = Compare(e.blockedDatesInWindow(listing, window), events)

	for _, span := range report.BlockedSpans {
		if span.Last.Before(daterange.Day(now)) {
			continue
		}
		if covered(events, span) {
			report.Covered++
			continue
		}

		if dryRun {
			report.Created = append(report.Created, span)
			e.logger.Info().Stringer("span", span).Msg("dry run: would create blocking event")
			continue
		}

		if err := e.createBlock(ctx, span); err != nil {
			report.CreateErrors = append(report.CreateErrors,
				fmt.Sprintf("%s: %v", span, err))
			e.logger.Error().Err(err).Stringer("span", span).Msg("failed to create blocking event")
			continue
		}
		report.Created = append(report.Created, span)
	}

	e.logger.Info().Int("blocked_spans", len(report.BlockedSpans)).
		Int("covered", report.Covered).Int("created", len(report.Created)).
		Int("rental_only", len(report.Diff.RentalOnly)).
		Int("remote_only", len(report.Diff.RemoteOnly)).
		Bool("dry_run", dryRun).Msg("reconciliation pass complete")
	return report, nil
}

// blockedDatesInWindow collects the listing's blocked dates that fall
// inside the sync window, so the diff only compares dates both sides
// can know about.
func (e *Engine) blockedDatesInWindow(listing *scraper.Result, window daterange.Range) []time.Time {
	var dates []time.Time
	for _, d := range listing.Days {
		if d.Status != scraper.DayBlocked {
			continue
		}
		dayRange := daterange.Range{Start: d.Date, End: d.Date.AddDate(0, 0, 1)}
		if window.Overlaps(dayRange) {
			dates = append(dates, d.Date)
		}
	}
	return dates
}

// covered reports whether any calendar event already intersects the
// span's window. One event is enough; sync never stacks a second
// blocking event on dates the calendar already marks busy.
func covered(events []gcal.Event, span daterange.Span) bool {
	r := span.Range()
	for _, ev := range events {
		if ev.Range().Overlaps(r) {
			return true
		}
	}
	return false
}

// createBlock writes one all-day blocking event covering the span. The
// all-day end date is exclusive, hence the extra day.
func (e *Engine) createBlock(ctx context.Context, span daterange.Span) error {
	r := span.Range()
	eventID, err := e.calendar.CreateEvent(ctx, gcal.EventInput{
		Summary:     BlockSummary,
		Description: fmt.Sprintf("Imported from rental platform calendar on %s", time.Now().In(e.loc).Format("2006-01-02")),
		Start:       r.Start,
		End:         r.End,
		AllDay:      true,
	})
	if err != nil {
		return err
	}

	_, err = e.store.UpsertEvent(ctx, &models.CalendarEvent{
		GoogleEventID: eventID,
		Summary:       BlockSummary,
		StartDatetime: r.Start,
		EndDatetime:   r.End,
		Status:        "confirmed",
		Source:        models.SourceExternal,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("event_id", eventID).Msg("blocking event created but not mirrored")
	}
	return nil
}

// mirror refreshes the local event cache from the live calendar.
func (e *Engine) mirror(ctx context.Context, events []gcal.Event) int {
	mirrored := 0
	for _, ev := range events {
		source := models.SourceGoogle
		if ev.Summary == BlockSummary {
			source = models.SourceExternal
		}
		_, err := e.store.UpsertEvent(ctx, &models.CalendarEvent{
			GoogleEventID: ev.ID,
			Summary:       ev.Summary,
			Description:   ev.Description,
			StartDatetime: ev.Start,
			EndDatetime:   ev.End,
			Status:        ev.Status,
			Source:        source,
		})
		if err != nil {
			e.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("failed to mirror event")
			continue
		}
		mirrored++
	}
	return mirrored
}

func (e *Engine) buildLog(report *Report, err error, started time.Time) *models.SyncLog {
	log := &models.SyncLog{
		SyncType:    models.SyncTypeCalendar,
		Status:      models.SyncStatusSuccess,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}

	if err != nil {
		log.Status = models.SyncStatusError
		log.ErrorDetails = err.Error()
		return log
	}

	log.EventsProcessed = report.EventsMirrored
	log.EventsAdded = len(report.Created)
	log.DiscrepanciesFound = len(report.Diff.RentalOnly) + len(report.Diff.RemoteOnly)
	log.Message = fmt.Sprintf("%d blocked spans, %d covered, %d created, %d rental-only dates, %d remote-only dates (dry_run=%v)",
		len(report.BlockedSpans), report.Covered, len(report.Created),
		len(report.Diff.RentalOnly), len(report.Diff.RemoteOnly), report.DryRun)
	if len(report.CreateErrors) > 0 {
		log.Status = models.SyncStatusWarning
		log.ErrorDetails = strings.Join(report.CreateErrors, "\n")
	}
	return log
}
