package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bayfront/internal/daterange"
	"bayfront/internal/db"
	"bayfront/internal/gcal"
	"bayfront/internal/metrics"
	"bayfront/internal/models"
)

// Check-in and check-out times for confirmed stays, in the property
// timezone.
const (
	checkInHour  = 15
	checkOutHour = 11
)

// ErrAlreadyProcessed surfaces the store's first-writer-wins rule.
var ErrAlreadyProcessed = db.ErrAlreadyProcessed

// ConflictError reports that the requested dates are taken.
type ConflictError struct {
	Conflicts []gcal.Event
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "dates not available"
	}
	return fmt.Sprintf("dates not available (%d conflicting events)", len(e.Conflicts))
}

// Store is the persistence surface the lifecycle needs.
type Store interface {
	CreateBooking(ctx context.Context, b *models.BookingRequest) error
	GetBooking(ctx context.Context, id int64) (*models.BookingRequest, error)
	GetBookingByLookupToken(ctx context.Context, token string) (*models.BookingRequest, error)
	ListBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.BookingRequest, error)
	ListOverlappingBookings(ctx context.Context, r daterange.Range) ([]*models.BookingRequest, error)
	ClaimApproval(ctx context.Context, id int64) error
	SetConfirmed(ctx context.Context, id int64, eventID string) error
	MarkRejected(ctx context.Context, id int64, reason string) error
	BookingStats(ctx context.Context) (*models.BookingStats, error)
}

// AvailabilityChecker answers whether a range is free right now.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, r daterange.Range) (bool, []gcal.Event, error)
}

// EventCreator is the slice of the calendar gateway approval needs.
type EventCreator interface {
	CreateEvent(ctx context.Context, in gcal.EventInput) (string, error)
}

// TokenIssuer signs action tokens for decision links.
type TokenIssuer interface {
	Generate(bookingID int64, action string) (string, error)
}

// Notifier delivers lifecycle notifications. Implementations are
// best-effort; delivery failures never fail the lifecycle operation.
type Notifier interface {
	NotifySubmitted(ctx context.Context, b *models.BookingRequest, approveURL, rejectURL string)
	NotifyConfirmed(ctx context.Context, b *models.BookingRequest)
	NotifyConfirmedDegraded(ctx context.Context, b *models.BookingRequest, createErr error)
	NotifyRejected(ctx context.Context, b *models.BookingRequest)
}

// Options carries the property policy knobs for the lifecycle.
type Options struct {
	BaseURL       string
	MinStay       int
	MaxStay       int
	MaxGuests     int
	AdvanceWindow time.Duration
	Location      *time.Location
}

// Service drives booking requests through their lifecycle.
type Service struct {
	store     Store
	checker   AvailabilityChecker
	calendar  EventCreator
	tokens    TokenIssuer
	notifier  Notifier
	logger    zerolog.Logger
	baseURL   string
	minStay   int
	maxStay   int
	maxGuests int

	advanceWindow time.Duration
	loc           *time.Location
}

func NewService(store Store, checker AvailabilityChecker, calendar EventCreator,
	tokens TokenIssuer, notifier Notifier, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		store:         store,
		checker:       checker,
		calendar:      calendar,
		tokens:        tokens,
		notifier:      notifier,
		logger:        logger.With().Str("component", "booking").Logger(),
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		minStay:       opts.MinStay,
		maxStay:       opts.MaxStay,
		maxGuests:     opts.MaxGuests,
		advanceWindow: opts.AdvanceWindow,
		loc:           opts.Location,
	}
}

// Submit validates a guest request, checks live availability, and
// persists it as pending. The admin gets decision links by email; the
// guest gets a received notice with their lookup token.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*models.BookingRequest, error) {
	r, errs := s.validate(req)
	if len(errs) > 0 {
		metrics.IncBookingSubmitted("invalid")
		return nil, errs
	}

	free, conflicts, err := s.checker.IsAvailable(ctx, r)
	if err != nil {
		metrics.IncBookingSubmitted("error")
		return nil, err
	}
	if !free {
		metrics.IncBookingSubmitted("conflict")
		return nil, &ConflictError{Conflicts: conflicts}
	}

	// Degraded approvals hold dates without a calendar event, so the
	// store is double-checked on top of the calendar.
	if err := s.checkStoredOverlaps(ctx, r, 0); err != nil {
		metrics.IncBookingSubmitted("conflict")
		return nil, err
	}

	b := &models.BookingRequest{
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		StartDate:       r.Start,
		EndDate:         r.End,
		NumGuests:       req.NumGuests,
		SpecialRequests: req.SpecialRequests,
		Status:          models.StatusPending,
		LookupToken:     uuid.NewString(),
	}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		metrics.IncBookingSubmitted("error")
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	metrics.IncBookingSubmitted("accepted")
	s.logger.Info().Int64("booking_id", b.ID).Stringer("range", r).
		Str("guest", b.GuestEmail).Msg("booking request submitted")

	approveURL, rejectURL, err := s.decisionLinks(b.ID)
	if err != nil {
		// The request is saved; links can be regenerated later.
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("failed to sign decision links")
	} else {
		s.notifier.NotifySubmitted(ctx, b, approveURL, rejectURL)
	}
	return b, nil
}

// ApproveResult reports what approval accomplished.
type ApproveResult struct {
	Booking  *models.BookingRequest
	Degraded bool // approved, but the calendar event could not be created
}

// Approve moves a pending request to confirmed. The first caller claims
// the request; a repeat or concurrent approval gets ErrAlreadyProcessed.
// Availability is re-checked against the live calendar before the event
// is created, because the calendar may have changed since submission.
func (s *Service) Approve(ctx context.Context, id int64) (*ApproveResult, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	// A decided booking reports "already processed", never an
	// availability conflict with its own calendar event.
	if b.Status != models.StatusPending {
		return nil, ErrAlreadyProcessed
	}

	free, conflicts, err := s.checker.IsAvailable(ctx, b.Range())
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, &ConflictError{Conflicts: conflicts}
	}
	if err := s.checkStoredOverlaps(ctx, b.Range(), id); err != nil {
		return nil, err
	}

	if err := s.store.ClaimApproval(ctx, id); err != nil {
		return nil, err
	}
	b.Status = models.StatusApproved
	metrics.IncBookingDecision("approve")

	eventID, err := s.calendar.CreateEvent(ctx, s.eventInput(b))
	if err != nil {
		// The claim stands. The stay is approved but not calendared;
		// reconciliation or a manual retry completes it.
		s.logger.Error().Err(err).Int64("booking_id", id).
			Msg("approved but calendar event creation failed")
		s.notifier.NotifyConfirmedDegraded(ctx, b, err)
		return &ApproveResult{Booking: b, Degraded: true}, nil
	}

	if err := s.store.SetConfirmed(ctx, id, eventID); err != nil {
		return nil, fmt.Errorf("record confirmation: %w", err)
	}
	b.Status = models.StatusConfirmed
	b.GoogleEventID = eventID

	s.logger.Info().Int64("booking_id", id).Str("event_id", eventID).Msg("booking confirmed")
	s.notifier.NotifyConfirmed(ctx, b)
	return &ApproveResult{Booking: b}, nil
}

// Reject moves a pending request to rejected and tells the guest.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (*models.BookingRequest, error) {
	if err := s.store.MarkRejected(ctx, id, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}
	metrics.IncBookingDecision("reject")

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", id).Msg("booking rejected")
	s.notifier.NotifyRejected(ctx, b)
	return b, nil
}

// StatusByLookupToken is the guest-facing status lookup.
func (s *Service) StatusByLookupToken(ctx context.Context, lookupToken string) (*models.BookingRequest, error) {
	return s.store.GetBookingByLookupToken(ctx, lookupToken)
}

// Get fetches a request by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.BookingRequest, error) {
	return s.store.GetBooking(ctx, id)
}

// Pending lists requests awaiting a decision.
func (s *Service) Pending(ctx context.Context) ([]*models.BookingRequest, error) {
	return s.store.ListBookingsByStatus(ctx, models.StatusPending)
}

// Stats summarizes request counts.
func (s *Service) Stats(ctx context.Context) (*models.BookingStats, error) {
	return s.store.BookingStats(ctx)
}

func (s *Service) decisionLinks(bookingID int64) (approveURL, rejectURL string, err error) {
	approveToken, err := s.tokens.Generate(bookingID, "approve")
	if err != nil {
		return "", "", err
	}
	rejectToken, err := s.tokens.Generate(bookingID, "reject")
	if err != nil {
		return "", "", err
	}
	return s.baseURL + "/admin/approve/" + approveToken,
		s.baseURL + "/admin/reject/" + rejectToken, nil
}

// checkStoredOverlaps refuses a range that collides with another
// approved or confirmed stay. Pending requests do not hold dates;
// selfID exempts the booking being decided.
func (s *Service) checkStoredOverlaps(ctx context.Context, r daterange.Range, selfID int64) error {
	overlapping, err := s.store.ListOverlappingBookings(ctx, r)
	if err != nil {
		return fmt.Errorf("check stored bookings: %w", err)
	}
	for _, other := range overlapping {
		if other.ID == selfID {
			continue
		}
		if other.Status == models.StatusApproved || other.Status == models.StatusConfirmed {
			return &ConflictError{}
		}
	}
	return nil
}

// eventInput builds the calendar event for a confirmed stay: check-in at
// 3 PM, check-out at 11 AM, property time.
func (s *Service) eventInput(b *models.BookingRequest) gcal.EventInput {
	start := b.StartDate.In(s.loc)
	end := b.EndDate.In(s.loc)

	desc := fmt.Sprintf("Guest: %s\nEmail: %s\nPhone: %s\nGuests: %d",
		b.GuestName, b.GuestEmail, b.GuestPhone, b.NumGuests)
	if b.SpecialRequests != "" {
		desc += "\nSpecial requests: " + b.SpecialRequests
	}
	desc += fmt.Sprintf("\nBooking request #%d", b.ID)

	return gcal.EventInput{
		Summary:     "Rental: " + b.GuestName,
		Description: desc,
		Start:       time.Date(start.Year(), start.Month(), start.Day(), checkInHour, 0, 0, 0, s.loc),
		End:         time.Date(end.Year(), end.Month(), end.Day(), checkOutHour, 0, 0, 0, s.loc),
		Attendees:   []string{b.GuestEmail},
	}
}

// IsNotFound reports whether err means the booking does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}
