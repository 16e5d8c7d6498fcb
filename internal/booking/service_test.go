package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bayfront/internal/daterange"
	"bayfront/internal/db"
	"bayfront/internal/gcal"
	"bayfront/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBooking(ctx context.Context, b *models.BookingRequest) error {
	args := m.Called(ctx, b)
	if args.Error(0) == nil {
		b.ID = 1
	}
	return args.Error(0)
}
func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.BookingRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}
func (m *mockStore) GetBookingByLookupToken(ctx context.Context, token string) (*models.BookingRequest, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}
func (m *mockStore) ListBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.BookingRequest, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]*models.BookingRequest), args.Error(1)
}
func (m *mockStore) ListOverlappingBookings(ctx context.Context, r daterange.Range) ([]*models.BookingRequest, error) {
	args := m.Called(ctx, r)
	var bookings []*models.BookingRequest
	if args.Get(0) != nil {
		bookings = args.Get(0).([]*models.BookingRequest)
	}
	return bookings, args.Error(1)
}
func (m *mockStore) ClaimApproval(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) SetConfirmed(ctx context.Context, id int64, eventID string) error {
	return m.Called(ctx, id, eventID).Error(0)
}
func (m *mockStore) MarkRejected(ctx context.Context, id int64, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}
func (m *mockStore) BookingStats(ctx context.Context) (*models.BookingStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(*models.BookingStats), args.Error(1)
}

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) IsAvailable(ctx context.Context, r daterange.Range) (bool, []gcal.Event, error) {
	args := m.Called(ctx, r)
	var events []gcal.Event
	if args.Get(1) != nil {
		events = args.Get(1).([]gcal.Event)
	}
	return args.Bool(0), events, args.Error(2)
}

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) CreateEvent(ctx context.Context, in gcal.EventInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Generate(bookingID int64, action string) (string, error) {
	args := m.Called(bookingID, action)
	return args.String(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifySubmitted(ctx context.Context, b *models.BookingRequest, approveURL, rejectURL string) {
	m.Called(ctx, b, approveURL, rejectURL)
}
func (m *mockNotifier) NotifyConfirmed(ctx context.Context, b *models.BookingRequest) {
	m.Called(ctx, b)
}
func (m *mockNotifier) NotifyConfirmedDegraded(ctx context.Context, b *models.BookingRequest, createErr error) {
	m.Called(ctx, b, createErr)
}
func (m *mockNotifier) NotifyRejected(ctx context.Context, b *models.BookingRequest) {
	m.Called(ctx, b)
}

func newTestService(store *mockStore, checker *mockChecker, calendar *mockCalendar,
	tokens *mockTokens, notifier *mockNotifier) *Service {
	return NewService(store, checker, calendar, tokens, notifier, Options{
		BaseURL:       "https://stay.example.com",
		MinStay:       2,
		MaxStay:       30,
		MaxGuests:     10,
		AdvanceWindow: 365 * 24 * time.Hour,
		Location:      time.UTC,
	}, zerolog.New(io.Discard))
}

func validSubmit() *SubmitRequest {
	start := time.Now().UTC().AddDate(0, 0, 10)
	return &SubmitRequest{
		GuestName:  "Jamie Rivera",
		GuestEmail: "jamie@example.com",
		StartDate:  start.Format("2006-01-02"),
		EndDate:    start.AddDate(0, 0, 3).Format("2006-01-02"),
		NumGuests:  2,
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("valid request is stored pending", func(t *testing.T) {
		store := new(mockStore)
		checker := new(mockChecker)
		tokens := new(mockTokens)
		notifier := new(mockNotifier)
		svc := newTestService(store, checker, new(mockCalendar), tokens, notifier)

		checker.On("IsAvailable", ctx, mock.Anything).Return(true, nil, nil).Once()
		store.On("ListOverlappingBookings", ctx, mock.Anything).Return(nil, nil).Once()
		store.On("CreateBooking", ctx, mock.Anything).Return(nil).Once()
		tokens.On("Generate", int64(1), "approve").Return("tok-a", nil).Once()
		tokens.On("Generate", int64(1), "reject").Return("tok-r", nil).Once()
		notifier.On("NotifySubmitted", ctx, mock.Anything,
			"https://stay.example.com/admin/approve/tok-a",
			"https://stay.example.com/admin/reject/tok-r").Once()

		b, err := svc.Submit(ctx, validSubmit())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, b.Status)
		assert.NotEmpty(t, b.LookupToken)
		store.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("validation failures are collected", func(t *testing.T) {
		svc := newTestService(new(mockStore), new(mockChecker), new(mockCalendar),
			new(mockTokens), new(mockNotifier))

		req := &SubmitRequest{
			GuestEmail: "not-an-email",
			StartDate:  "2020-01-01",
			EndDate:    "2020-01-02",
			NumGuests:  0,
		}
		_, err := svc.Submit(ctx, req)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		fields := make(map[string]bool)
		for _, fe := range verrs {
			fields[fe.Field] = true
		}
		assert.True(t, fields["guest_name"])
		assert.True(t, fields["guest_email"])
		assert.True(t, fields["num_guests"])
		assert.True(t, fields["start_date"], "past check-in must be rejected")
	})

	t.Run("minimum stay enforced", func(t *testing.T) {
		svc := newTestService(new(mockStore), new(mockChecker), new(mockCalendar),
			new(mockTokens), new(mockNotifier))

		req := validSubmit()
		start, _ := time.Parse("2006-01-02", req.StartDate)
		req.EndDate = start.AddDate(0, 0, 1).Format("2006-01-02")

		_, err := svc.Submit(ctx, req)
		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
	})

	t.Run("conflicting dates are refused", func(t *testing.T) {
		store := new(mockStore)
		checker := new(mockChecker)
		svc := newTestService(store, checker, new(mockCalendar), new(mockTokens), new(mockNotifier))

		conflicts := []gcal.Event{{ID: "busy"}}
		checker.On("IsAvailable", ctx, mock.Anything).Return(false, conflicts, nil).Once()

		_, err := svc.Submit(ctx, validSubmit())
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Len(t, conflict.Conflicts, 1)
		store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})

	t.Run("degraded approval on the same dates is refused", func(t *testing.T) {
		store := new(mockStore)
		checker := new(mockChecker)
		svc := newTestService(store, checker, new(mockCalendar), new(mockTokens), new(mockNotifier))

		// Approved but never calendared, so the calendar check passes.
		held := pendingBooking()
		held.Status = models.StatusApproved
		checker.On("IsAvailable", ctx, mock.Anything).Return(true, nil, nil).Once()
		store.On("ListOverlappingBookings", ctx, mock.Anything).
			Return([]*models.BookingRequest{held}, nil).Once()

		_, err := svc.Submit(ctx, validSubmit())
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})

	t.Run("calendar outage refuses the request", func(t *testing.T) {
		checker := new(mockChecker)
		svc := newTestService(new(mockStore), checker, new(mockCalendar), new(mockTokens), new(mockNotifier))

		checker.On("IsAvailable", ctx, mock.Anything).
			Return(false, nil, errors.New("calendar down")).Once()

		_, err := svc.Submit(ctx, validSubmit())
		require.Error(t, err)
	})
}

func pendingBooking() *models.BookingRequest {
	start := time.Now().UTC().AddDate(0, 0, 10)
	return &models.BookingRequest{
		ID:         5,
		GuestName:  "Jamie Rivera",
		GuestEmail: "jamie@example.com",
		StartDate:  daterange.Day(start),
		EndDate:    daterange.Day(start.AddDate(0, 0, 3)),
		NumGuests:  2,
		Status:     models.StatusPending,
	}
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path confirms and calendars", func(t *testing.T) {
		store := new(mockStore)
		checker := new(mockChecker)
		calendar := new(mockCalendar)
		notifier := new(mockNotifier)
		svc := newTestService(store, checker, calendar, new(mockTokens), notifier)

		b := pendingBooking()
		store.On("GetBooking", ctx, int64(5)).Return(b, nil).Once()
		checker.On("IsAvailable", ctx, b.Range()).Return(true, nil, nil).Once()
		store.On("ListOverlappingBookings", ctx, b.Range()).Return(nil, nil).Once()
		store.On("ClaimApproval", ctx, int64(5)).Return(nil).Once()
		calendar.On("CreateEvent", ctx, mock.MatchedBy(func(in gcal.EventInput) bool {
			return in.Summary == "Rental: Jamie Rivera" &&
				in.Start.Hour() == 15 && in.End.Hour() == 11 &&
				len(in.Attendees) == 1 && in.Attendees[0] == "jamie@example.com"
		})).Return("evt-123", nil).Once()
		store.On("SetConfirmed", ctx, int64(5), "evt-123").Return(nil).Once()
		notifier.On("NotifyConfirmed", ctx, b).Once()

		result, err := svc.Approve(ctx, 5)
		require.NoError(t, err)
		assert.False(t, result.Degraded)
		assert.Equal(t, models.StatusConfirmed, result.Booking.Status)
		assert.Equal(t, "evt-123", result.Booking.GoogleEventID)
		store.AssertExpectations(t)
	})

	t.Run("second approval loses the claim", func(t *testing.T) {
		store := new(mockStore)
		checker := new(mockChecker)
		svc := newTestService(store, checker, new(mockCalendar), new(mockTokens), new(mockNotifier))

		b := pendingBooking()
		store.On("GetBooking", ctx, int64(5)).Return(b, nil).Once()
		checker.On("IsAvailable", ctx, b.Range()).Return(true, nil, nil).Once()
		store.On("ListOverlappingBookings", ctx, b.Range()).Return(nil, nil).Once()
		store.On("ClaimApproval", ctx, int64(5)).Return(db.ErrAlreadyProcessed).Once()

		_, err := svc.Approve(ctx, 5)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})

	t.Run("approving a confirmed booking reports already processed", func(t *testing.T) {
		store := new(mockStore)
		checker := new(mockChecker)
		svc := newTestService(store, checker, new(mockCalendar), new(mockTokens), new(mockNotifier))

		// The confirmed stay's own calendar event must not surface as an
		// availability conflict on a repeat approval.
		b := pendingBooking()
		b.Status = models.StatusConfirmed
		b.GoogleEventID = "evt-123"
		store.On("GetBooking", ctx, int64(5)).Return(b, nil).Once()

		_, err := svc.Approve(ctx, 5)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		checker.AssertNotCalled(t, "IsAvailable", mock.Anything, mock.Anything)
	})

	t.Run("dates taken since submission", func(t *testing.T) {
		store := new(mockStore)
		checker := new(mockChecker)
		svc := newTestService(store, checker, new(mockCalendar), new(mockTokens), new(mockNotifier))

		b := pendingBooking()
		store.On("GetBooking", ctx, int64(5)).Return(b, nil).Once()
		checker.On("IsAvailable", ctx, b.Range()).
			Return(false, []gcal.Event{{ID: "busy"}}, nil).Once()

		_, err := svc.Approve(ctx, 5)
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		store.AssertNotCalled(t, "ClaimApproval", mock.Anything, mock.Anything)
	})

	t.Run("event creation failure degrades", func(t *testing.T) {
		store := new(mockStore)
		checker := new(mockChecker)
		calendar := new(mockCalendar)
		notifier := new(mockNotifier)
		svc := newTestService(store, checker, calendar, new(mockTokens), notifier)

		b := pendingBooking()
		createErr := errors.New("quota exceeded")
		store.On("GetBooking", ctx, int64(5)).Return(b, nil).Once()
		checker.On("IsAvailable", ctx, b.Range()).Return(true, nil, nil).Once()
		store.On("ListOverlappingBookings", ctx, b.Range()).Return(nil, nil).Once()
		store.On("ClaimApproval", ctx, int64(5)).Return(nil).Once()
		calendar.On("CreateEvent", ctx, mock.Anything).Return("", createErr).Once()
		notifier.On("NotifyConfirmedDegraded", ctx, b, createErr).Once()

		result, err := svc.Approve(ctx, 5)
		require.NoError(t, err)
		assert.True(t, result.Degraded)
		assert.Equal(t, models.StatusApproved, result.Booking.Status)
		store.AssertNotCalled(t, "SetConfirmed", mock.Anything, mock.Anything, mock.Anything)
		notifier.AssertExpectations(t)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	store := new(mockStore)
	notifier := new(mockNotifier)
	svc := newTestService(store, new(mockChecker), new(mockCalendar), new(mockTokens), notifier)

	b := pendingBooking()
	b.Status = models.StatusRejected
	b.RejectionReason = "maintenance week"

	store.On("MarkRejected", ctx, int64(5), "maintenance week").Return(nil).Once()
	store.On("GetBooking", ctx, int64(5)).Return(b, nil).Once()
	notifier.On("NotifyRejected", ctx, b).Once()

	got, err := svc.Reject(ctx, 5, "  maintenance week  ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRejectAlreadyProcessed(t *testing.T) {
	ctx := context.Background()

	store := new(mockStore)
	svc := newTestService(store, new(mockChecker), new(mockCalendar), new(mockTokens), new(mockNotifier))

	store.On("MarkRejected", ctx, int64(5), "").Return(db.ErrAlreadyProcessed).Once()

	_, err := svc.Reject(ctx, 5, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}
