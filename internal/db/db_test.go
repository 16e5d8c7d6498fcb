package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bayfront/internal/daterange"
	"bayfront/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newBooking(token string) *models.BookingRequest {
	return &models.BookingRequest{
		GuestName:   "Jamie Rivera",
		GuestEmail:  "jamie@example.com",
		StartDate:   date(2026, 9, 10),
		EndDate:     date(2026, 9, 13),
		NumGuests:   2,
		LookupToken: token,
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	b := newBooking("lk-1")
	require.NoError(t, database.CreateBooking(ctx, b))
	require.NotZero(t, b.ID)
	assert.Equal(t, models.StatusPending, b.Status)

	got, err := database.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jamie Rivera", got.GuestName)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ApprovedAt)

	byToken, err := database.GetBookingByLookupToken(ctx, "lk-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byToken.ID)

	_, err = database.GetBooking(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = database.GetBookingByLookupToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApprovalTransitions(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	b := newBooking("lk-2")
	require.NoError(t, database.CreateBooking(ctx, b))

	// First claim wins, second loses.
	require.NoError(t, database.ClaimApproval(ctx, b.ID))
	assert.ErrorIs(t, database.ClaimApproval(ctx, b.ID), ErrAlreadyProcessed)

	// Rejecting a claimed booking is no longer possible.
	assert.ErrorIs(t, database.MarkRejected(ctx, b.ID, "late"), ErrAlreadyProcessed)

	require.NoError(t, database.SetConfirmed(ctx, b.ID, "evt-1"))
	assert.ErrorIs(t, database.SetConfirmed(ctx, b.ID, "evt-2"), ErrAlreadyProcessed)

	got, err := database.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, "evt-1", got.GoogleEventID)
	require.NotNil(t, got.ApprovedAt)
}

func TestMarkRejected(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	b := newBooking("lk-3")
	require.NoError(t, database.CreateBooking(ctx, b))
	require.NoError(t, database.MarkRejected(ctx, b.ID, "maintenance week"))

	got, err := database.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, "maintenance week", got.RejectionReason)
	require.NotNil(t, got.RejectedAt)

	// Terminal: cannot approve a rejected booking.
	assert.ErrorIs(t, database.ClaimApproval(ctx, b.ID), ErrAlreadyProcessed)
}

func TestListOverlappingBookings(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	b1 := newBooking("lk-4")
	require.NoError(t, database.CreateBooking(ctx, b1))

	rejected := newBooking("lk-5")
	require.NoError(t, database.CreateBooking(ctx, rejected))
	require.NoError(t, database.MarkRejected(ctx, rejected.ID, ""))

	overlapping, err := database.ListOverlappingBookings(ctx,
		daterange.New(date(2026, 9, 12), date(2026, 9, 15)))
	require.NoError(t, err)
	require.Len(t, overlapping, 1, "rejected bookings do not block dates")
	assert.Equal(t, b1.ID, overlapping[0].ID)

	// Checkout day adjacency is not an overlap.
	overlapping, err = database.ListOverlappingBookings(ctx,
		daterange.New(date(2026, 9, 13), date(2026, 9, 16)))
	require.NoError(t, err)
	assert.Empty(t, overlapping)
}

func TestListConfirmedWithEvents(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	confirmed := newBooking("lk-6")
	require.NoError(t, database.CreateBooking(ctx, confirmed))
	require.NoError(t, database.ClaimApproval(ctx, confirmed.ID))
	require.NoError(t, database.SetConfirmed(ctx, confirmed.ID, "evt-9"))

	pending := newBooking("lk-7")
	require.NoError(t, database.CreateBooking(ctx, pending))

	list, err := database.ListConfirmedWithEvents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "evt-9", list[0].GoogleEventID)
}

func TestBookingStats(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	for i, token := range []string{"s-1", "s-2", "s-3"} {
		b := newBooking(token)
		require.NoError(t, database.CreateBooking(ctx, b))
		if i == 0 {
			require.NoError(t, database.MarkRejected(ctx, b.ID, ""))
		}
	}

	stats, err := database.BookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Recent)
}

func TestUpsertEvent(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	e := &models.CalendarEvent{
		GoogleEventID: "evt-1",
		Summary:       "Rental: Jamie",
		StartDatetime: date(2026, 9, 10),
		EndDatetime:   date(2026, 9, 13),
		Status:        "confirmed",
		Source:        models.SourceGoogle,
	}

	created, err := database.UpsertEvent(ctx, e)
	require.NoError(t, err)
	assert.True(t, created)

	e.Summary = "Rental: Jamie R."
	created, err = database.UpsertEvent(ctx, e)
	require.NoError(t, err)
	assert.False(t, created, "second upsert updates in place")

	inRange, err := database.ListEventsInRange(ctx, daterange.New(date(2026, 9, 12), date(2026, 9, 20)))
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.Equal(t, "Rental: Jamie R.", inRange[0].Summary, "second upsert rewrote the row")

	outOfRange, err := database.ListEventsInRange(ctx, daterange.New(date(2026, 10, 1), date(2026, 10, 5)))
	require.NoError(t, err)
	assert.Empty(t, outOfRange)

	require.NoError(t, database.DeleteEventByGoogleID(ctx, "evt-1"))
	gone, err := database.ListEventsInRange(ctx, daterange.New(date(2026, 9, 1), date(2026, 9, 30)))
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestSyncLogs(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	l := &models.SyncLog{
		SyncType:        models.SyncTypeCalendar,
		Status:          models.SyncStatusSuccess,
		EventsProcessed: 4,
		EventsAdded:     1,
		Message:         "1 span created",
		StartedAt:       time.Now().UTC().Add(-time.Minute),
		CompletedAt:     time.Now().UTC(),
	}
	require.NoError(t, database.AppendSyncLog(ctx, l))
	require.NotZero(t, l.ID)

	l2 := &models.SyncLog{
		SyncType:    models.SyncTypeChanges,
		Status:      models.SyncStatusWarning,
		StartedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
	}
	require.NoError(t, database.AppendSyncLog(ctx, l2))

	all, err := database.ListSyncLogs(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyCalendar, err := database.ListSyncLogs(ctx, models.SyncTypeCalendar, 10)
	require.NoError(t, err)
	require.Len(t, onlyCalendar, 1)
	assert.Equal(t, "1 span created", onlyCalendar[0].Message)
}
