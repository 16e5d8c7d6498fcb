package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bayfront/internal/daterange"
	"bayfront/internal/models"
)

type fakeStore struct {
	bookings map[models.BookingStatus][]*models.BookingRequest
	events   []*models.CalendarEvent
	logs     []*models.SyncLog

	eventRange daterange.Range
}

func (f *fakeStore) ListBookingsByStatus(_ context.Context, status models.BookingStatus) ([]*models.BookingRequest, error) {
	return f.bookings[status], nil
}

func (f *fakeStore) ListEventsInRange(_ context.Context, r daterange.Range) ([]*models.CalendarEvent, error) {
	f.eventRange = r
	return f.events, nil
}

func (f *fakeStore) ListSyncLogs(_ context.Context, _ string, _ int) ([]*models.SyncLog, error) {
	return f.logs, nil
}

func TestWriteBookingsWorkbook(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{
		bookings: map[models.BookingStatus][]*models.BookingRequest{
			models.StatusConfirmed: {{
				ID:            3,
				GuestName:     "Jamie Rivera",
				GuestEmail:    "jamie@example.com",
				StartDate:     time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
				EndDate:       time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
				NumGuests:     2,
				Status:        models.StatusConfirmed,
				GoogleEventID: "evt-3",
			}},
		},
		events: []*models.CalendarEvent{{
			ID:            9,
			GoogleEventID: "evt-3",
			Summary:       "Rental: Jamie Rivera",
			StartDatetime: time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC),
			EndDatetime:   time.Date(2026, 9, 13, 11, 0, 0, 0, time.UTC),
			Status:        "confirmed",
			Source:        models.SourceGoogle,
			LastSynced:    now,
		}},
		logs: []*models.SyncLog{{
			ID:          1,
			SyncType:    models.SyncTypeCalendar,
			Status:      models.SyncStatusSuccess,
			StartedAt:   now,
			CompletedAt: now,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookingsWorkbook(context.Background(), store, &buf))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{
		"pending", "approved", "confirmed", "rejected",
		"calendar events", "sync history",
	}, file.GetSheetList())

	guest, err := file.GetCellValue("confirmed", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Jamie Rivera", guest)

	eventID, err := file.GetCellValue("calendar events", "B2")
	require.NoError(t, err)
	assert.Equal(t, "evt-3", eventID)

	// The event sheet covers the coming year.
	assert.GreaterOrEqual(t, store.eventRange.Nights(), 365)
}
