package notify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bayfront/internal/models"
)

type fakeDispatcher struct {
	sent []Message
	errs map[string]error // keyed by first recipient
}

func (f *fakeDispatcher) Send(_ context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	if f.errs != nil {
		return f.errs[msg.To[0]]
	}
	return nil
}

func testBooking() *models.BookingRequest {
	return &models.BookingRequest{
		ID:         12,
		GuestName:  "Jamie Rivera",
		GuestEmail: "jamie@example.com",
		StartDate:  time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
	}
}

func newTestService(mailer Dispatcher) *Service {
	return NewService(mailer, nil, Options{
		ApprovalEmail:      "owner@example.com",
		NotificationEmails: []string{"team@example.com"},
		AdminEmail:         "admin@example.com",
		BaseURL:            "https://stay.example.com",
		PropertyName:       "Bayfront Cottage",
	}, zerolog.New(io.Discard))
}

func TestNotifyEventDeletedReachesBothAudiences(t *testing.T) {
	mailer := &fakeDispatcher{}
	err := newTestService(mailer).NotifyEventDeleted(context.Background(), testBooking())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, []string{"team@example.com"}, mailer.sent[0].To)
	assert.Equal(t, []string{"jamie@example.com"}, mailer.sent[1].To)
}

func TestNotifyEventDeletedReportsPartialFailure(t *testing.T) {
	mailer := &fakeDispatcher{errs: map[string]error{
		"team@example.com": errors.New("smtp refused"),
	}}
	err := newTestService(mailer).NotifyEventDeleted(context.Background(), testBooking())
	require.Error(t, err)

	// The stakeholder failure must not stop the guest delivery.
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, []string{"jamie@example.com"}, mailer.sent[1].To)
}

func TestNotifyEventModifiedReportsFailure(t *testing.T) {
	mailer := &fakeDispatcher{errs: map[string]error{
		"team@example.com":  errors.New("smtp refused"),
		"jamie@example.com": errors.New("smtp refused"),
	}}
	newStart := time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC)
	newEnd := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	err := newTestService(mailer).NotifyEventModified(context.Background(), testBooking(), newStart, newEnd)
	assert.Error(t, err)
	assert.Len(t, mailer.sent, 2)
}
