package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bayfront/internal/models"
)

// Service fans lifecycle notifications out to the right audiences. Every
// delivery is best-effort: a failed email never fails the booking
// operation that triggered it, it only gets logged.
type Service struct {
	mailer Dispatcher
	admin  Dispatcher // optional Telegram channel for operator alerts

	approvalEmail      string
	notificationEmails []string
	adminEmail         string
	baseURL            string
	propertyName       string
	logger             zerolog.Logger
}

// Options configures audiences and links.
type Options struct {
	ApprovalEmail      string
	NotificationEmails []string
	AdminEmail         string
	BaseURL            string
	PropertyName       string
}

func NewService(mailer Dispatcher, admin Dispatcher, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		mailer:             mailer,
		admin:              admin,
		approvalEmail:      opts.ApprovalEmail,
		notificationEmails: opts.NotificationEmails,
		adminEmail:         opts.AdminEmail,
		baseURL:            strings.TrimRight(opts.BaseURL, "/"),
		propertyName:       opts.PropertyName,
		logger:             logger.With().Str("component", "notify").Logger(),
	}
}

// NotifySubmitted tells the approver about a new request and sends the
// guest a received notice with their status link.
func (s *Service) NotifySubmitted(ctx context.Context, b *models.BookingRequest, approveURL, rejectURL string) {
	s.deliver(ctx, Message{
		To:       []string{s.approvalEmail},
		Subject:  fmt.Sprintf("[%s] New booking request: %s", s.propertyName, b.GuestName),
		HTMLBody: adminSubmittedBody(b, approveURL, rejectURL),
	})

	statusURL := s.baseURL + "/api/booking/status/" + b.LookupToken
	s.deliver(ctx, Message{
		To:       []string{b.GuestEmail},
		Subject:  fmt.Sprintf("Your booking request for %s", s.propertyName),
		HTMLBody: guestReceivedBody(b, statusURL),
	})
}

// NotifyConfirmed tells the guest and the stakeholder list.
func (s *Service) NotifyConfirmed(ctx context.Context, b *models.BookingRequest) {
	s.deliver(ctx, Message{
		To:       []string{b.GuestEmail},
		Subject:  fmt.Sprintf("Booking confirmed: %s", s.propertyName),
		HTMLBody: guestConfirmedBody(b),
	})
	s.deliver(ctx, Message{
		To:       s.notificationEmails,
		Subject:  fmt.Sprintf("[%s] Booking confirmed: %s", s.propertyName, b.GuestName),
		HTMLBody: stakeholderConfirmedBody(b),
	})
}

// NotifyConfirmedDegraded alerts the operator that an approval needs a
// manual calendar event. The guest is not told anything yet.
func (s *Service) NotifyConfirmedDegraded(ctx context.Context, b *models.BookingRequest, createErr error) {
	s.deliver(ctx, Message{
		To:       []string{s.adminEmail},
		Subject:  fmt.Sprintf("[%s] Approval needs attention: booking #%d", s.propertyName, b.ID),
		HTMLBody: degradedBody(b, createErr),
	})
	s.Alert(ctx, fmt.Sprintf("Booking #%d approved but not calendared", b.ID), createErr.Error())
}

// NotifyRejected tells the guest their request was declined.
func (s *Service) NotifyRejected(ctx context.Context, b *models.BookingRequest) {
	s.deliver(ctx, Message{
		To:       []string{b.GuestEmail},
		Subject:  fmt.Sprintf("Your booking request for %s", s.propertyName),
		HTMLBody: guestRejectedBody(b),
	})
}

// NotifyEventDeleted tells stakeholders and the guest independently.
// One audience failing never blocks the other; the combined error lets
// the change detector count failed deliveries.
func (s *Service) NotifyEventDeleted(ctx context.Context, b *models.BookingRequest) error {
	stakeholderErr := s.deliver(ctx, Message{
		To:       s.notificationEmails,
		Subject:  fmt.Sprintf("[%s] Calendar event removed: booking #%d", s.propertyName, b.ID),
		HTMLBody: eventDeletedBody(b),
	})
	guestErr := s.deliver(ctx, Message{
		To:       []string{b.GuestEmail},
		Subject:  fmt.Sprintf("About your stay at %s", s.propertyName),
		HTMLBody: guestEventDeletedBody(b),
	})
	return errors.Join(stakeholderErr, guestErr)
}

// NotifyEventModified tells stakeholders and the guest about moved dates.
func (s *Service) NotifyEventModified(ctx context.Context, b *models.BookingRequest, newStart, newEnd time.Time) error {
	stakeholderErr := s.deliver(ctx, Message{
		To:       s.notificationEmails,
		Subject:  fmt.Sprintf("[%s] Booking dates changed: booking #%d", s.propertyName, b.ID),
		HTMLBody: eventModifiedBody(b, newStart, newEnd),
	})
	guestErr := s.deliver(ctx, Message{
		To:       []string{b.GuestEmail},
		Subject:  fmt.Sprintf("Your booking dates at %s changed", s.propertyName),
		HTMLBody: guestEventModifiedBody(b, newStart, newEnd),
	})
	return errors.Join(stakeholderErr, guestErr)
}

// Alert pushes an operator alert over the admin channel when one is
// configured, falling back to the admin email otherwise.
func (s *Service) Alert(ctx context.Context, subject, body string) {
	msg := Message{
		To:       []string{s.adminEmail},
		Subject:  fmt.Sprintf("[%s] %s", s.propertyName, subject),
		TextBody: body,
	}
	if s.admin != nil {
		err := s.admin.Send(ctx, msg)
		if err == nil {
			return
		}
		s.logger.Warn().Err(err).Msg("admin channel delivery failed, falling back to email")
	}
	s.deliver(ctx, msg)
}

func (s *Service) deliver(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 || msg.To[0] == "" {
		return nil
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("subject", msg.Subject).
			Strs("to", msg.To).Msg("notification delivery failed")
		return err
	}
	return nil
}
