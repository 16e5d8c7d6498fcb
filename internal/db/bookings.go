package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bayfront/internal/daterange"
	"bayfront/internal/models"
)

const bookingColumns = `id, guest_name, guest_email, guest_phone, start_date, end_date,
	num_guests, special_requests, status, lookup_token, rejection_reason,
	google_event_id, created_at, updated_at, approved_at, rejected_at`

// CreateBooking inserts a new pending request and fills in its ID.
func (db *DB) CreateBooking(ctx context.Context, b *models.BookingRequest) error {
	now := time.Now().UTC()
	b.Status = models.StatusPending
	b.CreatedAt = now
	b.UpdatedAt = now

	res, err := db.ExecContext(ctx, `
		INSERT INTO booking_requests
			(guest_name, guest_email, guest_phone, start_date, end_date,
			 num_guests, special_requests, status, lookup_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.GuestName, b.GuestEmail, b.GuestPhone, b.StartDate, b.EndDate,
		b.NumGuests, b.SpecialRequests, b.Status, b.LookupToken, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	b.ID, err = res.LastInsertId()
	return err
}

// GetBooking fetches a request by primary key.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.BookingRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM booking_requests WHERE id = ?`, id)
	return scanBooking(row)
}

// GetBookingByLookupToken fetches a request by its guest-facing token.
func (db *DB) GetBookingByLookupToken(ctx context.Context, token string) (*models.BookingRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM booking_requests WHERE lookup_token = ?`, token)
	return scanBooking(row)
}

// ListBookingsByStatus returns requests in the given state, newest first.
func (db *DB) ListBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.BookingRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM booking_requests WHERE status = ? ORDER BY created_at DESC`,
		status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListConfirmedWithEvents returns confirmed requests that carry a calendar
// event id. Change detection walks this set.
func (db *DB) ListConfirmedWithEvents(ctx context.Context) ([]*models.BookingRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM booking_requests
		 WHERE status = ? AND google_event_id IS NOT NULL AND google_event_id != ''
		 ORDER BY start_date`, models.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListOverlappingBookings returns non-rejected requests whose stay strictly
// intersects the given half-open range.
func (db *DB) ListOverlappingBookings(ctx context.Context, r daterange.Range) ([]*models.BookingRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM booking_requests
		 WHERE status != ? AND start_date < ? AND end_date > ?
		 ORDER BY start_date`, models.StatusRejected, r.End, r.Start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ClaimApproval moves a pending request to approved. Exactly one caller
// wins; concurrent or repeated attempts get ErrAlreadyProcessed.
func (db *DB) ClaimApproval(ctx context.Context, id int64) error {
	return db.transition(ctx, `
		UPDATE booking_requests
		SET status = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.StatusApproved, time.Now().UTC(), time.Now().UTC(), id, models.StatusPending)
}

// SetConfirmed records the created calendar event and completes approval.
func (db *DB) SetConfirmed(ctx context.Context, id int64, eventID string) error {
	return db.transition(ctx, `
		UPDATE booking_requests
		SET status = ?, google_event_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.StatusConfirmed, eventID, time.Now().UTC(), id, models.StatusApproved)
}

// MarkRejected moves a pending request to rejected with an optional reason.
func (db *DB) MarkRejected(ctx context.Context, id int64, reason string) error {
	return db.transition(ctx, `
		UPDATE booking_requests
		SET status = ?, rejection_reason = ?, rejected_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.StatusRejected, reason, time.Now().UTC(), time.Now().UTC(), id, models.StatusPending)
}

func (db *DB) transition(ctx context.Context, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

// BookingStats aggregates request counts for the dashboard.
func (db *DB) BookingStats(ctx context.Context) (*models.BookingStats, error) {
	stats := &models.BookingStats{}

	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM booking_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch models.BookingStatus(status) {
		case models.StatusPending:
			stats.Pending = count
		case models.StatusApproved:
			stats.Approved = count
		case models.StatusConfirmed:
			stats.Confirmed = count
		case models.StatusRejected:
			stats.Rejected = count
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_requests WHERE created_at >= ?`, cutoff).
		Scan(&stats.Recent)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.BookingRequest, error) {
	var b models.BookingRequest
	var phone, special, reason, eventID sql.NullString
	var approvedAt, rejectedAt sql.NullTime

	err := row.Scan(&b.ID, &b.GuestName, &b.GuestEmail, &phone, &b.StartDate, &b.EndDate,
		&b.NumGuests, &special, &b.Status, &b.LookupToken, &reason,
		&eventID, &b.CreatedAt, &b.UpdatedAt, &approvedAt, &rejectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.GuestPhone = phone.String
	b.SpecialRequests = special.String
	b.RejectionReason = reason.String
	b.GoogleEventID = eventID.String
	if approvedAt.Valid {
		t := approvedAt.Time
		b.ApprovedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time
		b.RejectedAt = &t
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.BookingRequest, error) {
	var bookings []*models.BookingRequest
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
