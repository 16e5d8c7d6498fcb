package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bayfront/internal/daterange"
	"bayfront/internal/models"
)

const eventColumns = `id, google_event_id, summary, description, start_datetime, end_datetime,
	status, source, booking_request_id, created_at, updated_at, last_synced`

// UpsertEvent inserts or refreshes a cached calendar event keyed by its
// remote id. Returns true when a new row was created.
func (db *DB) UpsertEvent(ctx context.Context, e *models.CalendarEvent) (bool, error) {
	now := time.Now().UTC()

	res, err := db.ExecContext(ctx, `
		UPDATE calendar_events
		SET summary = ?, description = ?, start_datetime = ?, end_datetime = ?,
		    status = ?, source = ?, booking_request_id = ?, updated_at = ?, last_synced = ?
		WHERE google_event_id = ?`,
		e.Summary, e.Description, e.StartDatetime, e.EndDatetime,
		e.Status, e.Source, e.BookingRequestID, now, now, e.GoogleEventID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n > 0 {
		return false, nil
	}

	res, err = db.ExecContext(ctx, `
		INSERT INTO calendar_events
			(google_event_id, summary, description, start_datetime, end_datetime,
			 status, source, booking_request_id, created_at, updated_at, last_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.GoogleEventID, e.Summary, e.Description, e.StartDatetime, e.EndDatetime,
		e.Status, e.Source, e.BookingRequestID, now, now, now)
	if err != nil {
		return false, err
	}
	e.ID, err = res.LastInsertId()
	return true, err
}

// ListEventsInRange returns cached events intersecting the half-open range.
func (db *DB) ListEventsInRange(ctx context.Context, r daterange.Range) ([]*models.CalendarEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM calendar_events
		 WHERE start_datetime < ? AND end_datetime > ?
		 ORDER BY start_datetime`, r.End, r.Start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEventByGoogleID drops a cached event whose remote counterpart is gone.
func (db *DB) DeleteEventByGoogleID(ctx context.Context, googleEventID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE google_event_id = ?`, googleEventID)
	return err
}

func scanEvent(row rowScanner) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	var summary, description, status sql.NullString
	var bookingID sql.NullInt64

	err := row.Scan(&e.ID, &e.GoogleEventID, &summary, &description,
		&e.StartDatetime, &e.EndDatetime, &status, &e.Source, &bookingID,
		&e.CreatedAt, &e.UpdatedAt, &e.LastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e.Summary = summary.String
	e.Description = description.String
	e.Status = status.String
	if bookingID.Valid {
		id := bookingID.Int64
		e.BookingRequestID = &id
	}
	return &e, nil
}
