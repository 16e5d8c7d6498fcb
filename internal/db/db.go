// Package db implements the SQLite store for booking requests, the
// calendar event cache, and sync logs.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyProcessed is returned by conditional status transitions when
// the booking is no longer in the expected state. Only the first writer
// wins; everyone else observes this error.
var ErrAlreadyProcessed = errors.New("booking already processed")

// DB wraps sql.DB for the reservation system.
type DB struct {
	*sql.DB
}

// New opens the database at path and runs migrations.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS booking_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guest_name TEXT NOT NULL,
			guest_email TEXT NOT NULL,
			guest_phone TEXT,
			start_date DATETIME NOT NULL,
			end_date DATETIME NOT NULL,
			num_guests INTEGER NOT NULL DEFAULT 1,
			special_requests TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			lookup_token TEXT UNIQUE NOT NULL,
			rejection_reason TEXT,
			google_event_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			approved_at DATETIME,
			rejected_at DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS calendar_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			google_event_id TEXT UNIQUE NOT NULL,
			summary TEXT,
			description TEXT,
			start_datetime DATETIME NOT NULL,
			end_datetime DATETIME NOT NULL,
			status TEXT,
			source TEXT NOT NULL DEFAULT 'google',
			booking_request_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_synced DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (booking_request_id) REFERENCES booking_requests(id)
		)`,

		`CREATE TABLE IF NOT EXISTS sync_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sync_type TEXT NOT NULL,
			status TEXT NOT NULL,
			events_processed INTEGER DEFAULT 0,
			events_added INTEGER DEFAULT 0,
			events_updated INTEGER DEFAULT 0,
			events_removed INTEGER DEFAULT 0,
			discrepancies_found INTEGER DEFAULT 0,
			message TEXT,
			error_details TEXT,
			started_at DATETIME NOT NULL,
			completed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_booking_requests_status ON booking_requests(status)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_requests_dates ON booking_requests(start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_times ON calendar_events(start_datetime, end_datetime)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_logs_type ON sync_logs(sync_type, started_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
