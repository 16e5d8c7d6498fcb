// Package models defines the persisted entities of the reservation system.
package models

import (
	"time"

	"bayfront/internal/daterange"
)

// BookingStatus is the lifecycle state of a booking request.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved" // approved but not yet calendared
	StatusConfirmed BookingStatus = "confirmed"
	StatusRejected  BookingStatus = "rejected"
)

// Terminal reports whether no further transition may leave the status.
// "approved" is not terminal: it still moves to confirmed once the
// calendar event is created.
func (s BookingStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// BookingRequest is a guest's reservation proposal. Requests are never
// deleted; rejected and confirmed rows remain as the audit trail.
type BookingRequest struct {
	ID int64

	GuestName  string
	GuestEmail string
	GuestPhone string

	StartDate       time.Time // check-in day
	EndDate         time.Time // check-out day, exclusive
	NumGuests       int
	SpecialRequests string

	Status          BookingStatus
	LookupToken     string // unguessable id for guest-facing status lookups
	RejectionReason string

	GoogleEventID string // set once confirmed

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt *time.Time
	RejectedAt *time.Time
}

// Range returns the stay as a half-open date range.
func (b *BookingRequest) Range() daterange.Range {
	return daterange.New(b.StartDate, b.EndDate)
}

// DurationNights is the number of nights of the stay.
func (b *BookingRequest) DurationNights() int {
	return b.Range().Nights()
}

// Event sources for cached calendar rows.
const (
	SourceGoogle   = "google"
	SourceExternal = "external"
	SourceManual   = "manual"
)

// CalendarEvent mirrors a remote calendar event locally. It is a read
// cache and audit trail only; the remote calendar stays authoritative.
type CalendarEvent struct {
	ID int64

	GoogleEventID string
	Summary       string
	Description   string

	StartDatetime time.Time
	EndDatetime   time.Time

	Status string // confirmed, tentative, cancelled
	Source string

	BookingRequestID *int64

	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastSynced time.Time
}

// Sync run types and outcomes.
const (
	SyncTypeCalendar = "calendar_sync"
	SyncTypeChanges  = "change_detection"

	SyncStatusSuccess = "success"
	SyncStatusWarning = "warning"
	SyncStatusError   = "error"
)

// SyncLog records one reconciliation or change-detection run. Append-only.
type SyncLog struct {
	ID int64

	SyncType string
	Status   string

	EventsProcessed    int
	EventsAdded        int
	EventsUpdated      int
	EventsRemoved      int
	DiscrepanciesFound int

	Message      string
	ErrorDetails string

	StartedAt   time.Time
	CompletedAt time.Time
}

// BookingStats summarizes request counts for the dashboard.
type BookingStats struct {
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
	Total     int `json:"total"`
	Recent    int `json:"recent"` // created in the last 30 days
}
