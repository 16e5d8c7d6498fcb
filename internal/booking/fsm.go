// Package booking implements the request lifecycle from guest submission
// through admin decision to a confirmed calendar event.
package booking

import "bayfront/internal/models"

// transitions lists the allowed status moves. Confirmed and rejected are
// terminal. The database enforces these same moves with conditional
// updates; this table backs validation and reporting.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:  {models.StatusApproved, models.StatusRejected},
	models.StatusApproved: {models.StatusConfirmed},
}

// CanTransition checks if the status move is allowed.
func CanTransition(from, to models.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
