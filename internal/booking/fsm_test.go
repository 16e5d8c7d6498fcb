package booking

import (
	"testing"

	"bayfront/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.BookingStatus
		want     bool
	}{
		{models.StatusPending, models.StatusApproved, true},
		{models.StatusPending, models.StatusRejected, true},
		{models.StatusApproved, models.StatusConfirmed, true},
		{models.StatusPending, models.StatusConfirmed, false},
		{models.StatusConfirmed, models.StatusRejected, false},
		{models.StatusRejected, models.StatusApproved, false},
		{models.StatusConfirmed, models.StatusPending, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
