package availability

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bayfront/internal/daterange"
	"bayfront/internal/gcal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheck(t *testing.T) {
	events := []gcal.Event{
		{ID: "a", Start: date(2026, 9, 10), End: date(2026, 9, 12)},
		{ID: "b", Start: date(2026, 9, 20), End: date(2026, 9, 25)},
	}

	tests := []struct {
		name          string
		r             daterange.Range
		wantFree      bool
		wantConflicts int
	}{
		{"free gap", daterange.New(date(2026, 9, 13), date(2026, 9, 18)), true, 0},
		{"hits one event", daterange.New(date(2026, 9, 11), date(2026, 9, 14)), false, 1},
		{"hits both events", daterange.New(date(2026, 9, 11), date(2026, 9, 21)), false, 2},
		{"checkin on event end", daterange.New(date(2026, 9, 12), date(2026, 9, 15)), true, 0},
		{"checkout on event start", daterange.New(date(2026, 9, 18), date(2026, 9, 20)), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free, conflicts := Check(events, tt.r)
			if free != tt.wantFree {
				t.Errorf("Check() free = %v, want %v", free, tt.wantFree)
			}
			if len(conflicts) != tt.wantConflicts {
				t.Errorf("Check() conflicts = %d, want %d", len(conflicts), tt.wantConflicts)
			}
		})
	}
}

type stubLister struct {
	events []gcal.Event
	err    error
}

func (s *stubLister) ListEvents(_ context.Context, _ daterange.Range) ([]gcal.Event, error) {
	return s.events, s.err
}

func TestCheckerFailsClosed(t *testing.T) {
	checker := NewChecker(&stubLister{err: errors.New("calendar down")}, zerolog.New(io.Discard))

	free, _, err := checker.IsAvailable(context.Background(),
		daterange.New(date(2026, 9, 10), date(2026, 9, 12)))
	if err == nil {
		t.Fatal("expected error when calendar is unreachable")
	}
	if free {
		t.Error("unreachable calendar must report unavailable")
	}
}

func TestCheckerAvailable(t *testing.T) {
	checker := NewChecker(&stubLister{}, zerolog.New(io.Discard))

	free, conflicts, err := checker.IsAvailable(context.Background(),
		daterange.New(date(2026, 9, 10), date(2026, 9, 12)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !free || len(conflicts) != 0 {
		t.Errorf("empty calendar should be available, got free=%v conflicts=%d", free, len(conflicts))
	}
}
