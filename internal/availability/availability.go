// Package availability answers whether a date range is free on the
// property calendar. Any event on the calendar blocks its dates,
// regardless of what kind of booking it represents.
package availability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"bayfront/internal/daterange"
	"bayfront/internal/gcal"
)

// Check reports whether r is free given the events on the calendar and
// returns the events that conflict. Pure function over its inputs.
func Check(events []gcal.Event, r daterange.Range) (bool, []gcal.Event) {
	var conflicts []gcal.Event
	for _, ev := range events {
		if ev.Range().Overlaps(r) {
			conflicts = append(conflicts, ev)
		}
	}
	return len(conflicts) == 0, conflicts
}

// EventLister is the slice of the calendar gateway the checker needs.
type EventLister interface {
	ListEvents(ctx context.Context, r daterange.Range) ([]gcal.Event, error)
}

// Checker queries the live calendar for availability decisions.
type Checker struct {
	calendar EventLister
	logger   zerolog.Logger
}

func NewChecker(calendar EventLister, logger zerolog.Logger) *Checker {
	return &Checker{
		calendar: calendar,
		logger:   logger.With().Str("component", "availability").Logger(),
	}
}

// IsAvailable checks r against the live calendar. It fails closed: if the
// calendar cannot be consulted, the range is reported unavailable along
// with the error.
func (c *Checker) IsAvailable(ctx context.Context, r daterange.Range) (bool, []gcal.Event, error) {
	events, err := c.calendar.ListEvents(ctx, r)
	if err != nil {
		c.logger.Error().Err(err).Stringer("range", r).Msg("availability check failed, treating as unavailable")
		return false, nil, fmt.Errorf("check availability: %w", err)
	}

	free, conflicts := Check(events, r)
	if !free {
		c.logger.Debug().Stringer("range", r).Int("conflicts", len(conflicts)).Msg("range not available")
	}
	return free, conflicts, nil
}
