// Package daterange provides the half-open date interval used throughout
// the reservation system. A range covers [Start, End): the end date is the
// checkout day and is never occupied, so a checkout that lands on another
// booking's check-in day is not a conflict.
package daterange

import (
	"fmt"
	"sort"
	"time"
)

// Range is a half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// New builds a Range with both endpoints truncated to midnight in the
// endpoint's own location.
func New(start, end time.Time) Range {
	return Range{Start: Day(start), End: Day(end)}
}

// Day truncates t to midnight, keeping its location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Overlaps reports whether r and o strictly intersect. Adjacent ranges
// (r.End == o.Start) do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Nights returns the number of nights covered by the range.
func (r Range) Nights() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Days enumerates every occupied day in the range (End excluded).
func (r Range) Days() []time.Time {
	var days []time.Time
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// Span is an inclusive run of consecutive days, the shape produced by
// collapsing scraped blocked dates. Unlike Range, Last is occupied.
type Span struct {
	First time.Time
	Last  time.Time
}

// Range converts the inclusive span to a half-open range covering the
// same days (Last + 1 day becomes the exclusive end).
func (s Span) Range() Range {
	return Range{Start: s.First, End: s.Last.AddDate(0, 0, 1)}
}

func (s Span) String() string {
	return fmt.Sprintf("%s..%s", s.First.Format("2006-01-02"), s.Last.Format("2006-01-02"))
}

// Collapse groups a set of days into inclusive spans of consecutive dates.
// Input order does not matter; duplicates are ignored. A gap of more than
// one day breaks the run.
func Collapse(days []time.Time) []Span {
	if len(days) == 0 {
		return nil
	}

	sorted := make([]time.Time, len(days))
	for i, d := range days {
		sorted[i] = Day(d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var spans []Span
	cur := Span{First: sorted[0], Last: sorted[0]}
	for _, d := range sorted[1:] {
		if d.Equal(cur.Last) {
			continue
		}
		if d.Equal(cur.Last.AddDate(0, 0, 1)) {
			cur.Last = d
			continue
		}
		spans = append(spans, cur)
		cur = Span{First: d, Last: d}
	}
	spans = append(spans, cur)
	return spans
}
