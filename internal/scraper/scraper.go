// Package scraper extracts availability from the public rental listing
// page. The listing renders one HTML table per month with per-day CSS
// classes; this is the only machine-readable view of bookings made
// through the rental platform itself.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"bayfront/internal/daterange"
	"bayfront/internal/metrics"
)

// DayStatus classifies one calendar day on the listing page.
type DayStatus string

const (
	DayAvailable DayStatus = "available"
	DayBlocked   DayStatus = "blocked"
)

// Day is one classified date from the listing calendar. CheckIn and
// CheckOut mark turnover days; the platform renders them on otherwise
// available dates, so they are flags on top of the status rather than
// statuses of their own.
type Day struct {
	Date     time.Time
	Status   DayStatus
	CheckIn  bool
	CheckOut bool
}

// Result is one scrape of the listing page.
type Result struct {
	Days      []Day
	Months    []string // "August 2025" captions, in page order
	FetchedAt time.Time
}

// BlockedRanges collapses the blocked nights into inclusive spans. Only
// fully unavailable days count; turnover days stay bookable on the
// platform and are not blocked nights.
func (r *Result) BlockedRanges() []daterange.Span {
	var blocked []time.Time
	for _, d := range r.Days {
		if d.Status == DayBlocked {
			blocked = append(blocked, d.Date)
		}
	}
	return daterange.Collapse(blocked)
}

// Scraper fetches and parses the listing calendar. Requests are rate
// limited so repeated syncs stay polite to the rental platform.
type Scraper struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	loc     *time.Location
	logger  zerolog.Logger
}

func New(url string, loc *time.Location, logger zerolog.Logger) *Scraper {
	return &Scraper{
		url:     url,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
		loc:     loc,
		logger:  logger.With().Str("component", "scraper").Logger(),
	}
}

// Fetch downloads the listing page and parses its availability calendar.
func (s *Scraper) Fetch(ctx context.Context) (*Result, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	// The rental platform serves a bot-detection page to unknown agents.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.IncScrapeFailure()
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.IncScrapeFailure()
		return nil, fmt.Errorf("listing page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		metrics.IncScrapeFailure()
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	result, err := s.Parse(doc)
	if err != nil {
		metrics.IncScrapeFailure()
		return nil, err
	}

	s.logger.Info().Int("days", len(result.Days)).Strs("months", result.Months).
		Msg("scraped listing calendar")
	return result, nil
}
