package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bayfront/internal/booking"
	"bayfront/internal/daterange"
	"bayfront/internal/metrics"
	"bayfront/internal/models"
)

// MaxQueryDaysRange caps the window of availability and event queries.
const MaxQueryDaysRange = 366

// BookingResponse is the guest-facing view of a request. Internal ids
// and admin-only fields stay out of it.
type BookingResponse struct {
	LookupToken     string `json:"lookup_token"`
	Status          string `json:"status"`
	GuestName       string `json:"guest_name"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	Nights          int    `json:"nights"`
	NumGuests       int    `json:"num_guests"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

func toBookingResponse(b *models.BookingRequest) BookingResponse {
	return BookingResponse{
		LookupToken:     b.LookupToken,
		Status:          string(b.Status),
		GuestName:       b.GuestName,
		StartDate:       b.StartDate.Format("2006-01-02"),
		EndDate:         b.EndDate.Format("2006-01-02"),
		Nights:          b.DurationNights(),
		NumGuests:       b.NumGuests,
		RejectionReason: b.RejectionReason,
	}
}

// handleBookingRequest accepts a guest booking form.
// POST /api/booking/request
func (s *HTTPServer) handleBookingRequest(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking_request")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req booking.SubmitRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := s.bookings.Submit(r.Context(), &req)
	if err != nil {
		var verrs booking.ValidationErrors
		var conflict *booking.ConflictError
		switch {
		case errors.As(err, &verrs):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verrs,
			})
		case errors.As(err, &conflict):
			writeError(w, http.StatusConflict, "the requested dates are not available")
		default:
			s.log.Error().Err(err).Msg("booking submission failed")
			writeError(w, http.StatusServiceUnavailable, "unable to process the request right now")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

// handleBookingStatus is the guest status lookup. The path segment is
// either a numeric booking id or the opaque lookup token from the
// submission receipt.
// GET /api/booking/status/{id-or-token}
func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking_status")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ref := pathSuffix(r.URL.Path, "/api/booking/status/")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "booking id or lookup token is required")
		return
	}

	var b *models.BookingRequest
	var err error
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		b, err = s.bookings.Get(r.Context(), id)
	} else {
		b, err = s.bookings.StatusByLookupToken(r.Context(), ref)
	}
	if err != nil {
		if booking.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.log.Error().Err(err).Msg("status lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// handleBookingStats summarizes request counts.
// GET /api/bookings/stats
func (s *HTTPServer) handleBookingStats(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking_stats")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.bookings.Stats(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats query failed")
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAvailabilityRange reports which days in a window are free.
// GET /api/availability/range?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *HTTPServer) handleAvailabilityRange(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_range")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	queryRange, err := s.parseRangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.calendar.ListEvents(r.Context(), queryRange)
	if err != nil {
		s.log.Error().Err(err).Msg("availability query failed")
		writeError(w, http.StatusServiceUnavailable, "calendar unavailable")
		return
	}

	type dayAvailability struct {
		Date      string `json:"date"`
		Available bool   `json:"available"`
	}
	days := make([]dayAvailability, 0)
	for _, day := range queryRange.Days() {
		dayRange := daterange.Range{Start: day, End: day.AddDate(0, 0, 1)}
		free := true
		for _, ev := range events {
			if ev.Range().Overlaps(dayRange) {
				free = false
				break
			}
		}
		days = append(days, dayAvailability{Date: day.Format("2006-01-02"), Available: free})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start": queryRange.Start.Format("2006-01-02"),
		"end":   queryRange.End.Format("2006-01-02"),
		"days":  days,
	})
}

// BookedColor is the display color for occupied dates on the public
// booking calendar.
const BookedColor = "#dc3545"

// EventResponse is the public view of a calendar event, shaped for the
// FullCalendar widget on the booking page. Real summaries and
// descriptions stay private; every event renders as a generic "Booked"
// block so callers only learn which dates are taken.
type EventResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Start  string `json:"start"`
	End    string `json:"end"`
	AllDay bool   `json:"allDay"`
	Color  string `json:"color"`
}

// handleCalendarEvents lists busy periods in a window.
// GET /api/calendar/events?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *HTTPServer) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar_events")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	queryRange, err := s.parseRangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.calendar.ListEvents(r.Context(), queryRange)
	if err != nil {
		s.log.Error().Err(err).Msg("event query failed")
		writeError(w, http.StatusServiceUnavailable, "calendar unavailable")
		return
	}

	busy := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		er := ev.Range()
		busy = append(busy, EventResponse{
			ID:     ev.ID,
			Title:  "Booked",
			Start:  er.Start.Format("2006-01-02"),
			End:    er.End.Format("2006-01-02"),
			AllDay: true,
			Color:  BookedColor,
		})
	}
	writeJSON(w, http.StatusOK, busy)
}

func (s *HTTPServer) parseRangeQuery(r *http.Request) (daterange.Range, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		return daterange.Range{}, errors.New("start and end are required")
	}

	start, err := time.ParseInLocation("2006-01-02", startStr, s.loc)
	if err != nil {
		return daterange.Range{}, errors.New("invalid start format; expected YYYY-MM-DD")
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, s.loc)
	if err != nil {
		return daterange.Range{}, errors.New("invalid end format; expected YYYY-MM-DD")
	}

	queryRange := daterange.New(start, end)
	if !queryRange.End.After(queryRange.Start) {
		return daterange.Range{}, errors.New("end must be after start")
	}
	if queryRange.Nights() > MaxQueryDaysRange {
		return daterange.Range{}, errors.New("date range exceeds maximum of 366 days")
	}
	return queryRange, nil
}
