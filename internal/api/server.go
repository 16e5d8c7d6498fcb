// Package api exposes the guest booking endpoints and the admin surface
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"bayfront/internal/booking"
	"bayfront/internal/changes"
	"bayfront/internal/daterange"
	"bayfront/internal/gcal"
	"bayfront/internal/models"
	"bayfront/internal/reconcile"
)

// BookingService is the lifecycle surface the handlers call.
type BookingService interface {
	Submit(ctx context.Context, req *booking.SubmitRequest) (*models.BookingRequest, error)
	Approve(ctx context.Context, id int64) (*booking.ApproveResult, error)
	Reject(ctx context.Context, id int64, reason string) (*models.BookingRequest, error)
	StatusByLookupToken(ctx context.Context, lookupToken string) (*models.BookingRequest, error)
	Get(ctx context.Context, id int64) (*models.BookingRequest, error)
	Stats(ctx context.Context) (*models.BookingStats, error)
}

// TokenVerifier checks action tokens from decision links.
type TokenVerifier interface {
	Verify(tokenString, action string) (int64, error)
}

// CalendarReader lists events from the live calendar.
type CalendarReader interface {
	ListEvents(ctx context.Context, r daterange.Range) ([]gcal.Event, error)
}

// SyncRunner triggers a reconciliation pass.
type SyncRunner interface {
	Run(ctx context.Context, dryRun bool) (*reconcile.Report, error)
}

// ChangeRunner triggers a change-detection pass.
type ChangeRunner interface {
	Run(ctx context.Context, lookBack time.Duration) ([]changes.Change, error)
}

// ExportWriter streams the admin workbook.
type ExportWriter func(ctx context.Context, out io.Writer) error

// HTTPServer handles the public and admin HTTP endpoints.
type HTTPServer struct {
	bookings BookingService
	tokens   TokenVerifier
	calendar CalendarReader
	syncer   SyncRunner
	detector ChangeRunner
	export   ExportWriter
	loc      *time.Location
	log      zerolog.Logger
}

func NewHTTPServer(bookings BookingService, tokens TokenVerifier, calendar CalendarReader,
	syncer SyncRunner, detector ChangeRunner, export ExportWriter,
	loc *time.Location, log zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		bookings: bookings,
		tokens:   tokens,
		calendar: calendar,
		syncer:   syncer,
		detector: detector,
		export:   export,
		loc:      loc,
		log:      log.With().Str("component", "api").Logger(),
	}
}

// Router wires all endpoints onto a fresh mux.
func (s *HTTPServer) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/booking/request", s.handleBookingRequest)
	mux.HandleFunc("/api/booking/status/", s.handleBookingStatus)
	mux.HandleFunc("/api/availability/range", s.handleAvailabilityRange)
	mux.HandleFunc("/api/calendar/events", s.handleCalendarEvents)
	mux.HandleFunc("/api/bookings/stats", s.handleBookingStats)

	mux.HandleFunc("/admin/approve/", s.handleApprove)
	mux.HandleFunc("/admin/reject/", s.handleReject)
	mux.HandleFunc("/admin/sync", s.handleSync)
	mux.HandleFunc("/admin/detect-changes", s.handleDetectChanges)
	mux.HandleFunc("/admin/export/bookings.xlsx", s.handleExportBookings)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func pathSuffix(path, prefix string) string {
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return ""
	}
	return path[len(prefix):]
}
