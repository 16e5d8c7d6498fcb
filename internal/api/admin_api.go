package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bayfront/internal/booking"
	"bayfront/internal/metrics"
	"bayfront/internal/token"
)

// handleApprove confirms a pending request via a signed link.
// GET /admin/approve/{token}
func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_approve")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	actionToken := pathSuffix(r.URL.Path, "/admin/approve/")
	bookingID, err := s.tokens.Verify(actionToken, token.ActionApprove)
	if err != nil {
		writeError(w, http.StatusForbidden, "invalid or expired link")
		return
	}

	result, err := s.bookings.Approve(r.Context(), bookingID)
	if err != nil {
		s.writeDecisionError(w, bookingID, err, "approval")
		return
	}

	resp := map[string]any{
		"status":  string(result.Booking.Status),
		"booking": toBookingResponse(result.Booking),
	}
	if result.Degraded {
		resp["warning"] = "approved, but the calendar event could not be created; see the admin alert"
	}
	writeJSON(w, http.StatusOK, resp)
}

// RejectRequest optionally carries a reason for the guest.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// handleReject declines a pending request via a signed link. GET rejects
// without a reason; POST accepts a JSON body with one.
// GET|POST /admin/reject/{token}
func (s *HTTPServer) handleReject(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_reject")
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	actionToken := pathSuffix(r.URL.Path, "/admin/reject/")
	bookingID, err := s.tokens.Verify(actionToken, token.ActionReject)
	if err != nil {
		writeError(w, http.StatusForbidden, "invalid or expired link")
		return
	}

	var reason string
	if r.Method == http.MethodPost {
		var req RejectRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		reason = req.Reason
	}

	b, err := s.bookings.Reject(r.Context(), bookingID, reason)
	if err != nil {
		s.writeDecisionError(w, bookingID, err, "rejection")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  string(b.Status),
		"booking": toBookingResponse(b),
	})
}

func (s *HTTPServer) writeDecisionError(w http.ResponseWriter, bookingID int64, err error, op string) {
	var conflict *booking.ConflictError
	switch {
	case errors.Is(err, booking.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, "this request has already been decided")
	case booking.IsNotFound(err):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, "the dates are no longer available on the calendar")
	default:
		s.log.Error().Err(err).Int64("booking_id", bookingID).Msgf("%s failed", op)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

// handleSync triggers a reconciliation pass.
// POST /admin/sync?dry_run=true
func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_sync")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	report, err := s.syncer.Run(r.Context(), dryRun)
	if err != nil {
		s.log.Error().Err(err).Msg("manual sync failed")
		writeError(w, http.StatusInternalServerError, "sync failed: "+err.Error())
		return
	}

	created := make([]string, 0, len(report.Created))
	for _, span := range report.Created {
		created = append(created, span.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dry_run":          report.DryRun,
		"blocked_spans":    len(report.BlockedSpans),
		"already_covered":  report.Covered,
		"created":          created,
		"create_errors":    report.CreateErrors,
		"events_mirrored":  report.EventsMirrored,
		"sync_needed":      report.Diff.SyncNeeded,
		"rental_only_days": formatDates(report.Diff.RentalOnly),
		"remote_only_days": formatDates(report.Diff.RemoteOnly),
	})
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	return out
}

// handleDetectChanges triggers a change-detection pass. days_back limits
// the pass to bookings that ended within the window; absent or zero
// checks every confirmed booking.
// POST /admin/detect-changes?days_back=30
func (s *HTTPServer) handleDetectChanges(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_detect_changes")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var lookBack time.Duration
	if raw := r.URL.Query().Get("days_back"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			writeError(w, http.StatusBadRequest, "days_back must be a non-negative integer")
			return
		}
		lookBack = time.Duration(days) * 24 * time.Hour
	}

	detected, err := s.detector.Run(r.Context(), lookBack)
	if err != nil {
		s.log.Error().Err(err).Msg("manual change detection failed")
		writeError(w, http.StatusInternalServerError, "change detection failed: "+err.Error())
		return
	}

	type changeResponse struct {
		Kind      string `json:"kind"`
		BookingID int64  `json:"booking_id"`
		Guest     string `json:"guest"`
	}
	out := make([]changeResponse, 0, len(detected))
	for _, c := range detected {
		out = append(out, changeResponse{
			Kind:      c.Kind,
			BookingID: c.Booking.ID,
			Guest:     c.Booking.GuestName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": out})
}

// handleExportBookings streams the admin workbook.
// GET /admin/export/bookings.xlsx
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := s.export(r.Context(), w); err != nil {
		s.log.Error().Err(err).Msg("export failed")
	}
}
