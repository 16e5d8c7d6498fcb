// Package export renders admin reports as Excel workbooks.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"bayfront/internal/daterange"
	"bayfront/internal/models"
)

// Store supplies the rows for the workbook.
type Store interface {
	ListBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.BookingRequest, error)
	ListEventsInRange(ctx context.Context, r daterange.Range) ([]*models.CalendarEvent, error)
	ListSyncLogs(ctx context.Context, syncType string, limit int) ([]*models.SyncLog, error)
}

// sheetWriter tracks the cursor for one workbook.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

func (w *sheetWriter) addSheet(name string) error {
	if len(name) > 31 {
		name = name[:31]
	}
	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

func (w *sheetWriter) writeRow(row []interface{}) error {
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow++
	return nil
}

// WriteBookingsWorkbook writes a workbook with one sheet per booking
// status, the mirrored calendar for the coming year, and the recent
// sync history.
func WriteBookingsWorkbook(ctx context.Context, store Store, out io.Writer) error {
	w := newSheetWriter()
	defer w.file.Close()

	statuses := []models.BookingStatus{
		models.StatusPending, models.StatusApproved,
		models.StatusConfirmed, models.StatusRejected,
	}
	for _, status := range statuses {
		bookings, err := store.ListBookingsByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("list %s bookings: %w", status, err)
		}
		if err := writeBookingSheet(w, string(status), bookings); err != nil {
			return err
		}
	}

	now := time.Now()
	events, err := store.ListEventsInRange(ctx, daterange.New(now, now.AddDate(1, 0, 0)))
	if err != nil {
		return fmt.Errorf("list calendar events: %w", err)
	}
	if err := writeEventSheet(w, events); err != nil {
		return err
	}

	logs, err := store.ListSyncLogs(ctx, "", 200)
	if err != nil {
		return fmt.Errorf("list sync logs: %w", err)
	}
	if err := writeSyncLogSheet(w, logs); err != nil {
		return err
	}

	return w.file.Write(out)
}

func writeBookingSheet(w *sheetWriter, name string, bookings []*models.BookingRequest) error {
	if err := w.addSheet(name); err != nil {
		return err
	}
	if err := w.writeHeader([]string{
		"ID", "Guest", "Email", "Phone", "Check-in", "Check-out",
		"Nights", "Guests", "Event ID", "Created", "Updated",
	}); err != nil {
		return err
	}

	for _, b := range bookings {
		row := []interface{}{
			b.ID, b.GuestName, b.GuestEmail, b.GuestPhone,
			b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"),
			b.DurationNights(), b.NumGuests, b.GoogleEventID,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
			b.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func writeEventSheet(w *sheetWriter, events []*models.CalendarEvent) error {
	if err := w.addSheet("calendar events"); err != nil {
		return err
	}
	if err := w.writeHeader([]string{
		"ID", "Google Event ID", "Summary", "Start", "End",
		"Status", "Source", "Last Synced",
	}); err != nil {
		return err
	}

	for _, e := range events {
		row := []interface{}{
			e.ID, e.GoogleEventID, e.Summary,
			e.StartDatetime.Format("2006-01-02"), e.EndDatetime.Format("2006-01-02"),
			e.Status, e.Source,
			e.LastSynced.Format("2006-01-02 15:04:05"),
		}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func writeSyncLogSheet(w *sheetWriter, logs []*models.SyncLog) error {
	if err := w.addSheet("sync history"); err != nil {
		return err
	}
	if err := w.writeHeader([]string{
		"ID", "Type", "Status", "Processed", "Added", "Discrepancies",
		"Message", "Started", "Completed",
	}); err != nil {
		return err
	}

	for _, l := range logs {
		row := []interface{}{
			l.ID, l.SyncType, l.Status, l.EventsProcessed, l.EventsAdded,
			l.DiscrepanciesFound, l.Message,
			l.StartedAt.Format("2006-01-02 15:04:05"),
			l.CompletedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}
