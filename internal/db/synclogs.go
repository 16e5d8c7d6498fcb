package db

import (
	"context"
	"database/sql"

	"bayfront/internal/models"
)

// AppendSyncLog records one completed reconciliation or change-detection run.
func (db *DB) AppendSyncLog(ctx context.Context, l *models.SyncLog) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO sync_logs
			(sync_type, status, events_processed, events_added, events_updated,
			 events_removed, discrepancies_found, message, error_details,
			 started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.SyncType, l.Status, l.EventsProcessed, l.EventsAdded, l.EventsUpdated,
		l.EventsRemoved, l.DiscrepanciesFound, l.Message, l.ErrorDetails,
		l.StartedAt, l.CompletedAt)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

// ListSyncLogs returns the most recent runs, optionally filtered by type.
func (db *DB) ListSyncLogs(ctx context.Context, syncType string, limit int) ([]*models.SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, sync_type, status, events_processed, events_added, events_updated,
		events_removed, discrepancies_found, message, error_details, started_at, completed_at
		FROM sync_logs`
	args := []any{}
	if syncType != "" {
		query += ` WHERE sync_type = ?`
		args = append(args, syncType)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.SyncLog
	for rows.Next() {
		var l models.SyncLog
		var message, errDetails sql.NullString
		if err := rows.Scan(&l.ID, &l.SyncType, &l.Status, &l.EventsProcessed,
			&l.EventsAdded, &l.EventsUpdated, &l.EventsRemoved, &l.DiscrepanciesFound,
			&message, &errDetails, &l.StartedAt, &l.CompletedAt); err != nil {
			return nil, err
		}
		l.Message = message.String
		l.ErrorDetails = errDetails.String
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
