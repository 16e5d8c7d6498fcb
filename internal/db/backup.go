package db

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupOptions configures periodic snapshots of the booking database.
type BackupOptions struct {
	StoragePath   string
	Interval      time.Duration
	RetentionDays int
}

// Backup copies the database file into the backup directory with a
// timestamped name. SQLite keeps the file consistent for readers, so a
// plain copy is a usable snapshot for this write volume.
func (db *DB) Backup(dbPath string, opts BackupOptions, logger zerolog.Logger) error {
	if err := os.MkdirAll(opts.StoragePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	backupPath := filepath.Join(opts.StoragePath,
		fmt.Sprintf("bookings_%s.db", time.Now().Format("20060102_150405")))

	source, err := os.Open(dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}

	logger.Info().Str("path", backupPath).Msg("database backup written")
	return nil
}

// CleanupOldBackups removes snapshots older than the retention window.
func CleanupOldBackups(opts BackupOptions, logger zerolog.Logger) {
	if opts.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(opts.StoragePath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read backup directory for cleanup")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -opts.RetentionDays)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			logger.Info().Str("file", file.Name()).Msg("deleting old backup")
			os.Remove(filepath.Join(opts.StoragePath, file.Name()))
		}
	}
}
