// syncd runs one reconciliation or change-detection pass and exits.
// It exists for cron setups that prefer not to rely on the server's
// internal scheduler.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"bayfront/internal/changes"
	"bayfront/internal/config"
	"bayfront/internal/db"
	"bayfront/internal/gcal"
	"bayfront/internal/notify"
	"bayfront/internal/reconcile"
	"bayfront/internal/scraper"
)

func main() {
	mode := flag.String("mode", "sync", "pass to run: sync or changes")
	dryRun := flag.Bool("dry-run", false, "report missing blocks without creating events")
	daysBack := flag.Int("days-back", 0, "limit change detection to bookings ending within N days; 0 checks all")
	flag.Parse()

	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("BAYFRONT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("refusing to run with invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	loc := cfg.Location()
	calendar, err := gcal.New(ctx, cfg.Google.CredentialsPath, cfg.Google.CalendarID, loc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("calendar client error")
	}

	mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Sender:   cfg.Mail.Sender,
		UseTLS:   cfg.Mail.UseTLS,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("smtp client error")
	}

	var adminChannel notify.Dispatcher
	if cfg.Notify.Telegram.BotToken != "" {
		if tg, err := notify.NewTelegramNotifier(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID, logger); err == nil {
			adminChannel = tg
		}
	}

	notifier := notify.NewService(mailer, adminChannel, notify.Options{
		ApprovalEmail:      cfg.Notify.ApprovalEmail,
		NotificationEmails: cfg.NotificationEmails(),
		AdminEmail:         cfg.Notify.AdminEmail,
		BaseURL:            cfg.Server.BaseURL,
		PropertyName:       cfg.Property.Name,
	}, logger)

	switch *mode {
	case "sync":
		listing := scraper.New(cfg.Property.URL, loc, logger)
		engine := reconcile.NewEngine(calendar, listing, database, notifier, cfg.SyncWindow(), loc, logger)
		report, err := engine.Run(ctx, *dryRun)
		if err != nil {
			logger.Fatal().Err(err).Msg("sync failed")
		}
		logger.Info().Int("blocked_spans", len(report.BlockedSpans)).
			Int("covered", report.Covered).Int("created", len(report.Created)).
			Bool("dry_run", report.DryRun).Msg("sync complete")

	case "changes":
		detector := changes.NewDetector(calendar, database, notifier, loc, logger)
		detected, err := detector.Run(ctx, time.Duration(*daysBack)*24*time.Hour)
		if err != nil {
			logger.Fatal().Err(err).Msg("change detection failed")
		}
		logger.Info().Int("changes", len(detected)).Msg("change detection complete")

	default:
		logger.Fatal().Str("mode", *mode).Msg("unknown mode; use sync or changes")
	}
}
