package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"bayfront/internal/api"
	"bayfront/internal/availability"
	"bayfront/internal/booking"
	"bayfront/internal/changes"
	"bayfront/internal/config"
	"bayfront/internal/db"
	"bayfront/internal/export"
	"bayfront/internal/gcal"
	"bayfront/internal/metrics"
	"bayfront/internal/notify"
	"bayfront/internal/reconcile"
	"bayfront/internal/scraper"
	"bayfront/internal/token"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("BAYFRONT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("refusing to start with invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.Redis.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		calendar.UseRedisCache(rdb, cfg.CacheTTL())
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
		tg, err := notify.NewTelegramNotifier(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID, logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram channel unavailable, alerts fall back to email")
		} else {
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

	tokens, err := token.New(cfg.Tokens.Secret, cfg.TokenMaxAge())
	if err != nil {
		logger.Fatal().Err(err).Msg("token service error")
	}

	checker := availability.NewChecker(calendar, logger)
	bookings := booking.NewService(database, checker, calendar, tokens, notifier, booking.Options{
		BaseURL:       cfg.Server.BaseURL,
		MinStay:       cfg.MinStay(),
		MaxStay:       cfg.MaxStay(),
		MaxGuests:     cfg.Property.MaxGuests,
		AdvanceWindow: cfg.AdvanceWindow(),
		Location:      loc,
	}, logger)

	listing := scraper.New(cfg.Property.URL, loc, logger)
	engine := reconcile.NewEngine(calendar, listing, database, notifier, cfg.SyncWindow(), loc, logger)
	detector := changes.NewDetector(calendar, database, notifier, loc, logger)

	exportWorkbook := func(ctx context.Context, out io.Writer) error {
		return export.WriteBookingsWorkbook(ctx, database, out)
	}

	server := api.NewHTTPServer(bookings, tokens, calendar, engine, detector,
		exportWorkbook, loc, logger)

	if cfg.Sync.IntervalHours > 0 {
		go runPeriodicSync(ctx, engine, detector, time.Duration(cfg.Sync.IntervalHours)*time.Hour, logger)
	}

	if cfg.Database.Backup.Enabled {
		go runPeriodicBackup(ctx, database, cfg, logger)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Str("property", cfg.Property.Name).Msg("booking server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// runPeriodicSync alternates reconciliation and change detection on the
// configured interval. Failures are logged and alerted inside the runs.
func runPeriodicSync(ctx context.Context, engine *reconcile.Engine, detector *changes.Detector,
	interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.Run(ctx, false); err != nil {
				logger.Error().Err(err).Msg("periodic sync failed")
			}
			if _, err := detector.Run(ctx, 0); err != nil {
				logger.Error().Err(err).Msg("periodic change detection failed")
			}
		}
	}
}

func runPeriodicBackup(ctx context.Context, database *db.DB, cfg *config.Config, logger zerolog.Logger) {
	opts := db.BackupOptions{
		StoragePath:   cfg.Database.Backup.StoragePath,
		Interval:      cfg.BackupInterval(),
		RetentionDays: cfg.Database.Backup.RetentionDays,
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	if err := database.Backup(cfg.Database.Path, opts, logger); err != nil {
		logger.Error().Err(err).Msg("initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := database.Backup(cfg.Database.Path, opts, logger); err != nil {
				logger.Error().Err(err).Msg("scheduled backup failed")
			}
			db.CleanupOldBackups(opts, logger)
		}
	}
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
