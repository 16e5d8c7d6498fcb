package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinTokenSecretLength is the shortest acceptable action-token secret.
// A short or missing secret is a configuration error, never something to
// paper over with a fallback to another application secret.
const MinTokenSecretLength = 32

type Config struct {
	Server struct {
		Port    int    `yaml:"port"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Database struct {
		Path   string `yaml:"path"`
		Backup struct {
			Enabled       bool   `yaml:"enabled"`
			StoragePath   string `yaml:"storage_path"`
			IntervalHours int    `yaml:"interval_hours"`
			RetentionDays int    `yaml:"retention_days"`
		} `yaml:"backup"`
	} `yaml:"database"`

	Google struct {
		CredentialsPath string `yaml:"credentials_path"`
		CalendarID      string `yaml:"calendar_id"`
	} `yaml:"google"`

	Property struct {
		Name      string `yaml:"name"`
		Location  string `yaml:"location"`
		URL       string `yaml:"url"` // listing page carrying the calendar widget
		MaxGuests int    `yaml:"max_guests"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"property"`

	Booking struct {
		AdvanceDays   int `yaml:"advance_days"`
		MinStayNights int `yaml:"min_stay_nights"`
		MaxStayNights int `yaml:"max_stay_nights"`
	} `yaml:"booking"`

	Sync struct {
		MonthsAhead   int `yaml:"months_ahead"`
		IntervalHours int `yaml:"interval_hours"`
	} `yaml:"sync"`

	Tokens struct {
		Secret          string `yaml:"secret"`
		ExpirationHours int    `yaml:"expiration_hours"`
	} `yaml:"tokens"`

	Mail struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Sender   string `yaml:"sender"`
		UseTLS   bool   `yaml:"use_tls"`
	} `yaml:"mail"`

	Notify struct {
		ApprovalEmail      string   `yaml:"approval_email"`
		NotificationEmails []string `yaml:"notification_emails"`
		AdminEmail         string   `yaml:"admin_email"`
		Telegram           struct {
			BotToken string `yaml:"bot_token"`
			ChatID   int64  `yaml:"chat_id"`
		} `yaml:"telegram"`
	} `yaml:"notify"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/bayfront.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Property.Timezone == "" {
		cfg.Property.Timezone = "America/Chicago"
	}
	if cfg.Property.MaxGuests == 0 {
		cfg.Property.MaxGuests = 10
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks operator-facing settings and fails fast on anything
// that would make the system unsafe to run.
func (c *Config) Validate() error {
	var issues []string

	if len(c.Tokens.Secret) < MinTokenSecretLength {
		issues = append(issues, fmt.Sprintf("tokens.secret must be at least %d characters", MinTokenSecretLength))
	}
	if c.Google.CredentialsPath == "" {
		issues = append(issues, "google.credentials_path is required")
	} else if _, err := os.Stat(c.Google.CredentialsPath); err != nil {
		issues = append(issues, fmt.Sprintf("google credentials file not found: %s", c.Google.CredentialsPath))
	}
	if c.Google.CalendarID == "" || !strings.Contains(c.Google.CalendarID, "@") {
		issues = append(issues, "google.calendar_id is not properly configured")
	}
	if c.Notify.ApprovalEmail == "" || !strings.Contains(c.Notify.ApprovalEmail, "@") {
		issues = append(issues, "notify.approval_email is not properly configured")
	}
	if len(c.NotificationEmails()) == 0 {
		issues = append(issues, "notify.notification_emails is not properly configured")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http") {
		issues = append(issues, "server.base_url must be a valid HTTP/HTTPS URL")
	}
	if !strings.HasPrefix(c.Property.URL, "http") {
		issues = append(issues, "property.url must be a valid HTTP/HTTPS URL")
	}
	if _, err := time.LoadLocation(c.Property.Timezone); err != nil {
		issues = append(issues, fmt.Sprintf("property.timezone is invalid: %s", c.Property.Timezone))
	}

	if len(issues) > 0 {
		return fmt.Errorf("configuration invalid:\n  - %s", strings.Join(issues, "\n  - "))
	}
	return nil
}

// NotificationEmails returns the stakeholder list with blanks and
// malformed entries dropped.
func (c *Config) NotificationEmails() []string {
	var emails []string
	for _, e := range c.Notify.NotificationEmails {
		e = strings.TrimSpace(e)
		if e != "" && strings.Contains(e, "@") {
			emails = append(emails, e)
		}
	}
	return emails
}

func (c *Config) TokenMaxAge() time.Duration {
	if c.Tokens.ExpirationHours <= 0 {
		return 48 * time.Hour
	}
	return time.Duration(c.Tokens.ExpirationHours) * time.Hour
}

func (c *Config) MinStay() int {
	if c.Booking.MinStayNights <= 0 {
		return 2
	}
	return c.Booking.MinStayNights
}

func (c *Config) MaxStay() int {
	if c.Booking.MaxStayNights <= 0 {
		return 30
	}
	return c.Booking.MaxStayNights
}

func (c *Config) AdvanceWindow() time.Duration {
	days := c.Booking.AdvanceDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// SyncWindow is how far ahead reconciliation looks.
func (c *Config) SyncWindow() time.Duration {
	months := c.Sync.MonthsAhead
	if months <= 0 {
		months = 6
	}
	return time.Duration(months) * 30 * 24 * time.Hour
}

// Location resolves the property timezone. Validate has already checked
// that the zone parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Property.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Database.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Database.Backup.IntervalHours) * time.Hour
}
