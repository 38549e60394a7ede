package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mrlokans/bookshelf/internal/logger"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeBasic AuthMode = "basic" // HTTP basic auth on write routes
)

type (
	Config struct {
		HTTP
		Global
		Database
		Books
		UI
		Auth
		ReadOnly
		Audit
		Tasks
		Logger logger.Config
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path     string
		LogLevel string // gorm logger level: silent, error, warn, info
	}
	Books struct {
		Prefix   string // Mount prefix for the book pages
		PageSize int
	}
	UI struct {
		TemplatesPath string // Overrides the embedded templates when set
		StaticPath    string
	}
	Auth struct {
		Mode            AuthMode
		Username        string
		PasswordHash    string // bcrypt hash, see the hash-password command
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS
		BcryptCost      int

		// Basic auth lockout: MaxFailures bad attempts within FailureWindow
		// lock that address and username out for LockoutDuration.
		MaxFailures     int
		FailureWindow   time.Duration
		LockoutDuration time.Duration
	}
	ReadOnly struct {
		Enabled bool // Reject every write request
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

// loadEnvFile copies variables from path into the process environment.
// Variables already set win; a missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// NewConfig reads configuration from the environment, after loading the
// default .env file when one exists.
func NewConfig() (*Config, error) {
	return Load(DefaultEnvFile)
}

// Load is NewConfig with an explicit .env path ("" skips the file).
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_log_level", "warn")
	v.SetDefault("books_prefix", DefaultBooksPrefix)
	v.SetDefault("books_page_size", 20)
	v.SetDefault("templates_path", "")
	v.SetDefault("static_path", "./static")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_username", "admin")
	v.SetDefault("auth_password_hash", "")
	v.SetDefault("auth_session_secret", "") // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_max_failures", 5)
	v.SetDefault("auth_failure_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	v.SetDefault("read_only", false)

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Logger defaults are filled by logger.New
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", "")
	v.SetDefault("app_env", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:     v.GetString("DATABASE_PATH"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Books: Books{
			Prefix:   v.GetString("BOOKS_PREFIX"),
			PageSize: v.GetInt("BOOKS_PAGE_SIZE"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Auth: Auth{
			Mode:            AuthMode(v.GetString("AUTH_MODE")),
			Username:        v.GetString("AUTH_USERNAME"),
			PasswordHash:    v.GetString("AUTH_PASSWORD_HASH"),
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			MaxFailures:     v.GetInt("AUTH_MAX_FAILURES"),
			FailureWindow:   v.GetDuration("AUTH_FAILURE_WINDOW"),
			LockoutDuration: v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		ReadOnly: ReadOnly{
			Enabled: v.GetBool("READ_ONLY"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Logger: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Env:    v.GetString("APP_ENV"),
		},
	}, nil
}
