package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mail driver constants
const (
	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

// Artifact store constants
const (
	ArtifactStoreLocal  = "local"
	ArtifactStoreMemory = "memory"
	ArtifactStoreRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool
	LogLevel     string

	// Session settings
	SessionSecret string
	SessionMaxAge int // seconds

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Owner and mail delivery
	OwnerEmail   string
	MailDriver   string // "smtp" or "log"
	MailFrom     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string // application-specific password

	// Request lifecycle
	ApprovalWindow         time.Duration // 0 disables the window
	ActionLinkTTL          time.Duration
	RequireEmailOnRedirect bool
	DefaultFileLink        string // used by tokenless submissions, empty disables them

	// QR artifacts
	QRSize        int
	ArtifactStore string // "local", "memory" or "redis"
	ArtifactDir   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Operator access
	OperatorToken string // Bearer token for /debug/requests, empty disables the endpoint

	// Prometheus Metrics settings
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateInterval time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "qrgate.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	ownerEmail := getEnv("OWNER_EMAIL", "")

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		IsProduction: getEnv("ENVIRONMENT", "development") == "production",
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 86400),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		OwnerEmail:   ownerEmail,
		MailDriver:   getEnv("MAIL_DRIVER", MailDriverSMTP),
		MailFrom:     getEnv("MAIL_FROM", ownerEmail),
		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 465),
		SMTPUsername: getEnv("SMTP_USERNAME", ownerEmail),
		SMTPPassword: getEnv("APP_PASSWORD", ""),

		ApprovalWindow:         getEnvDuration("APPROVAL_WINDOW", 24*time.Hour),
		ActionLinkTTL:          getEnvDuration("ACTION_LINK_TTL", 72*time.Hour),
		RequireEmailOnRedirect: getEnvBool("REQUIRE_EMAIL_ON_REDIRECT", true),
		DefaultFileLink:        getEnv("DEFAULT_FILE_LINK", ""),

		QRSize:        getEnvInt("QR_SIZE", 256),
		ArtifactStore: getEnv("ARTIFACT_STORE", ArtifactStoreLocal),
		ArtifactDir:   getEnv("ARTIFACT_DIR", "static/qr"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OperatorToken: getEnv("OPERATOR_TOKEN", ""),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", time.Minute),
	}
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}

	if c.OwnerEmail == "" {
		return errors.New("OWNER_EMAIL is required")
	}

	switch c.MailDriver {
	case MailDriverSMTP:
		if c.SMTPHost == "" || c.SMTPPort <= 0 {
			return errors.New("SMTP_HOST and SMTP_PORT are required when MAIL_DRIVER=smtp")
		}
		if c.SMTPPassword == "" {
			return errors.New("APP_PASSWORD is required when MAIL_DRIVER=smtp")
		}
	case MailDriverLog:
	default:
		return fmt.Errorf("invalid MAIL_DRIVER: %s (must be: smtp, log)", c.MailDriver)
	}

	switch c.ArtifactStore {
	case ArtifactStoreLocal:
		if c.ArtifactDir == "" {
			return errors.New("ARTIFACT_DIR is required when ARTIFACT_STORE=local")
		}
	case ArtifactStoreMemory:
	case ArtifactStoreRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when ARTIFACT_STORE=redis")
		}
	default:
		return fmt.Errorf(
			"invalid ARTIFACT_STORE: %s (must be: local, memory, redis)",
			c.ArtifactStore,
		)
	}

	if c.ApprovalWindow < 0 {
		return errors.New("APPROVAL_WINDOW must not be negative")
	}
	if c.ActionLinkTTL <= 0 {
		return errors.New("ACTION_LINK_TTL must be positive")
	}
	if c.QRSize < 21 {
		return fmt.Errorf("QR_SIZE must be at least 21 pixels, got %d", c.QRSize)
	}

	if c.IsProduction && c.SessionSecret == "session-secret-change-in-production" {
		return errors.New("SESSION_SECRET must be changed in production")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
