package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StrategyTemplate   = "template"
	StrategyGenerative = "generative"

	DeliverySend = "send"
	DeliveryNone = "none"
)

// Config holds all application configuration. It is built once at startup and
// handed to constructors; nothing reads the environment after LoadConfig.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Notify   NotifyConfig
	GenAI    GenAIConfig
	Redis    RedisConfig
	Log      LogConfig

	// DotEnvLoaded reports whether a .env file was found.
	DotEnvLoaded bool
}

type HTTPConfig struct {
	Port            string `validate:"required,numeric"`
	StaticDir       string
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

type DatabaseConfig struct {
	URL             string `validate:"required"`
	MigrationsPath  string `validate:"required"`
	MaxOpenConns    int    `validate:"gte=1"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxIdleTime time.Duration
}

// SMTPConfig configures the outbound mail transport.
type SMTPConfig struct {
	Host          string
	Port          int `validate:"gte=1,lte=65535"`
	User          string
	Pass          string
	From          string `validate:"omitempty,email"`
	Secure        bool
	SkipTLSVerify bool
	DailyLimit    int    `validate:"gte=1"`
	Timezone      string `validate:"required"`
}

// NotifyConfig configures the expiration scan and its trigger.
type NotifyConfig struct {
	CronSecret       string
	Recipient        string `validate:"omitempty,email"`
	WindowMonths     int    `validate:"gte=1,lte=24"`
	Schedule         string `validate:"required"`
	Timezone         string `validate:"required"`
	Strategy         string `validate:"oneof=template generative"`
	DeliveryMode     string `validate:"oneof=send none"`
	GeneratorTimeout time.Duration `validate:"gt=0"`
	DeliveryTimeout  time.Duration `validate:"gt=0"`
	LockTTL          time.Duration `validate:"gt=0"`
}

type GenAIConfig struct {
	BaseURL string `validate:"omitempty,url"`
	APIKey  string
	Model   string
	Timeout time.Duration `validate:"gt=0"`
}

type RedisConfig struct {
	URL string
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// LoadConfig reads configuration from an optional .env file and the environment.
func LoadConfig() (*Config, error) {
	loaded := godotenv.Load() == nil

	cfg := &Config{
		HTTP: HTTPConfig{
			Port:            getEnv("PORT", "8080"),
			StaticDir:       getEnv("STATIC_DIR", "./web"),
			ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "./database/migrations"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxIdleTime: getDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		SMTP: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          getInt("SMTP_PORT", 25),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			From:          os.Getenv("SMTP_FROM"),
			Secure:        getBool("SMTP_SECURE", false),
			SkipTLSVerify: getBool("SMTP_SKIP_TLS_VERIFY", false),
			DailyLimit:    getInt("DAILY_MAIL_LIMIT", 2000),
			Timezone:      getEnv("MAIL_TIMEZONE", "UTC"),
		},
		Notify: NotifyConfig{
			CronSecret:       os.Getenv("CRON_SECRET"),
			Recipient:        os.Getenv("EMAIL_RECIPIENT"),
			WindowMonths:     getInt("NOTIFY_WINDOW_MONTHS", 4),
			Schedule:         getEnv("SCAN_SCHEDULE", "0 0 * * *"),
			Timezone:         getEnv("SCAN_TIMEZONE", "UTC"),
			Strategy:         strings.ToLower(getEnv("GENERATOR_STRATEGY", StrategyTemplate)),
			DeliveryMode:     strings.ToLower(getEnv("DELIVERY_MODE", DeliverySend)),
			GeneratorTimeout: getDuration("GENERATOR_TIMEOUT", 30*time.Second),
			DeliveryTimeout:  getDuration("DELIVERY_TIMEOUT", 30*time.Second),
			LockTTL:          getDuration("SCAN_LOCK_TTL", 15*time.Minute),
		},
		GenAI: GenAIConfig{
			BaseURL: strings.TrimRight(os.Getenv("GENAI_BASE_URL"), "/"),
			APIKey:  os.Getenv("GENAI_API_KEY"),
			Model:   os.Getenv("GENAI_MODEL"),
			Timeout: getDuration("GENAI_TIMEOUT", 25*time.Second),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		DotEnvLoaded: loaded,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the rules that span sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var errs []error
	if c.Notify.DeliveryMode == DeliverySend && c.SMTP.Host == "" {
		errs = append(errs, errors.New("SMTP_HOST is required when DELIVERY_MODE=send"))
	}
	if c.Notify.DeliveryMode == DeliverySend && c.SMTP.From == "" && c.SMTP.User == "" {
		errs = append(errs, errors.New("SMTP_FROM or SMTP_USER is required when DELIVERY_MODE=send"))
	}
	if c.Notify.Strategy == StrategyGenerative {
		if c.GenAI.BaseURL == "" {
			errs = append(errs, errors.New("GENAI_BASE_URL is required for the generative strategy"))
		}
		if c.GenAI.Model == "" {
			errs = append(errs, errors.New("GENAI_MODEL is required for the generative strategy"))
		}
	}
	if _, err := time.LoadLocation(c.Notify.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("SCAN_TIMEZONE: %w", err))
	}
	if _, err := time.LoadLocation(c.SMTP.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("MAIL_TIMEZONE: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ScanLocation returns the timezone the scan window and schedule use.
func (c *Config) ScanLocation() *time.Location {
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MailLocation returns the timezone used to bucket email logs by day.
func (c *Config) MailLocation() *time.Location {
	loc, err := time.LoadLocation(c.SMTP.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getBool accepts true/false, 1/0 and the YES/NO spelling older deployments used.
func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "yes", "y":
		return true
	case "no", "n":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
