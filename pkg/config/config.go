package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Period        PeriodConfig
	Import        ImportConfig
	Cron          CronConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	LogLevel       string
}

// PeriodConfig controls how pay-cycle periods are cut.
type PeriodConfig struct {
	StartDay int
	Locale   string
	Location *time.Location
}

// ImportConfig controls statement ingestion.
type ImportConfig struct {
	AccountName string
	// ArchiveDir is where uploaded statements are kept. Empty disables archiving.
	ArchiveDir  string
	MaxFileSize int64
	// NoiseTokens replace the words stripped from descriptions when a rule
	// is learned. Empty keeps the built-in list.
	NoiseTokens []string
}

type CronConfig struct {
	Enabled       bool
	PeriodRefresh string
}

// Load reads configuration from environment variables, after loading a
// .env file from the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	tz := getEnv("PERIOD_TIMEZONE", "Europe/Stockholm")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid PERIOD_TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8000),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "paycycle"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
		},
		Period: PeriodConfig{
			StartDay: getEnvAsInt("PERIOD_START_DAY", 25),
			Locale:   getEnv("PERIOD_LOCALE", "sv"),
			Location: loc,
		},
		Import: ImportConfig{
			AccountName: getEnv("IMPORT_ACCOUNT_NAME", "SEB"),
			ArchiveDir:  getEnv("IMPORT_ARCHIVE_DIR", ""),
			MaxFileSize: int64(getEnvAsInt("IMPORT_MAX_FILE_SIZE", 10<<20)),
			NoiseTokens: getEnvAsList("IMPORT_NOISE_TOKENS", nil),
		},
		Cron: CronConfig{
			Enabled:       getEnvAsBool("CRON_ENABLED", true),
			PeriodRefresh: getEnv("CRON_PERIOD_REFRESH", "0 3 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Period.StartDay < 1 || c.Period.StartDay > 28 {
		return fmt.Errorf("PERIOD_START_DAY must be between 1 and 28, got %d", c.Period.StartDay)
	}
	switch c.Period.Locale {
	case "sv", "en":
	default:
		return fmt.Errorf("PERIOD_LOCALE must be sv or en, got %q", c.Period.Locale)
	}
	if strings.TrimSpace(c.Import.AccountName) == "" {
		return errors.New("IMPORT_ACCOUNT_NAME must not be empty")
	}
	if c.Import.MaxFileSize <= 0 {
		return errors.New("IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Server.RateLimitPerSecond <= 0 {
		return errors.New("SERVER_RATE_LIMIT_PER_SECOND must be positive")
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
