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

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ChangefeedRedis = "redis"
	ChangefeedLocal = "local"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	SessionSecret string
	SessionMaxAge time.Duration

	GinMode  string
	LogLevel string
	HTTPAddr string

	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	PollInterval   time.Duration

	DeadlineCheckInterval time.Duration
	DeadlineWarningWindow time.Duration

	OpenAIAPIKey      string
	ChangefeedBackend string
}

// Load reads configuration from the environment. Values from a .env file in
// the working directory fill in variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		DBDriver:          getEnv("DB_DRIVER", DriverMySQL),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBUser:            getEnv("DB_USER", "taskuser"),
		DBPassword:        getEnv("DB_PASSWORD", "taskpassword"),
		DBName:            getEnv("DB_NAME", "task_approval"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		SessionSecret:     getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		ChangefeedBackend: getEnv("CHANGEFEED_BACKEND", ChangefeedRedis),
	}

	var err error
	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"SESSION_MAX_AGE", 7 * 24 * time.Hour, &cfg.SessionMaxAge},
		{"REQUEST_TIMEOUT", 15 * time.Second, &cfg.RequestTimeout},
		{"READ_TIMEOUT", 5 * time.Second, &cfg.ReadTimeout},
		{"POLL_INTERVAL", 5 * time.Second, &cfg.PollInterval},
		{"DEADLINE_CHECK_INTERVAL", 5 * time.Minute, &cfg.DeadlineCheckInterval},
		{"DEADLINE_WARNING_WINDOW", 24 * time.Hour, &cfg.DeadlineWarningWindow},
	}
	for _, d := range durations {
		if *d.dest, err = getDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be mysql, postgres or sqlite, got %q", c.DBDriver))
	}

	switch c.ChangefeedBackend {
	case ChangefeedRedis, ChangefeedLocal:
	default:
		errs = append(errs, fmt.Errorf("CHANGEFEED_BACKEND must be redis or local, got %q", c.ChangefeedBackend))
	}

	if c.IsProduction() && c.SessionSecret == "default-secret-key-change-me" {
		errs = append(errs, errors.New("SESSION_SECRET must be set in release mode"))
	}

	positive := map[string]time.Duration{
		"SESSION_MAX_AGE":         c.SessionMaxAge,
		"REQUEST_TIMEOUT":         c.RequestTimeout,
		"READ_TIMEOUT":            c.ReadTimeout,
		"POLL_INTERVAL":           c.PollInterval,
		"DEADLINE_CHECK_INTERVAL": c.DeadlineCheckInterval,
		"DEADLINE_WARNING_WINDOW": c.DeadlineWarningWindow,
	}
	for key, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getDuration accepts Go durations ("15s") or plain seconds ("15").
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
