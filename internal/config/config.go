package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBDSN string

	// CORS
	AllowedOrigins string

	// Read retry policy for transient connectivity errors
	ReadRetryAttempts int
	ReadRetryDelay    time.Duration
	ReadRetryBackoff  float64

	// Months list cap for the dashboard selector
	MonthsLimit int
}

// Load reads configuration from environment variables, with a .env file as
// fallback. Existing environment variables are never overridden.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DBDSN:          getEnv("DB_DSN", ""),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		ReadRetryAttempts: getEnvInt("DB_READ_RETRY_ATTEMPTS", 1),
		ReadRetryDelay:    getEnvDuration("DB_READ_RETRY_DELAY", 700*time.Millisecond),
		ReadRetryBackoff:  getEnvFloat("DB_READ_RETRY_BACKOFF", 1.0),

		MonthsLimit: getEnvInt("MONTHS_LIMIT", 12),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// The database DSN is the one setting the service cannot run without.
	dsn := strings.TrimSpace(c.DBDSN)
	if dsn == "" {
		errors = append(errors, "DB_DSN is not set: cannot connect to the database")
	} else if !strings.Contains(dsn, "//") && !strings.Contains(dsn, "=") {
		errors = append(errors, fmt.Sprintf("invalid DB_DSN '%s': must be a connection URL or key/value string", dsn))
	}

	if c.ReadRetryAttempts < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be at least 0", c.ReadRetryAttempts))
	} else if c.ReadRetryAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be at most 10", c.ReadRetryAttempts))
	}

	if c.ReadRetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry delay %v: must not be negative", c.ReadRetryDelay))
	}

	if c.ReadRetryBackoff < 1.0 {
		errors = append(errors, fmt.Sprintf("invalid retry backoff %v: must be at least 1.0", c.ReadRetryBackoff))
	}

	if c.MonthsLimit < 1 || c.MonthsLimit > 24 {
		errors = append(errors, fmt.Sprintf("invalid months limit %d: must be between 1 and 24", c.MonthsLimit))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AllowedOriginsList splits ALLOWED_ORIGINS into individual origins.
// "*" means any origin.
func (c *Config) AllowedOriginsList() []string {
	raw := strings.TrimSpace(c.AllowedOrigins)
	if raw == "" || raw == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
