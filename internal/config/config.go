package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (unlock notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Remote document store
	FirestoreProjectID string
	AccountID          string

	// Persistence debounce: quiet period before a pending snapshot is
	// flushed to the store.
	SaveDebounce time.Duration

	// History view
	HistoryLimit int

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/coffee.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "coffeecounter"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "achievement_unlocks"),

		FirestoreProjectID: getEnv("FIRESTORE_PROJECT_ID", ""),
		AccountID:          getEnv("ACCOUNT_ID", ""),

		SaveDebounce: getEnvDuration("SAVE_DEBOUNCE", 2*time.Second),
		HistoryLimit: getEnvInt("HISTORY_LIMIT", 30),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite", "remote"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if a backend needs it
	if c.DataBackend == "sqlite" || c.DataBackend == "remote" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, fmt.Sprintf("SQLite database path cannot be empty when using %s backend", c.DataBackend))
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate remote backend configuration
	if c.DataBackend == "remote" {
		if c.FirestoreProjectID == "" {
			errors = append(errors, "Firestore project id is required when using remote backend")
		}
		if c.AccountID == "" {
			errors = append(errors, "account id is required when using remote backend")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate debounce window
	if c.SaveDebounce < 50*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid save debounce %v: must be at least 50ms", c.SaveDebounce))
	} else if c.SaveDebounce > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid save debounce %v: must be at most 1 minute", c.SaveDebounce))
	}

	if c.HistoryLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid history limit %d: must be at least 1", c.HistoryLimit))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
