// Package config provides environment-driven configuration for the JD2Q service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for optional settings.
const (
	DefaultMinQuestions  = 15
	DefaultMaxJDWords    = 1500
	DefaultGeminiModel   = "models/gemini-2.5-flash"
	DefaultGeminiTimeout = 60 * time.Second
	DefaultPort          = 8080
)

// App holds application-level configuration.
type App struct {
	Port          int
	DatabaseURL   string
	MinQuestions  int           // minimum acceptable question count before a soft warning
	MaxJDWords    int           // maximum job description length in words
	GeminiModel   string        // model identifier for generation calls
	GeminiTimeout time.Duration // outbound call timeout for the model provider
}

// NewApp loads application configuration from environment variables.
// DATABASE_URL is required; everything else has a default.
func NewApp() (*App, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	cfg := &App{
		Port:          GetEnvInt("PORT", DefaultPort),
		DatabaseURL:   databaseURL,
		MinQuestions:  GetEnvInt("MIN_QUESTIONS", DefaultMinQuestions),
		MaxJDWords:    GetEnvInt("MAX_JD_WORDS", DefaultMaxJDWords),
		GeminiModel:   GetEnvString("GEMINI_MODEL", DefaultGeminiModel),
		GeminiTimeout: GetEnvDuration("GEMINI_TIMEOUT", DefaultGeminiTimeout),
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) normalize() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.MinQuestions < 1 {
		return fmt.Errorf("MIN_QUESTIONS must be at least 1, got: %d", c.MinQuestions)
	}
	if c.MaxJDWords < 1 {
		return fmt.Errorf("MAX_JD_WORDS must be at least 1, got: %d", c.MaxJDWords)
	}
	if c.GeminiTimeout < time.Second {
		return fmt.Errorf("GEMINI_TIMEOUT too small: %s", c.GeminiTimeout)
	}
	return nil
}

// GetEnvString gets an environment variable as a string with a default value.
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an environment variable as an integer with a default value.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvDuration gets an environment variable as a duration with a default value.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
