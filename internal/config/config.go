package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL     string
	JWTSecret       string
	LogLevel        string
	PrometheusPort  string
	Port            string
	ReservationMode string
	ConfirmationTTL time.Duration
	SweepInterval   time.Duration
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	TelegramToken   string
	TelegramChatID  int64
	SMTPAddr        string
	SMTPFrom        string
	PublicBaseURL   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		PrometheusPort:  getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		Port:            getEnvOrDefault("PORT", "8080"),
		ReservationMode: getEnvOrDefault("RESERVATION_MODE", "immediate"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		SMTPAddr:        os.Getenv("SMTP_ADDR"),
		SMTPFrom:        getEnvOrDefault("SMTP_FROM", "noreply@giftwish.local"),
		PublicBaseURL:   getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
	}

	// Required environment variables
	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.JWTSecret = os.Getenv("JWT_SECRET"); cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if cfg.ReservationMode != "immediate" && cfg.ReservationMode != "confirm" {
		return nil, fmt.Errorf("RESERVATION_MODE must be 'immediate' or 'confirm', got %q", cfg.ReservationMode)
	}

	ttlHours, err := getEnvInt("CONFIRMATION_TTL_HOURS", 72)
	if err != nil {
		return nil, err
	}
	cfg.ConfirmationTTL = time.Duration(ttlHours) * time.Hour

	sweepMinutes, err := getEnvInt("SWEEP_INTERVAL_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval = time.Duration(sweepMinutes) * time.Minute

	if cfg.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err)
		}
		cfg.TelegramChatID = chatID
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}
