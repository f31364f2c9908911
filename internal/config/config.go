package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the server and CLI commands need from the
// environment. Secrets are read once at startup; there is no hot reload.
type Config struct {
	Addr        string
	DatabaseURL string

	AccessSecret  string
	RefreshSecret string
	AdminSecret   string
	FrontendURL   string

	SMTP      SMTPConfig
	RateLimit RateLimitConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether outbound mail is configured at all.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type RateLimitConfig struct {
	PerSecond int
	Burst     int
}

// Load reads configuration from the environment, sourcing a .env file first
// when running in dev mode.
func Load() Config {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	return Config{
		Addr:        getEnv("OPTIMA_ADDR", ":8080"),
		DatabaseURL: getEnv("OPTIMA_PG_DSN", ""),

		AccessSecret:  getEnv("OPTIMA_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("OPTIMA_REFRESH_SECRET", ""),
		AdminSecret:   getEnv("OPTIMA_ADMIN_SECRET", ""),
		FrontendURL:   getEnv("OPTIMA_FRONTEND_URL", "http://localhost:3000"),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		RateLimit: RateLimitConfig{
			PerSecond: getEnvInt("OPTIMA_RATE_PER_SECOND", 20),
			Burst:     getEnvInt("OPTIMA_RATE_BURST", 40),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err == nil {
			return value
		}
	}
	return defaultValue
}
