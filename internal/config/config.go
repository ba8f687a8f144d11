package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	BrevoAPIKey     string
	FromEmail       string
	FromName        string
	APIToken        string
	ReminderCron    string
	CheckInDays     int
}

func Load() Config {
	// Local development convenience; a missing .env file is fine.
	_ = godotenv.Load()

	return Config{
		Port:            envInt("KEEL_PORT", 8640),
		NatsURL:         envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("KEEL_MODEL", "claude-sonnet-4-20250514"),
		BrevoAPIKey:     envStr("BREVO_API_KEY", ""),
		FromEmail:       envStr("KEEL_FROM_EMAIL", "coach@summitline.io"),
		FromName:        envStr("KEEL_FROM_NAME", "Summitline Coaching"),
		APIToken:        envStr("KEEL_API_TOKEN", ""),
		ReminderCron:    envStr("KEEL_REMINDER_CRON", "@hourly"),
		CheckInDays:     envInt("KEEL_CHECKIN_DAYS", 3),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
