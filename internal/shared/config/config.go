package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL        string
	Port               string
	Env                string
	WebhookTimeout     time.Duration
	WorkerPollInterval time.Duration
	WorkerTimeout      time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Port:               os.Getenv("PORT"),
		Env:                os.Getenv("ENV"),
		WebhookTimeout:     envSeconds("WEBHOOK_TIMEOUT_SECONDS", 10),
		WorkerPollInterval: envSeconds("WORKER_POLL_INTERVAL_SECONDS", 5),
		WorkerTimeout:      envSeconds("WORKER_TIMEOUT_SECONDS", 60),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	return cfg
}

func envSeconds(key string, fallback int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * time.Second
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid duration setting, using default")
		return time.Duration(fallback) * time.Second
	}
	return time.Duration(seconds) * time.Second
}
