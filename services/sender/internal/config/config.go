package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	base "github.com/wavesplatform/push-notifications/libs/config"
)

type SendConfig struct {
	PollInterval      time.Duration
	BatchSize         int
	Workers           int
	MaxAttempts       int
	BackoffInitial    time.Duration
	BackoffMultiplier float64
	RatePerSecond     float64
	FCMCredentials    string
	DryRun            bool
}

type Config struct {
	App  base.AppConfig
	Send SendConfig
}

func Load() (*Config, error) {
	appCfg, err := base.Load(os.Getenv("PUSH_CONFIG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: *appCfg,
		Send: SendConfig{
			PollInterval:      envDuration("PUSH_SEND_POLL_INTERVAL", 5*time.Second),
			BatchSize:         envInt("PUSH_SEND_BATCH_SIZE", 100),
			Workers:           envInt("PUSH_SEND_WORKERS", 8),
			MaxAttempts:       envInt("PUSH_SEND_MAX_ATTEMPTS", 5),
			BackoffInitial:    envDuration("PUSH_SEND_BACKOFF_INITIAL", 10*time.Second),
			BackoffMultiplier: envFloat("PUSH_SEND_BACKOFF_MULTIPLIER", 2),
			RatePerSecond:     envFloat("PUSH_SEND_RATE_PER_SECOND", 100),
			FCMCredentials:    envString("PUSH_FCM_CREDENTIALS", ""),
			DryRun:            envBool("PUSH_SEND_DRY_RUN", false),
		},
	}

	if cfg.Send.BatchSize <= 0 {
		return nil, fmt.Errorf("PUSH_SEND_BATCH_SIZE must be positive")
	}
	if cfg.Send.Workers <= 0 {
		return nil, fmt.Errorf("PUSH_SEND_WORKERS must be positive")
	}
	if cfg.Send.MaxAttempts <= 0 {
		return nil, fmt.Errorf("PUSH_SEND_MAX_ATTEMPTS must be positive")
	}
	if cfg.Send.BackoffMultiplier < 1 {
		return nil, fmt.Errorf("PUSH_SEND_BACKOFF_MULTIPLIER must be at least 1")
	}
	if !cfg.Send.DryRun && cfg.Send.FCMCredentials == "" {
		return nil, fmt.Errorf("PUSH_FCM_CREDENTIALS required unless PUSH_SEND_DRY_RUN is set")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
