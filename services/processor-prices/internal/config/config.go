package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	base "github.com/wavesplatform/push-notifications/libs/config"
)

type ProcessorConfig struct {
	DataServiceURL  string
	PollInterval    time.Duration
	StartingHeight  uint64
	TranslationsURL string
}

type Config struct {
	App       base.AppConfig
	Processor ProcessorConfig
}

func Load() (*Config, error) {
	appCfg, err := base.Load(os.Getenv("PUSH_CONFIG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: *appCfg,
		Processor: ProcessorConfig{
			DataServiceURL:  envString("PUSH_DATA_SERVICE_URL", ""),
			PollInterval:    envDuration("PUSH_POLL_INTERVAL", 10*time.Second),
			StartingHeight:  envUint("PUSH_STARTING_HEIGHT", 0),
			TranslationsURL: envString("PUSH_TRANSLATIONS_URL", ""),
		},
	}

	if cfg.Processor.DataServiceURL == "" {
		return nil, fmt.Errorf("PUSH_DATA_SERVICE_URL required")
	}
	if cfg.Processor.PollInterval <= 0 {
		return nil, fmt.Errorf("PUSH_POLL_INTERVAL must be positive")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envUint(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
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
