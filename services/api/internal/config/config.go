package config

import (
	"fmt"
	"os"
	"strconv"

	base "github.com/wavesplatform/push-notifications/libs/config"
)

type APIConfig struct {
	MaxSubscriptionsPerAddress int
}

type Config struct {
	App base.AppConfig
	API APIConfig
}

func Load() (*Config, error) {
	appCfg, err := base.Load(os.Getenv("PUSH_CONFIG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: *appCfg,
		API: APIConfig{
			MaxSubscriptionsPerAddress: envInt("PUSH_MAX_SUBSCRIPTIONS", 50),
		},
	}

	if cfg.API.MaxSubscriptionsPerAddress <= 0 {
		return nil, fmt.Errorf("PUSH_MAX_SUBSCRIPTIONS must be positive")
	}

	return cfg, nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
