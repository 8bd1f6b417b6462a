package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	base "github.com/wavesplatform/push-notifications/libs/config"
)

type RedisConfig struct {
	Addr     string
	User     string
	Password string
	Stream   string
	Group    string
	Consumer string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

type StreamConfig struct {
	// "redis" or "kafka".
	Backend string
	Redis   RedisConfig
	Kafka   KafkaConfig
}

type ProcessorConfig struct {
	BatchSize       int
	TranslationsURL string
}

type Config struct {
	App       base.AppConfig
	Stream    StreamConfig
	Processor ProcessorConfig
}

func Load() (*Config, error) {
	appCfg, err := base.Load(os.Getenv("PUSH_CONFIG"))
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "processor-orders"
	}

	cfg := &Config{
		App: *appCfg,
		Stream: StreamConfig{
			Backend: envString("PUSH_STREAM_BACKEND", "redis"),
			Redis: RedisConfig{
				Addr:     envString("PUSH_REDIS_ADDR", "localhost:6379"),
				User:     envString("PUSH_REDIS_USER", ""),
				Password: envString("PUSH_REDIS_PASSWORD", ""),
				Stream:   envString("PUSH_REDIS_STREAM", "orders.status.updates"),
				Group:    envString("PUSH_REDIS_GROUP", "push-notifications"),
				Consumer: envString("PUSH_REDIS_CONSUMER", hostname),
			},
			Kafka: KafkaConfig{
				Brokers: envCSV("PUSH_KAFKA_BROKERS", []string{"localhost:9092"}),
				Topic:   envString("PUSH_KAFKA_TOPIC", "orders.status.updates"),
				Group:   envString("PUSH_KAFKA_GROUP", "push-notifications"),
			},
		},
		Processor: ProcessorConfig{
			BatchSize:       envInt("PUSH_BATCH_SIZE", 100),
			TranslationsURL: envString("PUSH_TRANSLATIONS_URL", ""),
		},
	}

	switch cfg.Stream.Backend {
	case "redis":
		if cfg.Stream.Redis.Addr == "" {
			return nil, fmt.Errorf("PUSH_REDIS_ADDR required")
		}
	case "kafka":
		if len(cfg.Stream.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("PUSH_KAFKA_BROKERS required")
		}
	default:
		return nil, fmt.Errorf("unknown stream backend %q", cfg.Stream.Backend)
	}
	if cfg.Processor.BatchSize <= 0 {
		return nil, fmt.Errorf("PUSH_BATCH_SIZE must be positive")
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

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envCSV(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
