package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const fetchBlock = 2 * time.Second

type RedisConfig struct {
	Addr     string
	User     string
	Password string
	Stream   string
	Group    string
	Consumer string
}

// RedisSource reads order events from a Redis Stream through a consumer
// group: each entry is delivered to one group member until XACKed, and
// pending entries of this consumer are replayed first after a restart.
type RedisSource struct {
	client     *redis.Client
	cfg        RedisConfig
	logger     *slog.Logger
	recovering bool
}

func NewRedisSource(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisSource, error) {
	if cfg.Stream == "" || cfg.Group == "" || cfg.Consumer == "" {
		return nil, fmt.Errorf("redis stream, group and consumer names required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.User,
		Password: cfg.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	err := client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		client.Close()
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &RedisSource{
		client: client,
		cfg:    cfg,
		logger: logger,
		// Replay entries delivered to this consumer but never acknowledged
		// before the previous shutdown.
		recovering: true,
	}, nil
}

func (s *RedisSource) Fetch(ctx context.Context, max int) ([]Entry, error) {
	cursor := ">"
	if s.recovering {
		cursor = "0"
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, cursor},
		Count:    int64(max),
		Block:    fetchBlock,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	var entries []Entry
	for _, str := range streams {
		for _, msg := range str.Messages {
			data, ok := payload(msg)
			if !ok {
				s.logger.Warn("stream entry without payload", "id", msg.ID)
				// Ack immediately, it will never become decodable.
				if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, msg.ID).Err(); err != nil {
					return nil, fmt.Errorf("xack empty entry: %w", err)
				}
				continue
			}
			entries = append(entries, Entry{ID: msg.ID, Data: data})
		}
	}

	if s.recovering && len(entries) == 0 {
		s.logger.Info("pending entries replayed, switching to live stream")
		s.recovering = false
	}
	return entries, nil
}

func (s *RedisSource) Ack(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}

func payload(msg redis.XMessage) ([]byte, bool) {
	if v, ok := msg.Values["data"]; ok {
		if str, ok := v.(string); ok {
			return []byte(str), true
		}
	}
	// Single-field entries carry the payload under an arbitrary key.
	if len(msg.Values) == 1 {
		for _, v := range msg.Values {
			if str, ok := v.(string); ok {
				return []byte(str), true
			}
		}
	}
	return nil, false
}
