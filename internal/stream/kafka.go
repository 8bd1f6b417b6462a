package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// KafkaSource adapts a Kafka consumer group to the Fetch/Ack contract.
// Claimed messages are buffered in a channel without being marked; Ack marks
// their offsets, so an entry processed but not acknowledged before a crash
// is redelivered to the group after rebalance.
type KafkaSource struct {
	group   sarama.ConsumerGroup
	entries chan Entry
	cancel  context.CancelFunc
	done    chan struct{}
	logger  *slog.Logger
}

func NewKafkaSource(cfg KafkaConfig, logger *slog.Logger) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	if cfg.Topic == "" || cfg.Group == "" {
		return nil, fmt.Errorf("kafka topic and consumer group required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	sc := sarama.NewConfig()
	sc.Version = sarama.V3_7_0_0
	sc.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Group.Session.Timeout = 30 * time.Second
	sc.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.Group, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &KafkaSource{
		group:   group,
		entries: make(chan Entry),
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  logger,
	}

	go func() {
		defer close(s.done)
		handler := &claimHandler{entries: s.entries}
		for {
			if err := group.Consume(ctx, []string{cfg.Topic}, handler); err != nil {
				logger.Error("kafka consume error", "error", err)
				if ctx.Err() != nil {
					return
				}
				time.Sleep(2 * time.Second)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return s, nil
}

func (s *KafkaSource) Fetch(ctx context.Context, max int) ([]Entry, error) {
	var entries []Entry

	// Block for the first entry, then drain whatever is immediately
	// available up to max.
	select {
	case e := <-s.entries:
		entries = append(entries, e)
	case <-time.After(fetchBlock):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for len(entries) < max {
		select {
		case e := <-s.entries:
			entries = append(entries, e)
		default:
			return entries, nil
		}
	}
	return entries, nil
}

func (s *KafkaSource) Ack(_ context.Context, entries []Entry) error {
	for _, e := range entries {
		if e.mark != nil {
			e.mark()
		}
	}
	return nil
}

func (s *KafkaSource) Close() error {
	s.cancel()
	<-s.done
	return s.group.Close()
}

type claimHandler struct {
	entries chan Entry
}

func (h *claimHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		msg := msg
		entry := Entry{
			ID:   fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
			Data: msg.Value,
			mark: func() { session.MarkMessage(msg, "") },
		}
		select {
		case h.entries <- entry:
		case <-session.Context().Done():
			return nil
		}
	}
	return nil
}
