// Package sender drains the message queue and delivers notifications through
// the push gateway. Delivery is at-least-once: a message stays queued until
// it is acknowledged as sent or becomes terminal, either by exhausting the
// retry budget or by a failure that retrying cannot fix.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wavesplatform/push-notifications/internal/backoff"
	"github.com/wavesplatform/push-notifications/internal/gateway"
	"github.com/wavesplatform/push-notifications/internal/model"
)

type Store interface {
	DequeueMessages(ctx context.Context, maxAttempts, limit int) ([]model.Message, error)
	AckMessage(ctx context.Context, uid int64) error
	NackMessage(ctx context.Context, uid int64, attempts int, sendErr string, scheduledFor time.Time) error
	MarkMessageFailed(ctx context.Context, uid int64, maxAttempts int, sendErr string) error
}

type Config struct {
	PollInterval      time.Duration
	BatchSize         int
	Workers           int
	MaxAttempts       int
	BackoffInitial    time.Duration
	BackoffMultiplier float64
	RatePerSecond     float64
}

type Sender struct {
	store   Store
	gw      gateway.Gateway
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

func New(store Store, gw gateway.Gateway, cfg Config, logger *slog.Logger, metrics *Metrics) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "push-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Sender{
		store:   store,
		gw:      gw,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker,
		now:     time.Now,
	}
}

// Run polls the queue until the context is cancelled.
func (s *Sender) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgs, err := s.store.DequeueMessages(ctx, s.cfg.MaxAttempts, s.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("dequeue failed", "error", err)
			if !s.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		s.metrics.QueueBatchSize.Observe(float64(len(msgs)))

		if len(msgs) == 0 {
			if !s.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		s.sendBatch(ctx, msgs)
	}
}

func (s *Sender) sendBatch(ctx context.Context, msgs []model.Message) {
	queue := make(chan model.Message)
	var wg sync.WaitGroup

	workers := s.cfg.Workers
	if workers > len(msgs) {
		workers = len(msgs)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range queue {
				s.process(ctx, msg)
			}
		}()
	}

	for _, msg := range msgs {
		select {
		case queue <- msg:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(queue)
	wg.Wait()
}

func (s *Sender) process(ctx context.Context, msg model.Message) {
	// A message whose device was unregistered after enqueueing has no token
	// to deliver to and never will.
	if msg.FcmUID == "" {
		s.terminal(ctx, msg, "device no longer registered", "orphaned")
		return
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	start := s.now()
	// Permanent failures are valid gateway responses and must not trip the
	// breaker, so they come back through the result value.
	res, err := s.breaker.Execute(func() (interface{}, error) {
		sendErr := s.gw.Send(ctx, buildNotification(msg))
		if sendErr != nil && gateway.Permanent(sendErr) {
			return sendErr, nil
		}
		return nil, sendErr
	})
	s.metrics.SendDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		// Leave the message untouched; it stays due and the next poll
		// retries without burning an attempt.
		s.metrics.SendFailures.WithLabelValues("deferred").Inc()

	case err != nil:
		s.retry(ctx, msg, err)

	case res != nil:
		s.terminal(ctx, msg, res.(error).Error(), "permanent")

	default:
		if err := s.store.AckMessage(ctx, msg.UID); err != nil {
			s.logger.Error("ack failed", "uid", msg.UID, "error", err)
			return
		}
		s.metrics.MessagesSent.Inc()
	}
}

func (s *Sender) retry(ctx context.Context, msg model.Message, sendErr error) {
	attempts := msg.SendAttemptsCount + 1
	delay := backoff.Exponential(s.cfg.BackoffInitial, s.cfg.BackoffMultiplier, attempts)
	scheduledFor := s.now().Add(delay)

	if err := s.store.NackMessage(ctx, msg.UID, attempts, sendErr.Error(), scheduledFor); err != nil {
		s.logger.Error("nack failed", "uid", msg.UID, "error", err)
		return
	}
	s.metrics.SendFailures.WithLabelValues("transient").Inc()
	if attempts >= s.cfg.MaxAttempts {
		s.logger.Warn("message failed terminally", "uid", msg.UID, "attempts", attempts, "error", sendErr)
	} else {
		s.logger.Info("message send retried later", "uid", msg.UID, "attempts", attempts, "delay", delay)
	}
}

func (s *Sender) terminal(ctx context.Context, msg model.Message, reason, kind string) {
	if err := s.store.MarkMessageFailed(ctx, msg.UID, s.cfg.MaxAttempts, reason); err != nil {
		s.logger.Error("terminal mark failed", "uid", msg.UID, "error", err)
		return
	}
	s.metrics.SendFailures.WithLabelValues(kind).Inc()
	s.logger.Warn("message dropped", "uid", msg.UID, "reason", reason)
}

func (s *Sender) sleep(ctx context.Context) bool {
	select {
	case <-time.After(s.cfg.PollInterval):
		return true
	case <-ctx.Done():
		return false
	}
}

func buildNotification(msg model.Message) gateway.Notification {
	n := gateway.Notification{
		DeviceToken: msg.FcmUID,
		Title:       msg.Title,
		Body:        msg.Body,
		CollapseKey: msg.CollapseKey,
	}
	if msg.Data != nil {
		n.Data = map[string]string{
			"type":            msg.Data.Type,
			"amount_asset_id": msg.Data.AmountAssetID,
			"price_asset_id":  msg.Data.PriceAssetID,
			"address":         msg.Data.Address,
		}
	}
	return n
}
