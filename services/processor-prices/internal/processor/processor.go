// Package processor walks the chain height by height and turns threshold
// crossings into localized notification messages. For each pair the price
// span between the previous and the current observation is computed; every
// threshold subscription whose value falls inside the span fires, in either
// direction. The previous observation is an excluded bound, so a price
// resting on a threshold fires once, not on every height.
package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wavesplatform/push-notifications/internal/localization"
	"github.com/wavesplatform/push-notifications/internal/matching"
	"github.com/wavesplatform/push-notifications/internal/model"
	"github.com/wavesplatform/push-notifications/internal/source"
	"github.com/wavesplatform/push-notifications/internal/storage"
)

const cursorName = "processor-prices"

type Store interface {
	ActivePricePairs(ctx context.Context) ([]model.AssetPair, error)
	MatchingPriceSubscriptions(ctx context.Context, pair model.AssetPair, low, high decimal.Decimal) ([]model.Subscription, error)
	DevicesByAddresses(ctx context.Context, addresses []model.Address) (map[model.Address][]model.Device, error)
	CommitBatch(ctx context.Context, batch storage.Batch) error
	Cursor(ctx context.Context, name string) (uint64, bool, error)
}

type MarketData interface {
	CurrentHeight(ctx context.Context) (uint64, error)
	LastPrices(ctx context.Context) ([]source.Observation, error)
	Observations(ctx context.Context, height uint64, pairs []model.AssetPair) ([]source.Observation, error)
}

type Processor struct {
	data      MarketData
	store     Store
	localizer *localization.Localizer
	logger    *slog.Logger
	metrics   *Metrics

	pollInterval   time.Duration
	startingHeight uint64

	// Last observed price per pair, carried across heights to form the
	// crossing span.
	lastPrices map[model.AssetPair]decimal.Decimal
}

func New(data MarketData, store Store, localizer *localization.Localizer, logger *slog.Logger, metrics *Metrics, pollInterval time.Duration, startingHeight uint64) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Processor{
		data:           data,
		store:          store,
		localizer:      localizer,
		logger:         logger,
		metrics:        metrics,
		pollInterval:   pollInterval,
		startingHeight: startingHeight,
		lastPrices:     make(map[model.AssetPair]decimal.Decimal),
	}
}

// Run resumes from the persisted cursor and processes heights until the
// context is cancelled. Source or database errors block the current height;
// nothing is ever skipped.
func (p *Processor) Run(ctx context.Context) error {
	height, err := p.resume(ctx)
	if err != nil {
		return err
	}
	p.warmUp(ctx)
	p.logger.Info("price processor starting", "height", height)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		current, err := p.data.CurrentHeight(ctx)
		if err != nil {
			p.retryWait(ctx, "current height fetch failed", err)
			continue
		}
		if height > current {
			if !p.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		for height <= current {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.step(ctx, height); err != nil {
				p.retryWait(ctx, "height processing failed", err, "height", height)
				break
			}
			p.metrics.HeightsProcessed.Inc()
			p.metrics.CurrentHeight.Set(float64(height))
			height++
		}
	}
}

func (p *Processor) resume(ctx context.Context) (uint64, error) {
	if p.startingHeight > 0 {
		return p.startingHeight, nil
	}
	cursor, ok, err := p.store.Cursor(ctx, cursorName)
	if err != nil {
		return 0, err
	}
	if ok {
		return cursor + 1, nil
	}
	return p.data.CurrentHeight(ctx)
}

// warmUp seeds the previous-price cache so that the first processed height
// already has crossing spans. A failure only means the first height cannot
// fire, so it is not fatal.
func (p *Processor) warmUp(ctx context.Context) {
	obs, err := p.data.LastPrices(ctx)
	if err != nil {
		p.logger.Warn("last prices warm-up failed", "error", err)
		return
	}
	for _, o := range obs {
		p.lastPrices[o.Pair] = o.Price
	}
}

func (p *Processor) step(ctx context.Context, height uint64) error {
	pairs, err := p.store.ActivePricePairs(ctx)
	if err != nil {
		return err
	}

	var observations []source.Observation
	if len(pairs) > 0 {
		observations, err = p.data.Observations(ctx, height, pairs)
		if err != nil {
			return err
		}
	}

	batch, err := p.buildBatch(ctx, observations)
	if err != nil {
		return err
	}
	batch.Cursor = &storage.CursorAdvance{Name: cursorName, Height: height}

	if err := p.store.CommitBatch(ctx, batch); err != nil {
		return err
	}
	p.metrics.MessagesEnqueued.Add(float64(len(batch.Messages)))

	for _, o := range observations {
		p.lastPrices[o.Pair] = o.Price
	}
	return nil
}

func (p *Processor) buildBatch(ctx context.Context, observations []source.Observation) (storage.Batch, error) {
	var batch storage.Batch
	completed := make(map[int64]struct{})

	for _, o := range observations {
		span := model.EmptyPriceRange().Extend(o.Price)
		if prev, ok := p.lastPrices[o.Pair]; ok {
			span = span.Extend(prev).ExcludeBound(prev)
		}
		if span.IsEmpty() {
			continue
		}

		low, high := span.LowHigh()
		subs, err := p.store.MatchingPriceSubscriptions(ctx, o.Pair, low, high)
		if err != nil {
			return storage.Batch{}, err
		}
		if len(subs) == 0 {
			continue
		}

		addresses := make([]model.Address, 0, len(subs))
		seen := make(map[model.Address]struct{})
		for _, sub := range subs {
			if _, ok := seen[sub.Subscriber]; !ok {
				seen[sub.Subscriber] = struct{}{}
				addresses = append(addresses, sub.Subscriber)
			}
		}
		devices, err := p.store.DevicesByAddresses(ctx, addresses)
		if err != nil {
			return storage.Batch{}, err
		}

		event := model.PriceChangedEvent{Pair: o.Pair, Range: span, Timestamp: time.Now()}
		targets := matching.Match(event, subs, devices)
		if len(targets) > 0 {
			p.metrics.ThresholdsFired.Inc()
		}
		for _, target := range targets {
			batch.Messages = append(batch.Messages, p.materialize(target.Subscription, target.Device))
			if target.Subscription.Mode == model.ModeOnce {
				completed[target.Subscription.UID] = struct{}{}
			}
		}
	}

	for uid := range completed {
		batch.CompletedSubscriptions = append(batch.CompletedSubscriptions, uid)
	}
	return batch, nil
}

func (p *Processor) materialize(sub model.Subscription, device model.Device) model.PreparedMessage {
	topic := sub.Topic
	title, body := p.localizer.PriceThreshold(device.Language,
		topic.AmountAsset.ID(), topic.PriceAsset.ID(), topic.Threshold)

	return model.PreparedMessage{
		Device: device,
		Title:  title,
		Body:   body,
		Data: &model.MessageData{
			Type:          model.DataPriceThresholdReached,
			AmountAssetID: topic.AmountAsset.ID(),
			PriceAssetID:  topic.PriceAsset.ID(),
			Address:       sub.Subscriber.String(),
		},
		// One alert per pair and threshold on the device at a time.
		CollapseKey: "price:" + topic.Pair().String() + ":" + topic.Threshold.String(),
	}
}

func (p *Processor) retryWait(ctx context.Context, msg string, err error, args ...any) {
	p.logger.Error(msg, append([]any{"error", err}, args...)...)
	p.sleep(ctx)
}

func (p *Processor) sleep(ctx context.Context) bool {
	select {
	case <-time.After(p.pollInterval):
		return true
	case <-ctx.Done():
		return false
	}
}
