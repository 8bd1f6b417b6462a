// Package processor turns matcher order-status updates into localized
// notification messages. Entries are fetched from the event stream, matched
// against order-execution subscriptions, materialized per device and
// committed together with the fired once-mode subscriptions; only then is
// the stream batch acknowledged.
package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/wavesplatform/push-notifications/internal/localization"
	"github.com/wavesplatform/push-notifications/internal/matching"
	"github.com/wavesplatform/push-notifications/internal/model"
	"github.com/wavesplatform/push-notifications/internal/storage"
	"github.com/wavesplatform/push-notifications/internal/stream"
)

type Store interface {
	MatchingOrderSubscriptions(ctx context.Context, addresses []model.Address) ([]model.Subscription, error)
	DevicesByAddresses(ctx context.Context, addresses []model.Address) (map[model.Address][]model.Device, error)
	CommitBatch(ctx context.Context, batch storage.Batch) error
}

type Processor struct {
	source    stream.Source
	store     Store
	localizer *localization.Localizer
	logger    *slog.Logger
	metrics   *Metrics
	batchSize int
}

func New(source stream.Source, store Store, localizer *localization.Localizer, logger *slog.Logger, metrics *Metrics, batchSize int) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Processor{
		source:    source,
		store:     store,
		localizer: localizer,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Run consumes the stream until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := p.source.Fetch(ctx, p.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("fetch failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(entries) == 0 {
			continue
		}

		start := time.Now()
		batch, err := p.buildBatch(ctx, entries)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("batch build failed", "error", err, "entries", len(entries))
			time.Sleep(time.Second)
			continue
		}

		if !batch.IsEmpty() {
			if err := p.store.CommitBatch(ctx, batch); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Error("batch commit failed", "error", err)
				time.Sleep(time.Second)
				continue
			}
			p.metrics.MessagesEnqueued.Add(float64(len(batch.Messages)))
		}

		// Messages are durable now; the entries can be acknowledged.
		if err := p.source.Ack(ctx, entries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("ack failed", "error", err)
		}
		p.metrics.ProcessDuration.Observe(time.Since(start).Seconds())
	}
}

func (p *Processor) buildBatch(ctx context.Context, entries []stream.Entry) (storage.Batch, error) {
	var orders []executedOrder
	for _, entry := range entries {
		decoded, err := decodeOrderUpdates(entry.Data)
		if err != nil {
			// A malformed entry never becomes decodable; drop it.
			p.logger.Warn("dropping undecodable entry", "id", entry.ID, "error", err)
			p.metrics.EntriesProcessed.WithLabelValues("undecodable").Inc()
			continue
		}
		orders = append(orders, decoded...)
		p.metrics.EntriesProcessed.WithLabelValues("ok").Inc()
	}
	if len(orders) == 0 {
		return storage.Batch{}, nil
	}

	addrSet := make(map[model.Address]struct{})
	for _, ord := range orders {
		addrSet[ord.Event.Address] = struct{}{}
	}
	addresses := make([]model.Address, 0, len(addrSet))
	for addr := range addrSet {
		addresses = append(addresses, addr)
	}

	subs, err := p.store.MatchingOrderSubscriptions(ctx, addresses)
	if err != nil {
		return storage.Batch{}, err
	}
	if len(subs) == 0 {
		return storage.Batch{}, nil
	}
	devices, err := p.store.DevicesByAddresses(ctx, addresses)
	if err != nil {
		return storage.Batch{}, err
	}

	var batch storage.Batch
	completed := make(map[int64]struct{})
	for _, ord := range orders {
		targets := matching.Match(ord.Event, subs, devices)
		if len(targets) == 0 {
			continue
		}
		p.metrics.EventsMatched.Inc()
		for _, target := range targets {
			batch.Messages = append(batch.Messages, p.materialize(ord, target.Device))
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

func (p *Processor) materialize(ord executedOrder, device model.Device) model.PreparedMessage {
	ev := ord.Event
	title, body := p.localizer.OrderExecuted(device.Language, ev.Side, ev.Execution,
		ev.Pair.AmountAsset.ID(), ev.Pair.PriceAsset.ID())

	dataType := model.DataOrderExecuted
	if ev.Execution == model.ExecutionPartial {
		dataType = model.DataOrderPartiallyExecuted
	}
	return model.PreparedMessage{
		Device: device,
		Title:  title,
		Body:   body,
		Data: &model.MessageData{
			Type:          dataType,
			AmountAssetID: ev.Pair.AmountAsset.ID(),
			PriceAssetID:  ev.Pair.PriceAsset.ID(),
			Address:       ev.Address.String(),
		},
		// The same order update redelivered after a crash collapses on the
		// device instead of showing twice.
		CollapseKey: "order:" + ord.OrderID,
	}
}
