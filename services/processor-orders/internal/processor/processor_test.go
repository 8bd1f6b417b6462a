package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/wavesplatform/push-notifications/internal/localization"
	"github.com/wavesplatform/push-notifications/internal/model"
	"github.com/wavesplatform/push-notifications/internal/storage"
	"github.com/wavesplatform/push-notifications/internal/stream"
)

const (
	testAddress = "3Q6pToUA28zJbMJUfB5xoGgfqqni11H7NPq"
	otherAddr   = "3Q6ujVDbX57oLsXxifqfTcycgb4S8U3DLFz"
	priceAsset  = "GwT5y18jcrrppAuj5VkfnHLG8WRf3TNzmhREQkY4pzd8"
)

const filledEnvelope = `{
	"T": "osu", "_": 1673428865504,
	"o": [{
		"i": "DbGrYjRnRazkajgYHpekfB72EHBmmQjVPrgpLSJb3MTq",
		"o": "` + testAddress + `",
		"t": 1673428865872, "A": "WAVES", "P": "` + priceAsset + `",
		"S": "buy", "T": "limit", "p": "5.0", "a": "1.0",
		"f": "0.003", "F": "WAVES", "s": "Filled",
		"q": "1.0", "Q": "0.003", "Z": 1673428865504,
		"c": "1.0", "h": "0.003", "e": "5.0"
	}]
}`

const cancelledEnvelope = `{
	"T": "osu", "_": 1673428863604,
	"o": [{
		"i": "JX4G8f5ehPyUPfH12DRevvjCGSP7LaRcy9ToddLdqKL",
		"o": "` + testAddress + `",
		"t": 1673428862971, "A": "WAVES", "P": "` + priceAsset + `",
		"S": "sell", "T": "limit", "p": "5.0", "a": "1.0",
		"f": "0.003", "F": "WAVES", "s": "Cancelled",
		"q": "0.0", "Q": "0.0", "Z": 1673428862976
	}]
}`

type fakeStore struct {
	subs      []model.Subscription
	devices   map[model.Address][]model.Device
	committed []storage.Batch
}

func (f *fakeStore) MatchingOrderSubscriptions(_ context.Context, _ []model.Address) ([]model.Subscription, error) {
	return f.subs, nil
}

func (f *fakeStore) DevicesByAddresses(_ context.Context, _ []model.Address) (map[model.Address][]model.Device, error) {
	return f.devices, nil
}

func (f *fakeStore) CommitBatch(_ context.Context, batch storage.Batch) error {
	f.committed = append(f.committed, batch)
	return nil
}

func orderSub(uid int64, address string, mode model.SubscriptionMode) model.Subscription {
	return model.Subscription{
		UID:        uid,
		Subscriber: model.Address(address),
		Mode:       mode,
		Topic:      model.OrderTopic(),
	}
}

func newTestProcessor(store Store) *Processor {
	return New(nil, store, localization.New(nil), nil, nil, 10)
}

func TestBuildBatchFilledOrder(t *testing.T) {
	store := &fakeStore{
		subs: []model.Subscription{orderSub(1, testAddress, model.ModeRepeat)},
		devices: map[model.Address][]model.Device{
			model.Address(testAddress): {
				{UID: 10, Address: model.Address(testAddress), FcmUID: "token-a", Language: "en"},
				{UID: 11, Address: model.Address(testAddress), FcmUID: "token-b", Language: "en"},
			},
		},
	}
	p := newTestProcessor(store)

	batch, err := p.buildBatch(context.Background(), []stream.Entry{{ID: "1-0", Data: []byte(filledEnvelope)}})
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if len(batch.Messages) != 2 {
		t.Fatalf("got %d messages, want 2 (one per device)", len(batch.Messages))
	}
	if len(batch.CompletedSubscriptions) != 0 {
		t.Fatalf("repeat subscription must not complete, got %v", batch.CompletedSubscriptions)
	}

	msg := batch.Messages[0]
	if msg.Title != "Order executed" {
		t.Errorf("title = %q", msg.Title)
	}
	if msg.Data == nil || msg.Data.Type != model.DataOrderExecuted {
		t.Errorf("unexpected data payload: %+v", msg.Data)
	}
	if msg.CollapseKey != "order:DbGrYjRnRazkajgYHpekfB72EHBmmQjVPrgpLSJb3MTq" {
		t.Errorf("collapse key = %q", msg.CollapseKey)
	}
}

func TestBuildBatchOnceSubscriptionCompletes(t *testing.T) {
	store := &fakeStore{
		subs: []model.Subscription{orderSub(7, testAddress, model.ModeOnce)},
		devices: map[model.Address][]model.Device{
			model.Address(testAddress): {{UID: 10, FcmUID: "token-a", Language: "en"}},
		},
	}
	p := newTestProcessor(store)

	batch, err := p.buildBatch(context.Background(), []stream.Entry{{ID: "1-0", Data: []byte(filledEnvelope)}})
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if len(batch.CompletedSubscriptions) != 1 || batch.CompletedSubscriptions[0] != 7 {
		t.Fatalf("completed = %v, want [7]", batch.CompletedSubscriptions)
	}
}

func TestBuildBatchCancelledProducesNothing(t *testing.T) {
	store := &fakeStore{
		subs: []model.Subscription{orderSub(1, testAddress, model.ModeRepeat)},
		devices: map[model.Address][]model.Device{
			model.Address(testAddress): {{UID: 10, FcmUID: "token-a", Language: "en"}},
		},
	}
	p := newTestProcessor(store)

	batch, err := p.buildBatch(context.Background(), []stream.Entry{{ID: "1-0", Data: []byte(cancelledEnvelope)}})
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if !batch.IsEmpty() {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}

func TestBuildBatchUndecodableEntrySkipped(t *testing.T) {
	store := &fakeStore{
		subs: []model.Subscription{orderSub(1, testAddress, model.ModeRepeat)},
		devices: map[model.Address][]model.Device{
			model.Address(testAddress): {{UID: 10, FcmUID: "token-a", Language: "en"}},
		},
	}
	p := newTestProcessor(store)

	entries := []stream.Entry{
		{ID: "1-0", Data: []byte("{broken")},
		{ID: "1-1", Data: []byte(filledEnvelope)},
	}
	batch, err := p.buildBatch(context.Background(), entries)
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if len(batch.Messages) != 1 {
		t.Fatalf("got %d messages, want 1 from the decodable entry", len(batch.Messages))
	}
}

func TestBuildBatchOtherSubscriberNotMatched(t *testing.T) {
	store := &fakeStore{
		subs: []model.Subscription{orderSub(1, otherAddr, model.ModeRepeat)},
		devices: map[model.Address][]model.Device{
			model.Address(otherAddr): {{UID: 10, FcmUID: "token-a", Language: "en"}},
		},
	}
	p := newTestProcessor(store)

	batch, err := p.buildBatch(context.Background(), []stream.Entry{{ID: "1-0", Data: []byte(filledEnvelope)}})
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if !batch.IsEmpty() {
		t.Fatalf("expected empty batch, got %d messages", len(batch.Messages))
	}
}

type scriptedSource struct {
	entries []stream.Entry
	served  bool
	acked   []stream.Entry
	cancel  context.CancelFunc
}

func (s *scriptedSource) Fetch(ctx context.Context, _ int) ([]stream.Entry, error) {
	if s.served {
		s.cancel()
		return nil, ctx.Err()
	}
	s.served = true
	return s.entries, nil
}

func (s *scriptedSource) Ack(_ context.Context, entries []stream.Entry) error {
	s.acked = append(s.acked, entries...)
	return nil
}

func (s *scriptedSource) Close() error { return nil }

func TestRunCommitsBeforeAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &scriptedSource{
		entries: []stream.Entry{{ID: "1-0", Data: []byte(filledEnvelope)}},
		cancel:  cancel,
	}
	store := &fakeStore{
		subs: []model.Subscription{orderSub(1, testAddress, model.ModeRepeat)},
		devices: map[model.Address][]model.Device{
			model.Address(testAddress): {{UID: 10, FcmUID: "token-a", Language: "en"}},
		},
	}
	p := New(source, store, localization.New(nil), nil, nil, 10)

	err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if len(store.committed) != 1 {
		t.Fatalf("committed %d batches, want 1", len(store.committed))
	}
	if len(source.acked) != 1 || source.acked[0].ID != "1-0" {
		t.Fatalf("acked = %+v", source.acked)
	}
}
