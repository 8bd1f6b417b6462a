package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wavesplatform/push-notifications/internal/model"
)

const (
	addr1 = model.Address("3Q6pToUA28zJbMJUfB5xoGgfqqni11H7NPq")
	addr2 = model.Address("3PLPCb3wKnTZMKdFJVFhsvRFDNbWNMnc6H6")
)

var pairAB = model.AssetPair{AmountAsset: model.AssetWaves, PriceAsset: model.Asset("8cwrggsqQREpCLkPwZcD2xMwChi1MLaP7rofenGZ5Xuc")}

func orderSub(uid int64, addr model.Address, mode model.SubscriptionMode) model.Subscription {
	return model.Subscription{UID: uid, Subscriber: addr, Mode: mode, Topic: model.OrderTopic()}
}

func priceSub(uid int64, addr model.Address, threshold int64) model.Subscription {
	return model.Subscription{
		UID:        uid,
		Subscriber: addr,
		Mode:       model.ModeRepeat,
		Topic:      model.PriceThresholdTopic(pairAB.AmountAsset, pairAB.PriceAsset, decimal.NewFromInt(threshold)),
	}
}

func devicesFor(addrs ...model.Address) map[model.Address][]model.Device {
	out := make(map[model.Address][]model.Device)
	for i, a := range addrs {
		out[a] = append(out[a], model.Device{UID: int32(i + 1), Address: a, FcmUID: "token", Language: "en"})
	}
	return out
}

func TestMatchOrderEventByAddress(t *testing.T) {
	event := model.OrderExecutedEvent{
		Address:   addr1,
		Pair:      pairAB,
		Side:      model.SideBuy,
		Execution: model.ExecutionFull,
		Timestamp: time.Now(),
	}
	subs := []model.Subscription{
		orderSub(1, addr1, model.ModeRepeat),
		orderSub(2, addr2, model.ModeRepeat),
		priceSub(3, addr1, 100),
	}
	targets := Match(event, subs, devicesFor(addr1, addr2))
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if targets[0].Subscription.UID != 1 {
		t.Fatalf("expected subscription 1, got %d", targets[0].Subscription.UID)
	}
}

func TestMatchPriceEventByThreshold(t *testing.T) {
	r := model.EmptyPriceRange().
		Extend(decimal.NewFromInt(110)).
		Extend(decimal.NewFromInt(90)).
		ExcludeBound(decimal.NewFromInt(90))
	event := model.PriceChangedEvent{Pair: pairAB, Range: r, Timestamp: time.Now()}

	subs := []model.Subscription{
		priceSub(1, addr1, 100), // inside range: fires
		priceSub(2, addr2, 120), // outside range: no
		orderSub(3, addr1, model.ModeRepeat),
	}
	targets := Match(event, subs, devicesFor(addr1, addr2))
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if targets[0].Subscription.UID != 1 {
		t.Fatalf("expected subscription 1, got %d", targets[0].Subscription.UID)
	}
}

func TestMatchPriceEventWrongPair(t *testing.T) {
	otherPair := model.AssetPair{AmountAsset: model.Asset("8cwrggsqQREpCLkPwZcD2xMwChi1MLaP7rofenGZ5Xuc"), PriceAsset: model.AssetWaves}
	r := model.EmptyPriceRange().Extend(decimal.NewFromInt(90)).Extend(decimal.NewFromInt(110))
	event := model.PriceChangedEvent{Pair: otherPair, Range: r}

	targets := Match(event, []model.Subscription{priceSub(1, addr1, 100)}, devicesFor(addr1))
	if len(targets) != 0 {
		t.Fatalf("expected no targets for a different pair, got %d", len(targets))
	}
}

func TestMatchFansOutPerDevice(t *testing.T) {
	event := model.OrderExecutedEvent{Address: addr1, Pair: pairAB}
	devices := map[model.Address][]model.Device{
		addr1: {
			{UID: 1, Address: addr1, FcmUID: "token-1"},
			{UID: 2, Address: addr1, FcmUID: "token-2"},
		},
	}
	targets := Match(event, []model.Subscription{orderSub(1, addr1, model.ModeRepeat)}, devices)
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
}

func TestMatchNoDevicesNoTargets(t *testing.T) {
	event := model.OrderExecutedEvent{Address: addr1, Pair: pairAB}
	targets := Match(event, []model.Subscription{orderSub(1, addr1, model.ModeRepeat)}, nil)
	if len(targets) != 0 {
		t.Fatalf("expected no targets without devices, got %d", len(targets))
	}
}
