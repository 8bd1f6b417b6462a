package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

type TopicType int

const (
	TopicOrderExecution TopicType = iota
	TopicPriceThreshold
)

type SubscriptionMode int

const (
	ModeOnce SubscriptionMode = iota
	ModeRepeat
)

func SubscriptionModeFromInt(mode int) (SubscriptionMode, error) {
	switch mode {
	case 0:
		return ModeOnce, nil
	case 1:
		return ModeRepeat, nil
	default:
		return 0, fmt.Errorf("unknown subscription mode %d", mode)
	}
}

func (m SubscriptionMode) Int() int {
	if m == ModeOnce {
		return 0
	}
	return 1
}

var (
	ErrUnknownScheme      = errors.New("unknown scheme, only 'push' is allowed")
	ErrUnknownTopicKind   = errors.New("unknown topic kind, only 'orders' and 'price_threshold' are allowed")
	ErrInvalidAmountAsset = errors.New("invalid/missing amount asset")
	ErrInvalidPriceAsset  = errors.New("invalid/missing price asset")
	ErrInvalidThreshold   = errors.New("invalid/missing threshold value")
)

// Topic identifies what a subscription listens for. The wire format is a URL:
//
//	push://orders[?oneshot]
//	push://price_threshold/<amount_asset>/<price_asset>/<threshold>[?oneshot]
type Topic struct {
	Type        TopicType
	AmountAsset Asset
	PriceAsset  Asset
	Threshold   decimal.Decimal
}

func OrderTopic() Topic {
	return Topic{Type: TopicOrderExecution}
}

func PriceThresholdTopic(amountAsset, priceAsset Asset, threshold decimal.Decimal) Topic {
	return Topic{
		Type:        TopicPriceThreshold,
		AmountAsset: amountAsset,
		PriceAsset:  priceAsset,
		Threshold:   threshold,
	}
}

func ParseTopic(raw string) (Topic, SubscriptionMode, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Topic{}, 0, fmt.Errorf("topic parse error: %w", err)
	}
	if u.Scheme != "push" {
		return Topic{}, 0, ErrUnknownScheme
	}

	mode := ModeRepeat
	if u.Query().Has("oneshot") {
		mode = ModeOnce
	}

	switch u.Host {
	case "orders":
		return OrderTopic(), mode, nil
	case "price_threshold":
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) < 1 || segments[0] == "" {
			return Topic{}, 0, ErrInvalidAmountAsset
		}
		amountAsset, err := ParseAsset(segments[0])
		if err != nil {
			return Topic{}, 0, ErrInvalidAmountAsset
		}
		if len(segments) < 2 {
			return Topic{}, 0, ErrInvalidPriceAsset
		}
		priceAsset, err := ParseAsset(segments[1])
		if err != nil {
			return Topic{}, 0, ErrInvalidPriceAsset
		}
		if len(segments) < 3 {
			return Topic{}, 0, ErrInvalidThreshold
		}
		threshold, err := decimal.NewFromString(segments[2])
		if err != nil {
			return Topic{}, 0, ErrInvalidThreshold
		}
		return PriceThresholdTopic(amountAsset, priceAsset, threshold), mode, nil
	default:
		return Topic{}, 0, fmt.Errorf("%w: %q", ErrUnknownTopicKind, u.Host)
	}
}

func (t Topic) URLString(mode SubscriptionMode) string {
	var b strings.Builder
	switch t.Type {
	case TopicOrderExecution:
		b.WriteString("push://orders")
	case TopicPriceThreshold:
		fmt.Fprintf(&b, "push://price_threshold/%s/%s/%s",
			t.AmountAsset.ID(), t.PriceAsset.ID(), t.Threshold.String())
	}
	if mode == ModeOnce {
		b.WriteString("?oneshot")
	}
	return b.String()
}

func (t Topic) Pair() AssetPair {
	return AssetPair{AmountAsset: t.AmountAsset, PriceAsset: t.PriceAsset}
}
