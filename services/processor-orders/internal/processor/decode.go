package processor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wavesplatform/push-notifications/internal/model"
)

// The matcher publishes order status updates as "osu" envelopes. Side, type
// and status values arrive in both upper- and lowercase depending on the
// matcher version.
type orderEnvelope struct {
	Type      string        `json:"T"`
	Timestamp int64         `json:"_"`
	Orders    []orderUpdate `json:"o"`
}

type orderUpdate struct {
	OrderID        string           `json:"i"`
	Owner          string           `json:"o"`
	AmountAsset    string           `json:"A"`
	PriceAsset     string           `json:"P"`
	Side           string           `json:"S"`
	OrderType      string           `json:"T"`
	Price          decimal.Decimal  `json:"p"`
	Status         string           `json:"s"`
	ExecutedPrice  *decimal.Decimal `json:"e"`
	EventTimestamp int64            `json:"Z"`
}

type executedOrder struct {
	OrderID string
	Event   model.OrderExecutedEvent
}

// decodeOrderUpdates parses one stream entry into the order executions it
// carries. Cancellations and unknown statuses carry no notification and are
// dropped.
func decodeOrderUpdates(data []byte) ([]executedOrder, error) {
	var env orderEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal order update envelope: %w", err)
	}
	if env.Type != "osu" {
		return nil, fmt.Errorf("unexpected envelope type %q", env.Type)
	}

	var out []executedOrder
	for _, upd := range env.Orders {
		var execution model.OrderExecution
		switch strings.ToLower(upd.Status) {
		case "filled":
			execution = model.ExecutionFull
		case "partiallyfilled", "partially_filled":
			execution = model.ExecutionPartial
		default:
			continue
		}

		address, err := model.ParseAddress(upd.Owner)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", upd.OrderID, err)
		}
		amountAsset, err := model.ParseAsset(upd.AmountAsset)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", upd.OrderID, err)
		}
		priceAsset, err := model.ParseAsset(upd.PriceAsset)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", upd.OrderID, err)
		}
		side, err := parseSide(upd.Side)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", upd.OrderID, err)
		}
		orderType, err := parseOrderType(upd.OrderType)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", upd.OrderID, err)
		}

		price := upd.Price
		if upd.ExecutedPrice != nil {
			price = *upd.ExecutedPrice
		}

		out = append(out, executedOrder{
			OrderID: upd.OrderID,
			Event: model.OrderExecutedEvent{
				Address:   address,
				Pair:      model.AssetPair{AmountAsset: amountAsset, PriceAsset: priceAsset},
				OrderType: orderType,
				Side:      side,
				Execution: execution,
				Price:     price,
				Timestamp: time.UnixMilli(upd.EventTimestamp),
			},
		})
	}
	return out, nil
}

func parseSide(s string) (model.OrderSide, error) {
	switch strings.ToLower(s) {
	case "buy":
		return model.SideBuy, nil
	case "sell":
		return model.SideSell, nil
	default:
		return 0, fmt.Errorf("unknown order side %q", s)
	}
}

func parseOrderType(s string) (model.OrderType, error) {
	switch strings.ToLower(s) {
	case "limit":
		return model.OrderLimit, nil
	case "market":
		return model.OrderMarket, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}
