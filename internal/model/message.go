package model

import (
	"time"
)

const (
	DataOrderExecuted          = "order_executed"
	DataOrderPartiallyExecuted = "order_partially_executed"
	DataPriceThresholdReached  = "price_threshold_reached"
)

// MessageData is the opaque payload delivered alongside a notification; the
// client uses it to deep-link into the relevant screen.
type MessageData struct {
	Type          string `json:"type"`
	AmountAssetID string `json:"amount_asset_id"`
	PriceAssetID  string `json:"price_asset_id"`
	Address       string `json:"address"`
}

// PreparedMessage is a fully materialized, localized notification for one
// device, ready to be enqueued for delivery.
type PreparedMessage struct {
	Device      Device
	Title       string
	Body        string
	Data        *MessageData
	CollapseKey string
}

// Message is a persisted outbound notification row.
type Message struct {
	UID               int64
	DeviceUID         int32
	FcmUID            string
	Title             string
	Body              string
	Data              *MessageData
	CollapseKey       string
	CreatedAt         time.Time
	ScheduledFor      time.Time
	SendAttemptsCount int
	SendError         string
}
