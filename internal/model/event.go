package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

type OrderType int

const (
	OrderLimit OrderType = iota
	OrderMarket
)

func (t OrderType) String() string {
	if t == OrderLimit {
		return "limit"
	}
	return "market"
}

type OrderExecution int

const (
	ExecutionFull OrderExecution = iota
	ExecutionPartial
)

// Event is a domain event produced by one of the event sources and consumed
// by the matching engine.
type Event interface {
	isEvent()
}

type OrderExecutedEvent struct {
	Address   Address
	Pair      AssetPair
	OrderType OrderType
	Side      OrderSide
	Execution OrderExecution
	Price     decimal.Decimal
	Timestamp time.Time
}

type PriceChangedEvent struct {
	Pair      AssetPair
	Range     PriceRange
	Timestamp time.Time
}

func (OrderExecutedEvent) isEvent() {}
func (PriceChangedEvent) isEvent()  {}
