package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of a client order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether s is a known side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderKind distinguishes market orders from limit orders.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// Valid reports whether k is a known kind.
func (k OrderKind) Valid() bool {
	return k == OrderKindMarket || k == OrderKindLimit
}

// ClientOrderRequest is an order delivered by the gateway. It is immutable
// once received and never shared across orders.
type ClientOrderRequest struct {
	OrderRefID string
	SessionID  string
	Symbol     string
	Side       OrderSide
	Quantity   int64
	Kind       OrderKind
	LimitPrice *decimal.Decimal // set only for limit orders
	ReceivedAt time.Time
}
