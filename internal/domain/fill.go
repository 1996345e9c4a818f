package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillStatus is the terminal outcome of a client order.
type FillStatus string

const (
	FillStatusFilled   FillStatus = "filled"
	FillStatusRejected FillStatus = "rejected"
)

// Reject reasons carried in FillResult.RejectReason.
const (
	RejectNoMarketData  = "no valid market data available for matching"
	RejectNotMarketable = "limit order not immediately marketable against current book"
	RejectMalformed     = "order malformed"
)

// OrderIDPrefix is prepended to the client's order reference to form the
// venue order ID.
const OrderIDPrefix = "MM-ORD-"

// FillResult is produced exactly once per ClientOrderRequest and never
// mutated afterwards. ExecPrice is zero for rejections.
type FillResult struct {
	OrderRefID     string
	SessionID      string
	OrderID        string
	ExecID         string
	Symbol         string
	Side           OrderSide
	Kind           OrderKind
	Status         FillStatus
	ExecPrice      decimal.Decimal
	Quantity       int64
	FilledQuantity int64
	LeavesQuantity int64
	RejectReason   string
	TransactTime   time.Time
}

// Filled reports whether the order executed.
func (f FillResult) Filled() bool {
	return f.Status == FillStatusFilled
}

// Notional returns ExecPrice × FilledQuantity.
func (f FillResult) Notional() decimal.Decimal {
	return f.ExecPrice.Mul(decimal.NewFromInt(f.FilledQuantity))
}
