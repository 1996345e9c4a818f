package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is the synthetic top of book for one symbol at a point in
// time. Mid is (Bid+Ask)/2 when both sides are positive and zero otherwise.
// Ask > Bid is a producer contract and is not enforced here.
type MarketSnapshot struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Mid       decimal.Decimal
	UpdatedAt time.Time // zero until the first update
}

// NewMarketSnapshot builds a snapshot from a (bid, ask) pair, deriving Mid.
func NewMarketSnapshot(symbol string, bid, ask decimal.Decimal, at time.Time) MarketSnapshot {
	return MarketSnapshot{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Mid:       MidOf(bid, ask),
		UpdatedAt: at,
	}
}

// HasMarket reports whether the snapshot can be matched against.
func (s MarketSnapshot) HasMarket() bool {
	return !s.Mid.IsZero() && !s.Bid.IsZero() && !s.Ask.IsZero()
}

// Spread returns Ask-Bid, or zero when there is no usable market.
func (s MarketSnapshot) Spread() decimal.Decimal {
	if !s.HasMarket() {
		return decimal.Zero
	}
	return s.Ask.Sub(s.Bid)
}
