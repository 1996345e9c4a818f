package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// MarketReader is the read side of the market state store.
type MarketReader interface {
	Read(symbol string) domain.MarketSnapshot
}

// Matcher decides every client order immediately against the synthetic touch
// of its symbol: a marketable order fills in full at the touch, anything
// else is rejected. Orders never rest and the market is never mutated.
//
// Match reads one snapshot and decides on it. An update landing between the
// read and the decision is not reflected in that order's price; the next
// order sees it.
type Matcher struct {
	market MarketReader
	now    func() time.Time
	newID  func() string
}

// NewMatcher creates a Matcher reading from market.
func NewMatcher(market MarketReader) *Matcher {
	return &Matcher{
		market: market,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// Match produces exactly one FillResult for order. It never panics on
// malformed input; such orders are rejected.
func (m *Matcher) Match(order domain.ClientOrderRequest) domain.FillResult {
	result := domain.FillResult{
		OrderRefID:   order.OrderRefID,
		SessionID:    order.SessionID,
		OrderID:      domain.OrderIDPrefix + order.OrderRefID,
		ExecID:       m.newID(),
		Symbol:       order.Symbol,
		Side:         order.Side,
		Kind:         order.Kind,
		Quantity:     order.Quantity,
		TransactTime: m.now(),
	}

	if reason := malformed(order); reason != "" {
		return reject(result, domain.RejectMalformed+": "+reason)
	}

	snap := m.market.Read(order.Symbol)
	if !snap.HasMarket() {
		return reject(result, domain.RejectNoMarketData)
	}

	// Buyers lift the ask, sellers hit the bid.
	touch := snap.Ask
	if order.Side == domain.OrderSideSell {
		touch = snap.Bid
	}

	if order.Kind == domain.OrderKindLimit && !marketable(order.Side, *order.LimitPrice, touch) {
		return reject(result, domain.RejectNotMarketable)
	}

	result.Status = domain.FillStatusFilled
	result.ExecPrice = touch
	result.FilledQuantity = order.Quantity
	result.LeavesQuantity = 0
	return result
}

// marketable reports whether a limit order crosses the touch. Equality is
// marketable on both sides.
func marketable(side domain.OrderSide, limit, touch decimal.Decimal) bool {
	if side == domain.OrderSideBuy {
		return limit.GreaterThanOrEqual(touch)
	}
	return limit.LessThanOrEqual(touch)
}

func malformed(order domain.ClientOrderRequest) string {
	switch {
	case order.Quantity <= 0:
		return "quantity must be positive"
	case !order.Side.Valid():
		return "unknown side"
	case !order.Kind.Valid():
		return "unknown order kind"
	case order.Kind == domain.OrderKindLimit && order.LimitPrice == nil:
		return "limit order without price"
	}
	return ""
}

func reject(result domain.FillResult, reason string) domain.FillResult {
	result.Status = domain.FillStatusRejected
	result.ExecPrice = decimal.Zero
	result.FilledQuantity = 0
	if result.Quantity > 0 {
		result.LeavesQuantity = result.Quantity
	}
	result.RejectReason = reason
	return result
}
