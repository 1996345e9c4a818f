// Package events publishes fills and desired quotes to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// Publisher hands events to a downstream transport. Publishing never blocks
// the caller on network I/O and never fails the originating operation.
type Publisher interface {
	PublishFill(ctx context.Context, f domain.FillResult)
	PublishQuote(ctx context.Context, q domain.DesiredQuote)
	Close() error
}

// FillEvent is the wire form of a FillResult.
type FillEvent struct {
	OrderRefID     string    `json:"order_ref_id"`
	SessionID      string    `json:"session_id"`
	OrderID        string    `json:"order_id"`
	ExecID         string    `json:"exec_id"`
	Symbol         string    `json:"symbol"`
	Side           string    `json:"side"`
	Kind           string    `json:"kind"`
	Status         string    `json:"status"`
	ExecPrice      float64   `json:"exec_price"`
	Quantity       int64     `json:"quantity"`
	FilledQuantity int64     `json:"filled_quantity"`
	LeavesQuantity int64     `json:"leaves_quantity"`
	RejectReason   string    `json:"reject_reason,omitempty"`
	TransactTime   time.Time `json:"transact_time"`
}

// NewFillEvent converts a FillResult for publishing.
func NewFillEvent(f domain.FillResult) FillEvent {
	return FillEvent{
		OrderRefID:     f.OrderRefID,
		SessionID:      f.SessionID,
		OrderID:        f.OrderID,
		ExecID:         f.ExecID,
		Symbol:         f.Symbol,
		Side:           string(f.Side),
		Kind:           string(f.Kind),
		Status:         string(f.Status),
		ExecPrice:      domain.PriceToFloat(f.ExecPrice),
		Quantity:       f.Quantity,
		FilledQuantity: f.FilledQuantity,
		LeavesQuantity: f.LeavesQuantity,
		RejectReason:   f.RejectReason,
		TransactTime:   f.TransactTime,
	}
}

// QuoteEvent is the wire form of a DesiredQuote.
type QuoteEvent struct {
	Symbol      string    `json:"symbol"`
	Mid         float64   `json:"mid"`
	BidPrice    float64   `json:"bid_price"`
	AskPrice    float64   `json:"ask_price"`
	Size        int64     `json:"size"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewQuoteEvent converts a DesiredQuote for publishing.
func NewQuoteEvent(q domain.DesiredQuote) QuoteEvent {
	return QuoteEvent{
		Symbol:      q.Symbol,
		Mid:         domain.PriceToFloat(q.Mid),
		BidPrice:    domain.PriceToFloat(q.BidPrice),
		AskPrice:    domain.PriceToFloat(q.AskPrice),
		Size:        q.Size,
		GeneratedAt: q.GeneratedAt,
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishFill(context.Context, domain.FillResult)    {}
func (Nop) PublishQuote(context.Context, domain.DesiredQuote) {}
func (Nop) Close() error                                      { return nil }
