package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DesiredQuote is the maker's theoretical two-sided quote for a symbol on one
// quoting cycle. It is for observation only and never feeds back into
// matching.
type DesiredQuote struct {
	Symbol      string
	Mid         decimal.Decimal
	BidPrice    decimal.Decimal
	AskPrice    decimal.Decimal
	Size        int64
	GeneratedAt time.Time
}
