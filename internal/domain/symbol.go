package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateSymbol checks that a symbol is usable as a market key. Symbols are
// opaque and case-sensitive; the only requirement is that they are non-empty.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return &ValidationError{Message: "symbol must be a non-empty string"}
	}
	return nil
}

// Instrument is a tradable symbol together with the reference price the
// feed simulator oscillates around.
type Instrument struct {
	Symbol    string
	BasePrice decimal.Decimal
}

// Universe is the fixed, ordered set of instruments the venue knows about at
// startup. It is immutable once built and safe for concurrent reads.
type Universe struct {
	instruments []Instrument
	index       map[string]int
}

// NewUniverse builds a Universe, rejecting empty or duplicate symbols and
// non-positive base prices.
func NewUniverse(instruments []Instrument) (*Universe, error) {
	u := &Universe{
		instruments: make([]Instrument, 0, len(instruments)),
		index:       make(map[string]int, len(instruments)),
	}
	for _, in := range instruments {
		if err := ValidateSymbol(in.Symbol); err != nil {
			return nil, err
		}
		if _, dup := u.index[in.Symbol]; dup {
			return nil, &ValidationError{Message: fmt.Sprintf("duplicate instrument symbol: %s", in.Symbol)}
		}
		if !in.BasePrice.IsPositive() {
			return nil, &ValidationError{Message: fmt.Sprintf("base price for %s must be > 0", in.Symbol)}
		}
		u.index[in.Symbol] = len(u.instruments)
		u.instruments = append(u.instruments, in)
	}
	return u, nil
}

// DefaultUniverse returns the ten-equity universe used when no universe file
// is configured.
func DefaultUniverse() *Universe {
	u, _ := NewUniverse([]Instrument{
		{Symbol: "AAPL", BasePrice: decimal.NewFromInt(170)},
		{Symbol: "MSFT", BasePrice: decimal.NewFromInt(420)},
		{Symbol: "GOOG", BasePrice: decimal.NewFromInt(180)},
		{Symbol: "AMZN", BasePrice: decimal.NewFromInt(185)},
		{Symbol: "NVDA", BasePrice: decimal.NewFromInt(1000)},
		{Symbol: "TSLA", BasePrice: decimal.NewFromInt(175)},
		{Symbol: "META", BasePrice: decimal.NewFromInt(490)},
		{Symbol: "NFLX", BasePrice: decimal.NewFromInt(650)},
		{Symbol: "ADBE", BasePrice: decimal.NewFromInt(520)},
		{Symbol: "CRM", BasePrice: decimal.NewFromInt(240)},
	})
	return u
}

// Instruments returns a copy of the instruments in configuration order.
func (u *Universe) Instruments() []Instrument {
	out := make([]Instrument, len(u.instruments))
	copy(out, u.instruments)
	return out
}

// Symbols returns the instrument symbols in configuration order.
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.instruments))
	for i, in := range u.instruments {
		out[i] = in.Symbol
	}
	return out
}

// Contains reports whether the symbol belongs to the universe.
func (u *Universe) Contains(symbol string) bool {
	_, ok := u.index[symbol]
	return ok
}

// Len returns the number of instruments.
func (u *Universe) Len() int {
	return len(u.instruments)
}
