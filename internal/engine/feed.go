package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// DefaultFeedInterval is how often the simulator refreshes every symbol.
const DefaultFeedInterval = time.Second

var (
	cent          = decimal.New(1, -2)
	feedSpreadBps = decimal.RequireFromString("0.0005")
)

// MarketWriter is the write side of the market state store.
type MarketWriter interface {
	Update(symbol string, bid, ask decimal.Decimal)
}

// FeedObserver is notified of every snapshot update pushed by the feed.
type FeedObserver interface {
	MarketUpdated(source string)
}

// FeedSimulator draws a fresh synthetic touch for each instrument of a
// universe on every cycle. The bid lies within one unit of the base price and
// the ask sits a cent plus a small proportional spread above it.
type FeedSimulator struct {
	instruments []domain.Instrument
	market      MarketWriter
	observer    FeedObserver

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewFeedSimulator creates a simulator over universe. rng and observer may be
// nil.
func NewFeedSimulator(universe *domain.Universe, market MarketWriter, rng *rand.Rand, observer FeedObserver) *FeedSimulator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed<<1))
	}
	return &FeedSimulator{
		instruments: universe.Instruments(),
		market:      market,
		observer:    observer,
		rng:         rng,
	}
}

// Cycle pushes one update per instrument. No update is pushed once ctx is
// done.
func (f *FeedSimulator) Cycle(ctx context.Context) {
	for _, inst := range f.instruments {
		if ctx.Err() != nil {
			return
		}
		bid, ask := f.Touch(inst.BasePrice)
		f.market.Update(inst.Symbol, bid, ask)
		if f.observer != nil {
			f.observer.MarketUpdated("feed")
		}
	}
}

// Touch draws a bid/ask pair around base. Both are rounded to cents, the bid
// is at least one cent and the ask is strictly above the bid.
func (f *FeedSimulator) Touch(base decimal.Decimal) (bid, ask decimal.Decimal) {
	f.mu.Lock()
	u1, u2 := f.rng.Float64(), f.rng.Float64()
	f.mu.Unlock()

	// bid ~ U(base-1, base+1)
	bid = base.Sub(decimal.NewFromInt(1)).Add(decimal.NewFromFloat(u1 * 2))
	bid = domain.RoundPrice(bid)
	if bid.LessThan(cent) {
		bid = cent
	}

	// ask = bid + 0.01 + U(0, base*0.0005)
	spread := base.Mul(feedSpreadBps).Mul(decimal.NewFromFloat(u2))
	ask = domain.RoundPrice(bid.Add(cent).Add(spread))
	if !ask.GreaterThan(bid) {
		ask = bid.Add(cent)
	}
	return bid, ask
}
