package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// Quoting defaults.
var (
	DefaultQuoteSpread   = decimal.RequireFromString("0.04")
	DefaultQuoteSizeMin  = int64(100)
	DefaultQuoteSizeMax  = int64(500)
	DefaultQuoteInterval = 3 * time.Second
)

// QuoteSink receives every emitted quote. It is called on the quoting
// goroutine and must not block for long.
type QuoteSink func(domain.DesiredQuote)

// QuoteObserver is notified of quoting activity.
type QuoteObserver interface {
	QuoteCycle()
	QuoteEmitted(symbol string)
	QuoteSkipped(symbol string)
}

// QuoteConfig configures a QuoteGenerator. Zero values fall back to the
// defaults; a nil Rand is seeded from the clock.
type QuoteConfig struct {
	Symbols []string
	Spread  decimal.Decimal
	SizeMin int64
	SizeMax int64
	Rand    *rand.Rand
}

// QuoteGenerator derives the maker's theoretical two-sided quote around the
// mid of each configured symbol. Quotes are observation only.
type QuoteGenerator struct {
	symbols  []string
	half     decimal.Decimal
	sizeMin  int64
	sizeMax  int64
	market   MarketReader
	sink     QuoteSink
	observer QuoteObserver
	now      func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewQuoteGenerator creates a generator. observer may be nil.
func NewQuoteGenerator(cfg QuoteConfig, market MarketReader, sink QuoteSink, observer QuoteObserver) *QuoteGenerator {
	spread := cfg.Spread
	if spread.IsZero() {
		spread = DefaultQuoteSpread
	}
	sizeMin, sizeMax := cfg.SizeMin, cfg.SizeMax
	if sizeMin <= 0 {
		sizeMin = DefaultQuoteSizeMin
	}
	if sizeMax < sizeMin {
		sizeMax = max(DefaultQuoteSizeMax, sizeMin)
	}
	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	symbols := make([]string, len(cfg.Symbols))
	copy(symbols, cfg.Symbols)

	return &QuoteGenerator{
		symbols:  symbols,
		half:     spread.Div(decimal.NewFromInt(2)),
		sizeMin:  sizeMin,
		sizeMax:  sizeMax,
		market:   market,
		sink:     sink,
		observer: observer,
		now:      time.Now,
		rng:      rng,
	}
}

// Symbols returns the quoted symbols.
func (g *QuoteGenerator) Symbols() []string {
	out := make([]string, len(g.symbols))
	copy(out, g.symbols)
	return out
}

// Cycle runs one quoting pass over all symbols. Symbols without a market are
// skipped. Nothing is emitted once ctx is done.
func (g *QuoteGenerator) Cycle(ctx context.Context) {
	for _, symbol := range g.symbols {
		if ctx.Err() != nil {
			return
		}
		q, ok := g.Quote(symbol)
		if !ok {
			if g.observer != nil {
				g.observer.QuoteSkipped(symbol)
			}
			continue
		}
		if g.sink != nil {
			g.sink(q)
		}
		if g.observer != nil {
			g.observer.QuoteEmitted(symbol)
		}
	}
	if g.observer != nil && ctx.Err() == nil {
		g.observer.QuoteCycle()
	}
}

// Quote computes the desired quote for symbol from its current mid. It
// returns false when the symbol has no market.
func (g *QuoteGenerator) Quote(symbol string) (domain.DesiredQuote, bool) {
	mid := g.market.Read(symbol).Mid
	if mid.IsZero() {
		return domain.DesiredQuote{}, false
	}
	return domain.DesiredQuote{
		Symbol:      symbol,
		Mid:         mid,
		BidPrice:    domain.RoundPrice(mid.Sub(g.half)),
		AskPrice:    domain.RoundPrice(mid.Add(g.half)),
		Size:        g.size(),
		GeneratedAt: g.now(),
	}, true
}

// size draws uniformly from [sizeMin, sizeMax].
func (g *QuoteGenerator) size() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sizeMin + g.rng.Int64N(g.sizeMax-g.sizeMin+1)
}
