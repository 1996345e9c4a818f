package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// marketEntry owns the current snapshot for one symbol. The snapshot is an
// immutable value swapped atomically, so readers never see a bid from one
// update paired with an ask from another.
type marketEntry struct {
	symbol   string
	snapshot atomic.Pointer[domain.MarketSnapshot]
}

func (e *marketEntry) load() domain.MarketSnapshot {
	if p := e.snapshot.Load(); p != nil {
		return *p
	}
	return domain.MarketSnapshot{Symbol: e.symbol}
}

func marketLess(a, b *marketEntry) bool {
	return a.symbol < b.symbol
}

// MarketStore holds the latest synthetic top of book per symbol.
//
// The symbol index is a B-tree guarded by an RWMutex and only written when a
// symbol is seen for the first time. Snapshot reads and writes never take
// that lock for longer than the index lookup, and never perform I/O.
type MarketStore struct {
	mu      sync.RWMutex
	entries *btree.BTreeG[*marketEntry]
	now     func() time.Time
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	const degree = 32
	return &MarketStore{
		entries: btree.NewG[*marketEntry](degree, marketLess),
		now:     time.Now,
	}
}

func (s *MarketStore) lookup(symbol string) (*marketEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Get(&marketEntry{symbol: symbol})
}

func (s *MarketStore) getOrCreate(symbol string) *marketEntry {
	if e, ok := s.lookup(symbol); ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check after acquiring write lock.
	if e, ok := s.entries.Get(&marketEntry{symbol: symbol}); ok {
		return e
	}
	e := &marketEntry{symbol: symbol}
	s.entries.ReplaceOrInsert(e)
	return e
}

// Update replaces the snapshot for symbol. Any numeric input is accepted;
// non-positive values yield a zero mid.
func (s *MarketStore) Update(symbol string, bid, ask decimal.Decimal) {
	e := s.getOrCreate(symbol)
	snap := domain.NewMarketSnapshot(symbol, bid, ask, s.now())
	e.snapshot.Store(&snap)
}

// Read returns a point-in-time copy of the snapshot for symbol. Unknown
// symbols yield the zero snapshot; reading does not register the symbol.
func (s *MarketStore) Read(symbol string) domain.MarketSnapshot {
	e, ok := s.lookup(symbol)
	if !ok {
		return domain.MarketSnapshot{Symbol: symbol}
	}
	return e.load()
}

// BestBid returns the current bid for symbol, or zero.
func (s *MarketStore) BestBid(symbol string) decimal.Decimal {
	return s.Read(symbol).Bid
}

// BestAsk returns the current ask for symbol, or zero.
func (s *MarketStore) BestAsk(symbol string) decimal.Decimal {
	return s.Read(symbol).Ask
}

// MidPrice returns the current mid for symbol, or zero.
func (s *MarketStore) MidPrice(symbol string) decimal.Decimal {
	return s.Read(symbol).Mid
}

// List returns the snapshot of every symbol ever updated, ordered by symbol.
func (s *MarketStore) List() []domain.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MarketSnapshot, 0, s.entries.Len())
	s.entries.Ascend(func(e *marketEntry) bool {
		out = append(out, e.load())
		return true
	})
	return out
}

// Len returns the number of symbols in the store.
func (s *MarketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Len()
}
