package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// DefaultQuoteHistory is the number of quotes retained per symbol.
const DefaultQuoteHistory = 100

// QuoteStore keeps the most recent desired quotes per symbol, oldest first.
// History is bounded; older quotes are dropped.
type QuoteStore struct {
	mu      sync.RWMutex
	max     int
	history map[string][]domain.DesiredQuote // symbol → quotes (chronological)
}

// NewQuoteStore creates an empty QuoteStore retaining up to max quotes per
// symbol. A non-positive max uses DefaultQuoteHistory.
func NewQuoteStore(max int) *QuoteStore {
	if max <= 0 {
		max = DefaultQuoteHistory
	}
	return &QuoteStore{
		max:     max,
		history: make(map[string][]domain.DesiredQuote),
	}
}

// Append records a quote for its symbol.
func (s *QuoteStore) Append(q domain.DesiredQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.history[q.Symbol], q)
	if len(h) > s.max {
		h = h[len(h)-s.max:]
	}
	s.history[q.Symbol] = h
}

// Latest returns the newest quote for symbol, or domain.ErrQuoteNotFound.
func (s *QuoteStore) Latest(symbol string) (domain.DesiredQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[symbol]
	if len(h) == 0 {
		return domain.DesiredQuote{}, domain.ErrQuoteNotFound
	}
	return h[len(h)-1], nil
}

// History returns a copy of the retained quotes for symbol in chronological
// order. Returns an empty slice if none exist.
func (s *QuoteStore) History(symbol string) []domain.DesiredQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[symbol]
	result := make([]domain.DesiredQuote, len(h))
	copy(result, h)
	return result
}

// LatestAll returns the newest quote of every symbol, ordered by symbol.
func (s *QuoteStore) LatestAll() []domain.DesiredQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DesiredQuote, 0, len(s.history))
	for _, h := range s.history {
		if len(h) > 0 {
			out = append(out, h[len(h)-1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
