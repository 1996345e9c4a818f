package service

import (
	"context"
	"log/slog"

	"github.com/efreitasn/mockmaker/internal/domain"
	"github.com/efreitasn/mockmaker/internal/events"
	"github.com/efreitasn/mockmaker/internal/store"
)

// MarketObserver is notified of snapshot updates pushed through the API.
type MarketObserver interface {
	MarketUpdated(source string)
}

// MarketService exposes market snapshots and the maker's desired quotes, and
// accepts snapshot updates from external feeds.
type MarketService struct {
	markets   *store.MarketStore
	quotes    *store.QuoteStore
	publisher events.Publisher
	observer  MarketObserver
	logger    *slog.Logger
}

// NewMarketService creates a new MarketService. observer may be nil.
func NewMarketService(
	markets *store.MarketStore,
	quotes *store.QuoteStore,
	publisher events.Publisher,
	observer MarketObserver,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:   markets,
		quotes:    quotes,
		publisher: publisher,
		observer:  observer,
		logger:    logger,
	}
}

// Snapshot returns the current snapshot for symbol. Unknown symbols yield a
// zero snapshot.
func (s *MarketService) Snapshot(symbol string) (domain.MarketSnapshot, error) {
	if err := domain.ValidateSymbol(symbol); err != nil {
		return domain.MarketSnapshot{}, err
	}
	return s.markets.Read(symbol), nil
}

// List returns every known snapshot ordered by symbol.
func (s *MarketService) List() []domain.MarketSnapshot {
	return s.markets.List()
}

// Update replaces the snapshot for symbol. Any finite values are accepted;
// non-positive prices leave the symbol without a usable market.
func (s *MarketService) Update(symbol string, bid, ask float64) (domain.MarketSnapshot, error) {
	if err := domain.ValidateSymbol(symbol); err != nil {
		return domain.MarketSnapshot{}, err
	}
	bidPrice, err := domain.PriceFromFloat(bid)
	if err != nil {
		return domain.MarketSnapshot{}, &domain.ValidationError{Message: "bid: " + err.Error()}
	}
	askPrice, err := domain.PriceFromFloat(ask)
	if err != nil {
		return domain.MarketSnapshot{}, &domain.ValidationError{Message: "ask: " + err.Error()}
	}

	s.markets.Update(symbol, bidPrice, askPrice)
	if s.observer != nil {
		s.observer.MarketUpdated("api")
	}
	snap := s.markets.Read(symbol)
	s.logger.Debug("market updated",
		slog.String("symbol", symbol),
		slog.String("bid", snap.Bid.String()),
		slog.String("ask", snap.Ask.String()),
		slog.String("mid", snap.Mid.String()),
	)
	return snap, nil
}

// RecordQuote retains, logs and publishes a desired quote. It is the sink of
// the quote generator.
func (s *MarketService) RecordQuote(q domain.DesiredQuote) {
	s.quotes.Append(q)
	s.logger.Info("desired quote",
		slog.String("symbol", q.Symbol),
		slog.String("mid", q.Mid.String()),
		slog.String("bid", q.BidPrice.String()),
		slog.String("ask", q.AskPrice.String()),
		slog.Int64("size", q.Size),
	)
	s.publisher.PublishQuote(context.Background(), q)
}

// LatestQuote returns the newest desired quote for symbol.
func (s *MarketService) LatestQuote(symbol string) (domain.DesiredQuote, error) {
	if err := domain.ValidateSymbol(symbol); err != nil {
		return domain.DesiredQuote{}, err
	}
	return s.quotes.Latest(symbol)
}

// Quotes returns the newest desired quote of every quoted symbol.
func (s *MarketService) Quotes() []domain.DesiredQuote {
	return s.quotes.LatestAll()
}
