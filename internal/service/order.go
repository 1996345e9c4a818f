package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/efreitasn/mockmaker/internal/domain"
	"github.com/efreitasn/mockmaker/internal/engine"
	"github.com/efreitasn/mockmaker/internal/events"
	"github.com/efreitasn/mockmaker/internal/store"
)

var orderRefRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,64}$`)

// ValidFillStatuses lists all valid fill status values for validation.
var ValidFillStatuses = map[domain.FillStatus]bool{
	domain.FillStatusFilled:   true,
	domain.FillStatusRejected: true,
}

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	SessionID  string
	OrderRefID string
	Symbol     string
	Side       domain.OrderSide
	Kind       domain.OrderKind
	Quantity   int64
	LimitPrice *float64 // required for limit, must be nil for market
}

// FillObserver records each matched order.
type FillObserver interface {
	ObserveFill(f domain.FillResult, took time.Duration)
}

// OrderService validates orders at the gateway boundary, runs them through
// the matcher, and retains the results for retransmission.
type OrderService struct {
	matcher   *engine.Matcher
	fills     *store.FillStore
	sessions  *store.SessionStore
	publisher events.Publisher
	observer  FillObserver
	logger    *slog.Logger
}

// NewOrderService creates a new OrderService. observer may be nil.
func NewOrderService(
	matcher *engine.Matcher,
	fills *store.FillStore,
	sessions *store.SessionStore,
	publisher events.Publisher,
	observer FillObserver,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		matcher:   matcher,
		fills:     fills,
		sessions:  sessions,
		publisher: publisher,
		observer:  observer,
		logger:    logger,
	}
}

// Submit validates req and matches it. Validation failures are returned as
// errors and produce no FillResult; every order that passes validation
// yields exactly one FillResult, filled or rejected.
func (s *OrderService) Submit(ctx context.Context, req SubmitOrderRequest) (domain.FillResult, error) {
	order, err := s.validate(req)
	if err != nil {
		return domain.FillResult{}, err
	}

	start := time.Now()
	result := s.matcher.Match(order)
	took := time.Since(start)

	// A concurrent submit with the same reference may have won the race.
	if err := s.fills.Create(result); err != nil {
		return domain.FillResult{}, err
	}

	if s.observer != nil {
		s.observer.ObserveFill(result, took)
	}
	s.logFill(result)
	s.publisher.PublishFill(ctx, result)

	return result, nil
}

func (s *OrderService) validate(req SubmitOrderRequest) (domain.ClientOrderRequest, error) {
	if !s.sessions.IsActive(req.SessionID) {
		return domain.ClientOrderRequest{}, domain.ErrSessionNotFound
	}
	if !orderRefRegex.MatchString(req.OrderRefID) {
		return domain.ClientOrderRequest{}, &domain.ValidationError{
			Message: "order_ref_id must match ^[a-zA-Z0-9_.:-]{1,64}$",
		}
	}
	if err := domain.ValidateSymbol(req.Symbol); err != nil {
		return domain.ClientOrderRequest{}, err
	}
	if !req.Side.Valid() {
		return domain.ClientOrderRequest{}, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if !req.Kind.Valid() {
		return domain.ClientOrderRequest{}, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order kind: %s. Must be one of: market, limit", req.Kind),
		}
	}
	if req.Quantity <= 0 {
		return domain.ClientOrderRequest{}, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	order := domain.ClientOrderRequest{
		OrderRefID: req.OrderRefID,
		SessionID:  req.SessionID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Kind:       req.Kind,
		ReceivedAt: time.Now(),
	}

	switch req.Kind {
	case domain.OrderKindLimit:
		if req.LimitPrice == nil {
			return domain.ClientOrderRequest{}, &domain.ValidationError{
				Message: "limit_price is required for limit orders",
			}
		}
		price, err := domain.PriceFromFloat(*req.LimitPrice)
		if err != nil || !price.IsPositive() {
			return domain.ClientOrderRequest{}, &domain.ValidationError{
				Message: "limit_price must be greater than 0",
			}
		}
		order.LimitPrice = &price
	case domain.OrderKindMarket:
		if req.LimitPrice != nil {
			return domain.ClientOrderRequest{}, &domain.ValidationError{
				Message: "market orders must not include limit_price",
			}
		}
	}

	if s.fills.Exists(req.SessionID, req.OrderRefID) {
		return domain.ClientOrderRequest{}, domain.ErrDuplicateOrderRef
	}
	return order, nil
}

func (s *OrderService) logFill(f domain.FillResult) {
	attrs := []any{
		slog.String("session_id", f.SessionID),
		slog.String("order_ref_id", f.OrderRefID),
		slog.String("symbol", f.Symbol),
		slog.String("side", string(f.Side)),
		slog.String("kind", string(f.Kind)),
		slog.Int64("quantity", f.Quantity),
	}
	if f.Filled() {
		s.logger.Info("order filled", append(attrs,
			slog.String("exec_id", f.ExecID),
			slog.String("exec_price", f.ExecPrice.String()),
		)...)
		return
	}
	s.logger.Info("order rejected", append(attrs, slog.String("reason", f.RejectReason))...)
}

// Get returns the retained result for a session's order reference.
func (s *OrderService) Get(sessionID, orderRefID string) (domain.FillResult, error) {
	if _, err := s.sessions.Get(sessionID); err != nil {
		return domain.FillResult{}, err
	}
	return s.fills.Get(sessionID, orderRefID)
}

// ListBySession returns a paginated list of a session's results with
// optional status filtering, newest first.
func (s *OrderService) ListBySession(sessionID string, status *domain.FillStatus, page, limit int) ([]domain.FillResult, int, error) {
	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, 0, err
	}

	if status != nil {
		if !ValidFillStatuses[*status] {
			return nil, 0, &domain.ValidationError{
				Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: filled, rejected", *status),
			}
		}
	}

	if page < 1 {
		return nil, 0, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}

	fills, total := s.fills.ListBySession(sessionID, status, page, limit)
	return fills, total, nil
}
