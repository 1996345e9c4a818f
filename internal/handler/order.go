package handler

import (
	"net/http"

	"github.com/efreitasn/mockmaker/internal/domain"
	"github.com/efreitasn/mockmaker/internal/service"
	"github.com/go-chi/chi/v5"
)

// sessionHeader carries the session ID on HTTP order requests.
const sessionHeader = "X-Session-ID"

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON body for POST /orders and for WebSocket
// order frames.
type submitOrderRequest struct {
	OrderRefID string   `json:"order_ref_id"`
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Kind       string   `json:"kind"`
	Quantity   int64    `json:"quantity"`
	LimitPrice *float64 `json:"limit_price"`
}

func (req submitOrderRequest) toService(sessionID string) service.SubmitOrderRequest {
	return service.SubmitOrderRequest{
		SessionID:  sessionID,
		OrderRefID: req.OrderRefID,
		Symbol:     req.Symbol,
		Side:       domain.OrderSide(req.Side),
		Kind:       domain.OrderKind(req.Kind),
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
	}
}

// fillResponse is the JSON response for an order result. Rejections carry a
// null exec_price and a reject_reason.
type fillResponse struct {
	OrderRefID     string   `json:"order_ref_id"`
	SessionID      string   `json:"session_id"`
	OrderID        string   `json:"order_id"`
	ExecID         string   `json:"exec_id"`
	Symbol         string   `json:"symbol"`
	Side           string   `json:"side"`
	Kind           string   `json:"kind"`
	Status         string   `json:"status"`
	ExecPrice      *float64 `json:"exec_price"`
	Quantity       int64    `json:"quantity"`
	FilledQuantity int64    `json:"filled_quantity"`
	LeavesQuantity int64    `json:"leaves_quantity"`
	RejectReason   *string  `json:"reject_reason"`
	TransactTime   string   `json:"transact_time"`
}

// SubmitOrder handles POST /orders. Both filled and rejected results are
// returned as 201; gateway validation failures map to 4xx errors.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		mapError(w, missingHeader(sessionHeader))
		return
	}

	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.orderSvc.Submit(r.Context(), req.toService(sessionID))
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildFillResponse(result))
}

// GetOrder handles GET /orders/{order_ref_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		mapError(w, missingHeader(sessionHeader))
		return
	}
	orderRefID := chi.URLParam(r, "order_ref_id")

	result, err := h.orderSvc.Get(sessionID, orderRefID)
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildFillResponse(result))
}

func buildFillResponse(f domain.FillResult) fillResponse {
	resp := fillResponse{
		OrderRefID:     f.OrderRefID,
		SessionID:      f.SessionID,
		OrderID:        f.OrderID,
		ExecID:         f.ExecID,
		Symbol:         f.Symbol,
		Side:           string(f.Side),
		Kind:           string(f.Kind),
		Status:         string(f.Status),
		Quantity:       f.Quantity,
		FilledQuantity: f.FilledQuantity,
		LeavesQuantity: f.LeavesQuantity,
		TransactTime:   formatTime(f.TransactTime),
	}
	if f.Filled() {
		p := domain.PriceToFloat(f.ExecPrice)
		resp.ExecPrice = &p
	}
	if f.RejectReason != "" {
		reason := f.RejectReason
		resp.RejectReason = &reason
	}
	return resp
}
