package handler

import (
	"net/http"

	"github.com/efreitasn/mockmaker/internal/domain"
	"github.com/efreitasn/mockmaker/internal/service"
	"github.com/go-chi/chi/v5"
)

// MarketHandler handles HTTP requests for market data and quote endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// updateMarketRequest is the JSON body for PUT /markets/{symbol}.
type updateMarketRequest struct {
	Bid *float64 `json:"bid"`
	Ask *float64 `json:"ask"`
}

// marketResponse is the JSON representation of a market snapshot.
// updated_at is null for symbols that were never written.
type marketResponse struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Mid       float64 `json:"mid"`
	HasMarket bool    `json:"has_market"`
	UpdatedAt *string `json:"updated_at"`
}

// quoteResponse is the JSON representation of a desired quote.
type quoteResponse struct {
	Symbol      string  `json:"symbol"`
	Mid         float64 `json:"mid"`
	BidPrice    float64 `json:"bid_price"`
	AskPrice    float64 `json:"ask_price"`
	Size        int64   `json:"size"`
	GeneratedAt string  `json:"generated_at"`
}

// List handles GET /markets.
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps := h.marketSvc.List()
	resp := make([]marketResponse, len(snaps))
	for i, s := range snaps {
		resp[i] = buildMarketResponse(s)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"markets": resp})
}

// Get handles GET /markets/{symbol}.
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.marketSvc.Snapshot(chi.URLParam(r, "symbol"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMarketResponse(snap))
}

// Update handles PUT /markets/{symbol}.
func (h *MarketHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateMarketRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Bid == nil || req.Ask == nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "bid and ask are required")
		return
	}

	snap, err := h.marketSvc.Update(chi.URLParam(r, "symbol"), *req.Bid, *req.Ask)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMarketResponse(snap))
}

// ListQuotes handles GET /quotes.
func (h *MarketHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes := h.marketSvc.Quotes()
	resp := make([]quoteResponse, len(quotes))
	for i, q := range quotes {
		resp[i] = buildQuoteResponse(q)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"quotes": resp})
}

// GetQuote handles GET /quotes/{symbol}.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.marketSvc.LatestQuote(chi.URLParam(r, "symbol"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildQuoteResponse(q))
}

func buildMarketResponse(s domain.MarketSnapshot) marketResponse {
	return marketResponse{
		Symbol:    s.Symbol,
		Bid:       domain.PriceToFloat(s.Bid),
		Ask:       domain.PriceToFloat(s.Ask),
		Mid:       domain.PriceToFloat(s.Mid),
		HasMarket: s.HasMarket(),
		UpdatedAt: formatTimePtr(&s.UpdatedAt),
	}
}

func buildQuoteResponse(q domain.DesiredQuote) quoteResponse {
	return quoteResponse{
		Symbol:      q.Symbol,
		Mid:         domain.PriceToFloat(q.Mid),
		BidPrice:    domain.PriceToFloat(q.BidPrice),
		AskPrice:    domain.PriceToFloat(q.AskPrice),
		Size:        q.Size,
		GeneratedAt: formatTime(q.GeneratedAt),
	}
}
