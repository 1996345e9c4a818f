package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/mockmaker/internal/domain"
	"github.com/efreitasn/mockmaker/internal/engine"
	"github.com/efreitasn/mockmaker/internal/events"
	"github.com/efreitasn/mockmaker/internal/metrics"
	"github.com/efreitasn/mockmaker/internal/service"
	"github.com/efreitasn/mockmaker/internal/store"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router     http.Handler
	markets    *store.MarketStore
	quotes     *store.QuoteStore
	sessionSvc *service.SessionService
	orderSvc   *service.OrderService
	marketSvc  *service.MarketService
}

func newTestEnv() *testEnv {
	return newTestEnvWithLimit(0)
}

// newTestEnvWithLimit builds the gateway over in-memory stores with AAPL
// quoted at 170.00 / 170.02.
func newTestEnvWithLimit(maxSessions int) *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	markets := store.NewMarketStore()
	markets.Update("AAPL", decimal.RequireFromString("170.00"), decimal.RequireFromString("170.02"))
	quotes := store.NewQuoteStore(0)
	sessions := store.NewSessionStore()
	fills := store.NewFillStore()

	pub := events.Nop{}
	sessionSvc := service.NewSessionService(sessions, maxSessions, nil, m, logger)
	orderSvc := service.NewOrderService(engine.NewMatcher(markets), fills, sessions, pub, m, logger)
	marketSvc := service.NewMarketService(markets, quotes, pub, m, logger)

	return &testEnv{
		router:     NewRouter(sessionSvc, orderSvc, marketSvc, m.Handler(), logger),
		markets:    markets,
		quotes:     quotes,
		sessionSvc: sessionSvc,
		orderSvc:   orderSvc,
		marketSvc:  marketSvc,
	}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return env.doJSONWithSession(t, method, path, "", body)
}

// doJSONWithSession sends a JSON request carrying the X-Session-ID header.
func (env *testEnv) doJSONWithSession(t *testing.T, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

// logon opens a session via the API and returns its ID.
func (env *testEnv) logon(t *testing.T, name string) string {
	t.Helper()
	rr := env.doJSON(t, "POST", "/sessions", map[string]any{"name": name})
	if rr.Code != http.StatusCreated {
		t.Fatalf("logon %s: expected 201, got %d: %s", name, rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	return resp["session_id"].(string)
}

// submit posts an order and returns the recorder.
func (env *testEnv) submit(t *testing.T, sessionID string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return env.doJSONWithSession(t, "POST", "/orders", sessionID, body)
}

// --- Healthz / metrics ---

func TestHealthz(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected application/json, got %s", ct)
	}
}

func TestMetrics_ExposesOrderCounters(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")
	env.submit(t, sid, map[string]any{
		"order_ref_id": "o1", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 100,
	})

	rr := env.doRaw(t, "GET", "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`mockmaker_engine_orders_total{kind="market",side="buy",status="filled"} 1`,
		`mockmaker_gateway_active_sessions 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestContentTypeRequired(t *testing.T) {
	env := newTestEnv()
	rr := env.doRaw(t, "POST", "/sessions", "text/plain", `{"name":"alice"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp errorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error != "invalid_request" {
		t.Fatalf("expected invalid_request, got %s", resp.Error)
	}
}

// --- Sessions ---

func TestSession_LogonLogout(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "POST", "/sessions", map[string]any{"name": "alice"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["name"] != "alice" || resp["transport"] != "http" || resp["active"] != true {
		t.Fatalf("unexpected logon response: %v", resp)
	}
	if resp["logged_out_at"] != nil {
		t.Fatalf("logged_out_at should be null, got %v", resp["logged_out_at"])
	}
	if _, err := time.Parse(time.RFC3339, resp["logged_on_at"].(string)); err != nil {
		t.Fatalf("logged_on_at not RFC 3339: %v", err)
	}

	sid := resp["session_id"].(string)
	rr = env.doJSON(t, "DELETE", "/sessions/"+sid, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	decodeJSON(t, rr, &resp)
	if resp["active"] != false || resp["logged_out_at"] == nil {
		t.Fatalf("expected inactive session, got %v", resp)
	}

	rr = env.doJSON(t, "DELETE", "/sessions/"+sid, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second logout: expected 404, got %d", rr.Code)
	}
}

func TestSession_InvalidName(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "POST", "/sessions", map[string]any{"name": "bad name!"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp errorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error != "validation_error" {
		t.Fatalf("expected validation_error, got %s", resp.Error)
	}
}

func TestSession_UnknownField(t *testing.T) {
	env := newTestEnv()
	rr := env.doRaw(t, "POST", "/sessions", "application/json", `{"name":"alice","role":"admin"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSession_LimitReached(t *testing.T) {
	env := newTestEnvWithLimit(1)
	env.logon(t, "alice")

	rr := env.doJSON(t, "POST", "/sessions", map[string]any{"name": "bob"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	var resp errorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error != "session_limit_reached" {
		t.Fatalf("expected session_limit_reached, got %s", resp.Error)
	}
}

func TestSession_ListFills(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")

	env.submit(t, sid, map[string]any{
		"order_ref_id": "o1", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 10,
	})
	env.submit(t, sid, map[string]any{
		"order_ref_id": "o2", "symbol": "AAPL", "side": "buy", "kind": "limit", "quantity": 10, "limit_price": 170.01,
	})
	env.submit(t, sid, map[string]any{
		"order_ref_id": "o3", "symbol": "AAPL", "side": "sell", "kind": "market", "quantity": 10,
	})

	rr := env.doJSON(t, "GET", "/sessions/"+sid+"/fills", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var list fillListResponse
	decodeJSON(t, rr, &list)
	if list.Total != 3 || len(list.Fills) != 3 || list.Page != 1 || list.Limit != 20 {
		t.Fatalf("unexpected list: total=%d len=%d page=%d limit=%d", list.Total, len(list.Fills), list.Page, list.Limit)
	}
	if list.Fills[0].OrderRefID != "o3" {
		t.Fatalf("expected newest first, got %s", list.Fills[0].OrderRefID)
	}

	rr = env.doJSON(t, "GET", "/sessions/"+sid+"/fills?status=rejected", nil)
	decodeJSON(t, rr, &list)
	if list.Total != 1 || list.Fills[0].OrderRefID != "o2" {
		t.Fatalf("expected only o2 rejected, got %+v", list)
	}

	rr = env.doJSON(t, "GET", "/sessions/"+sid+"/fills?page=2&limit=2", nil)
	decodeJSON(t, rr, &list)
	if list.Total != 3 || len(list.Fills) != 1 || list.Fills[0].OrderRefID != "o1" {
		t.Fatalf("unexpected second page: %+v", list)
	}
}

func TestSession_ListFillsValidation(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"bad page", "/sessions/" + sid + "/fills?page=abc", http.StatusBadRequest},
		{"bad limit", "/sessions/" + sid + "/fills?limit=x", http.StatusBadRequest},
		{"zero page", "/sessions/" + sid + "/fills?page=0", http.StatusBadRequest},
		{"limit too large", "/sessions/" + sid + "/fills?limit=101", http.StatusBadRequest},
		{"bad status", "/sessions/" + sid + "/fills?status=open", http.StatusBadRequest},
		{"unknown session", "/sessions/nope/fills", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doJSON(t, "GET", tt.path, nil)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
		})
	}
}

// --- Orders ---

func TestOrder_MarketBuyFillsAtAsk(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")

	rr := env.submit(t, sid, map[string]any{
		"order_ref_id": "o1", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 100,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)

	if resp["status"] != "filled" {
		t.Fatalf("expected filled, got %v", resp["status"])
	}
	if resp["exec_price"] != 170.02 {
		t.Fatalf("expected exec_price=170.02, got %v", resp["exec_price"])
	}
	if resp["filled_quantity"] != float64(100) || resp["leaves_quantity"] != float64(0) {
		t.Fatalf("unexpected quantities: %v", resp)
	}
	if resp["order_id"] != domain.OrderIDPrefix+"o1" {
		t.Fatalf("unexpected order_id %v", resp["order_id"])
	}
	if resp["reject_reason"] != nil {
		t.Fatalf("reject_reason should be null, got %v", resp["reject_reason"])
	}
	if resp["session_id"] != sid {
		t.Fatalf("expected session_id %s, got %v", sid, resp["session_id"])
	}
}

func TestOrder_LimitNotMarketableIsRejectedResult(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")

	rr := env.submit(t, sid, map[string]any{
		"order_ref_id": "o1", "symbol": "AAPL", "side": "buy", "kind": "limit", "quantity": 50, "limit_price": 170.01,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)

	if resp["status"] != "rejected" {
		t.Fatalf("expected rejected, got %v", resp["status"])
	}
	if resp["exec_price"] != nil {
		t.Fatalf("exec_price should be null, got %v", resp["exec_price"])
	}
	if resp["reject_reason"] != domain.RejectNotMarketable {
		t.Fatalf("unexpected reject_reason %v", resp["reject_reason"])
	}
	if resp["filled_quantity"] != float64(0) || resp["leaves_quantity"] != float64(50) {
		t.Fatalf("unexpected quantities: %v", resp)
	}
}

func TestOrder_SellLimitAtBidFills(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")

	rr := env.submit(t, sid, map[string]any{
		"order_ref_id": "o1", "symbol": "AAPL", "side": "sell", "kind": "limit", "quantity": 5, "limit_price": 170.00,
	})
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["status"] != "filled" || resp["exec_price"] != 170.0 {
		t.Fatalf("expected fill at 170.00, got %v", resp)
	}
}

func TestOrder_NoMarketData(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")

	rr := env.submit(t, sid, map[string]any{
		"order_ref_id": "o1", "symbol": "MSFT", "side": "buy", "kind": "market", "quantity": 1,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["status"] != "rejected" || resp["reject_reason"] != domain.RejectNoMarketData {
		t.Fatalf("expected no-market rejection, got %v", resp)
	}
}

func TestOrder_GatewayErrors(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")

	tests := []struct {
		name      string
		sessionID string
		body      map[string]any
		wantCode  int
		wantError string
	}{
		{
			name:      "missing session header",
			body:      map[string]any{"order_ref_id": "a", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 1},
			wantCode:  http.StatusBadRequest,
			wantError: "validation_error",
		},
		{
			name:      "unknown session",
			sessionID: "nope",
			body:      map[string]any{"order_ref_id": "a", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 1},
			wantCode:  http.StatusNotFound,
			wantError: "session_not_found",
		},
		{
			name:      "zero quantity",
			sessionID: sid,
			body:      map[string]any{"order_ref_id": "a", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 0},
			wantCode:  http.StatusBadRequest,
			wantError: "validation_error",
		},
		{
			name:      "bad side",
			sessionID: sid,
			body:      map[string]any{"order_ref_id": "a", "symbol": "AAPL", "side": "hold", "kind": "market", "quantity": 1},
			wantCode:  http.StatusBadRequest,
			wantError: "validation_error",
		},
		{
			name:      "limit without price",
			sessionID: sid,
			body:      map[string]any{"order_ref_id": "a", "symbol": "AAPL", "side": "buy", "kind": "limit", "quantity": 1},
			wantCode:  http.StatusBadRequest,
			wantError: "validation_error",
		},
		{
			name:      "market with price",
			sessionID: sid,
			body:      map[string]any{"order_ref_id": "a", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 1, "limit_price": 1.0},
			wantCode:  http.StatusBadRequest,
			wantError: "validation_error",
		},
		{
			name:      "unknown field",
			sessionID: sid,
			body:      map[string]any{"order_ref_id": "a", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 1, "tif": "day"},
			wantCode:  http.StatusBadRequest,
			wantError: "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.submit(t, tt.sessionID, tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			var resp errorResponse
			decodeJSON(t, rr, &resp)
			if resp.Error != tt.wantError {
				t.Fatalf("expected %s, got %s", tt.wantError, resp.Error)
			}
		})
	}
}

func TestOrder_DuplicateRef(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")
	body := map[string]any{"order_ref_id": "o1", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 1}

	if rr := env.submit(t, sid, body); rr.Code != http.StatusCreated {
		t.Fatalf("first submit: expected 201, got %d", rr.Code)
	}
	rr := env.submit(t, sid, body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	var resp errorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error != "duplicate_order_ref" {
		t.Fatalf("expected duplicate_order_ref, got %s", resp.Error)
	}
}

func TestOrder_Get(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")
	env.submit(t, sid, map[string]any{
		"order_ref_id": "o1", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 7,
	})

	rr := env.doJSONWithSession(t, "GET", "/orders/o1", sid, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["order_ref_id"] != "o1" || resp["quantity"] != float64(7) {
		t.Fatalf("unexpected result %v", resp)
	}

	rr = env.doJSONWithSession(t, "GET", "/orders/missing", sid, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var errResp errorResponse
	decodeJSON(t, rr, &errResp)
	if errResp.Error != "fill_not_found" {
		t.Fatalf("expected fill_not_found, got %s", errResp.Error)
	}

	// Results are scoped to the session that submitted them.
	other := env.logon(t, "bob")
	rr = env.doJSONWithSession(t, "GET", "/orders/o1", other, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other session, got %d", rr.Code)
	}

	rr = env.doJSON(t, "GET", "/orders/o1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session header, got %d", rr.Code)
	}
}

// --- Markets and quotes ---

func TestMarket_GetAndList(t *testing.T) {
	env := newTestEnv()

	rr := env.doJSON(t, "GET", "/markets/AAPL", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var snap marketResponse
	decodeJSON(t, rr, &snap)
	if snap.Bid != 170.00 || snap.Ask != 170.02 || snap.Mid != 170.01 || !snap.HasMarket {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.UpdatedAt == nil {
		t.Fatal("updated_at should be set")
	}

	rr = env.doJSON(t, "GET", "/markets", nil)
	var list struct {
		Markets []marketResponse `json:"markets"`
	}
	decodeJSON(t, rr, &list)
	if len(list.Markets) != 1 || list.Markets[0].Symbol != "AAPL" {
		t.Fatalf("unexpected markets %+v", list.Markets)
	}
}

func TestMarket_UnknownSymbolIsZero(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "GET", "/markets/ZZZZ", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var snap marketResponse
	decodeJSON(t, rr, &snap)
	if snap.Bid != 0 || snap.Ask != 0 || snap.Mid != 0 || snap.HasMarket || snap.UpdatedAt != nil {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestMarket_Update(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "PUT", "/markets/MSFT", map[string]any{"bid": 410.10, "ask": 410.14})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var snap marketResponse
	decodeJSON(t, rr, &snap)
	if snap.Mid != 410.12 {
		t.Fatalf("expected mid 410.12, got %v", snap.Mid)
	}
	if got := env.markets.Read("MSFT").Ask; !got.Equal(decimal.RequireFromString("410.14")) {
		t.Fatalf("store not updated, ask=%s", got)
	}

	rr = env.doJSON(t, "PUT", "/markets/MSFT", map[string]any{"bid": 1.0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing ask: expected 400, got %d", rr.Code)
	}
}

func TestMarket_UpdateThenOrderUsesNewTouch(t *testing.T) {
	env := newTestEnv()
	sid := env.logon(t, "alice")
	env.doJSON(t, "PUT", "/markets/AAPL", map[string]any{"bid": 171.00, "ask": 171.05})

	rr := env.submit(t, sid, map[string]any{
		"order_ref_id": "o1", "symbol": "AAPL", "side": "sell", "kind": "market", "quantity": 1,
	})
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["exec_price"] != 171.0 {
		t.Fatalf("expected fill at new bid 171.00, got %v", resp["exec_price"])
	}
}

func TestQuotes(t *testing.T) {
	env := newTestEnv()

	rr := env.doJSON(t, "GET", "/quotes/AAPL", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any quote, got %d", rr.Code)
	}

	env.marketSvc.RecordQuote(domain.DesiredQuote{
		Symbol:      "AAPL",
		Mid:         decimal.RequireFromString("170.01"),
		BidPrice:    decimal.RequireFromString("169.99"),
		AskPrice:    decimal.RequireFromString("170.03"),
		Size:        250,
		GeneratedAt: time.Now(),
	})

	rr = env.doJSON(t, "GET", "/quotes/AAPL", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var q quoteResponse
	decodeJSON(t, rr, &q)
	if q.BidPrice != 169.99 || q.AskPrice != 170.03 || q.Size != 250 {
		t.Fatalf("unexpected quote %+v", q)
	}

	rr = env.doJSON(t, "GET", "/quotes", nil)
	var list struct {
		Quotes []quoteResponse `json:"quotes"`
	}
	decodeJSON(t, rr, &list)
	if len(list.Quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(list.Quotes))
	}
}

// --- WebSocket ---

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestWS_OrderSession(t *testing.T) {
	env := newTestEnv()
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "?name=algo1")

	logon := readFrame(t, conn)
	if logon["type"] != "logon" || logon["name"] != "algo1" || logon["transport"] != "ws" {
		t.Fatalf("unexpected logon frame %v", logon)
	}
	sid := logon["session_id"].(string)

	orders := []map[string]any{
		{"order_ref_id": "w1", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 10},
		{"order_ref_id": "w2", "symbol": "AAPL", "side": "sell", "kind": "limit", "quantity": 10, "limit_price": 170.05},
		{"order_ref_id": "w1", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": 10},
	}
	for _, o := range orders {
		if err := conn.WriteJSON(o); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	fill := readFrame(t, conn)
	if fill["type"] != "fill" || fill["status"] != "filled" || fill["exec_price"] != 170.02 || fill["session_id"] != sid {
		t.Fatalf("unexpected fill frame %v", fill)
	}

	rejected := readFrame(t, conn)
	if rejected["type"] != "fill" || rejected["status"] != "rejected" || rejected["reject_reason"] != domain.RejectNotMarketable {
		t.Fatalf("unexpected rejected frame %v", rejected)
	}

	dup := readFrame(t, conn)
	if dup["type"] != "reject_request" || dup["error"] != "duplicate_order_ref" || dup["order_ref_id"] != "w1" {
		t.Fatalf("unexpected duplicate frame %v", dup)
	}
}

func TestWS_MalformedFrame(t *testing.T) {
	env := newTestEnv()
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	readFrame(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame := readFrame(t, conn)
	if frame["type"] != "reject_request" || frame["error"] != "invalid_request" {
		t.Fatalf("unexpected frame %v", frame)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame = readFrame(t, conn)
	if frame["type"] != "reject_request" {
		t.Fatalf("unexpected frame %v", frame)
	}

	if err := conn.WriteJSON(map[string]any{"order_ref_id": "x", "symbol": "AAPL", "side": "buy", "kind": "market", "quantity": -1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame = readFrame(t, conn)
	if frame["type"] != "reject_request" || frame["error"] != "validation_error" {
		t.Fatalf("unexpected frame %v", frame)
	}
}

func TestWS_CloseLogsOut(t *testing.T) {
	env := newTestEnvWithLimit(1)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "?name=algo1")
	readFrame(t, conn)
	if n := len(env.sessionSvc.Active()); n != 1 {
		t.Fatalf("expected 1 active session, got %d", n)
	}

	// A second connection is refused before the upgrade.
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?name=algo2"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected second dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 handshake response, got %v", resp)
	}
	resp.Body.Close()

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for len(env.sessionSvc.Active()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session still active after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
