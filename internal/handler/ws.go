package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/efreitasn/mockmaker/internal/domain"
	"github.com/efreitasn/mockmaker/internal/service"
	"github.com/gorilla/websocket"
)

const (
	defaultWSName = "ws-client"
	wsReadLimit   = 64 << 10
	wsWriteWait   = 10 * time.Second
)

// WSHandler runs order sessions over WebSocket. A connection is one session:
// it is logged on before the upgrade and logged out when the connection ends.
// Every text frame is one order and gets exactly one reply frame.
type WSHandler struct {
	sessionSvc *service.SessionService
	orderSvc   *service.OrderService
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionSvc *service.SessionService, orderSvc *service.OrderService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		sessionSvc: sessionSvc,
		orderSvc:   orderSvc,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

type wsLogonFrame struct {
	Type string `json:"type"`
	sessionResponse
}

type wsFillFrame struct {
	Type string `json:"type"`
	fillResponse
}

type wsRejectFrame struct {
	Type       string `json:"type"`
	OrderRefID string `json:"order_ref_id,omitempty"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// Serve handles GET /ws. The optional "name" query parameter names the
// session.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultWSName
	}

	// Logon first so refusals surface as plain HTTP errors.
	sess, err := h.sessionSvc.Logon(r.Context(), name, "ws")
	if err != nil {
		mapError(w, err)
		return
	}
	sessionID := sess.SessionID
	defer func() {
		if err := h.sessionSvc.Logout(sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			h.logger.Warn("ws logout failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	if err := h.write(conn, wsLogonFrame{Type: "logon", sessionResponse: buildSessionResponse(*sess)}); err != nil {
		return
	}

	// Only this loop writes data frames, so replies are serialized per
	// connection.
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("ws read ended",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		if err := h.write(conn, h.handleFrame(r, sessionID, msgType, data)); err != nil {
			return
		}
	}
}

func (h *WSHandler) handleFrame(r *http.Request, sessionID string, msgType int, data []byte) any {
	if msgType != websocket.TextMessage {
		return wsRejectFrame{
			Type:    "reject_request",
			Error:   "invalid_request",
			Message: "Only text frames are accepted",
		}
	}

	var req submitOrderRequest
	if err := parseFrame(data, &req); err != nil {
		return wsRejectFrame{
			Type:    "reject_request",
			Error:   "invalid_request",
			Message: err.Error(),
		}
	}

	result, err := h.orderSvc.Submit(r.Context(), req.toService(sessionID))
	if err != nil {
		_, code, msg := classifyError(err)
		return wsRejectFrame{
			Type:       "reject_request",
			OrderRefID: req.OrderRefID,
			Error:      code,
			Message:    msg,
		}
	}
	return wsFillFrame{Type: "fill", fillResponse: buildFillResponse(result)}
}

func (h *WSHandler) write(conn *websocket.Conn, frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("ws write failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
