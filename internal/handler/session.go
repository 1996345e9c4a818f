package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/mockmaker/internal/domain"
	"github.com/efreitasn/mockmaker/internal/service"
	"github.com/go-chi/chi/v5"
)

// SessionHandler handles HTTP requests for session endpoints.
type SessionHandler struct {
	sessionSvc *service.SessionService
	orderSvc   *service.OrderService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionSvc *service.SessionService, orderSvc *service.OrderService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, orderSvc: orderSvc}
}

// logonRequest is the JSON request body for POST /sessions.
type logonRequest struct {
	Name string `json:"name"`
}

// sessionResponse is the JSON representation of a session.
type sessionResponse struct {
	SessionID   string  `json:"session_id"`
	Name        string  `json:"name"`
	Transport   string  `json:"transport"`
	Active      bool    `json:"active"`
	LoggedOnAt  string  `json:"logged_on_at"`
	LoggedOutAt *string `json:"logged_out_at"`
}

// fillListResponse is the JSON response for GET /sessions/{session_id}/fills.
type fillListResponse struct {
	Fills []fillResponse `json:"fills"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// Logon handles POST /sessions.
func (h *SessionHandler) Logon(w http.ResponseWriter, r *http.Request) {
	var req logonRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess, err := h.sessionSvc.Logon(r.Context(), req.Name, "http")
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildSessionResponse(*sess))
}

// Logout handles DELETE /sessions/{session_id}.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	if err := h.sessionSvc.Logout(sessionID); err != nil {
		mapError(w, err)
		return
	}

	sess, err := h.sessionSvc.Get(sessionID)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildSessionResponse(sess))
}

// ListFills handles GET /sessions/{session_id}/fills.
func (h *SessionHandler) ListFills(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var status *domain.FillStatus
	if s := r.URL.Query().Get("status"); s != "" {
		fs := domain.FillStatus(s)
		status = &fs
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "page must be a valid integer")
			return
		}
		page = v
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
		limit = v
	}

	fills, total, err := h.orderSvc.ListBySession(sessionID, status, page, limit)
	if err != nil {
		mapError(w, err)
		return
	}

	items := make([]fillResponse, len(fills))
	for i, f := range fills {
		items[i] = buildFillResponse(f)
	}

	WriteJSON(w, http.StatusOK, fillListResponse{
		Fills: items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func buildSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		SessionID:   s.SessionID,
		Name:        s.Name,
		Transport:   s.Transport,
		Active:      s.Active(),
		LoggedOnAt:  formatTime(s.LoggedOnAt),
		LoggedOutAt: formatTimePtr(s.LoggedOutAt),
	}
}
