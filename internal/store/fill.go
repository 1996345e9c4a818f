package store

import (
	"sync"

	"github.com/efreitasn/mockmaker/internal/domain"
)

type fillKey struct {
	sessionID  string
	orderRefID string
}

// FillStore is a thread-safe in-memory store for fill results, keyed by
// (session_id, order_ref_id), with a per-session secondary index used for
// retransmission. Results are never mutated once stored.
type FillStore struct {
	mu           sync.RWMutex
	fills        map[fillKey]domain.FillResult
	sessionFills map[string][]domain.FillResult // session_id → fills (append-only)
}

// NewFillStore creates an empty FillStore.
func NewFillStore() *FillStore {
	return &FillStore{
		fills:        make(map[fillKey]domain.FillResult),
		sessionFills: make(map[string][]domain.FillResult),
	}
}

// Create stores a result. It returns domain.ErrDuplicateOrderRef if the
// session already has a result for the same order reference.
func (s *FillStore) Create(f domain.FillResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fillKey{sessionID: f.SessionID, orderRefID: f.OrderRefID}
	if _, exists := s.fills[key]; exists {
		return domain.ErrDuplicateOrderRef
	}
	s.fills[key] = f
	s.sessionFills[f.SessionID] = append(s.sessionFills[f.SessionID], f)
	return nil
}

// Exists reports whether the session already has a result for orderRefID.
func (s *FillStore) Exists(sessionID, orderRefID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.fills[fillKey{sessionID: sessionID, orderRefID: orderRefID}]
	return ok
}

// Get retrieves a result. It returns domain.ErrFillNotFound if absent.
func (s *FillStore) Get(sessionID, orderRefID string) (domain.FillResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fills[fillKey{sessionID: sessionID, orderRefID: orderRefID}]
	if !ok {
		return domain.FillResult{}, domain.ErrFillNotFound
	}
	return f, nil
}

// ListBySession returns results for a session in reverse chronological order
// (newest first). If status is non-nil, only results with that status are
// included. Pagination is 1-based. Returns the requested page and the total
// count of matching results before pagination.
func (s *FillStore) ListBySession(sessionID string, status *domain.FillStatus, page, limit int) ([]domain.FillResult, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sessionFills[sessionID]

	filtered := make([]domain.FillResult, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if status != nil && all[i].Status != *status {
			continue
		}
		filtered = append(filtered, all[i])
	}

	total := len(filtered)

	start := (page - 1) * limit
	if start >= total {
		return []domain.FillResult{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return filtered[start:end], total
}
