package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/mockmaker/internal/domain"
	"github.com/efreitasn/mockmaker/internal/engine"
	"github.com/efreitasn/mockmaker/internal/store"
)

var sessionNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// QuoteController starts and stops the quoting worker.
type QuoteController interface {
	Start(ctx context.Context) error
	Stop()
}

// SessionObserver is told the number of active sessions after every change.
type SessionObserver interface {
	SetActiveSessions(n int)
}

// SessionService handles client logon and logout. Quoting runs only while at
// least one session is logged on when a QuoteController is configured.
type SessionService struct {
	store       *store.SessionStore
	maxSessions int
	quoter      QuoteController
	observer    SessionObserver
	logger      *slog.Logger
	now         func() time.Time

	mu sync.Mutex // serializes logon/logout with quoter transitions
}

// NewSessionService creates a SessionService. A non-positive maxSessions
// allows any number of sessions. quoter and observer may be nil.
func NewSessionService(
	store *store.SessionStore,
	maxSessions int,
	quoter QuoteController,
	observer SessionObserver,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		store:       store,
		maxSessions: maxSessions,
		quoter:      quoter,
		observer:    observer,
		logger:      logger,
		now:         time.Now,
	}
}

// Logon opens a session for name over transport. The first active session
// starts quoting.
func (s *SessionService) Logon(ctx context.Context, name, transport string) (*domain.Session, error) {
	if !sessionNameRegex.MatchString(name) {
		return nil, &domain.ValidationError{
			Message: "name must match ^[a-zA-Z0-9_.-]{1,64}$",
		}
	}

	sess := &domain.Session{
		SessionID:  uuid.New().String(),
		Name:       name,
		Transport:  transport,
		LoggedOnAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.store.Open(sess, s.maxSessions)
	if err != nil {
		s.logger.Warn("logon refused",
			slog.String("name", name),
			slog.Int("active_sessions", active),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	s.setActive(active)

	if active == 1 && s.quoter != nil {
		// The worker outlives the logon request.
		if err := s.quoter.Start(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, engine.ErrWorkerRunning) {
			s.logger.Error("failed to start quoting", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("session logged on",
		slog.String("session_id", sess.SessionID),
		slog.String("name", name),
		slog.String("transport", transport),
		slog.Int("active_sessions", active),
	)
	out := *sess
	return &out, nil
}

// Logout closes a session. The last active session stops quoting and waits
// for the quoting worker to finish.
func (s *SessionService) Logout(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.store.Close(sessionID, s.now())
	if err != nil {
		return err
	}
	s.setActive(active)

	if active == 0 && s.quoter != nil {
		s.quoter.Stop()
	}

	s.logger.Info("session logged out",
		slog.String("session_id", sessionID),
		slog.Int("active_sessions", active),
	)
	return nil
}

// Get returns a session by ID.
func (s *SessionService) Get(sessionID string) (domain.Session, error) {
	return s.store.Get(sessionID)
}

// Active returns all logged-on sessions, oldest first.
func (s *SessionService) Active() []domain.Session {
	return s.store.Active()
}

func (s *SessionService) setActive(n int) {
	if s.observer != nil {
		s.observer.SetActiveSessions(n)
	}
}
