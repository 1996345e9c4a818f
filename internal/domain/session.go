package domain

import "time"

// Session is a logical client connection identity held by the gateway.
type Session struct {
	SessionID   string
	Name        string
	Transport   string // "http" or "ws"
	LoggedOnAt  time.Time
	LoggedOutAt *time.Time // nil while active
}

// Active reports whether the session is still logged on.
func (s *Session) Active() bool {
	return s.LoggedOutAt == nil
}
