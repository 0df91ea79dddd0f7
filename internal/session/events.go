package session

import (
	"context"
	"time"

	"exptrack/internal/core"
	"exptrack/internal/log"
)

type EventKind string

const (
	EventLogin        EventKind = "login"
	EventRegister     EventKind = "register"
	EventLogout       EventKind = "logout"
	EventExpired      EventKind = "expired"
	EventVerifyFailed EventKind = "verify_failed"
)

// Event describes a session lifecycle transition. It never carries the
// token.
type Event struct {
	Kind     EventKind `json:"kind"`
	UserID   core.ID   `json:"userId,omitempty"`
	Username string    `json:"username,omitempty"`
	Role     core.Role `json:"role"`
	At       time.Time `json:"at"`
}

// EventSink receives session events. Delivery failures are logged and
// never affect the session.
type EventSink interface {
	PublishSessionEvent(ctx context.Context, e Event) error
}

func (s *Store) emit(ctx context.Context, kind EventKind, id *core.Identity) {
	if s.sink == nil {
		return
	}
	e := Event{Kind: kind, At: s.now().UTC()}
	if id != nil {
		e.UserID = id.UserID
		e.Username = id.Username
		e.Role = id.Role
	}
	if err := s.sink.PublishSessionEvent(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish session event",
			log.FieldEvent, string(kind), log.FieldError, err)
	}
}
