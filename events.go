package session

import (
	"time"

	"github.com/google/uuid"
)

// AuthEventType enumerates the transitions the provider's auth stream emits.
type AuthEventType string

const (
	EventSignedIn       AuthEventType = "auth.signed_in"
	EventSignedOut      AuthEventType = "auth.signed_out"
	EventTokenRefreshed AuthEventType = "auth.token_refreshed"
	EventUserUpdated    AuthEventType = "auth.user_updated"
)

// AuthEvent is one transition on the provider's auth stream. Session is set
// for SignedIn and TokenRefreshed, User for SignedIn and UserUpdated, neither
// for SignedOut. Events are consumed exactly once, in emission order.
type AuthEvent struct {
	ID         string
	Type       AuthEventType
	Session    *Session
	User       *User
	OccurredAt time.Time
}

// NewAuthEvent stamps a transition with an id and timestamp. Custom
// AuthStream implementations use it to build well-formed events.
func NewAuthEvent(t AuthEventType, s *Session, u *User) AuthEvent {
	return AuthEvent{
		ID:         uuid.New().String(),
		Type:       t,
		Session:    s,
		User:       u,
		OccurredAt: time.Now(),
	}
}
