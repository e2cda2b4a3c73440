package domain

import "time"

// Session is the authenticated identity every inventory operation runs as.
type Session struct {
	UserID    string
	Email     string
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

func (s Session) Valid() bool {
	return s.UserID != ""
}

type AuthEventType string

const (
	AuthEventSignedIn  AuthEventType = "signed_in"
	AuthEventSignedOut AuthEventType = "signed_out"
	AuthEventDeleted   AuthEventType = "deleted"
)

type AuthEvent struct {
	Type    AuthEventType
	Session Session
	At      time.Time
}
