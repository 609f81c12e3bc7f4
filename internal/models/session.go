package models

import "time"

type SessionKind string

const (
	// SessionAuthenticated grants access to protected operations.
	SessionAuthenticated SessionKind = "authenticated"
	// SessionPendingSecondFactor proves password correctness only; it is
	// consumed by a successful TOTP verification or expires.
	SessionPendingSecondFactor SessionKind = "pending_2fa"
)

type Session struct {
	Token     string
	UserID    string
	Email     string
	Kind      SessionKind
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
