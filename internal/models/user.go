package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type TwoFactorState string

const (
	TwoFactorDisabled TwoFactorState = "disabled"
	TwoFactorPending  TwoFactorState = "pending"
	TwoFactorEnabled  TwoFactorState = "enabled"
)

// TwoFactor tracks a user's TOTP enrollment. Secret is non-empty exactly when
// State is not disabled; disabling clears it. A pending enrollment holds a
// secret but does not yet gate login.
type TwoFactor struct {
	State  TwoFactorState
	Secret string
}

func (t TwoFactor) Enabled() bool {
	return t.State == TwoFactorEnabled && t.Secret != ""
}

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash []byte
	Role         UserRole
	TwoFactor    TwoFactor
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
