package service

import "errors"

// Every failure the core can produce is one of these kinds; malformed input
// is always translated into one of them, never a panic.
var (
	ErrInvalidCredential  = errors.New("invalid email or password")
	ErrNoPendingChallenge = errors.New("no pending second-factor challenge")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrNotAvailable       = errors.New("share not available")
	ErrNotInvited         = errors.New("not invited to this share")
	ErrWrongPassword      = errors.New("wrong share password")
	ErrWeakPassword       = errors.New("password too short")
	ErrNotEnabled         = errors.New("second factor not enabled")
	ErrEmailTaken         = errors.New("email already registered")
	ErrFileTooLarge       = errors.New("file exceeds the size limit")
	ErrInvalidWindow      = errors.New("availableFrom must be earlier than availableTo")
)
