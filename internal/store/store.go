// Package store defines the persistence interfaces the services depend on.
// Every implementation must provide per-key atomicity: a read never observes
// a record mid-mutation. Backends are swappable; the postgres repositories,
// the redis session store, and the in-memory stores in this package all
// satisfy these contracts.
package store

import (
	"context"
	"errors"
	"time"

	"filegate/api/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session not found")
	ErrShareNotFound   = errors.New("share not found")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
	UpdateTwoFactor(ctx context.Context, id string, tf models.TwoFactor) error
}

type SessionStore interface {
	Put(ctx context.Context, s models.Session) error
	Get(ctx context.Context, token string) (models.Session, error)
	// Delete is idempotent; removing an absent token is not an error.
	Delete(ctx context.Context, token string) error

	// ReplacePending installs the pending second-factor challenge for an
	// email, displacing any prior one. At most one pending challenge exists
	// per user.
	ReplacePending(ctx context.Context, email string, s models.Session) error
	GetPending(ctx context.Context, email string) (models.Session, error)
	DeletePending(ctx context.Context, email string) error

	// DeleteExpired reaps sessions past their expiry. Purely an
	// optimization: expiry is always enforced lazily at read time.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type ShareStore interface {
	Create(ctx context.Context, rec models.ShareRecord) error
	GetByToken(ctx context.Context, token string) (models.ShareRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.ShareRecord, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes records whose window closed before the cutoff
	// and reports how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type PolicyStore interface {
	Get(ctx context.Context) (models.Policy, error)
	Update(ctx context.Context, p models.Policy) error
}
