package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"filegate/api/internal/models"
	"filegate/api/internal/security"
	"filegate/api/internal/store"
	"filegate/api/internal/totp"
)

// AccessService evaluates what a share link currently permits. Evaluate is a
// pure function of (record state, credentials, current time); it never
// mutates anything.
type AccessService struct {
	shares store.ShareStore
	users  store.UserStore
	engine *totp.Engine
	log    zerolog.Logger
	now    func() time.Time
}

func NewAccessService(shares store.ShareStore, users store.UserStore, engine *totp.Engine, log zerolog.Logger) *AccessService {
	return &AccessService{
		shares: shares,
		users:  users,
		engine: engine,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (s *AccessService) WithClock(now func() time.Time) *AccessService {
	s.now = now
	return s
}

// Credentials carries everything a requester can present for a share:
// an authenticated identity (may be empty), the share password, and a TOTP
// code for the owner's secret.
type Credentials struct {
	RequesterEmail string
	Password       string
	TOTPCode       string
}

type AccessDecision struct {
	Status  models.LifecycleStatus
	Granted bool
	Record  models.ShareRecord
}

// Evaluate runs the gates in their fixed order: lifecycle, visibility,
// password, second factor. The ordering is load-bearing — a requester who
// fails an early gate learns nothing about the existence of later ones.
func (s *AccessService) Evaluate(ctx context.Context, shareToken string, creds Credentials) (AccessDecision, error) {
	rec, err := s.shares.GetByToken(ctx, shareToken)
	if err != nil {
		if errors.Is(err, store.ErrShareNotFound) {
			return AccessDecision{}, ErrNotFound
		}
		return AccessDecision{}, err
	}

	now := s.now()
	decision := AccessDecision{Status: rec.Status(now), Record: rec}

	if decision.Status != models.StatusActive {
		return decision, ErrNotAvailable
	}

	if !rec.Public && !rec.AllowsViewer(creds.RequesterEmail) {
		return decision, ErrNotInvited
	}

	if rec.PasswordProtected() {
		ok, err := security.VerifyPassword(creds.Password, rec.PasswordHash)
		if err != nil || !ok {
			return decision, ErrWrongPassword
		}
	}

	if rec.RequireTOTP && !s.verifyOwnerCode(ctx, rec, creds.TOTPCode, now) {
		return decision, ErrInvalidCode
	}

	decision.Granted = true
	return decision, nil
}

// verifyOwnerCode checks a presented code against the share owner's enrolled
// secret. An owner without an enabled secret fails closed: the gate was
// requested, so nobody passes it.
func (s *AccessService) verifyOwnerCode(ctx context.Context, rec models.ShareRecord, code string, now time.Time) bool {
	if code == "" {
		return false
	}

	owner, err := s.users.GetByID(ctx, rec.OwnerID)
	if err != nil {
		s.log.Warn().Str("share", rec.Token).Msg("share owner missing during access evaluation")
		return false
	}
	if !owner.TwoFactor.Enabled() {
		return false
	}
	return s.engine.Verify(owner.TwoFactor.Secret, code, now)
}
