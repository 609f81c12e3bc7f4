package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"filegate/api/internal/config"
	"filegate/api/internal/ids"
	"filegate/api/internal/models"
	"filegate/api/internal/security"
	"filegate/api/internal/store"
	"filegate/api/internal/totp"
)

// AuthService owns the login state machine and second-factor enrollment.
//
//	Unauthenticated --Login(no 2FA)-->  Authenticated
//	Unauthenticated --Login(2FA)-->     PendingSecondFactor
//	PendingSecondFactor --VerifySecondFactor(valid)--> Authenticated
//	PendingSecondFactor --timeout-->    Unauthenticated
//
// A pending challenge never grants access; it is consumed by a successful
// TOTP verification or expires. A second login attempt replaces it.
type AuthService struct {
	users    store.UserStore
	sessions store.SessionStore
	policies store.PolicyStore
	engine   *totp.Engine
	cfg      config.SecurityConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users store.UserStore,
	sessions store.SessionStore,
	policies store.PolicyStore,
	engine *totp.Engine,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		policies: policies,
		engine:   engine,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return models.User{}, ErrInvalidCredential
	}

	policy, err := s.policies.Get(ctx)
	if err != nil {
		return models.User{}, err
	}
	if len(input.Password) < policy.MinPasswordLength {
		return models.User{}, ErrWeakPassword
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		Username:     input.Username,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
		TwoFactor:    models.TwoFactor{State: models.TwoFactorDisabled},
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// LoginResult is the tagged outcome of the two-step login. When
// RequiresSecondFactor is set no token has been issued; the caller must
// follow up with VerifySecondFactor.
type LoginResult struct {
	RequiresSecondFactor bool
	Token                string
	User                 models.User
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredential
		}
		return LoginResult{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredential
	}

	if user.TwoFactor.Enabled() {
		token, err := security.NewSessionToken()
		if err != nil {
			return LoginResult{}, err
		}
		now := s.now()
		pending := models.Session{
			Token:     token,
			UserID:    user.ID,
			Email:     user.Email,
			Kind:      models.SessionPendingSecondFactor,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.PendingTTL),
		}
		if err := s.sessions.ReplacePending(ctx, email, pending); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{RequiresSecondFactor: true}, nil
	}

	return s.mintSession(ctx, user)
}

func (s *AuthService) VerifySecondFactor(ctx context.Context, email, code string) (LoginResult, error) {
	email = normalizeEmail(email)

	pending, err := s.sessions.GetPending(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return LoginResult{}, ErrNoPendingChallenge
		}
		return LoginResult{}, err
	}
	if pending.Expired(s.now()) {
		_ = s.sessions.DeletePending(ctx, email)
		return LoginResult{}, ErrNoPendingChallenge
	}

	user, err := s.users.GetByID(ctx, pending.UserID)
	if err != nil || !user.TwoFactor.Enabled() {
		return LoginResult{}, ErrNoPendingChallenge
	}

	if !s.engine.Verify(user.TwoFactor.Secret, code, s.now()) {
		// The challenge stays live; the caller may retry until it expires.
		return LoginResult{}, ErrInvalidCode
	}

	if err := s.sessions.DeletePending(ctx, email); err != nil {
		return LoginResult{}, err
	}
	return s.mintSession(ctx, user)
}

// Validate resolves a bearer token to its user. It is a pure read: expired
// or pending sessions fail without being mutated, the reaper owns cleanup.
func (s *AuthService) Validate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthorized
	}

	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, err
	}
	if sess.Kind != models.SessionAuthenticated || sess.Expired(s.now()) {
		return models.User{}, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return models.User{}, ErrUnauthorized
	}
	return user, nil
}

// Revoke removes a session. Revoking an unknown token succeeds.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// EnrollSecondFactor generates a fresh secret and stores it as a pending
// enrollment. Login gating only begins once the user confirms a code.
func (s *AuthService) EnrollSecondFactor(ctx context.Context, user models.User) (totp.Enrollment, error) {
	enrollment, err := s.engine.Enroll(user.Email)
	if err != nil {
		return totp.Enrollment{}, err
	}

	tf := models.TwoFactor{State: models.TwoFactorPending, Secret: enrollment.Secret}
	if err := s.users.UpdateTwoFactor(ctx, user.ID, tf); err != nil {
		return totp.Enrollment{}, err
	}
	return enrollment, nil
}

func (s *AuthService) ConfirmSecondFactorEnrollment(ctx context.Context, user models.User, code string) error {
	if user.TwoFactor.State == models.TwoFactorDisabled || user.TwoFactor.Secret == "" {
		return ErrNotEnabled
	}
	if !s.engine.Verify(user.TwoFactor.Secret, code, s.now()) {
		return ErrInvalidCode
	}

	tf := models.TwoFactor{State: models.TwoFactorEnabled, Secret: user.TwoFactor.Secret}
	if err := s.users.UpdateTwoFactor(ctx, user.ID, tf); err != nil {
		return err
	}
	s.log.Info().Str("user_id", user.ID).Msg("second factor enabled")
	return nil
}

// DisableSecondFactor requires a currently valid code and then clears the
// secret entirely.
func (s *AuthService) DisableSecondFactor(ctx context.Context, user models.User, code string) error {
	if !user.TwoFactor.Enabled() {
		return ErrNotEnabled
	}
	if !s.engine.Verify(user.TwoFactor.Secret, code, s.now()) {
		return ErrInvalidCode
	}

	if err := s.users.UpdateTwoFactor(ctx, user.ID, models.TwoFactor{State: models.TwoFactorDisabled}); err != nil {
		return err
	}
	s.log.Info().Str("user_id", user.ID).Msg("second factor disabled")
	return nil
}

// PasswordProof is the evidence presented for a password change: either the
// current password or, for enrolled users, a live TOTP code.
type PasswordProof struct {
	CurrentPassword string
	TOTPCode        string
}

// ChangePassword replaces the password hash. Existing sessions stay valid;
// the caller revokes them separately if that is wanted.
func (s *AuthService) ChangePassword(ctx context.Context, user models.User, proof PasswordProof, newPassword string) error {
	policy, err := s.policies.Get(ctx)
	if err != nil {
		return err
	}
	if len(newPassword) < policy.MinPasswordLength {
		return ErrWeakPassword
	}

	switch {
	case proof.CurrentPassword != "":
		ok, err := security.VerifyPassword(proof.CurrentPassword, user.PasswordHash)
		if err != nil || !ok {
			return ErrInvalidCredential
		}
	case proof.TOTPCode != "":
		if !user.TwoFactor.Enabled() {
			return ErrNotEnabled
		}
		if !s.engine.Verify(user.TwoFactor.Secret, proof.TOTPCode, s.now()) {
			return ErrInvalidCode
		}
	default:
		return ErrInvalidCredential
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, user.ID, hash)
}

func (s *AuthService) mintSession(ctx context.Context, user models.User) (LoginResult, error) {
	token, err := security.NewSessionToken()
	if err != nil {
		return LoginResult{}, err
	}

	now := s.now()
	sess := models.Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		Kind:      models.SessionAuthenticated,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
