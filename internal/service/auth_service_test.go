package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp"
	ptotp "github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filegate/api/internal/config"
	"filegate/api/internal/models"
	"filegate/api/internal/store"
	"filegate/api/internal/totp"
)

type authFixture struct {
	svc      *AuthService
	users    *store.MemoryUserStore
	sessions *store.MemorySessionStore
	engine   *totp.Engine
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:    store.NewMemoryUserStore(),
		sessions: store.NewMemorySessionStore(),
		engine:   totp.NewEngine("filegate"),
		now:      time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := config.SecurityConfig{
		SessionTTL: 24 * time.Hour,
		PendingTTL: 5 * time.Minute,
		TOTPIssuer: "filegate",
	}
	f.svc = NewAuthService(f.users, f.sessions, store.NewMemoryPolicyStore(), f.engine, cfg, zerolog.Nop())
	f.svc.WithClock(func() time.Time { return f.now })
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) models.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Username: "tester",
		Password: password,
	})
	require.NoError(t, err)
	return user
}

// enroll walks the full enrollment flow and returns the shared secret.
func (f *authFixture) enroll(t *testing.T, user models.User) string {
	t.Helper()
	ctx := context.Background()

	enrollment, err := f.svc.EnrollSecondFactor(ctx, user)
	require.NoError(t, err)

	pending, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.ConfirmSecondFactorEnrollment(ctx, pending, f.code(t, enrollment.Secret)))
	return enrollment.Secret
}

func (f *authFixture) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := ptotp.GenerateCodeCustom(secret, f.now, ptotp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestRegister(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "Alice@Example.com", "hunter2!")
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.Equal(t, models.UserRoleUser, user.Role)
	assert.Equal(t, models.TwoFactorDisabled, user.TwoFactor.State)

	_, err := f.svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "another1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "", Password: "hunter2!"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLoginWithoutSecondFactor(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")

	result, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)
	assert.False(t, result.RequiresSecondFactor)
	assert.NotEmpty(t, result.Token)

	got, err := f.svc.Validate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.sessions.GetPending(ctx, "alice@example.com")
	assert.ErrorIs(t, err, store.ErrSessionNotFound, "no challenge is created when 2FA is off")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "hunter2!")

	_, err := f.svc.Login(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = f.svc.Login(ctx, "nobody@example.com", "hunter2!")
	assert.ErrorIs(t, err, ErrInvalidCredential, "unknown user and wrong password are indistinguishable")
}

func TestLoginWithSecondFactorWithholdsToken(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")
	secret := f.enroll(t, user)

	result, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)
	assert.True(t, result.RequiresSecondFactor)
	assert.Empty(t, result.Token, "no bearer token before the second factor")

	verified, err := f.svc.VerifySecondFactor(ctx, "alice@example.com", f.code(t, secret))
	require.NoError(t, err)
	assert.NotEmpty(t, verified.Token)

	got, err := f.svc.Validate(ctx, verified.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestVerifySecondFactorWrongCodeKeepsChallenge(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")
	secret := f.enroll(t, user)

	_, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)

	_, err = f.svc.VerifySecondFactor(ctx, "alice@example.com", "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	// The challenge survives a failed attempt; a correct code still works.
	verified, err := f.svc.VerifySecondFactor(ctx, "alice@example.com", f.code(t, secret))
	require.NoError(t, err)
	assert.NotEmpty(t, verified.Token)
}

func TestVerifySecondFactorWithoutChallenge(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	_, err := f.svc.VerifySecondFactor(context.Background(), "alice@example.com", "123456")
	assert.ErrorIs(t, err, ErrNoPendingChallenge)
}

func TestVerifySecondFactorExpiredChallenge(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")
	secret := f.enroll(t, user)

	_, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)

	f.now = f.now.Add(6 * time.Minute)

	_, err = f.svc.VerifySecondFactor(ctx, "alice@example.com", f.code(t, secret))
	assert.ErrorIs(t, err, ErrNoPendingChallenge, "an expired challenge is gone, not retryable")
}

func TestSecondLoginReplacesPendingChallenge(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")
	secret := f.enroll(t, user)

	_, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)

	f.now = f.now.Add(4 * time.Minute)

	// A fresh login resets the pending window.
	_, err = f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)

	f.now = f.now.Add(4 * time.Minute)

	verified, err := f.svc.VerifySecondFactor(ctx, "alice@example.com", f.code(t, secret))
	require.NoError(t, err)
	assert.NotEmpty(t, verified.Token)
}

func TestValidateIsReadOnly(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "hunter2!")
	result, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)

	f.now = f.now.Add(25 * time.Hour)

	_, err = f.svc.Validate(ctx, result.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The expired session is still in the store; only the reaper removes it.
	_, err = f.sessions.Get(ctx, result.Token)
	assert.NoError(t, err)
}

func TestValidateRejectsUnknownAndEmptyTokens(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Validate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Validate(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "hunter2!")
	result, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(ctx, result.Token))

	_, err = f.svc.Validate(ctx, result.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.NoError(t, f.svc.Revoke(ctx, result.Token), "revoking twice succeeds")
	assert.NoError(t, f.svc.Revoke(ctx, "never-issued"), "revoking an unknown token succeeds")
}

func TestEnrollmentDoesNotGateUntilConfirmed(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")

	_, err := f.svc.EnrollSecondFactor(ctx, user)
	require.NoError(t, err)

	// Pending enrollment must not change the login path.
	result, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)
	assert.False(t, result.RequiresSecondFactor)
	assert.NotEmpty(t, result.Token)
}

func TestConfirmEnrollmentRequiresValidCode(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")

	err := f.svc.ConfirmSecondFactorEnrollment(ctx, user, "123456")
	assert.ErrorIs(t, err, ErrNotEnabled, "no enrollment in progress")

	_, err = f.svc.EnrollSecondFactor(ctx, user)
	require.NoError(t, err)

	pending, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)

	err = f.svc.ConfirmSecondFactorEnrollment(ctx, pending, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	got, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TwoFactorPending, got.TwoFactor.State)
}

func TestDisableSecondFactor(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")
	secret := f.enroll(t, user)

	enabled, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)

	err = f.svc.DisableSecondFactor(ctx, enabled, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	require.NoError(t, f.svc.DisableSecondFactor(ctx, enabled, f.code(t, secret)))

	got, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TwoFactorDisabled, got.TwoFactor.State)
	assert.Empty(t, got.TwoFactor.Secret, "secret is discarded on disable")

	err = f.svc.DisableSecondFactor(ctx, got, "123456")
	assert.ErrorIs(t, err, ErrNotEnabled)
}

func TestChangePasswordWithCurrentPassword(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")
	token, err := f.svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, user, PasswordProof{CurrentPassword: "wrong"}, "newpassword")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	err = f.svc.ChangePassword(ctx, user, PasswordProof{CurrentPassword: "hunter2!"}, "tiny")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, f.svc.ChangePassword(ctx, user, PasswordProof{CurrentPassword: "hunter2!"}, "newpassword"))

	_, err = f.svc.Login(ctx, "alice@example.com", "hunter2!")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = f.svc.Login(ctx, "alice@example.com", "newpassword")
	assert.NoError(t, err)

	_, err = f.svc.Validate(ctx, token.Token)
	assert.NoError(t, err, "existing sessions survive a password change")
}

func TestChangePasswordWithTOTPCode(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "hunter2!")

	err := f.svc.ChangePassword(ctx, user, PasswordProof{TOTPCode: "123456"}, "newpassword")
	assert.ErrorIs(t, err, ErrNotEnabled, "a code is only proof for enrolled users")

	secret := f.enroll(t, user)
	enrolled, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, enrolled, PasswordProof{TOTPCode: "000000"}, "newpassword")
	assert.ErrorIs(t, err, ErrInvalidCode)

	require.NoError(t, f.svc.ChangePassword(ctx, enrolled, PasswordProof{TOTPCode: f.code(t, secret)}, "newpassword"))

	err = f.svc.ChangePassword(ctx, enrolled, PasswordProof{}, "anotherpassword")
	assert.ErrorIs(t, err, ErrInvalidCredential, "some proof is required")
}
