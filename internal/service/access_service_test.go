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

	"filegate/api/internal/models"
	"filegate/api/internal/security"
	"filegate/api/internal/store"
	"filegate/api/internal/totp"
)

type accessFixture struct {
	svc    *AccessService
	users  *store.MemoryUserStore
	shares *store.MemoryShareStore
	now    time.Time
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()

	f := &accessFixture{
		users:  store.NewMemoryUserStore(),
		shares: store.NewMemoryShareStore(),
		now:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewAccessService(f.shares, f.users, totp.NewEngine("filegate"), zerolog.Nop())
	f.svc.WithClock(func() time.Time { return f.now })
	return f
}

func (f *accessFixture) addShare(t *testing.T, rec models.ShareRecord) models.ShareRecord {
	t.Helper()
	if rec.Token == "" {
		rec.Token = "share-" + rec.FileName
	}
	require.NoError(t, f.shares.Create(context.Background(), rec))
	return rec
}

func (f *accessFixture) addOwnerWithTOTP(t *testing.T) (models.User, string) {
	t.Helper()

	key, err := ptotp.Generate(ptotp.GenerateOpts{Issuer: "filegate", AccountName: "owner@example.com"})
	require.NoError(t, err)

	owner := models.User{
		ID:    "owner-1",
		Email: "owner@example.com",
		TwoFactor: models.TwoFactor{
			State:  models.TwoFactorEnabled,
			Secret: key.Secret(),
		},
	}
	require.NoError(t, f.users.Create(context.Background(), owner))
	return owner, key.Secret()
}

func (f *accessFixture) code(t *testing.T, secret string) string {
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

func hashOf(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func TestEvaluateUnknownToken(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)

	_, err := f.svc.Evaluate(context.Background(), "no-such-share", Credentials{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluatePublicOpenShare(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)
	rec := f.addShare(t, models.ShareRecord{FileName: "report.pdf", Public: true})

	decision, err := f.svc.Evaluate(context.Background(), rec.Token, Credentials{})
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Equal(t, models.StatusActive, decision.Status)
}

func TestEvaluateWindowBoundaries(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)

	from := f.now.Add(time.Hour)
	to := f.now.Add(48 * time.Hour)
	rec := f.addShare(t, models.ShareRecord{FileName: "win.txt", Public: true, AvailableFrom: &from, AvailableTo: &to})
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, rec.Token, Credentials{})
	assert.ErrorIs(t, err, ErrNotAvailable, "before the window opens")

	f.now = from
	decision, err := f.svc.Evaluate(ctx, rec.Token, Credentials{})
	require.NoError(t, err)
	assert.True(t, decision.Granted, "granted at exactly the opening instant")

	f.now = to
	decision, err = f.svc.Evaluate(ctx, rec.Token, Credentials{})
	require.NoError(t, err)
	assert.True(t, decision.Granted, "granted at exactly the closing instant")

	f.now = to.Add(time.Second)
	decision, err = f.svc.Evaluate(ctx, rec.Token, Credentials{})
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, models.StatusExpired, decision.Status)
}

func TestEvaluateLifecycleBeatsCredentials(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)

	owner, secret := f.addOwnerWithTOTP(t)
	past := f.now.Add(-time.Hour)
	rec := f.addShare(t, models.ShareRecord{
		FileName:     "old.txt",
		OwnerID:      owner.ID,
		OwnerEmail:   owner.Email,
		Public:       true,
		PasswordHash: hashOf(t, "sesame66"),
		RequireTOTP:  true,
		AvailableTo:  &past,
	})

	// Perfect credentials change nothing once the window has closed.
	_, err := f.svc.Evaluate(context.Background(), rec.Token, Credentials{
		RequesterEmail: owner.Email,
		Password:       "sesame66",
		TOTPCode:       f.code(t, secret),
	})
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestEvaluateRestrictedVisibility(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)

	rec := f.addShare(t, models.ShareRecord{
		FileName:   "secret.txt",
		OwnerID:    "owner-1",
		OwnerEmail: "owner@example.com",
		Public:     false,
		SharedWith: []string{"alice@example.com"},
	})
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, rec.Token, Credentials{})
	assert.ErrorIs(t, err, ErrNotInvited, "anonymous requester")

	_, err = f.svc.Evaluate(ctx, rec.Token, Credentials{RequesterEmail: "mallory@example.com"})
	assert.ErrorIs(t, err, ErrNotInvited)

	decision, err := f.svc.Evaluate(ctx, rec.Token, Credentials{RequesterEmail: "Alice@Example.com"})
	require.NoError(t, err)
	assert.True(t, decision.Granted)

	decision, err = f.svc.Evaluate(ctx, rec.Token, Credentials{RequesterEmail: "owner@example.com"})
	require.NoError(t, err)
	assert.True(t, decision.Granted, "the owner always sees their own share")
}

func TestEvaluateVisibilityBeatsPassword(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)

	rec := f.addShare(t, models.ShareRecord{
		FileName:     "guarded.txt",
		OwnerEmail:   "owner@example.com",
		Public:       false,
		SharedWith:   []string{"alice@example.com"},
		PasswordHash: hashOf(t, "sesame66"),
	})

	// An uninvited requester with the right password still only learns
	// they are not invited.
	_, err := f.svc.Evaluate(context.Background(), rec.Token, Credentials{
		RequesterEmail: "mallory@example.com",
		Password:       "sesame66",
	})
	assert.ErrorIs(t, err, ErrNotInvited)
}

func TestEvaluatePasswordGate(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)

	rec := f.addShare(t, models.ShareRecord{
		FileName:     "locked.txt",
		Public:       true,
		PasswordHash: hashOf(t, "sesame66"),
	})
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, rec.Token, Credentials{})
	assert.ErrorIs(t, err, ErrWrongPassword, "missing password")

	_, err = f.svc.Evaluate(ctx, rec.Token, Credentials{Password: "open sesame"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	decision, err := f.svc.Evaluate(ctx, rec.Token, Credentials{Password: "sesame66"})
	require.NoError(t, err)
	assert.True(t, decision.Granted)
}

func TestEvaluateSecondFactorGate(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)

	owner, secret := f.addOwnerWithTOTP(t)
	rec := f.addShare(t, models.ShareRecord{
		FileName:    "vault.txt",
		OwnerID:     owner.ID,
		OwnerEmail:  owner.Email,
		Public:      true,
		RequireTOTP: true,
	})
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, rec.Token, Credentials{})
	assert.ErrorIs(t, err, ErrInvalidCode, "missing code")

	_, err = f.svc.Evaluate(ctx, rec.Token, Credentials{TOTPCode: "000000"})
	assert.ErrorIs(t, err, ErrInvalidCode)

	decision, err := f.svc.Evaluate(ctx, rec.Token, Credentials{TOTPCode: f.code(t, secret)})
	require.NoError(t, err)
	assert.True(t, decision.Granted)
}

func TestEvaluateSecondFactorFailsClosed(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)
	ctx := context.Background()

	// Gate requested but the owner record is missing entirely.
	orphan := f.addShare(t, models.ShareRecord{
		FileName:    "orphan.txt",
		OwnerID:     "gone",
		Public:      true,
		RequireTOTP: true,
	})
	_, err := f.svc.Evaluate(ctx, orphan.Token, Credentials{TOTPCode: "123456"})
	assert.ErrorIs(t, err, ErrInvalidCode)

	// Gate requested but the owner never finished enrollment.
	require.NoError(t, f.users.Create(ctx, models.User{ID: "owner-2", Email: "o2@example.com"}))
	unenrolled := f.addShare(t, models.ShareRecord{
		FileName:    "unenrolled.txt",
		OwnerID:     "owner-2",
		Public:      true,
		RequireTOTP: true,
	})
	_, err = f.svc.Evaluate(ctx, unenrolled.Token, Credentials{TOTPCode: "123456"})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestEvaluateAllGatesTogether(t *testing.T) {
	t.Parallel()
	f := newAccessFixture(t)

	owner, secret := f.addOwnerWithTOTP(t)
	from := f.now.Add(-time.Hour)
	to := f.now.Add(time.Hour)
	rec := f.addShare(t, models.ShareRecord{
		FileName:      "everything.txt",
		OwnerID:       owner.ID,
		OwnerEmail:    owner.Email,
		Public:        false,
		SharedWith:    []string{"alice@example.com"},
		PasswordHash:  hashOf(t, "sesame66"),
		RequireTOTP:   true,
		AvailableFrom: &from,
		AvailableTo:   &to,
	})
	ctx := context.Background()

	creds := Credentials{
		RequesterEmail: "alice@example.com",
		Password:       "sesame66",
		TOTPCode:       f.code(t, secret),
	}

	decision, err := f.svc.Evaluate(ctx, rec.Token, creds)
	require.NoError(t, err)
	assert.True(t, decision.Granted)

	// Evaluation is repeatable; nothing was consumed.
	decision, err = f.svc.Evaluate(ctx, rec.Token, creds)
	require.NoError(t, err)
	assert.True(t, decision.Granted)

	partial := creds
	partial.TOTPCode = ""
	_, err = f.svc.Evaluate(ctx, rec.Token, partial)
	assert.ErrorIs(t, err, ErrInvalidCode, "every gate must pass")
}
