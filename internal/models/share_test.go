package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShareRecordStatusWindow(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 8, 12, 0, 0, 0, time.UTC)
	rec := ShareRecord{AvailableFrom: &from, AvailableTo: &to}

	assert.Equal(t, StatusPending, rec.Status(from.Add(-time.Second)))
	assert.Equal(t, StatusActive, rec.Status(from), "window start is inclusive")
	assert.Equal(t, StatusActive, rec.Status(from.Add(24*time.Hour)))
	assert.Equal(t, StatusActive, rec.Status(to), "window end is inclusive")
	assert.Equal(t, StatusExpired, rec.Status(to.Add(time.Second)))
}

func TestShareRecordStatusOpenEnded(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.Equal(t, StatusActive, ShareRecord{}.Status(now), "no window means always active")

	from := now.Add(time.Hour)
	assert.Equal(t, StatusPending, ShareRecord{AvailableFrom: &from}.Status(now))

	to := now.Add(-time.Hour)
	assert.Equal(t, StatusExpired, ShareRecord{AvailableTo: &to}.Status(now))
}

func TestShareRecordAllowsViewer(t *testing.T) {
	t.Parallel()

	rec := ShareRecord{
		OwnerEmail: "owner@example.com",
		SharedWith: []string{"alice@example.com", "bob@example.com"},
	}

	assert.False(t, rec.AllowsViewer(""), "anonymous never passes")
	assert.True(t, rec.AllowsViewer("owner@example.com"))
	assert.True(t, rec.AllowsViewer("OWNER@Example.COM"), "owner match is case-insensitive")
	assert.True(t, rec.AllowsViewer("alice@example.com"))
	assert.True(t, rec.AllowsViewer("Bob@Example.com"))
	assert.False(t, rec.AllowsViewer("mallory@example.com"))
}

func TestShareRecordPasswordProtected(t *testing.T) {
	t.Parallel()

	assert.False(t, ShareRecord{}.PasswordProtected())
	assert.True(t, ShareRecord{PasswordHash: []byte("x")}.PasswordProtected())
}
