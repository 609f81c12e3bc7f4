package models

import (
	"strings"
	"time"
)

type LifecycleStatus string

const (
	StatusPending LifecycleStatus = "pending"
	StatusActive  LifecycleStatus = "active"
	StatusExpired LifecycleStatus = "expired"
)

// ShareRecord describes one shared file's access rules and availability
// window. The token doubles as the public link segment and must come from a
// cryptographically secure source. Records are immutable after creation;
// deletion removes them entirely.
type ShareRecord struct {
	Token         string
	OwnerID       string
	OwnerEmail    string
	FileName      string
	SizeBytes     int64
	Public        bool
	SharedWith    []string
	PasswordHash  []byte
	RequireTOTP   bool
	AvailableFrom *time.Time
	AvailableTo   *time.Time
	CreatedAt     time.Time
}

// Status derives the lifecycle classification from the availability window.
// Both bounds are inclusive: the record is active at exactly AvailableFrom
// and at exactly AvailableTo. A record with no window is always active.
func (r ShareRecord) Status(now time.Time) LifecycleStatus {
	if r.AvailableFrom != nil && now.Before(*r.AvailableFrom) {
		return StatusPending
	}
	if r.AvailableTo != nil && now.After(*r.AvailableTo) {
		return StatusExpired
	}
	return StatusActive
}

// AllowsViewer reports whether the given requester identity may see a
// restricted record. The owner is always allowed; invited emails are matched
// case-insensitively. An empty identity never passes.
func (r ShareRecord) AllowsViewer(email string) bool {
	if email == "" {
		return false
	}
	if strings.EqualFold(email, r.OwnerEmail) {
		return true
	}
	for _, invited := range r.SharedWith {
		if strings.EqualFold(email, invited) {
			return true
		}
	}
	return false
}

func (r ShareRecord) PasswordProtected() bool {
	return len(r.PasswordHash) > 0
}
