package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"filegate/api/internal/models"
	"filegate/api/internal/security"
	"filegate/api/internal/store"
)

// ShareService covers the owner-facing share lifecycle: creation on upload,
// listing with derived status, deletion, and the retention cleanup pass.
type ShareService struct {
	shares   store.ShareStore
	policies store.PolicyStore
	log      zerolog.Logger
	now      func() time.Time
}

func NewShareService(shares store.ShareStore, policies store.PolicyStore, log zerolog.Logger) *ShareService {
	return &ShareService{
		shares:   shares,
		policies: policies,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (s *ShareService) WithClock(now func() time.Time) *ShareService {
	s.now = now
	return s
}

type CreateShareInput struct {
	Owner         models.User
	FileName      string
	SizeBytes     int64
	Public        bool
	Password      string
	SharedWith    []string
	AvailableFrom *time.Time
	AvailableTo   *time.Time
	RequireTOTP   bool
}

// Create validates the input against the admin policy and persists a new
// record. The record is immutable afterwards.
func (s *ShareService) Create(ctx context.Context, input CreateShareInput) (models.ShareRecord, error) {
	policy, err := s.policies.Get(ctx)
	if err != nil {
		return models.ShareRecord{}, err
	}

	if input.SizeBytes > policy.MaxFileSizeBytes() {
		return models.ShareRecord{}, ErrFileTooLarge
	}
	if input.Password != "" && len(input.Password) < policy.MinPasswordLength {
		return models.ShareRecord{}, ErrWeakPassword
	}
	if input.AvailableFrom != nil && input.AvailableTo != nil && !input.AvailableFrom.Before(*input.AvailableTo) {
		return models.ShareRecord{}, ErrInvalidWindow
	}

	var passwordHash []byte
	if input.Password != "" {
		passwordHash, err = security.HashPassword(input.Password)
		if err != nil {
			return models.ShareRecord{}, err
		}
	}

	token, err := security.NewShareToken()
	if err != nil {
		return models.ShareRecord{}, err
	}

	invited := make([]string, 0, len(input.SharedWith))
	for _, email := range input.SharedWith {
		email = strings.TrimSpace(strings.ToLower(email))
		if email != "" {
			invited = append(invited, email)
		}
	}

	rec := models.ShareRecord{
		Token:         token,
		OwnerID:       input.Owner.ID,
		OwnerEmail:    input.Owner.Email,
		FileName:      input.FileName,
		SizeBytes:     input.SizeBytes,
		Public:        input.Public,
		SharedWith:    invited,
		PasswordHash:  passwordHash,
		RequireTOTP:   input.RequireTOTP,
		AvailableFrom: input.AvailableFrom,
		AvailableTo:   input.AvailableTo,
		CreatedAt:     s.now(),
	}

	if err := s.shares.Create(ctx, rec); err != nil {
		return models.ShareRecord{}, err
	}

	s.log.Info().Str("share", rec.Token).Str("owner", rec.OwnerID).Msg("share created")
	return rec, nil
}

type ListQuery struct {
	Status string // pending | active | expired | all
	Page   int
	Limit  int
	SortBy string // fileName | createdAt
	Order  string // asc | desc
}

type ShareSummaryCounts struct {
	Active  int
	Pending int
	Expired int
}

type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalFiles  int
	Limit       int
}

type ListedShare struct {
	Record models.ShareRecord
	Status models.LifecycleStatus
}

type ListResult struct {
	Files      []ListedShare
	Pagination Pagination
	Summary    ShareSummaryCounts
}

// List returns one page of the owner's shares with derived status. Counts in
// the summary cover the whole filtered set, not just the returned page.
func (s *ShareService) List(ctx context.Context, ownerID string, q ListQuery) (ListResult, error) {
	records, err := s.shares.ListByOwner(ctx, ownerID)
	if err != nil {
		return ListResult{}, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}

	now := s.now()
	filtered := make([]ListedShare, 0, len(records))
	for _, rec := range records {
		status := rec.Status(now)
		if q.Status != "" && q.Status != "all" && string(status) != q.Status {
			continue
		}
		filtered = append(filtered, ListedShare{Record: rec, Status: status})
	}

	desc := q.Order != "asc"
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i].Record, filtered[j].Record
		if desc {
			a, b = b, a
		}
		if q.SortBy == "fileName" {
			return strings.ToLower(a.FileName) < strings.ToLower(b.FileName)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	var summary ShareSummaryCounts
	for _, item := range filtered {
		switch item.Status {
		case models.StatusActive:
			summary.Active++
		case models.StatusPending:
			summary.Pending++
		case models.StatusExpired:
			summary.Expired++
		}
	}

	total := len(filtered)
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	return ListResult{
		Files: filtered[start:end],
		Pagination: Pagination{
			CurrentPage: q.Page,
			TotalPages:  (total + q.Limit - 1) / q.Limit,
			TotalFiles:  total,
			Limit:       q.Limit,
		},
		Summary: summary,
	}, nil
}

// Delete removes a share entirely. Only the owner may delete; there is no
// soft-delete.
func (s *ShareService) Delete(ctx context.Context, user models.User, token string) error {
	rec, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrShareNotFound) {
			return ErrNotFound
		}
		return err
	}
	if rec.OwnerID != user.ID {
		return ErrForbidden
	}
	return s.shares.Delete(ctx, token)
}

// Cleanup deletes shares whose window closed before now and reports the
// count. Also run on a schedule; semantics never depend on it.
func (s *ShareService) Cleanup(ctx context.Context) (int, error) {
	deleted, err := s.shares.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("expired shares removed")
	}
	return deleted, nil
}
