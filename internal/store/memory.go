package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"filegate/api/internal/models"
)

// In-memory store implementations. A coarse per-store RWMutex gives the
// per-key atomicity the services require. Used by the test suites and as a
// stand-in until a persistent backend is wired.

type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return ErrEmailTaken
	}
	s.byID[user.ID] = user
	s.byEmail[email] = user.ID
	return nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryUserStore) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	s.byID[id] = user
	return nil
}

func (s *MemoryUserStore) UpdateTwoFactor(_ context.Context, id string, tf models.TwoFactor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.TwoFactor = tf
	user.UpdatedAt = time.Now()
	s.byID[id] = user
	return nil
}

type MemorySessionStore struct {
	mu      sync.RWMutex
	byToken map[string]models.Session
	pending map[string]models.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		byToken: make(map[string]models.Session),
		pending: make(map[string]models.Session),
	}
}

func (s *MemorySessionStore) Put(_ context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[sess.Token] = sess
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, token string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byToken[token]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byToken, token)
	return nil
}

func (s *MemorySessionStore) ReplacePending(_ context.Context, email string, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[strings.ToLower(email)] = sess
	return nil
}

func (s *MemorySessionStore) GetPending(_ context.Context, email string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.pending[strings.ToLower(email)]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemorySessionStore) DeletePending(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, strings.ToLower(email))
	return nil
}

func (s *MemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reaped := 0
	for token, sess := range s.byToken {
		if sess.Expired(now) {
			delete(s.byToken, token)
			reaped++
		}
	}
	for email, sess := range s.pending {
		if sess.Expired(now) {
			delete(s.pending, email)
			reaped++
		}
	}
	return reaped, nil
}

type MemoryShareStore struct {
	mu      sync.RWMutex
	byToken map[string]models.ShareRecord
}

func NewMemoryShareStore() *MemoryShareStore {
	return &MemoryShareStore{byToken: make(map[string]models.ShareRecord)}
}

func (s *MemoryShareStore) Create(_ context.Context, rec models.ShareRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[rec.Token] = rec
	return nil
}

func (s *MemoryShareStore) GetByToken(_ context.Context, token string) (models.ShareRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byToken[token]
	if !ok {
		return models.ShareRecord{}, ErrShareNotFound
	}
	return rec, nil
}

func (s *MemoryShareStore) ListByOwner(_ context.Context, ownerID string) ([]models.ShareRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.ShareRecord
	for _, rec := range s.byToken {
		if rec.OwnerID == ownerID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *MemoryShareStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byToken[token]; !ok {
		return ErrShareNotFound
	}
	delete(s.byToken, token)
	return nil
}

func (s *MemoryShareStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for token, rec := range s.byToken {
		if rec.AvailableTo != nil && rec.AvailableTo.Before(cutoff) {
			delete(s.byToken, token)
			deleted++
		}
	}
	return deleted, nil
}

type MemoryPolicyStore struct {
	mu     sync.RWMutex
	policy models.Policy
}

func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{policy: models.DefaultPolicy()}
}

func (s *MemoryPolicyStore) Get(_ context.Context) (models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy, nil
}

func (s *MemoryPolicyStore) Update(_ context.Context, p models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
	return nil
}
