package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"filegate/api/internal/models"
	"filegate/api/internal/store"
)

const (
	sessionKeyPrefix = "session:"
	pendingKeyPrefix = "pending:"
)

// RedisSessionStore keeps sessions and pending second-factor challenges in
// redis. Key TTLs mirror each session's ExpiresAt so dead entries evict on
// their own; the services still check expiry at read time, the TTL is only a
// backstop against accumulation.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Put(ctx context.Context, sess models.Session) error {
	return s.set(ctx, sessionKeyPrefix+sess.Token, sess)
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (models.Session, error) {
	return s.get(ctx, sessionKeyPrefix+token)
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKeyPrefix+token).Err()
}

func (s *RedisSessionStore) ReplacePending(ctx context.Context, email string, sess models.Session) error {
	// SET overwrites, which is exactly the replace-on-new-attempt semantic.
	return s.set(ctx, pendingKeyPrefix+strings.ToLower(email), sess)
}

func (s *RedisSessionStore) GetPending(ctx context.Context, email string) (models.Session, error) {
	return s.get(ctx, pendingKeyPrefix+strings.ToLower(email))
}

func (s *RedisSessionStore) DeletePending(ctx context.Context, email string) error {
	return s.client.Del(ctx, pendingKeyPrefix+strings.ToLower(email)).Err()
}

func (s *RedisSessionStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	// Redis evicts via the key TTLs set on write.
	return 0, nil
}

func (s *RedisSessionStore) set(ctx context.Context, key string, sess models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return s.client.Del(ctx, key).Err()
	}
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisSessionStore) get(ctx context.Context, key string) (models.Session, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, store.ErrSessionNotFound
		}
		return models.Session{}, err
	}

	var sess models.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return models.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}
