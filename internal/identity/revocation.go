package identity

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList remembers signed-out token ids until they would have expired.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedPrefix = "buildbuddy:revoked:"

type redisRevocations struct {
	rdb *redis.Client
}

// NewRedisRevocations shares revocations across API replicas.
func NewRedisRevocations(rdb *redis.Client) RevocationList {
	return &redisRevocations{rdb: rdb}
}

func (r *redisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedPrefix+jti, 1, ttl).Err()
}

func (r *redisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations keeps revocations in process memory.
func NewMemoryRevocations() RevocationList {
	return &memoryRevocations{entries: map[string]time.Time{}, now: time.Now}
}

func (m *memoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.entries {
		if now.After(exp) {
			delete(m.entries, k)
		}
	}
	if ttl > 0 {
		m.entries[jti] = now.Add(ttl)
	}
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[jti]
	return ok && m.now().Before(exp), nil
}
