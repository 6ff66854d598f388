package consultations

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Second

// SubmissionLock holds short-lived keys for in-flight submissions, both per
// client (SubmissionKey) and per day (DayKey). Acquire returns false when
// the key is already held.
type SubmissionLock interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// SubmissionKey identifies one client's attempt at one slot.
func SubmissionKey(email, date, hhmm string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + date + "|" + hhmm
}

// DayKey serializes bookings that land on the same calendar day.
func DayKey(date string) string {
	return "day|" + date
}

// RedisSubmissionLock holds keys with SET NX and a TTL so a crashed request
// cannot block the slot forever.
type RedisSubmissionLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSubmissionLock(client *redis.Client, ttl time.Duration) *RedisSubmissionLock {
	if client == nil {
		panic("consultations: redis client required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisSubmissionLock{client: client, prefix: "consultations:submit:", ttl: ttl}
}

func (l *RedisSubmissionLock) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consultations: acquire submission lock: %w", err)
	}
	return ok, nil
}

func (l *RedisSubmissionLock) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("consultations: release submission lock: %w", err)
	}
	return nil
}

// MemorySubmissionLock is the single-instance fallback when Redis is not
// configured.
type MemorySubmissionLock struct {
	mu   sync.Mutex
	held *expirable.LRU[string, struct{}]
}

func NewMemorySubmissionLock(ttl time.Duration) *MemorySubmissionLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &MemorySubmissionLock{held: expirable.NewLRU[string, struct{}](4096, nil, ttl)}
}

func (l *MemorySubmissionLock) Acquire(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held.Get(key); ok {
		return false, nil
	}
	l.held.Add(key, struct{}{})
	return true, nil
}

func (l *MemorySubmissionLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held.Remove(key)
	return nil
}
