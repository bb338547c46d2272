package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultResendInterval is the minimum time between two codes for one account
const DefaultResendInterval = 30 * time.Second

const defaultThrottleSize = 10_000

// NoopThrottle allows everything
type NoopThrottle struct{}

func (NoopThrottle) Allow(context.Context, string) (bool, error) { return true, nil }

// MemoryThrottle remembers recent keys in a process local expiring cache
type MemoryThrottle struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, time.Time]
}

var _ ResendThrottle = (*MemoryThrottle)(nil)

// NewMemoryThrottle returns a throttle allowing one call per key per interval.
// A non positive interval disables throttling.
func NewMemoryThrottle(interval time.Duration, size int) ResendThrottle {
	if interval <= 0 {
		return NoopThrottle{}
	}
	if size <= 0 {
		size = defaultThrottleSize
	}
	return &MemoryThrottle{
		cache: expirable.NewLRU[string, time.Time](size, nil, interval),
	}
}

func (t *MemoryThrottle) Allow(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.cache.Get(key); ok {
		return false, nil
	}
	t.cache.Add(key, time.Now())
	return true, nil
}

// RedisThrottle shares throttle marks between instances through Redis
type RedisThrottle struct {
	client   redis.UniversalClient
	interval time.Duration
	prefix   string
}

var _ ResendThrottle = (*RedisThrottle)(nil)

// NewRedisThrottle returns a throttle backed by SET NX with expiry.
// A non positive interval disables throttling.
func NewRedisThrottle(client redis.UniversalClient, interval time.Duration, prefix string) ResendThrottle {
	if interval <= 0 {
		return NoopThrottle{}
	}
	if prefix == "" {
		prefix = "auth:otp:resend:"
	}
	return &RedisThrottle{client: client, interval: interval, prefix: prefix}
}

// Allow fails open: when Redis is unreachable the call is allowed and the
// error returned for logging.
func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := t.client.SetNX(ctx, t.prefix+key, time.Now().Unix(), t.interval).Result()
	if err != nil {
		return true, internalError(err, "resend throttle unavailable")
	}
	return ok, nil
}
