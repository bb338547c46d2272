package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/edutrial/go-auth"
)

func TestMemoryThrottle(t *testing.T) {
	ctx := context.Background()
	throttle := auth.NewMemoryThrottle(50*time.Millisecond, 0)

	ok, err := throttle.Allow(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = throttle.Allow(ctx, testEmail)
	assert.False(t, ok, "second call inside the interval")

	ok, _ = throttle.Allow(ctx, "bob@x.com")
	assert.True(t, ok, "keys are independent")

	assert.Eventually(t, func() bool {
		ok, _ := throttle.Allow(ctx, testEmail)
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestThrottleDisabled(t *testing.T) {
	ctx := context.Background()
	for _, throttle := range []auth.ResendThrottle{
		auth.NewMemoryThrottle(0, 10),
		auth.NewRedisThrottle(nil, -time.Second, ""),
	} {
		for range 3 {
			ok, err := throttle.Allow(ctx, testEmail)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	}
}

func TestRedisThrottle(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	throttle := auth.NewRedisThrottle(client, 30*time.Second, "test:resend:")

	ok, err := throttle.Allow(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("test:resend:"+testEmail))
	assert.Equal(t, 30*time.Second, mr.TTL("test:resend:"+testEmail))

	ok, err = throttle.Allow(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(31 * time.Second)
	ok, err = throttle.Allow(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisThrottle_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	ok, err := auth.NewRedisThrottle(client, time.Minute, "").Allow(context.Background(), testEmail)
	assert.True(t, ok)
	require.Error(t, err)
	assert.Equal(t, auth.CodeInternal, auth.CodeOf(err))
}
