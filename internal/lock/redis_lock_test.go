package lock

import (
	"context"
	"testing"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisLockerDefaultTTL(t *testing.T) {
	l := NewRedisLocker(nil, 0)
	assert.Equal(t, 15*time.Second, l.ttl)
	assert.Equal(t, 50*time.Millisecond, l.retry)
}

func TestAcquireFailsWithoutRedis(t *testing.T) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	release, err := NewRedisLocker(client, time.Second).Acquire(context.Background(), "strava:u1")
	require.Error(t, err)
	assert.Nil(t, release)
	assert.Contains(t, err.Error(), "redis acquire lock failed")
}
