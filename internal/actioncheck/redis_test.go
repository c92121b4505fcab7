package actioncheck

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisCheckerRecordAndCheck(t *testing.T) {
	client := setupTestRedis(t)
	r := NewRedisChecker(client, "")
	ctx := context.Background()

	ok, err := r.CheckRecentAction(ctx, "6.6.6.6", "login", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.RecordAction(ctx, "6.6.6.6", "login"))

	ok, err = r.CheckRecentAction(ctx, "6.6.6.6", "login", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCheckerWindowExcludesOldEntries(t *testing.T) {
	client := setupTestRedis(t)
	r := NewRedisChecker(client, "")
	ctx := context.Background()

	require.NoError(t, r.RecordAction(ctx, "7.7.7.7", "login"))

	ok, err := r.CheckRecentAction(ctx, "7.7.7.7", "login", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCheckerDefaultPrefix(t *testing.T) {
	r := NewRedisChecker(nil, "")
	assert.Equal(t, "actioncheck:1.1.1.1:login", r.setKey("1.1.1.1", "login"))
}
