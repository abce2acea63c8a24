package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, rules map[string]Rule) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLimiter(client, rules), mr
}

func TestAllowWithPurpose(t *testing.T) {
	limiter, mr := newTestLimiter(t, map[string]Rule{
		PurposeVerify: {Max: 5, Window: 15 * time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := limiter.AllowWithPurpose(ctx, PurposeVerify, "user-1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, err := limiter.AllowWithPurpose(ctx, PurposeVerify, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.AllowWithPurpose(ctx, PurposeVerify, "user-2")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 15*time.Minute, mr.TTL("rl:verify:user-1"))

	mr.FastForward(15 * time.Minute)

	ok, err = limiter.AllowWithPurpose(ctx, PurposeVerify, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowWithPurpose_NormalizesKey(t *testing.T) {
	limiter, _ := newTestLimiter(t, map[string]Rule{
		PurposeLogin: {Max: 1, Window: time.Minute},
	})
	ctx := context.Background()

	ok, err := limiter.AllowWithPurpose(ctx, PurposeLogin, " 10.0.0.1 ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.AllowWithPurpose(ctx, PurposeLogin, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.AllowWithPurpose(ctx, PurposeLogin, "   ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowWithPurpose_UnknownPurpose(t *testing.T) {
	limiter, _ := newTestLimiter(t, nil)

	for i := 0; i < 10; i++ {
		ok, err := limiter.AllowWithPurpose(context.Background(), PurposeSignup, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestCooldown(t *testing.T) {
	limiter, mr := newTestLimiter(t, nil)
	ctx := context.Background()

	ok, err := limiter.Cooldown(ctx, PurposeResend, "user-1", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Cooldown(ctx, PurposeResend, "user-1", 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = limiter.Cooldown(ctx, PurposeResend, "user-1", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, map[string]Rule{
		PurposeLogin: {Max: 1, Window: time.Minute},
	})
	ctx := context.Background()

	_, err := limiter.AllowWithPurpose(ctx, PurposeLogin, "10.0.0.1")
	require.NoError(t, err)
	require.NoError(t, limiter.Reset(ctx, PurposeLogin, "10.0.0.1"))

	ok, err := limiter.AllowWithPurpose(ctx, PurposeLogin, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}
