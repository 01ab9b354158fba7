package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food_crm/internal/config"
	"food_crm/internal/models"
)

func newRedisStore(t *testing.T, now time.Time) (*miniredis.Miniredis, *redisOTPStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisOTPStore(client).(*redisOTPStore)
	store.now = func() time.Time { return now }
	return mr, store
}

func TestRedisOTPStoreReplaceSetsTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mr, store := newRedisStore(t, now)
	ctx := context.Background()

	otp := &models.OTP{Email: "a@x.com", Code: "123456", CreatedAt: now, ExpiresAt: now.Add(models.OTPValidity)}
	require.NoError(t, store.Replace(ctx, otp))

	assert.True(t, mr.Exists("otp:a@x.com"))
	assert.Equal(t, 6*time.Minute, mr.TTL("otp:a@x.com"))

	got, err := store.Latest(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Code)
	assert.True(t, got.ExpiresAt.Equal(otp.ExpiresAt))

	mr.FastForward(6*time.Minute + time.Second)
	_, err = store.Latest(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisOTPStoreReplaceOverwrites(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_, store := newRedisStore(t, now)
	ctx := context.Background()

	first := &models.OTP{Email: "a@x.com", Code: "111111", CreatedAt: now, ExpiresAt: now.Add(models.OTPValidity)}
	second := &models.OTP{Email: "a@x.com", Code: "222222", CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(models.OTPValidity + time.Second)}
	require.NoError(t, store.Replace(ctx, first))
	require.NoError(t, store.Replace(ctx, second))

	got, err := store.Latest(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", got.Code)

	// deleting the stale passcode must not drop the fresh one
	assert.ErrorIs(t, store.Delete(ctx, first), ErrNotFound)
	got, err = store.Latest(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", got.Code)

	require.NoError(t, store.Delete(ctx, got))
	_, err = store.Latest(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, got), ErrNotFound, "a consumed passcode cannot be deleted twice")
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
