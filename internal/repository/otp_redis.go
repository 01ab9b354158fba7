package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"food_crm/internal/config"
	"food_crm/internal/models"
)

const (
	otpKeyPrefix = "otp:"
	// Keys outlive the passcode a little so a late verify reports expiry
	// instead of "not found".
	otpKeyGrace = time.Minute
)

const dialTimeout = 5 * time.Second

// NewRedisClient connects to redis and checks the connection with a PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(dialCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis (ping failed): %w", err)
	}
	return client, nil
}

type redisOTPStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisOTPStore returns an OTPStore keeping one JSON value per email.
func NewRedisOTPStore(client *redis.Client) OTPStore {
	return &redisOTPStore{client: client, now: time.Now}
}

func (s *redisOTPStore) key(email string) string {
	return otpKeyPrefix + email
}

func (s *redisOTPStore) Replace(ctx context.Context, otp *models.OTP) error {
	data, err := json.Marshal(otp)
	if err != nil {
		return fmt.Errorf("failed to marshal otp for %s: %w", otp.Email, err)
	}

	ttl := otp.ExpiresAt.Sub(s.now()) + otpKeyGrace
	if ttl <= 0 {
		ttl = otpKeyGrace
	}
	// SET overwrites any previous value, so replace is a single command.
	if err := s.client.Set(ctx, s.key(otp.Email), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save otp for %s to redis: %w", otp.Email, err)
	}
	return nil
}

func (s *redisOTPStore) Latest(ctx context.Context, email string) (*models.OTP, error) {
	val, err := s.client.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get otp for %s from redis: %w", email, err)
	}

	var otp models.OTP
	if err := json.Unmarshal(val, &otp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal otp for %s: %w", email, err)
	}
	return &otp, nil
}

// Delete removes the key only while it still holds otp, so a passcode issued
// concurrently is not lost. A missing or different value, or losing the race
// to another writer, reports ErrNotFound.
func (s *redisOTPStore) Delete(ctx context.Context, otp *models.OTP) error {
	key := s.key(otp.Email)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var current models.OTP
		if err := json.Unmarshal(val, &current); err != nil {
			return err
		}
		if current.Code != otp.Code || !current.CreatedAt.Equal(otp.CreatedAt) {
			return ErrNotFound
		}
		var del *redis.IntCmd
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, key)
			return nil
		}); err != nil {
			return err
		}
		if del.Val() == 0 {
			return ErrNotFound
		}
		return nil
	}, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, redis.TxFailedErr):
		return ErrNotFound
	default:
		return fmt.Errorf("failed to delete otp for %s from redis: %w", otp.Email, err)
	}
}
