// Package cache keeps short-lived user snapshots in Redis so that token
// resolution does not hit the database on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "user:"

// Key returns the cache key for email.
func Key(email string) string {
	return keyPrefix + email
}

// snapshot is the cached form of a user. Password hash and one-time tokens
// are not cached.
type snapshot struct {
	ID            int64     `json:"id"`
	UserName      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Role          string    `json:"role"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserCache stores user snapshots under "user:<email>" with a fixed TTL.
type UserCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewUserCache(rdb redis.Cmdable, ttl time.Duration) *UserCache {
	return &UserCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached user for email. found is false on a miss.
func (c *UserCache) Get(ctx context.Context, email string) (user *models.User, found bool, err error) {
	raw, err := c.rdb.Get(ctx, Key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache error: %w", err)
	}

	var s snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("cache decode error: %w", err)
	}

	return &models.User{
		ID:            s.ID,
		UserName:      s.UserName,
		Email:         s.Email,
		EmailVerified: s.EmailVerified,
		Role:          models.Role(s.Role),
		AvatarURL:     s.AvatarURL,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}, true, nil
}

// Set stores u under its email.
func (c *UserCache) Set(ctx context.Context, u *models.User) error {
	raw, err := json.Marshal(snapshot{
		ID:            u.ID,
		UserName:      u.UserName,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Role:          string(u.Role),
		AvatarURL:     u.AvatarURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("cache encode error: %w", err)
	}

	if err := c.rdb.Set(ctx, Key(u.Email), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache error: %w", err)
	}
	return nil
}

// Delete drops the entry for email. Deleting a missing key is not an error.
func (c *UserCache) Delete(ctx context.Context, email string) error {
	if err := c.rdb.Del(ctx, Key(email)).Err(); err != nil {
		return fmt.Errorf("cache error: %w", err)
	}
	return nil
}
