package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist holds revoked access tokens in Redis until they would have
// expired anyway. Refresh tokens don't need this: deleting the session row is
// their revocation.
type TokenBlacklist struct {
	redis *redis.Client
}

func NewTokenBlacklist(redisClient *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{redis: redisClient}
}

// AddAccessToken revokes an access token for the remainder of its lifetime.
func (b *TokenBlacklist) AddAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, nothing to revoke.
		return nil
	}

	key := tokenKey(token)
	if err := b.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

// IsBlacklisted reports whether the token has been revoked.
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	exists, err := b.redis.Exists(ctx, tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}

	return exists > 0, nil
}

// BlacklistUser invalidates every token issued to the user before now. Used
// after a password reset, where each outstanding access token must die even
// though its session row is already gone.
func (b *TokenBlacklist) BlacklistUser(ctx context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	// Tokens issued before this timestamp are invalid.
	return b.redis.Set(ctx, userKey(userID), time.Now().Unix(), ttl).Err()
}

// IsUserBlacklisted reports whether a token issued at the given time predates
// the user's invalidation marker.
func (b *TokenBlacklist) IsUserBlacklisted(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	timestamp, err := b.redis.Get(ctx, userKey(userID)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return tokenIssuedAt.Before(time.Unix(timestamp, 0)), nil
}

func tokenKey(token string) string {
	return fmt.Sprintf("blacklist:token:%s", token)
}

func userKey(userID string) string {
	return fmt.Sprintf("blacklist:user:%s", userID)
}
