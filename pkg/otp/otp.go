package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
)

const (
	codeKeyPrefix      = "otp:code:"
	rateLimitKeyPrefix = "otp:ratelimit:"

	// DevCode is the fixed code issued outside production so flows can be
	// exercised without a delivery provider.
	DevCode = "123456"
)

// Config bounds issuance and verification. Zero values are not usable; wire
// it from internal/config.
type Config struct {
	Expiry         time.Duration // lifetime of an issued code
	ResendInterval time.Duration // minimum gap between issues for one identity
	RateWindow     time.Duration // rolling window for the volume cap
	MaxPerWindow   int           // issues allowed per window
	MaxAttempts    int           // verification attempts per code
	FixedCode      bool          // dev mode: always issue DevCode
}

type record struct {
	CodeHash  string `json:"code_hash"`
	CreatedAt int64  `json:"created_at"`
	Attempts  int    `json:"attempts"`
}

// Engine generates, stores, rate-limits and verifies one-time passcodes
// against a normalized email or mobile identity. Only a hash of the code is
// ever stored. At most one usable code exists per identity: issuing overwrites
// the previous record.
type Engine struct {
	redis *redis.Client
	cfg   Config
}

func NewEngine(redisClient *redis.Client, cfg Config) *Engine {
	return &Engine{redis: redisClient, cfg: cfg}
}

// Issue generates a new code for the identity and returns the plaintext for
// delivery. Fails with domain.ErrRateLimited when the identity has exhausted
// its volume cap for the current window.
func (e *Engine) Issue(ctx context.Context, identity string) (string, error) {
	identity = Normalize(identity)

	count, err := e.redis.Get(ctx, rateLimitKeyPrefix+identity).Int()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	if count >= e.cfg.MaxPerWindow {
		return "", domain.ErrRateLimited
	}

	code, err := e.generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	rec := record{
		CodeHash:  hashCode(code),
		CreatedAt: time.Now().Unix(),
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	// SET overwrites any prior record, so the previous code is invalidated
	// the instant a new one exists.
	if err := e.redis.Set(ctx, codeKeyPrefix+identity, payload, e.cfg.Expiry).Err(); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}

	if err := e.incrementRateLimit(ctx, identity); err != nil {
		return "", err
	}

	return code, nil
}

// Verify checks the submitted code. On success the record is deleted, so a
// code can never be used twice. A mismatch burns one attempt; exceeding the
// attempt cap deletes the record outright.
func (e *Engine) Verify(ctx context.Context, identity, submitted string) error {
	identity = Normalize(identity)
	key := codeKeyPrefix + identity

	payload, err := e.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("%w: otp expired or not found", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read otp: %w", err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("failed to decode otp record: %w", err)
	}

	if rec.Attempts >= e.cfg.MaxAttempts {
		_ = e.redis.Del(ctx, key).Err()
		return fmt.Errorf("%w: maximum verification attempts exceeded", domain.ErrInvalidCode)
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(submitted)), []byte(rec.CodeHash)) != 1 {
		rec.Attempts++
		if updated, err := json.Marshal(rec); err == nil {
			ttl, ttlErr := e.redis.TTL(ctx, key).Result()
			if ttlErr == nil && ttl > 0 {
				_ = e.redis.Set(ctx, key, updated, ttl).Err()
			}
		}
		return fmt.Errorf("%w: %d attempts remaining", domain.ErrInvalidCode, e.cfg.MaxAttempts-rec.Attempts)
	}

	// Consumed: the record is gone, re-verification fails with NotFound.
	if err := e.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}

	return nil
}

// CanResend reports whether enough time has passed since the last issuance.
// This is independent from the rate-limit window, which bounds volume rather
// than frequency.
func (e *Engine) CanResend(ctx context.Context, identity string) (bool, error) {
	identity = Normalize(identity)

	payload, err := e.redis.Get(ctx, codeKeyPrefix+identity).Bytes()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read otp: %w", err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return false, fmt.Errorf("failed to decode otp record: %w", err)
	}

	issued := time.Unix(rec.CreatedAt, 0)
	return time.Since(issued) > e.cfg.ResendInterval, nil
}

// Invalidate drops any outstanding code for the identity.
func (e *Engine) Invalidate(ctx context.Context, identity string) error {
	return e.redis.Del(ctx, codeKeyPrefix+Normalize(identity)).Err()
}

func (e *Engine) incrementRateLimit(ctx context.Context, identity string) error {
	key := rateLimitKeyPrefix + identity

	count, err := e.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// First issue in the window starts the window's TTL.
	if count == 1 {
		if err := e.redis.Expire(ctx, key, e.cfg.RateWindow).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return nil
}

func (e *Engine) generate() (string, error) {
	if e.cfg.FixedCode {
		return DevCode, nil
	}
	return GenerateCode()
}

// GenerateCode returns a cryptographically random 6-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Normalize canonicalizes an email or mobile identity for keying.
func Normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// HashCode returns the hex SHA-256 of a code, the form codes are stored in.
func HashCode(code string) string {
	return hashCode(code)
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
