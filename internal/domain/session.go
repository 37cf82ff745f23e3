package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is a live refresh-token grant. The refresh token itself is never
// stored, only its SHA-256 hash. The row is rewritten in place on every
// refresh (rotation) and removed on logout or password reset.
type Session struct {
	ID               uuid.UUID `json:"id" db:"id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	RefreshTokenHash string    `json:"-" db:"refresh_token_hash"`
	IPAddress        string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent        string    `json:"user_agent,omitempty" db:"user_agent"`
	ExpiresAt        time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// IsValid reports whether the session is still within its expiry window.
func (s *Session) IsValid() bool {
	return time.Now().Before(s.ExpiresAt)
}
