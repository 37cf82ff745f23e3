package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// Claims is the payload of both access and refresh tokens. TokenType
// discriminates the two kinds so a refresh token can never pass where an
// access token is expected.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"uid"`
	Email     string    `json:"email,omitempty"`
	Role      UserRole  `json:"role,omitempty"`
	SessionID uuid.UUID `json:"sid"`
	TokenType string    `json:"type"`
}
