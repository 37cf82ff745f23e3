package domain

import "errors"

// Domain error taxonomy. Services return these (possibly wrapped with %w);
// the handler layer maps them to HTTP statuses.
var (
	// ErrConflict signals a duplicate email or mobile number.
	ErrConflict = errors.New("already registered")

	// ErrUnauthorized covers bad credentials, invalid or expired tokens and
	// deactivated accounts.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPreconditionFailed signals a registration step invoked out of order.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrSessionExpired signals that a registration or auth session TTL lapsed.
	ErrSessionExpired = errors.New("session expired or invalid")

	// ErrRateLimited signals the OTP volume cap was hit.
	ErrRateLimited = errors.New("too many requests")

	// ErrNotFound signals an unknown user, session or OTP record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCode signals an OTP mismatch.
	ErrInvalidCode = errors.New("invalid code")

	// ErrInvalidToken signals a malformed or mis-typed token.
	ErrInvalidToken = errors.New("invalid token")
)
