package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/repository"
)

// SessionService owns the lifecycle of refresh-token sessions: creation under
// the per-user concurrency cap, rotation on refresh, and revocation.
type SessionService struct {
	sessionRepo   repository.SessionRepository
	maxConcurrent int
	expiry        time.Duration
}

func NewSessionService(sessionRepo repository.SessionRepository, maxConcurrent int, expiry time.Duration) *SessionService {
	return &SessionService{
		sessionRepo:   sessionRepo,
		maxConcurrent: maxConcurrent,
		expiry:        expiry,
	}
}

// Create inserts a session with a caller-chosen id (the id goes into the
// token claims, so it exists before the tokens do). The concurrency cap is
// soft: when the user is at or over it, the oldest live session is evicted to
// make room, so a login never fails on the cap alone. The read-evict-insert
// sequence is not transactional; brief overshoot under heavy concurrent login
// is tolerated.
func (s *SessionService) Create(ctx context.Context, id, userID uuid.UUID, refreshTokenHash, ipAddress, userAgent string) (*domain.Session, error) {
	live, err := s.sessionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(live) >= s.maxConcurrent {
		// Newest first, so the oldest is last.
		oldest := live[len(live)-1]
		if err := s.sessionRepo.Delete(ctx, oldest.ID); err != nil {
			log.Printf("[SESSION] Failed to evict oldest session %s for user %s: %v", oldest.ID, userID, err)
		}
	}

	session := &domain.Session{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: refreshTokenHash,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		ExpiresAt:        time.Now().Add(s.expiry),
		CreatedAt:        time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Rotate replaces the session's token material in place: same id, new hash,
// new expiry. The previous refresh token becomes permanently unusable because
// nothing matches its hash anymore.
func (s *SessionService) Rotate(ctx context.Context, session *domain.Session, newRefreshTokenHash string) error {
	session.RefreshTokenHash = newRefreshTokenHash
	session.ExpiresAt = time.Now().Add(s.expiry)

	return s.sessionRepo.Update(ctx, session)
}

// FindByRefreshToken resolves a plaintext refresh token to its session.
func (s *SessionService) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.sessionRepo.GetByTokenHash(ctx, HashToken(refreshToken))
}

func (s *SessionService) FindByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

// ListForUser returns the user's live sessions, newest first.
func (s *SessionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	return s.sessionRepo.GetByUserID(ctx, userID)
}

func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.sessionRepo.Delete(ctx, id)
}

// RevokeByRefreshToken deletes the session holding the given refresh token.
func (s *SessionService) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	return s.sessionRepo.DeleteByTokenHash(ctx, HashToken(refreshToken))
}

// RevokeAllForUser deletes every session the user holds. Used by logout-all
// and unconditionally by password reset.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return s.sessionRepo.DeleteAllForUser(ctx, userID)
}

// DeleteExpired garbage-collects expired rows; run from the periodic sweep.
func (s *SessionService) DeleteExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx)
}

// HashToken returns the hex SHA-256 of a token. Sessions store only this
// hash, so a database leak does not leak usable refresh tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
