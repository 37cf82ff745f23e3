package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/repository"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/blacklist"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/hash"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/jwt"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/notifier"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/otp"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/totp"
)

// AuthService sequences the credential store, OTP engine, token issuer and
// session store into the login, refresh, logout and reset use cases. Every
// external entry point that touches credentials goes through here.
type AuthService struct {
	userRepo       repository.UserRepository
	sessions       *SessionService
	tokenService   *jwt.TokenService
	tokenVerifier  jwt.Verifier
	otpEngine      *otp.Engine
	tokenBlacklist *blacklist.TokenBlacklist
	emailNotifier  notifier.Notifier
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessions *SessionService,
	tokenService *jwt.TokenService,
	tokenVerifier jwt.Verifier,
	otpEngine *otp.Engine,
	tokenBlacklist *blacklist.TokenBlacklist,
	emailNotifier notifier.Notifier,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		sessions:       sessions,
		tokenService:   tokenService,
		tokenVerifier:  tokenVerifier,
		otpEngine:      otpEngine,
		tokenBlacklist: tokenBlacklist,
		emailNotifier:  emailNotifier,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	// TwoFactorCode is required on the second round when the account has an
	// authenticator enrolled. Accepts a TOTP code or an unused backup code.
	TwoFactorCode string `json:"two_factor_code,omitempty"`
}

type UserDTO struct {
	ID              uuid.UUID       `json:"id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Role            domain.UserRole `json:"role"`
	IsEmailVerified bool            `json:"is_email_verified"`
}

type LoginResponse struct {
	// VerificationRequired is set instead of tokens when the account's email
	// is not verified yet; a fresh OTP has been issued as a side effect.
	VerificationRequired bool `json:"verification_required,omitempty"`
	// TwoFactorRequired is set instead of tokens when the account has an
	// authenticator enrolled and no code was supplied.
	TwoFactorRequired bool              `json:"two_factor_required,omitempty"`
	Tokens            *domain.TokenPair `json:"tokens,omitempty"`
	User              *UserDTO          `json:"user,omitempty"`
}

// Login checks credentials and issues a token pair. An unverified email does
// not yield tokens: it triggers a verification code (see sendVerificationCode)
// and returns a distinguishable verification-required response.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, ipAddress, userAgent string) (*LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		return nil, err
	}

	// Social/OTP-only accounts carry no password hash and cannot log in here.
	if user.PasswordHash == "" {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	valid, err := hash.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", domain.ErrUnauthorized)
	}

	if !user.IsEmailVerified {
		s.sendVerificationCode(ctx, user.Email)
		return &LoginResponse{VerificationRequired: true}, nil
	}

	if user.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			return &LoginResponse{TwoFactorRequired: true}, nil
		}
		if !s.verifyTwoFactorCode(ctx, user, req.TwoFactorCode) {
			return nil, fmt.Errorf("%w: invalid two-factor code", domain.ErrUnauthorized)
		}
	}

	tokens, err := s.issueSession(ctx, user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("[AUTH] Failed to update last login for %s: %v", user.ID, err)
	}

	return &LoginResponse{Tokens: tokens, User: userDTO(user)}, nil
}

// RefreshTokens exchanges a valid refresh token for a brand-new pair. The
// exchange always rotates: the session row is rewritten in place, so the
// presented token can never be exchanged again.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken, ipAddress, userAgent string) (*domain.TokenPair, error) {
	claims, err := s.tokenService.Verify(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}

	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: session not found", domain.ErrUnauthorized)
		}
		return nil, err
	}

	if !session.IsValid() {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", domain.ErrUnauthorized)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", domain.ErrUnauthorized)
	}

	pair, err := s.tokenService.GenerateTokenPair(user, session.ID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Rotate(ctx, session, HashToken(pair.RefreshToken)); err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes one session by its refresh token. The access token, if
// provided, is blacklisted for its remaining lifetime.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if accessToken != "" {
		if claims, err := s.tokenService.Verify(accessToken, domain.TokenTypeAccess); err == nil && claims.ExpiresAt != nil {
			if err := s.tokenBlacklist.AddAccessToken(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
				log.Printf("[AUTH] Failed to blacklist access token: %v", err)
			}
		}
	}

	if err := s.sessions.RevokeByRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: session not found", domain.ErrUnauthorized)
		}
		return err
	}

	return nil
}

// LogoutAll revokes every session the user holds.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

// RequestPasswordReset issues a reset code if the email belongs to an
// account. It never reveals whether it does: the handler returns the same
// non-committal message either way.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	canResend, err := s.otpEngine.CanResend(ctx, user.Email)
	if err != nil {
		return err
	}
	if !canResend {
		// Treat a too-soon retry like success; the earlier code still works.
		return nil
	}

	code, err := s.otpEngine.Issue(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := s.emailNotifier.SendCode(ctx, user.Email, code); err != nil {
		log.Printf("[AUTH] Failed to deliver reset code to %s: %v", user.Email, err)
	}

	return nil
}

// ResetPassword consumes the reset code, sets the new password and revokes
// every outstanding session: the credential that protected them has changed.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: passwords do not match", domain.ErrInvalidCode)
	}

	if err := s.otpEngine.Verify(ctx, email, code); err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	newHash, err := hash.Password(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return err
	}

	if err := s.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
		return err
	}

	// Outstanding access tokens survive session deletion; kill them too.
	if err := s.tokenBlacklist.BlacklistUser(ctx, user.ID.String(), 24*time.Hour); err != nil {
		log.Printf("[AUTH] Failed to blacklist user %s after reset: %v", user.ID, err)
	}

	return nil
}

// ChangePassword is the logged-in variant of ResetPassword: it requires the
// old password instead of a code, and equally revokes all sessions.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: passwords do not match", domain.ErrInvalidCode)
	}
	if oldPassword == newPassword {
		return fmt.Errorf("%w: new password must differ from the old one", domain.ErrInvalidCode)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := hash.Verify(oldPassword, user.PasswordHash)
	if err != nil || !valid {
		return fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	newHash, err := hash.Password(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	if err := s.tokenBlacklist.BlacklistUser(ctx, userID.String(), 24*time.Hour); err != nil {
		log.Printf("[AUTH] Failed to blacklist user %s after password change: %v", userID, err)
	}

	// A reset code requested before the change must not survive it.
	if err := s.otpEngine.Invalidate(ctx, user.Email); err != nil {
		log.Printf("[AUTH] Failed to invalidate pending code for %s: %v", userID, err)
	}

	return nil
}

// RequestLoginOtp issues a login/verification code to a registered email.
func (s *AuthService) RequestLoginOtp(ctx context.Context, email string) error {
	canResend, err := s.otpEngine.CanResend(ctx, email)
	if err != nil {
		return err
	}
	if !canResend {
		return fmt.Errorf("%w: please wait before requesting a new code", domain.ErrRateLimited)
	}

	code, err := s.otpEngine.Issue(ctx, email)
	if err != nil {
		return err
	}

	if err := s.emailNotifier.SendCode(ctx, otp.Normalize(email), code); err != nil {
		log.Printf("[AUTH] Failed to deliver login code to %s: %v", email, err)
	}

	return nil
}

// OtpLogin verifies a code and logs the user in, marking the email verified
// as a side effect (control of the inbox was just proven).
func (s *AuthService) OtpLogin(ctx context.Context, email, code, ipAddress, userAgent string) (*LoginResponse, error) {
	if err := s.otpEngine.Verify(ctx, email, code); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", domain.ErrUnauthorized)
	}

	if !user.IsEmailVerified {
		if err := s.userRepo.VerifyEmail(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsEmailVerified = true
	}

	tokens, err := s.issueSession(ctx, user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("[AUTH] Failed to update last login for %s: %v", user.ID, err)
	}

	return &LoginResponse{Tokens: tokens, User: userDTO(user)}, nil
}

// VerifyEmail confirms inbox control with an emailed code and marks the
// account verified. No session is issued: the caller still has to log in.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	if err := s.otpEngine.Verify(ctx, email, code); err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.IsEmailVerified {
		return nil
	}

	return s.userRepo.VerifyEmail(ctx, user.ID)
}

const (
	twoFactorIssuer = "AI Job Portal"
	backupCodeCount = 10
)

type TwoFactorSetup struct {
	Secret       string `json:"secret"`
	ProvisionURI string `json:"provision_uri"`
}

// EnableTwoFactor starts authenticator enrollment. The secret is stored on
// the account but the factor stays off until ConfirmTwoFactor sees a valid
// code, proving the app actually holds it.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID uuid.UUID, password string) (*TwoFactorSetup, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	valid, err := hash.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	if user.TwoFactorEnabled {
		return nil, fmt.Errorf("%w: two-factor authentication is already enabled", domain.ErrConflict)
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	user.TwoFactorSecret = &secret
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return &TwoFactorSetup{
		Secret:       secret,
		ProvisionURI: totp.ProvisionURI(twoFactorIssuer, user.Email, secret),
	}, nil
}

// ConfirmTwoFactor turns the factor on after the first valid authenticator
// code and returns the plaintext backup codes. They are shown exactly once;
// only their hashes are kept.
func (s *AuthService) ConfirmTwoFactor(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return nil, fmt.Errorf("%w: two-factor authentication is already enabled", domain.ErrConflict)
	}
	if user.TwoFactorSecret == nil {
		return nil, fmt.Errorf("%w: two-factor enrollment has not been started", domain.ErrPreconditionFailed)
	}

	if !totp.Verify(*user.TwoFactorSecret, code) {
		return nil, fmt.Errorf("%w: invalid two-factor code", domain.ErrInvalidCode)
	}

	codes, hashes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	user.TwoFactorEnabled = true
	user.TwoFactorBackupCodes = hashes
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return codes, nil
}

// DisableTwoFactor turns the factor off. Both the password and a current
// code (TOTP or backup) are required, so a stolen session alone cannot
// strip the account's second factor.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID uuid.UUID, password, code string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := hash.Verify(password, user.PasswordHash)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	if !user.TwoFactorEnabled {
		return fmt.Errorf("%w: two-factor authentication is not enabled", domain.ErrPreconditionFailed)
	}

	if !s.verifyTwoFactorCode(ctx, user, code) {
		return fmt.Errorf("%w: invalid two-factor code", domain.ErrUnauthorized)
	}

	user.TwoFactorSecret = nil
	user.TwoFactorEnabled = false
	user.TwoFactorBackupCodes = nil
	return s.userRepo.Update(ctx, user)
}

// verifyTwoFactorCode accepts a current TOTP code or an unused backup code.
// A matching backup code is consumed before it counts.
func (s *AuthService) verifyTwoFactorCode(ctx context.Context, user *domain.User, code string) bool {
	if user.TwoFactorSecret != nil && totp.Verify(*user.TwoFactorSecret, code) {
		return true
	}

	digest := otp.HashCode(normalizeBackupCode(code))
	for i, stored := range user.TwoFactorBackupCodes {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(digest)) == 1 {
			user.TwoFactorBackupCodes = append(user.TwoFactorBackupCodes[:i], user.TwoFactorBackupCodes[i+1:]...)
			if err := s.userRepo.Update(ctx, user); err != nil {
				log.Printf("[AUTH] Failed to consume backup code for %s: %v", user.ID, err)
				return false
			}
			return true
		}
	}

	return false
}

func generateBackupCodes() (codes, hashes []string, err error) {
	codes = make([]string, backupCodeCount)
	hashes = make([]string, backupCodeCount)
	for i := range codes {
		raw := make([]byte, 4)
		if _, err := rand.Read(raw); err != nil {
			return nil, nil, err
		}
		plain := strings.ToUpper(hex.EncodeToString(raw))
		codes[i] = plain[:4] + "-" + plain[4:]
		hashes[i] = otp.HashCode(plain)
	}
	return codes, hashes, nil
}

func normalizeBackupCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}

type SocialLoginRequest struct {
	Provider   string `json:"provider" validate:"required,oneof=google linkedin"`
	ProviderID string `json:"provider_id" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// SocialLogin signs a user in from a verified OAuth profile, creating the
// account on first sight. Social emails count as verified: the provider
// already proved inbox control.
func (s *AuthService) SocialLogin(ctx context.Context, req SocialLoginRequest, ipAddress, userAgent string) (*LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		provider := req.Provider
		providerID := req.ProviderID
		user = &domain.User{
			ID:              uuid.New(),
			Email:           otp.Normalize(req.Email),
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Role:            domain.RoleCandidate,
			IsEmailVerified: true,
			IsActive:        true,
			Provider:        &provider,
			ProviderID:      &providerID,
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
	} else {
		if err := s.userRepo.LinkSocialAccount(ctx, user.ID, req.Provider, req.ProviderID); err != nil {
			log.Printf("[AUTH] Failed to link %s account for %s: %v", req.Provider, user.ID, err)
		}

		if !user.IsEmailVerified {
			if err := s.userRepo.VerifyEmail(ctx, user.ID); err != nil {
				return nil, err
			}
			user.IsEmailVerified = true
		}
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", domain.ErrUnauthorized)
	}

	tokens, err := s.issueSession(ctx, user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("[AUTH] Failed to update last login for %s: %v", user.ID, err)
	}

	return &LoginResponse{Tokens: tokens, User: userDTO(user)}, nil
}

type IntrospectionResult struct {
	Active  bool           `json:"active"`
	Claims  *domain.Claims `json:"claims,omitempty"`
	Session bool           `json:"session_live"`
}

// Introspect verifies an access token and reports whether its backing session
// is still live, so other services can authorize requests without
// re-implementing verification.
func (s *AuthService) Introspect(ctx context.Context, accessToken string) (*IntrospectionResult, error) {
	claims, err := s.tokenVerifier.Verify(accessToken, domain.TokenTypeAccess)
	if err != nil {
		return &IntrospectionResult{Active: false}, nil
	}

	blacklisted, err := s.tokenBlacklist.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return &IntrospectionResult{Active: false}, nil
	}

	if claims.IssuedAt != nil {
		userBlacklisted, err := s.tokenBlacklist.IsUserBlacklisted(ctx, claims.UserID.String(), claims.IssuedAt.Time)
		if err != nil {
			return nil, err
		}
		if userBlacklisted {
			return &IntrospectionResult{Active: false}, nil
		}
	}

	sessionLive := false
	if session, err := s.sessions.FindByID(ctx, claims.SessionID); err == nil {
		sessionLive = session.IsValid()
	}

	return &IntrospectionResult{Active: true, Claims: claims, Session: sessionLive}, nil
}

// DeactivateAccount soft-deactivates the credential and revokes all sessions.
func (s *AuthService) DeactivateAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.SoftDeactivate(ctx, userID); err != nil {
		return err
	}

	return s.sessions.RevokeAllForUser(ctx, userID)
}

// issueSession mints a token pair bound to a fresh session. The session id is
// generated first so the claims can carry it.
func (s *AuthService) issueSession(ctx context.Context, user *domain.User, ipAddress, userAgent string) (*domain.TokenPair, error) {
	sessionID := uuid.New()

	pair, err := s.tokenService.GenerateTokenPair(user, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Create(ctx, sessionID, user.ID, HashToken(pair.RefreshToken), ipAddress, userAgent); err != nil {
		return nil, err
	}

	return pair, nil
}

// sendVerificationCode is the named side effect of logging in with an
// unverified email: a fresh code goes out so the user can complete
// verification. Failures are logged, never surfaced.
func (s *AuthService) sendVerificationCode(ctx context.Context, email string) {
	canResend, err := s.otpEngine.CanResend(ctx, email)
	if err != nil || !canResend {
		return
	}

	code, err := s.otpEngine.Issue(ctx, email)
	if err != nil {
		log.Printf("[AUTH] Failed to issue verification code for %s: %v", email, err)
		return
	}

	if err := s.emailNotifier.SendCode(ctx, otp.Normalize(email), code); err != nil {
		log.Printf("[AUTH] Failed to deliver verification code to %s: %v", email, err)
	}
}

func userDTO(user *domain.User) *UserDTO {
	return &UserDTO{
		ID:              user.ID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Role:            user.Role,
		IsEmailVerified: user.IsEmailVerified,
	}
}
