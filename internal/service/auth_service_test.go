package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/blacklist"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/hash"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/jwt"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/otp"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/totp"
)

type authFixture struct {
	svc      *AuthService
	users    *memUserRepo
	sessions *memSessionRepo
	tokens   *jwt.TokenService
	email    *recordingNotifier
	redis    *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tokens, err := jwt.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 2*time.Hour, "auth-service")
	require.NoError(t, err)

	users := newMemUserRepo()
	sessionRepo := newMemSessionRepo()
	sessionSvc := NewSessionService(sessionRepo, 3, 24*time.Hour)

	engine := otp.NewEngine(rdb, otp.Config{
		Expiry:         time.Minute,
		ResendInterval: time.Minute,
		RateWindow:     15 * time.Minute,
		MaxPerWindow:   3,
		MaxAttempts:    3,
		FixedCode:      true,
	})

	email := newRecordingNotifier()

	svc := NewAuthService(
		users,
		sessionSvc,
		tokens,
		tokens,
		engine,
		blacklist.NewTokenBlacklist(rdb),
		email,
	)

	return &authFixture{
		svc:      svc,
		users:    users,
		sessions: sessionRepo,
		tokens:   tokens,
		email:    email,
		redis:    mr,
	}
}

func (f *authFixture) seedUser(t *testing.T, email, password string, verified bool) *domain.User {
	t.Helper()

	passwordHash, err := hash.Password(password)
	require.NoError(t, err)

	user := &domain.User{
		ID:              uuid.New(),
		Email:           email,
		PasswordHash:    passwordHash,
		FirstName:       "Test",
		LastName:        "User",
		Role:            domain.RoleEmployer,
		IsEmailVerified: verified,
		IsActive:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "10.0.0.1", "cli")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
	require.False(t, resp.VerificationRequired)
	require.Equal(t, "alice@example.com", resp.User.Email)
	require.Equal(t, 1, f.sessions.count())
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "wrong-password"}, "", "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.Equal(t, 0, f.sessions.count())
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever-pass"}, "", "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginUnverifiedEmailSendsCode(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "alice@example.com", "hunter2hunter2", false)

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)
	require.True(t, resp.VerificationRequired)
	require.Nil(t, resp.Tokens)

	// The named side effect: a verification code went out.
	require.Equal(t, otp.DevCode, f.email.lastCode("alice@example.com"))
	require.Equal(t, 0, f.sessions.count())
}

func TestLoginDeactivatedAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "alice@example.com", "hunter2hunter2", true)
	require.NoError(t, f.users.SoftDeactivate(ctx, user.ID))

	_, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)
	oldRefresh := resp.Tokens.RefreshToken

	pair, err := f.svc.RefreshTokens(ctx, oldRefresh, "", "")
	require.NoError(t, err)
	require.NotEqual(t, oldRefresh, pair.RefreshToken)

	// Session count is unchanged: rotation reuses the row.
	require.Equal(t, 1, f.sessions.count())

	// The old refresh token is spent.
	_, err = f.svc.RefreshTokens(ctx, oldRefresh, "", "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// The new one still works.
	_, err = f.svc.RefreshTokens(ctx, pair.RefreshToken, "", "")
	require.NoError(t, err)
}

func TestRefreshKeepsSessionID(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)

	before, err := f.tokens.Verify(resp.Tokens.AccessToken, domain.TokenTypeAccess)
	require.NoError(t, err)

	pair, err := f.svc.RefreshTokens(ctx, resp.Tokens.RefreshToken, "", "")
	require.NoError(t, err)

	after, err := f.tokens.Verify(pair.AccessToken, domain.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, before.SessionID, after.SessionID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)

	_, err = f.svc.RefreshTokens(ctx, resp.Tokens.AccessToken, "", "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, resp.Tokens.RefreshToken, resp.Tokens.AccessToken))
	require.Equal(t, 0, f.sessions.count())

	// The access token was blacklisted for its remaining lifetime.
	result, err := f.svc.Introspect(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)
	require.False(t, result.Active)
}

func TestResetPasswordKillsAllSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.sessions.count())

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))
	code := f.email.lastCode("alice@example.com")
	require.NotEmpty(t, code)

	require.NoError(t, f.svc.ResetPassword(ctx, "alice@example.com", code, "new-password-12", "new-password-12"))
	require.Equal(t, 0, f.sessions.count())

	// Old password is dead, new one works.
	_, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "new-password-12"}, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	require.Empty(t, f.email.lastCode("nobody@example.com"))
}

func TestOtpLoginVerifiesEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com", "hunter2hunter2", false)

	require.NoError(t, f.svc.RequestLoginOtp(ctx, "alice@example.com"))
	code := f.email.lastCode("alice@example.com")
	require.NotEmpty(t, code)

	resp, err := f.svc.OtpLogin(ctx, "alice@example.com", code, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
	require.True(t, resp.User.IsEmailVerified)

	// Code is single-use.
	_, err = f.svc.OtpLogin(ctx, "alice@example.com", code, "", "")
	require.Error(t, err)
}

func TestSocialLoginCreatesAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SocialLogin(ctx, SocialLoginRequest{
		Provider:   "google",
		ProviderID: "g-123",
		Email:      "new@example.com",
		FirstName:  "New",
		LastName:   "User",
	}, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
	require.True(t, resp.User.IsEmailVerified)

	created, err := f.users.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleCandidate, created.Role)
	require.NotNil(t, created.Provider)
}

func TestIntrospect(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)

	result, err := f.svc.Introspect(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)
	require.True(t, result.Active)
	require.True(t, result.Session)
	require.Equal(t, "alice@example.com", result.Claims.Email)

	garbage, err := f.svc.Introspect(ctx, "not-a-token")
	require.NoError(t, err)
	require.False(t, garbage.Active)
}

func TestChangePasswordRequiresOldPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	err := f.svc.ChangePassword(ctx, user.ID, "wrong-old-pass", "new-password-12", "new-password-12")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "hunter2hunter2", "new-password-12", "new-password-12"))
}

func TestVerifyEmailWithoutLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "bob@example.com", "hunter2hunter2", false)

	// Password login on an unverified account issues a code but no tokens.
	resp, err := f.svc.Login(ctx, LoginRequest{Email: "bob@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)
	require.True(t, resp.VerificationRequired)

	code := f.email.lastCode("bob@example.com")
	require.NotEmpty(t, code)

	require.Error(t, f.svc.VerifyEmail(ctx, "bob@example.com", "000000"))
	require.NoError(t, f.svc.VerifyEmail(ctx, "bob@example.com", code))

	// Verification alone issues no session.
	require.Equal(t, 0, f.sessions.count())

	resp, err = f.svc.Login(ctx, LoginRequest{Email: "bob@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
	require.True(t, resp.User.IsEmailVerified)
}

// enrollTwoFactor walks a verified user through setup and confirmation,
// returning the shared secret and the one-time backup codes.
func (f *authFixture) enrollTwoFactor(t *testing.T, user *domain.User, password string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := f.svc.EnableTwoFactor(ctx, user.ID, password)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.ProvisionURI, "otpauth://totp/")

	code, err := totp.CodeAt(setup.Secret, time.Now())
	require.NoError(t, err)

	backupCodes, err := f.svc.ConfirmTwoFactor(ctx, user.ID, code)
	require.NoError(t, err)
	require.Len(t, backupCodes, 10)

	return setup.Secret, backupCodes
}

func TestTwoFactorGatesPasswordLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "carol@example.com", "hunter2hunter2", true)

	secret, _ := f.enrollTwoFactor(t, user, "hunter2hunter2")

	// Password alone no longer yields tokens.
	resp, err := f.svc.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)
	require.True(t, resp.TwoFactorRequired)
	require.Nil(t, resp.Tokens)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "hunter2hunter2", TwoFactorCode: "000000"}, "", "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	code, err := totp.CodeAt(secret, time.Now())
	require.NoError(t, err)

	resp, err = f.svc.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "hunter2hunter2", TwoFactorCode: code}, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
}

func TestTwoFactorBackupCodeIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "carol@example.com", "hunter2hunter2", true)

	_, backupCodes := f.enrollTwoFactor(t, user, "hunter2hunter2")

	req := LoginRequest{Email: "carol@example.com", Password: "hunter2hunter2", TwoFactorCode: backupCodes[0]}
	resp, err := f.svc.Login(ctx, req, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)

	// The consumed code is dead; the remaining ones still work.
	_, err = f.svc.Login(ctx, req, "", "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	req.TwoFactorCode = backupCodes[1]
	resp, err = f.svc.Login(ctx, req, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
}

func TestDisableTwoFactor(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "carol@example.com", "hunter2hunter2", true)

	secret, _ := f.enrollTwoFactor(t, user, "hunter2hunter2")

	code, err := totp.CodeAt(secret, time.Now())
	require.NoError(t, err)

	err = f.svc.DisableTwoFactor(ctx, user.ID, "wrong-password-1", code)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.svc.DisableTwoFactor(ctx, user.ID, "hunter2hunter2", code))

	// Factor is gone: password alone logs in again.
	resp, err := f.svc.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "hunter2hunter2"}, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
	require.False(t, resp.TwoFactorRequired)
}

func TestConfirmTwoFactorRequiresSetup(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "carol@example.com", "hunter2hunter2", true)

	_, err := f.svc.ConfirmTwoFactor(ctx, user.ID, "123456")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestChangePasswordInvalidatesPendingResetCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "alice@example.com", "hunter2hunter2", true)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))
	code := f.email.lastCode("alice@example.com")
	require.NotEmpty(t, code)

	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "hunter2hunter2", "new-password-12", "new-password-12"))

	// The reset code issued before the change must not work afterwards.
	err := f.svc.ResetPassword(ctx, "alice@example.com", code, "sneaky-password", "sneaky-password")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
