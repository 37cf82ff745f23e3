package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/config"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/identity"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/jwt"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/otp"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/storage"
)

type regFixture struct {
	svc       *RegistrationService
	users     *memUserRepo
	employers *memEmployerRepo
	companies *memCompanyRepo
	sessions  *memSessionRepo
	sms       *recordingNotifier
	email     *recordingNotifier
	storage   *storage.LocalStorage
	redis     *miniredis.Miniredis
}

func newRegFixture(t *testing.T) *regFixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tokens, err := jwt.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 2*time.Hour, "auth-service")
	require.NoError(t, err)

	users := newMemUserRepo()
	employers := newMemEmployerRepo()
	companies := newMemCompanyRepo()
	sessionRepo := newMemSessionRepo()
	sms := newRecordingNotifier()
	email := newRecordingNotifier()
	objectStorage := storage.NewLocalStorage("http://localhost:9000/company-documents")

	cfg := &config.Config{
		Server:       config.ServerConfig{Environment: "development"},
		Registration: config.RegistrationConfig{SessionTTL: 30 * time.Minute},
		Storage:      config.StorageConfig{UploadExpiry: time.Hour},
	}

	svc := NewRegistrationService(
		rdb,
		users,
		employers,
		companies,
		NewSessionService(sessionRepo, 3, 24*time.Hour),
		tokens,
		identity.NewLocalProvider(),
		objectStorage,
		sms,
		email,
		cfg,
	)

	return &regFixture{
		svc:       svc,
		users:     users,
		employers: employers,
		companies: companies,
		sessions:  sessionRepo,
		sms:       sms,
		email:     email,
		storage:   objectStorage,
		redis:     mr,
	}
}

// walkToDetails advances a fresh wizard session through both verifications
// and the details step.
func (f *regFixture) walkToDetails(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, otp.DevCode))
	require.NoError(t, f.svc.SendEmailOtp(ctx, token, "founder@acme.example"))
	require.NoError(t, f.svc.VerifyEmailOtp(ctx, token, otp.DevCode))
	require.NoError(t, f.svc.SubmitBasicDetails(ctx, token, BasicDetailsRequest{
		AccountType:     "super_employer",
		FirstName:       "Asha",
		LastName:        "Rao",
		Password:        "s3cret-password",
		ConfirmPassword: "s3cret-password",
		Country:         "India",
		State:           "Karnataka",
		City:            "Bengaluru",
	}))

	return token
}

func TestWizardHappyPath(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token := f.walkToDetails(t)

	resp, err := f.svc.CompleteRegistration(ctx, token, CompleteRegistrationRequest{
		CompanyName: "Acme Hiring Pvt Ltd",
		PANNumber:   "ABCDE1234F",
		GSTNumber:   "29ABCDE1234F1Z5",
	}, "10.0.0.1", "cli")
	require.NoError(t, err)
	require.NotNil(t, resp.Tokens)
	require.Equal(t, domain.RoleSuperEmployer, resp.User.Role)

	user, err := f.users.GetByEmail(ctx, "founder@acme.example")
	require.NoError(t, err)
	require.True(t, user.IsEmailVerified)
	require.True(t, user.IsMobileVerified)
	require.NotNil(t, user.Mobile)
	require.Equal(t, "+911234567890", *user.Mobile)
	require.NotEmpty(t, user.PasswordHash)
	require.NotEqual(t, "s3cret-password", user.PasswordHash)

	company, err := f.companies.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(company.Slug, "acme-hiring-pvt-ltd-"))
	require.Equal(t, domain.VerificationPending, company.VerificationStatus)

	employer, err := f.employers.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, employer.CompanyID)
	require.Equal(t, company.ID, *employer.CompanyID)

	// A first session was issued alongside the tokens.
	require.Equal(t, 1, f.sessions.count())

	// The wizard record is gone; the token is dead.
	_, err = f.svc.Status(ctx, token)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestSendMobileOtpRejectsRegisteredNumber(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	mobile := "+911234567890"
	require.NoError(t, f.users.Create(ctx, &domain.User{
		ID:     uuid.New(),
		Email:  "taken@example.com",
		Mobile: &mobile,
	}))

	_, err := f.svc.SendMobileOtp(ctx, mobile)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestEmailStepRequiresVerifiedMobile(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)

	err = f.svc.SendEmailOtp(ctx, token, "founder@acme.example")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestVerifyMobileOtpWrongCode(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)

	err = f.svc.VerifyMobileOtp(ctx, token, "000000")
	require.ErrorIs(t, err, domain.ErrInvalidCode)

	// The right code still works afterwards.
	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, otp.DevCode))
}

func TestVerifyMobileOtpIsIdempotent(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, otp.DevCode))

	// A retried verification, even with a stale code, succeeds silently.
	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, otp.DevCode))
	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, "000000"))
}

func TestCompleteRequiresDetails(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, otp.DevCode))

	_, err = f.svc.CompleteRegistration(ctx, token, CompleteRegistrationRequest{
		CompanyName: "Acme",
		PANNumber:   "ABCDE1234F",
		GSTNumber:   "29ABCDE1234F1Z5",
	}, "", "")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestWizardSessionExpires(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)

	f.redis.FastForward(31 * time.Minute)

	err = f.svc.VerifyMobileOtp(ctx, token, otp.DevCode)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestStepSlidesTTLForward(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)

	// 20 minutes in, the session is alive; verifying resets the window.
	f.redis.FastForward(20 * time.Minute)
	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, otp.DevCode))

	// Another 20 minutes would have exceeded the original window.
	f.redis.FastForward(20 * time.Minute)
	require.NoError(t, f.svc.SendEmailOtp(ctx, token, "founder@acme.example"))
}

func TestResendMobileOtpReplacesCode(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)
	require.Equal(t, otp.DevCode, f.sms.lastCode("+911234567890"))

	require.NoError(t, f.svc.ResendMobileOtp(ctx, token))
	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, otp.DevCode))
}

func TestDocumentUploadFlow(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token := f.walkToDetails(t)

	upload, err := f.svc.DocumentUploadURL(ctx, token, "gst-cert.pdf", "application/pdf")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(upload.Key, "company-gst-documents/"))
	require.NotEmpty(t, upload.UploadURL)

	// Completing with an unuploaded key fails.
	_, err = f.svc.CompleteRegistration(ctx, token, CompleteRegistrationRequest{
		CompanyName:    "Acme",
		PANNumber:      "ABCDE1234F",
		GSTNumber:      "29ABCDE1234F1Z5",
		GSTDocumentKey: upload.Key,
	}, "", "")
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)

	f.storage.MarkUploaded(upload.Key)

	resp, err := f.svc.CompleteRegistration(ctx, token, CompleteRegistrationRequest{
		CompanyName:    "Acme",
		PANNumber:      "ABCDE1234F",
		GSTNumber:      "29ABCDE1234F1Z5",
		GSTDocumentKey: upload.Key,
	}, "", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Company.GSTDocumentURL)
	require.True(t, resp.Company.KYCDocuments)
}

func TestCompleteRejectsKeyOutsideGSTNamespace(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	token := f.walkToDetails(t)

	// An uploaded object from another bucket namespace must not be
	// accepted as the company's GST document.
	foreignKey := "resumes/owner-cv.pdf"
	f.storage.MarkUploaded(foreignKey)

	_, err := f.svc.CompleteRegistration(ctx, token, CompleteRegistrationRequest{
		CompanyName:    "Acme",
		PANNumber:      "ABCDE1234F",
		GSTNumber:      "29ABCDE1234F1Z5",
		GSTDocumentKey: foreignKey,
	}, "", "")
	require.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestEmailConflictCheckedAtSendStep(t *testing.T) {
	f := newRegFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, &domain.User{
		ID:    uuid.New(),
		Email: "founder@acme.example",
	}))

	token, err := f.svc.SendMobileOtp(ctx, "+911234567890")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyMobileOtp(ctx, token, otp.DevCode))

	err = f.svc.SendEmailOtp(ctx, token, "founder@acme.example")
	require.ErrorIs(t, err, domain.ErrConflict)
}
