package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/redis/go-redis/v9"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/config"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/repository"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/hash"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/identity"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/jwt"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/notifier"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/otp"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/storage"
)

const (
	registrationKeyPrefix = "company_reg:"
	gstDocumentKeyPrefix  = "company-gst-documents/"
)

// RegistrationService drives the multi-step employer onboarding wizard. The
// whole flow lives in a single Redis record keyed by an opaque session token;
// nothing touches Postgres until the final step commits the account.
type RegistrationService struct {
	redis            *redis.Client
	userRepo         repository.UserRepository
	employerRepo     repository.EmployerRepository
	companyRepo      repository.CompanyRepository
	sessions         *SessionService
	tokenService     *jwt.TokenService
	identityProvider identity.Provider
	objectStorage    storage.ObjectStorage
	smsNotifier      notifier.Notifier
	emailNotifier    notifier.Notifier
	sessionTTL       time.Duration
	uploadExpiry     time.Duration
	devMode          bool
}

func NewRegistrationService(
	redisClient *redis.Client,
	userRepo repository.UserRepository,
	employerRepo repository.EmployerRepository,
	companyRepo repository.CompanyRepository,
	sessions *SessionService,
	tokenService *jwt.TokenService,
	identityProvider identity.Provider,
	objectStorage storage.ObjectStorage,
	smsNotifier notifier.Notifier,
	emailNotifier notifier.Notifier,
	cfg *config.Config,
) *RegistrationService {
	return &RegistrationService{
		redis:            redisClient,
		userRepo:         userRepo,
		employerRepo:     employerRepo,
		companyRepo:      companyRepo,
		sessions:         sessions,
		tokenService:     tokenService,
		identityProvider: identityProvider,
		objectStorage:    objectStorage,
		smsNotifier:      smsNotifier,
		emailNotifier:    emailNotifier,
		sessionTTL:       cfg.Registration.SessionTTL,
		uploadExpiry:     cfg.Storage.UploadExpiry,
		devMode:          cfg.Server.IsDev(),
	}
}

// SendMobileOtp starts a wizard session for an unclaimed mobile number and
// issues the first verification code. The returned token identifies the
// session to every later step.
func (s *RegistrationService) SendMobileOtp(ctx context.Context, mobile string) (string, error) {
	if _, err := s.userRepo.GetByMobile(ctx, mobile); err == nil {
		return "", fmt.Errorf("%w: mobile number is already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	code, err := s.generateCode()
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	session := &domain.RegistrationSession{
		Mobile:        mobile,
		MobileOtpHash: otp.HashCode(code),
		Step:          domain.StepMobileSent,
	}

	if err := s.saveSession(ctx, token, session); err != nil {
		return "", err
	}

	if err := s.smsNotifier.SendCode(ctx, mobile, code); err != nil {
		log.Printf("[REGISTRATION] Failed to deliver mobile code to %s: %v", mobile, err)
	}

	return token, nil
}

// ResendMobileOtp replaces the pending mobile code. The previous code stops
// working the moment the new hash lands in the session.
func (s *RegistrationService) ResendMobileOtp(ctx context.Context, token string) error {
	session, err := s.getSession(ctx, token)
	if err != nil {
		return err
	}

	if session.MobileVerified {
		return nil
	}

	code, err := s.generateCode()
	if err != nil {
		return err
	}

	session.MobileOtpHash = otp.HashCode(code)
	if err := s.saveSession(ctx, token, session); err != nil {
		return err
	}

	if err := s.smsNotifier.SendCode(ctx, session.Mobile, code); err != nil {
		log.Printf("[REGISTRATION] Failed to deliver mobile code to %s: %v", session.Mobile, err)
	}

	return nil
}

// VerifyMobileOtp checks the submitted code against the session. Re-verifying
// an already verified mobile is a no-op success, so client retries after a
// lost response stay harmless.
func (s *RegistrationService) VerifyMobileOtp(ctx context.Context, token, code string) error {
	session, err := s.getSession(ctx, token)
	if err != nil {
		return err
	}

	if session.MobileVerified {
		return nil
	}

	if !codeMatches(code, session.MobileOtpHash) {
		return fmt.Errorf("%w: incorrect verification code", domain.ErrInvalidCode)
	}

	session.MobileVerified = true
	session.MobileOtpHash = ""
	session.Step = domain.StepMobileVerified

	return s.saveSession(ctx, token, session)
}

// SendEmailOtp records the email on the session and issues its verification
// code. It requires a verified mobile and an unclaimed email address.
func (s *RegistrationService) SendEmailOtp(ctx context.Context, token, email string) error {
	session, err := s.getSession(ctx, token)
	if err != nil {
		return err
	}

	if !session.MobileVerified {
		return fmt.Errorf("%w: mobile number must be verified first", domain.ErrPreconditionFailed)
	}

	email = otp.Normalize(email)
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email is already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	code, err := s.generateCode()
	if err != nil {
		return err
	}

	// Switching to a different email restarts email verification.
	session.Email = email
	session.EmailOtpHash = otp.HashCode(code)
	session.EmailVerified = false
	session.Step = domain.StepEmailSent

	if err := s.saveSession(ctx, token, session); err != nil {
		return err
	}

	if err := s.emailNotifier.SendCode(ctx, email, code); err != nil {
		log.Printf("[REGISTRATION] Failed to deliver email code to %s: %v", email, err)
	}

	return nil
}

// VerifyEmailOtp checks the email code. Idempotent like VerifyMobileOtp.
func (s *RegistrationService) VerifyEmailOtp(ctx context.Context, token, code string) error {
	session, err := s.getSession(ctx, token)
	if err != nil {
		return err
	}

	if session.EmailVerified {
		return nil
	}

	if session.Step < domain.StepEmailSent {
		return fmt.Errorf("%w: no email code has been sent", domain.ErrPreconditionFailed)
	}

	if !codeMatches(code, session.EmailOtpHash) {
		return fmt.Errorf("%w: incorrect verification code", domain.ErrInvalidCode)
	}

	session.EmailVerified = true
	session.EmailOtpHash = ""
	session.Step = domain.StepEmailVerified

	return s.saveSession(ctx, token, session)
}

type BasicDetailsRequest struct {
	AccountType     string `json:"account_type" validate:"required,oneof=employer super_employer"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Country         string `json:"country" validate:"required"`
	State           string `json:"state"`
	City            string `json:"city"`
}

// SubmitBasicDetails stores the applicant's profile on the session. Both
// channels must be verified before details are accepted.
func (s *RegistrationService) SubmitBasicDetails(ctx context.Context, token string, req BasicDetailsRequest) error {
	session, err := s.getSession(ctx, token)
	if err != nil {
		return err
	}

	if !session.MobileVerified || !session.EmailVerified {
		return fmt.Errorf("%w: mobile and email must both be verified", domain.ErrPreconditionFailed)
	}

	if req.Password != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", domain.ErrInvalidCode)
	}

	session.AccountType = req.AccountType
	session.FirstName = req.FirstName
	session.LastName = req.LastName
	session.Password = req.Password
	session.Country = req.Country
	session.State = req.State
	session.City = req.City
	session.Step = domain.StepDetailsSubmitted

	return s.saveSession(ctx, token, session)
}

type UploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
}

// DocumentUploadURL hands out a pre-signed URL for the GST document so the
// client uploads straight to object storage.
func (s *RegistrationService) DocumentUploadURL(ctx context.Context, token, fileName, contentType string) (*UploadURLResponse, error) {
	session, err := s.getSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.Step < domain.StepDetailsSubmitted {
		return nil, fmt.Errorf("%w: basic details must be submitted first", domain.ErrPreconditionFailed)
	}

	key := s.objectStorage.GenerateKey(gstDocumentKeyPrefix, fileName)
	uploadURL, err := s.objectStorage.SignedUploadURL(ctx, key, contentType, s.uploadExpiry)
	if err != nil {
		return nil, err
	}

	return &UploadURLResponse{UploadURL: uploadURL, Key: key}, nil
}

type CompleteRegistrationRequest struct {
	CompanyName    string `json:"company_name" validate:"required"`
	PANNumber      string `json:"pan_number" validate:"required,len=10"`
	GSTNumber      string `json:"gst_number" validate:"required,len=15"`
	CINNumber      string `json:"cin_number"`
	GSTDocumentKey string `json:"gst_document_key"`
}

type CompleteRegistrationResponse struct {
	Tokens  *domain.TokenPair `json:"tokens"`
	User    *UserDTO          `json:"user"`
	Company *domain.Company   `json:"company"`
}

// CompleteRegistration commits the wizard: it registers the credential with
// the identity provider, creates the user, employer and company rows, issues
// a first token pair and destroys the wizard session. The account starts with
// both channels verified since the wizard proved them.
func (s *RegistrationService) CompleteRegistration(ctx context.Context, token string, req CompleteRegistrationRequest, ipAddress, userAgent string) (*CompleteRegistrationResponse, error) {
	session, err := s.getSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.Step < domain.StepDetailsSubmitted {
		return nil, fmt.Errorf("%w: basic details must be submitted first", domain.ErrPreconditionFailed)
	}

	if session.Email == "" || session.Password == "" || session.FirstName == "" {
		return nil, fmt.Errorf("%w: registration details are incomplete", domain.ErrPreconditionFailed)
	}

	var gstDocumentURL *string
	if req.GSTDocumentKey != "" {
		if !strings.HasPrefix(req.GSTDocumentKey, gstDocumentKeyPrefix) {
			return nil, fmt.Errorf("%w: invalid GST document key", domain.ErrInvalidCode)
		}
		exists, err := s.objectStorage.Exists(ctx, req.GSTDocumentKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: GST document has not been uploaded", domain.ErrPreconditionFailed)
		}
		url := s.objectStorage.PublicURL(req.GSTDocumentKey)
		gstDocumentURL = &url
	}

	externalID, err := s.registerIdentity(ctx, session)
	if err != nil {
		return nil, err
	}

	passwordHash, err := hash.Password(session.Password)
	if err != nil {
		return nil, err
	}

	role := domain.RoleSuperEmployer
	if session.AccountType == string(domain.RoleEmployer) {
		role = domain.RoleEmployer
	}

	now := time.Now()
	mobile := session.Mobile
	user := &domain.User{
		ID:               uuid.New(),
		Email:            session.Email,
		Mobile:           &mobile,
		PasswordHash:     passwordHash,
		FirstName:        session.FirstName,
		LastName:         session.LastName,
		Role:             role,
		IsEmailVerified:  true,
		IsMobileVerified: true,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if session.Country != "" {
		country := session.Country
		user.Country = &country
	}
	if session.State != "" {
		state := session.State
		user.State = &state
	}
	if session.City != "" {
		city := session.City
		user.City = &city
	}
	if externalID != "" {
		user.ExternalID = &externalID
	}
	if parsed, err := phonenumbers.Parse(mobile, ""); err == nil {
		countryCode := strconv.Itoa(int(parsed.GetCountryCode()))
		nationalNumber := strconv.FormatUint(parsed.GetNationalNumber(), 10)
		user.CountryCode = &countryCode
		user.NationalNumber = &nationalNumber
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	employer := &domain.Employer{
		ID:               uuid.New(),
		UserID:           user.ID,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		Email:            user.Email,
		Phone:            mobile,
		IsVerified:       true,
		SubscriptionPlan: "free",
		Visibility:       true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.employerRepo.Create(ctx, employer); err != nil {
		return nil, err
	}

	company := &domain.Company{
		ID:                 uuid.New(),
		UserID:             user.ID,
		Name:               req.CompanyName,
		Slug:               companySlug(req.CompanyName),
		PANNumber:          req.PANNumber,
		GSTNumber:          req.GSTNumber,
		CINNumber:          req.CINNumber,
		GSTDocumentURL:     gstDocumentURL,
		VerificationStatus: domain.VerificationPending,
		KYCDocuments:       gstDocumentURL != nil,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, err
	}

	if err := s.employerRepo.LinkCompany(ctx, employer.ID, company.ID); err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	pair, err := s.tokenService.GenerateTokenPair(user, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Create(ctx, sessionID, user.ID, HashToken(pair.RefreshToken), ipAddress, userAgent); err != nil {
		return nil, err
	}

	if err := s.redis.Del(ctx, registrationKeyPrefix+token).Err(); err != nil {
		log.Printf("[REGISTRATION] Failed to delete wizard session %s: %v", token, err)
	}

	if err := s.emailNotifier.SendWelcome(ctx, user.Email, user.FirstName); err != nil {
		log.Printf("[REGISTRATION] Failed to send welcome email to %s: %v", user.Email, err)
	}

	return &CompleteRegistrationResponse{
		Tokens:  pair,
		User:    userDTO(user),
		Company: company,
	}, nil
}

// Status reports how far a wizard session has progressed.
func (s *RegistrationService) Status(ctx context.Context, token string) (*domain.RegistrationSession, error) {
	session, err := s.getSession(ctx, token)
	if err != nil {
		return nil, err
	}

	// Never expose secrets held on the record.
	session.MobileOtpHash = ""
	session.EmailOtpHash = ""
	session.Password = ""

	return session, nil
}

// registerIdentity creates the credential with the external identity
// provider. An already-registered email is tolerated: the prior sign-up
// attempt may have died between the provider call and our commit.
func (s *RegistrationService) registerIdentity(ctx context.Context, session *domain.RegistrationSession) (string, error) {
	if s.identityProvider == nil {
		return "", nil
	}

	attrs := identity.Attributes{
		GivenName:   session.FirstName,
		FamilyName:  session.LastName,
		PhoneNumber: session.Mobile,
	}

	external, err := s.identityProvider.SignUp(ctx, session.Email, session.Password, attrs)
	if err != nil {
		if !errors.Is(err, identity.ErrUserExists) {
			return "", err
		}
		external, err = s.identityProvider.GetUser(ctx, session.Email)
		if err != nil {
			return "", err
		}
	}

	if err := s.identityProvider.ConfirmSignUp(ctx, session.Email); err != nil {
		log.Printf("[REGISTRATION] Failed to confirm identity for %s: %v", session.Email, err)
	}

	return external.Sub, nil
}

// getSession loads the wizard record; a missing key means the 30-minute
// window lapsed (or the token was never real) and the flow must restart.
func (s *RegistrationService) getSession(ctx context.Context, token string) (*domain.RegistrationSession, error) {
	raw, err := s.redis.Get(ctx, registrationKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: registration session not found or expired", domain.ErrSessionExpired)
		}
		return nil, err
	}

	var session domain.RegistrationSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// saveSession writes the record back with a full TTL. Every successful step
// slides the expiry window forward.
func (s *RegistrationService) saveSession(ctx context.Context, token string, session *domain.RegistrationSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.redis.Set(ctx, registrationKeyPrefix+token, raw, s.sessionTTL).Err()
}

func (s *RegistrationService) generateCode() (string, error) {
	if s.devMode {
		return otp.DevCode, nil
	}
	return otp.GenerateCode()
}

func codeMatches(submitted, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(otp.HashCode(submitted)), []byte(storedHash)) == 1
}

// companySlug derives a URL-safe identifier from the company name, suffixed
// with a base36 timestamp to keep collisions out of the unique index.
func companySlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if slug == "" {
		slug = "company"
	}
	return slug + "-" + strconv.FormatInt(time.Now().UnixMilli(), 36)
}
