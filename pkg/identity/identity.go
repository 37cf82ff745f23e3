package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrUserExists is returned by SignUp when the email is already registered
// with the provider. Callers resolve it by fetching the existing identity
// instead of failing.
var ErrUserExists = errors.New("identity already exists")

// ErrUserNotFound is returned by GetUser for an unknown email.
var ErrUserNotFound = errors.New("identity not found")

// ExternalUser is the provider-side identity record.
type ExternalUser struct {
	Sub   string
	Email string
}

// Attributes carried to the provider at signup.
type Attributes struct {
	GivenName   string
	FamilyName  string
	PhoneNumber string
}

// Provider is the hosted identity provider the employer onboarding flow signs
// users up with (e.g. Cognito). The core only needs these three calls.
type Provider interface {
	SignUp(ctx context.Context, email, password string, attrs Attributes) (*ExternalUser, error)
	GetUser(ctx context.Context, email string) (*ExternalUser, error)
	// ConfirmSignUp marks the identity confirmed; the email was already
	// verified via OTP so no provider-side challenge is needed.
	ConfirmSignUp(ctx context.Context, email string) error
}

// LocalProvider is an in-memory Provider used in development and tests.
type LocalProvider struct {
	mu    sync.Mutex
	users map[string]*ExternalUser
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{users: make(map[string]*ExternalUser)}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string, attrs Attributes) (*ExternalUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.users[email]; ok {
		return nil, ErrUserExists
	}

	user := &ExternalUser{Sub: uuid.New().String(), Email: email}
	p.users[email] = user
	return user, nil
}

func (p *LocalProvider) GetUser(ctx context.Context, email string) (*ExternalUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (p *LocalProvider) ConfirmSignUp(ctx context.Context, email string) error {
	return nil
}
