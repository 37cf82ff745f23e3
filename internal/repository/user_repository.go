package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByMobile(ctx context.Context, mobile string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	VerifyEmail(ctx context.Context, id uuid.UUID) error
	LinkSocialAccount(ctx context.Context, id uuid.UUID, provider, providerID string) error
	SoftDeactivate(ctx context.Context, id uuid.UUID) error
}
