package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
)

type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Company, error)
}

type EmployerRepository interface {
	Create(ctx context.Context, employer *domain.Employer) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Employer, error)
	LinkCompany(ctx context.Context, employerID, companyID uuid.UUID) error
}
