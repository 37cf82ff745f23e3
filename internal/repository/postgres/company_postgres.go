package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/repository"
)

type companyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository creates a new PostgreSQL company repository
func NewCompanyRepository(db *sqlx.DB) repository.CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	query := `
		INSERT INTO companies (
			id, user_id, name, slug, pan_number, gst_number, cin_number,
			gst_document_url, verification_status, kyc_documents,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :name, :slug, :pan_number, :gst_number, :cin_number,
			:gst_document_url, :verification_status, :kyc_documents,
			:created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, company)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	return nil
}

func (r *companyRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
	query := `
		SELECT id, user_id, name, slug, pan_number, gst_number, cin_number,
			   gst_document_url, verification_status, kyc_documents,
			   created_at, updated_at
		FROM companies
		WHERE user_id = $1`

	var company domain.Company
	err := r.db.GetContext(ctx, &company, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company by user id: %w", err)
	}

	return &company, nil
}

type employerRepository struct {
	db *sqlx.DB
}

// NewEmployerRepository creates a new PostgreSQL employer repository
func NewEmployerRepository(db *sqlx.DB) repository.EmployerRepository {
	return &employerRepository{db: db}
}

func (r *employerRepository) Create(ctx context.Context, employer *domain.Employer) error {
	query := `
		INSERT INTO employers (
			id, user_id, company_id, first_name, last_name, email, phone,
			is_verified, subscription_plan, visibility, created_at, updated_at
		) VALUES (
			:id, :user_id, :company_id, :first_name, :last_name, :email, :phone,
			:is_verified, :subscription_plan, :visibility, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, employer)
	if err != nil {
		return fmt.Errorf("failed to create employer: %w", err)
	}

	return nil
}

func (r *employerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Employer, error) {
	query := `
		SELECT id, user_id, company_id, first_name, last_name, email, phone,
			   is_verified, subscription_plan, visibility, created_at, updated_at
		FROM employers
		WHERE user_id = $1`

	var employer domain.Employer
	err := r.db.GetContext(ctx, &employer, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get employer by user id: %w", err)
	}

	return &employer, nil
}

func (r *employerRepository) LinkCompany(ctx context.Context, employerID, companyID uuid.UUID) error {
	query := `UPDATE employers SET company_id = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, employerID, companyID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to link employer to company: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}
