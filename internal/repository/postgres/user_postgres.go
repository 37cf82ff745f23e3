package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/repository"
)

const userColumns = `
	id, email, mobile, password_hash, first_name, last_name, role,
	is_email_verified, is_mobile_verified, is_active,
	two_factor_secret, two_factor_enabled, two_factor_backup_codes,
	provider, provider_id, external_id,
	country_code, national_number, country, state, city,
	created_at, updated_at, last_login_at`

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, mobile, password_hash, first_name, last_name, role,
			is_email_verified, is_mobile_verified, is_active,
			two_factor_secret, two_factor_enabled, two_factor_backup_codes,
			provider, provider_id, external_id,
			country_code, national_number, country, state, city,
			created_at, updated_at
		) VALUES (
			:id, :email, :mobile, :password_hash, :first_name, :last_name, :role,
			:is_email_verified, :is_mobile_verified, :is_active,
			:two_factor_secret, :two_factor_enabled, :two_factor_backup_codes,
			:provider, :provider_id, :external_id,
			:country_code, :national_number, :country, :state, :city,
			:created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// GetByEmail looks up a user by email, case-insensitively.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, strings.ToLower(email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE mobile = $1`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, mobile)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by mobile: %w", err)
	}

	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET email = :email,
			mobile = :mobile,
			password_hash = :password_hash,
			first_name = :first_name,
			last_name = :last_name,
			role = :role,
			is_email_verified = :is_email_verified,
			is_mobile_verified = :is_mobile_verified,
			is_active = :is_active,
			two_factor_secret = :two_factor_secret,
			two_factor_enabled = :two_factor_enabled,
			two_factor_backup_codes = :two_factor_backup_codes,
			provider = :provider,
			provider_id = :provider_id,
			external_id = :external_id,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
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

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_login_at = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

func (r *userRepository) VerifyEmail(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_email_verified = true, updated_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
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

func (r *userRepository) LinkSocialAccount(ctx context.Context, id uuid.UUID, provider, providerID string) error {
	query := `
		UPDATE users
		SET provider = $2, provider_id = $3, updated_at = $4
		WHERE id = $1 AND provider IS NULL`

	_, err := r.db.ExecContext(ctx, query, id, provider, providerID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to link social account: %w", err)
	}

	return nil
}

// SoftDeactivate marks the account inactive. Rows are never physically deleted.
func (r *userRepository) SoftDeactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_active = false, updated_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
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
