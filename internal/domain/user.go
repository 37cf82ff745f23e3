package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type UserRole string

const (
	RoleCandidate     UserRole = "candidate"
	RoleEmployer      UserRole = "employer"
	RoleSuperEmployer UserRole = "super_employer"
	RoleAdmin         UserRole = "admin"
)

// User is the durable identity credential record. Accounts are never
// physically deleted, only soft-deactivated via IsActive.
type User struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	Mobile           *string    `json:"mobile,omitempty" db:"mobile"`
	PasswordHash     string     `json:"-" db:"password_hash"` // empty for social/OTP-only accounts
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	Role             UserRole   `json:"role" db:"role"`
	IsEmailVerified  bool       `json:"is_email_verified" db:"is_email_verified"`
	IsMobileVerified bool       `json:"is_mobile_verified" db:"is_mobile_verified"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	TwoFactorSecret  *string    `json:"-" db:"two_factor_secret"`
	TwoFactorEnabled bool       `json:"two_factor_enabled" db:"two_factor_enabled"`
	// TwoFactorBackupCodes holds SHA-256 hashes of the unused recovery codes.
	TwoFactorBackupCodes pq.StringArray `json:"-" db:"two_factor_backup_codes"`
	Provider         *string    `json:"provider,omitempty" db:"provider"`
	ProviderID       *string    `json:"-" db:"provider_id"`
	ExternalID       *string    `json:"-" db:"external_id"` // identity-provider subject
	CountryCode      *string    `json:"country_code,omitempty" db:"country_code"`
	NationalNumber   *string    `json:"national_number,omitempty" db:"national_number"`
	Country          *string    `json:"country,omitempty" db:"country"`
	State            *string    `json:"state,omitempty" db:"state"`
	City             *string    `json:"city,omitempty" db:"city"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}
