package domain

import (
	"time"

	"github.com/google/uuid"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Company is created at the end of the employer onboarding wizard.
type Company struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	UserID             uuid.UUID          `json:"user_id" db:"user_id"`
	Name               string             `json:"name" db:"name"`
	Slug               string             `json:"slug" db:"slug"`
	PANNumber          string             `json:"pan_number" db:"pan_number"`
	GSTNumber          string             `json:"gst_number" db:"gst_number"`
	CINNumber          string             `json:"cin_number" db:"cin_number"`
	GSTDocumentURL     *string            `json:"gst_document_url,omitempty" db:"gst_document_url"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	KYCDocuments       bool               `json:"kyc_documents" db:"kyc_documents"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// Employer links a user credential to a company profile.
type Employer struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	CompanyID        *uuid.UUID `json:"company_id,omitempty" db:"company_id"`
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	Email            string     `json:"email" db:"email"`
	Phone            string     `json:"phone" db:"phone"`
	IsVerified       bool       `json:"is_verified" db:"is_verified"`
	SubscriptionPlan string     `json:"subscription_plan" db:"subscription_plan"`
	Visibility       bool       `json:"visibility" db:"visibility"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
