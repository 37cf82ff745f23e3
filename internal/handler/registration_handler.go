package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/service"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/validator"
)

type RegistrationHandler struct {
	registrationService *service.RegistrationService
	validator           *validator.Validator
}

func NewRegistrationHandler(registrationService *service.RegistrationService, validator *validator.Validator) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		validator:           validator,
	}
}

// SendMobileOtp starts the employer onboarding wizard
// POST /api/v1/register/mobile/send-otp
func (h *RegistrationHandler) SendMobileOtp(c *fiber.Ctx) error {
	var req struct {
		Mobile string `json:"mobile" validate:"required,e164"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	token, err := h.registrationService.SendMobileOtp(c.Context(), req.Mobile)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"session_token": token,
		"message":       "Verification code sent",
	})
}

// ResendMobileOtp re-issues the pending mobile code
// POST /api/v1/register/mobile/resend-otp
func (h *RegistrationHandler) ResendMobileOtp(c *fiber.Ctx) error {
	var req struct {
		SessionToken string `json:"session_token" validate:"required,uuid4"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registrationService.ResendMobileOtp(c.Context(), req.SessionToken); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Verification code sent",
	})
}

// VerifyMobileOtp verifies the mobile code
// POST /api/v1/register/mobile/verify-otp
func (h *RegistrationHandler) VerifyMobileOtp(c *fiber.Ctx) error {
	var req struct {
		SessionToken string `json:"session_token" validate:"required,uuid4"`
		Code         string `json:"code" validate:"required,len=6,numeric"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registrationService.VerifyMobileOtp(c.Context(), req.SessionToken, req.Code); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Mobile number verified",
	})
}

// SendEmailOtp records the email and issues its code
// POST /api/v1/register/email/send-otp
func (h *RegistrationHandler) SendEmailOtp(c *fiber.Ctx) error {
	var req struct {
		SessionToken string `json:"session_token" validate:"required,uuid4"`
		Email        string `json:"email" validate:"required,email"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registrationService.SendEmailOtp(c.Context(), req.SessionToken, req.Email); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Verification code sent",
	})
}

// VerifyEmailOtp verifies the email code
// POST /api/v1/register/email/verify-otp
func (h *RegistrationHandler) VerifyEmailOtp(c *fiber.Ctx) error {
	var req struct {
		SessionToken string `json:"session_token" validate:"required,uuid4"`
		Code         string `json:"code" validate:"required,len=6,numeric"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registrationService.VerifyEmailOtp(c.Context(), req.SessionToken, req.Code); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Email verified",
	})
}

// SubmitBasicDetails stores the applicant profile on the wizard session
// POST /api/v1/register/details
func (h *RegistrationHandler) SubmitBasicDetails(c *fiber.Ctx) error {
	var req struct {
		SessionToken string `json:"session_token" validate:"required,uuid4"`
		service.BasicDetailsRequest
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registrationService.SubmitBasicDetails(c.Context(), req.SessionToken, req.BasicDetailsRequest); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Details saved",
	})
}

// DocumentUploadURL hands out a pre-signed upload URL for the GST document
// POST /api/v1/register/documents/upload-url
func (h *RegistrationHandler) DocumentUploadURL(c *fiber.Ctx) error {
	var req struct {
		SessionToken string `json:"session_token" validate:"required,uuid4"`
		FileName     string `json:"file_name" validate:"required"`
		ContentType  string `json:"content_type" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.registrationService.DocumentUploadURL(c.Context(), req.SessionToken, req.FileName, req.ContentType)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// Complete commits the wizard and creates the account
// POST /api/v1/register/complete
func (h *RegistrationHandler) Complete(c *fiber.Ctx) error {
	var req struct {
		SessionToken string `json:"session_token" validate:"required,uuid4"`
		service.CompleteRegistrationRequest
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.registrationService.CompleteRegistration(c.Context(), req.SessionToken, req.CompleteRegistrationRequest, clientIP(c), c.Get("User-Agent"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Status reports wizard progress
// GET /api/v1/register/status/:token
func (h *RegistrationHandler) Status(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return badRequest(c, "Missing session token")
	}

	session, err := h.registrationService.Status(c.Context(), token)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(session)
}
