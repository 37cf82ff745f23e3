package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/service"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/validator"
)

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validator
}

func NewAuthHandler(authService *service.AuthService, validator *validator.Validator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator,
	}
}

// Login handles password login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.authService.Login(c.Context(), req, clientIP(c), c.Get("User-Agent"))
	if err != nil {
		return errorResponse(c, err)
	}

	if resp.VerificationRequired {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"verification_required": true,
			"message":               "Email verification required. A code has been sent.",
		})
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// RefreshToken exchanges a refresh token for a new pair
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	tokens, err := h.authService.RefreshTokens(c.Context(), req.RefreshToken, clientIP(c), c.Get("User-Agent"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

// Logout revokes the presented session
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	accessToken := bearerToken(c)
	if err := h.authService.Logout(c.Context(), req.RefreshToken, accessToken); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// LogoutAll revokes every session of the authenticated user
// POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing authentication context",
		})
	}

	if err := h.authService.LogoutAll(c.Context(), userID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "All sessions revoked",
	})
}

// RequestOtp issues a login/verification code by email
// POST /api/v1/auth/otp/request
func (h *AuthHandler) RequestOtp(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authService.RequestLoginOtp(c.Context(), req.Email); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Verification code sent",
	})
}

// OtpLogin verifies a code and logs the user in
// POST /api/v1/auth/otp/login
func (h *AuthHandler) OtpLogin(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,len=6,numeric"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.authService.OtpLogin(c.Context(), req.Email, req.Code, clientIP(c), c.Get("User-Agent"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// VerifyEmail marks an account's email verified from an emailed code
// POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,len=6,numeric"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authService.VerifyEmail(c.Context(), req.Email, req.Code); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Email verified successfully. Please log in.",
	})
}

// SocialLogin signs a user in from a verified OAuth profile
// POST /api/v1/auth/social
func (h *AuthHandler) SocialLogin(c *fiber.Ctx) error {
	var req service.SocialLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.authService.SocialLogin(c.Context(), req, clientIP(c), c.Get("User-Agent"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// ForgotPassword issues a reset code. The response never reveals whether the
// email belongs to an account.
// POST /api/v1/auth/password/forgot
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authService.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "If the email is registered, a reset code has been sent",
	})
}

// ResetPassword consumes a reset code and sets a new password
// POST /api/v1/auth/password/reset
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Email           string `json:"email" validate:"required,email"`
		Code            string `json:"code" validate:"required,len=6,numeric"`
		NewPassword     string `json:"new_password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authService.ResetPassword(c.Context(), req.Email, req.Code, req.NewPassword, req.ConfirmPassword); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Password has been reset",
	})
}

// ChangePassword changes the authenticated user's password
// POST /api/v1/auth/password/change
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing authentication context",
		})
	}

	var req struct {
		OldPassword     string `json:"old_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authService.ChangePassword(c.Context(), userID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}

// SetupTwoFactor starts authenticator enrollment for the authenticated user
// POST /api/v1/auth/2fa/setup
func (h *AuthHandler) SetupTwoFactor(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing authentication context",
		})
	}

	var req struct {
		Password string `json:"password" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	setup, err := h.authService.EnableTwoFactor(c.Context(), userID, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(setup)
}

// EnableTwoFactor verifies the first authenticator code and turns 2FA on
// POST /api/v1/auth/2fa/enable
func (h *AuthHandler) EnableTwoFactor(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing authentication context",
		})
	}

	var req struct {
		Code string `json:"code" validate:"required,len=6,numeric"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	backupCodes, err := h.authService.ConfirmTwoFactor(c.Context(), userID, req.Code)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":      "Two-factor authentication enabled successfully",
		"backup_codes": backupCodes,
	})
}

// DisableTwoFactor turns 2FA off for the authenticated user
// DELETE /api/v1/auth/2fa
func (h *AuthHandler) DisableTwoFactor(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing authentication context",
		})
	}

	var req struct {
		Password string `json:"password" validate:"required"`
		Code     string `json:"code" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authService.DisableTwoFactor(c.Context(), userID, req.Password, req.Code); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Two-factor authentication disabled successfully",
	})
}

// Introspect reports whether an access token is active
// POST /api/v1/auth/introspect
func (h *AuthHandler) Introspect(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.authService.Introspect(c.Context(), req.Token)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// DeactivateAccount soft-deactivates the authenticated user
// DELETE /api/v1/auth/account
func (h *AuthHandler) DeactivateAccount(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing authentication context",
		})
	}

	if err := h.authService.DeactivateAccount(c.Context(), userID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Account deactivated",
	})
}
