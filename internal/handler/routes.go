package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/handler/middleware"
)

func SetupRoutes(
	app *fiber.App,
	authHandler *AuthHandler,
	registrationHandler *RegistrationHandler,
	sessionHandler *SessionHandler,
	healthHandler *HealthHandler,
	authMiddleware fiber.Handler,
) {
	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	// API v1
	api := app.Group("/api/v1")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/social", authHandler.SocialLogin)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/otp/request", authHandler.RequestOtp)
	auth.Post("/otp/login", authHandler.OtpLogin)
	auth.Post("/password/forgot", authHandler.ForgotPassword)
	auth.Post("/password/reset", authHandler.ResetPassword)
	auth.Post("/introspect", authHandler.Introspect)

	// Auth routes (protected)
	auth.Post("/logout-all", authMiddleware, authHandler.LogoutAll)
	auth.Post("/password/change", authMiddleware, authHandler.ChangePassword)
	auth.Delete("/account", authMiddleware, authHandler.DeactivateAccount)
	auth.Post("/2fa/setup", authMiddleware, authHandler.SetupTwoFactor)
	auth.Post("/2fa/enable", authMiddleware, authHandler.EnableTwoFactor)
	auth.Delete("/2fa", authMiddleware, authHandler.DisableTwoFactor)

	// Employer registration wizard (public; guarded by its session token)
	register := api.Group("/register")
	register.Post("/mobile/send-otp", registrationHandler.SendMobileOtp)
	register.Post("/mobile/resend-otp", registrationHandler.ResendMobileOtp)
	register.Post("/mobile/verify-otp", registrationHandler.VerifyMobileOtp)
	register.Post("/email/send-otp", registrationHandler.SendEmailOtp)
	register.Post("/email/verify-otp", registrationHandler.VerifyEmailOtp)
	register.Post("/details", registrationHandler.SubmitBasicDetails)
	register.Post("/documents/upload-url", registrationHandler.DocumentUploadURL)
	register.Post("/complete", registrationHandler.Complete)
	register.Get("/status/:token", registrationHandler.Status)

	// Session management (protected)
	sessions := api.Group("/sessions", authMiddleware)
	sessions.Get("/", sessionHandler.List)
	sessions.Delete("/:id", sessionHandler.Revoke)

	// Admin operations
	admin := api.Group("/admin", authMiddleware, middleware.RequireRole(domain.RoleAdmin))
	admin.Delete("/users/:id/sessions", sessionHandler.RevokeAllForUser)
}
