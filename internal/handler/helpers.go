package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
)

// errorResponse maps the domain error taxonomy onto HTTP. Handlers call this
// for every service error so status codes stay consistent across routes.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidToken):
		status = fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrPreconditionFailed):
		status = fiber.StatusPreconditionFailed
	case errors.Is(err, domain.ErrSessionExpired):
		status = fiber.StatusGone
	case errors.Is(err, domain.ErrRateLimited):
		status = fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCode):
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// clientIP prefers the X-Forwarded-For chain set by the load balancer.
func clientIP(c *fiber.Ctx) string {
	if ips := c.IPs(); len(ips) > 0 {
		return ips[0]
	}
	return c.IP()
}

// bearerToken extracts the access token from the Authorization header, or
// returns empty when none is present. Used on routes that accept but do not
// require authentication.
func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
