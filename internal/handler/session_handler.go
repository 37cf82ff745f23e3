package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List returns the authenticated user's live sessions, newest first
// GET /api/v1/sessions
func (h *SessionHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing authentication context",
		})
	}

	sessions, err := h.sessions.ListForUser(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"sessions": sessions,
	})
}

// Revoke deletes one of the user's sessions by id
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Revoke(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing authentication context",
		})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid session id")
	}

	session, err := h.sessions.FindByID(c.Context(), sessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	// Users only manage their own sessions.
	if session.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "session does not belong to you",
		})
	}

	if err := h.sessions.Delete(c.Context(), sessionID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Session revoked",
	})
}

// RevokeAllForUser force-logs-out every session of the given user.
// Admin-only; used when responding to a compromised account.
// DELETE /api/v1/admin/users/:id/sessions
func (h *SessionHandler) RevokeAllForUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.sessions.RevokeAllForUser(c.Context(), userID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "All sessions revoked",
	})
}
