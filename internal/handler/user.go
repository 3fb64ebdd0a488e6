package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/middleware"
)

// GetMe returns the caller's profile
func (h *Handler) GetMe(c *fiber.Ctx) error {
	user, err := h.userService.GetUser(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}
