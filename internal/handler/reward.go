package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/middleware"
)

func (h *Handler) DailyCheckIn(c *fiber.Ctx) error {
	batch, err := h.rewardSvc.DailyCheckIn(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"batch":   batch,
	})
}

func (h *Handler) ClaimAdReward(c *fiber.Ctx) error {
	result, err := h.rewardSvc.ClaimAdReward(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}
