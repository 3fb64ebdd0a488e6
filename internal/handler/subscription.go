package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/middleware"
)

type AssignSlotRequest struct {
	WorkID string `json:"work_id"`
}

func (h *Handler) GetSubscriptionStatus(c *fiber.Ctx) error {
	status, err := h.subscriptionSvc.GetStatus(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(status)
}

func (h *Handler) AssignSlot(c *fiber.Ctx) error {
	var req AssignSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	workID, err := uuid.Parse(req.WorkID)
	if err != nil {
		return badRequest(c, "invalid work_id")
	}

	slot, err := h.subscriptionSvc.AssignSlot(c.UserContext(), middleware.GetUserID(c), workID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(slot)
}

func (h *Handler) ReleaseSlot(c *fiber.Ctx) error {
	workID, err := uuid.Parse(c.Params("work_id"))
	if err != nil {
		return badRequest(c, "invalid work_id")
	}
	if err := h.subscriptionSvc.ReleaseSlot(c.UserContext(), middleware.GetUserID(c), workID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
