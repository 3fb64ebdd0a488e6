package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/billing"
)

// BillingWebhook receives events from the billing processor. A non-2xx reply
// makes the processor redeliver, so only transient failures return 500.
func (h *Handler) BillingWebhook(c *fiber.Ctx) error {
	err := h.billingSvc.HandleWebhook(c.UserContext(), c.Body(), c.Get(billing.SignatureHeader))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"received": true})
	case errors.Is(err, billing.ErrMissingSignature),
		errors.Is(err, billing.ErrInvalidSignature),
		errors.Is(err, billing.ErrStaleSignature):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "failed to process event",
	})
}
