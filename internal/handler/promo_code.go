package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/middleware"
)

type RedeemPromoCodeRequest struct {
	Code string `json:"code"`
}

// RedeemPromoCode applies a promo code for the current user
func (h *Handler) RedeemPromoCode(c *fiber.Ctx) error {
	var req RedeemPromoCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Code == "" {
		return badRequest(c, "promo code is required")
	}

	result, err := h.promoCodeSvc.RedeemPromoCode(c.UserContext(), req.Code, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"currency":          result.Currency,
		"amount":            result.Amount,
		"batch":             result.Batch,
		"permanent_balance": result.PermanentBalance,
		"message":           result.Message,
	})
}

// ValidatePromoCode checks if a promo code is valid (without applying it)
func (h *Handler) ValidatePromoCode(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return badRequest(c, "promo code is required")
	}

	promo, err := h.promoCodeSvc.ValidatePromoCode(c.UserContext(), code, middleware.GetUserID(c))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
			"valid": false,
		})
	}

	return c.JSON(fiber.Map{
		"valid":       true,
		"currency":    promo.Currency,
		"amount":      promo.Amount,
		"description": promo.Description,
	})
}
