package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/middleware"
)

// GetWallet returns both balances and the live batches
func (h *Handler) GetWallet(c *fiber.Ctx) error {
	wallet, err := h.balanceSvc.GetWallet(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(wallet)
}

// GetTransactions returns the wallet history, newest first
func (h *Handler) GetTransactions(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	transactions, err := h.balanceSvc.GetTransactions(c.UserContext(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"transactions": transactions,
	})
}
