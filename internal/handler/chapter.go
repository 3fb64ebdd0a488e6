package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/middleware"
	"github.com/pagemint/backend/internal/model"
)

type UnlockRequest struct {
	Method   string `json:"method"`
	Currency string `json:"currency"`
}

// GetChapterAccess resolves whether the caller may read a chapter. Works for
// anonymous callers too.
func (h *Handler) GetChapterAccess(c *fiber.Ctx) error {
	chapterID, err := uuid.Parse(c.Params("chapter_id"))
	if err != nil {
		return badRequest(c, "invalid chapter_id")
	}

	decision, err := h.entitlementSvc.ResolveAccess(c.UserContext(), middleware.OptionalUserID(c), chapterID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(decision)
}

// UnlockChapter buys a rental or permanent unlock.
func (h *Handler) UnlockChapter(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	chapterID, err := uuid.Parse(c.Params("chapter_id"))
	if err != nil {
		return badRequest(c, "invalid chapter_id")
	}

	var req UnlockRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	method, err := model.ParseUnlockType(req.Method)
	if err != nil {
		return badRequest(c, err.Error())
	}
	currency, err := model.ParseCurrency(req.Currency)
	if err != nil {
		return badRequest(c, err.Error())
	}
	purchase, err := model.NewPurchase(method, currency)
	if err != nil {
		return respondError(c, h.log, err)
	}

	result, err := h.unlockSvc.Unlock(c.UserContext(), userID, chapterID, purchase)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}
