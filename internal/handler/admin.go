package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/middleware"
	"github.com/pagemint/backend/internal/service"
	"github.com/sirupsen/logrus"
)

// AdminHandler handles admin panel requests
type AdminHandler struct {
	adminSvc     *service.AdminService
	promoCodeSvc *service.PromoCodeService
	log          logrus.FieldLogger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminSvc *service.AdminService, promoCodeSvc *service.PromoCodeService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, promoCodeSvc: promoCodeSvc, log: log}
}

func targetUserID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	return id, err == nil && id > 0
}

// --- Wallet ---

type GrantBatchRequest struct {
	Amount   int64 `json:"amount"`
	TTLHours int   `json:"ttl_hours"`
}

// GrantBatch mints expiring currency for a user
func (h *AdminHandler) GrantBatch(c *fiber.Ctx) error {
	userID, ok := targetUserID(c)
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	var req GrantBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	batch, err := h.adminSvc.GrantBatch(c.UserContext(), middleware.GetAdminID(c), userID, req.Amount, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(batch)
}

// Audit cross-checks a user's ledger against balances
func (h *AdminHandler) Audit(c *fiber.Ctx) error {
	userID, ok := targetUserID(c)
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	report, err := h.adminSvc.Audit(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(report)
}

// --- Promo Codes ---

// ListPromoCodes lists promo codes
func (h *AdminHandler) ListPromoCodes(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	codes, err := h.promoCodeSvc.ListPromoCodes(c.UserContext(), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"promo_codes": codes})
}

// CreatePromoCode creates a new promo code
func (h *AdminHandler) CreatePromoCode(c *fiber.Ctx) error {
	var req service.CreatePromoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	promo, err := h.promoCodeSvc.CreatePromoCode(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.WithFields(logrus.Fields{"admin_id": middleware.GetAdminID(c), "code": promo.Code}).Info("promo code created")
	return c.Status(fiber.StatusCreated).JSON(promo)
}

type BulkPromoRequest struct {
	service.CreatePromoRequest
	Prefix string `json:"prefix"`
	Count  int    `json:"count"`
}

// CreateBulkPromoCodes generates a batch of single definition codes
func (h *AdminHandler) CreateBulkPromoCodes(c *fiber.Ctx) error {
	var req BulkPromoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	codes, err := h.promoCodeSvc.BulkCreatePromoCodes(c.UserContext(), req.CreatePromoRequest, req.Prefix, req.Count)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"count":       len(codes),
		"promo_codes": codes,
	})
}

type DeactivatePromoRequest struct {
	Code string `json:"code"`
}

// DeactivatePromoCode deactivates a promo code
func (h *AdminHandler) DeactivatePromoCode(c *fiber.Ctx) error {
	var req DeactivatePromoRequest
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return badRequest(c, "code is required")
	}

	if err := h.promoCodeSvc.DeactivatePromoCode(c.UserContext(), req.Code); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// --- Settings ---

// GetSettings returns the effective runtime settings
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.adminSvc.GetSettings(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(settings)
}

type SetSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetSetting updates one runtime setting
func (h *AdminHandler) SetSetting(c *fiber.Ctx) error {
	var req SetSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.adminSvc.SetSetting(c.UserContext(), middleware.GetAdminID(c), req.Key, req.Value); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true, "key": req.Key, "value": req.Value})
}
