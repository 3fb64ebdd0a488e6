package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/ledger"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/pagemint/backend/internal/service"
	"github.com/sirupsen/logrus"
)

var (
	notFoundErrors = []error{
		repository.ErrUserNotFound,
		repository.ErrChapterNotFound,
		repository.ErrPromoCodeNotFound,
		service.ErrPromoCodeNotFound,
		service.ErrWorkNotFound,
		service.ErrSlotNotFound,
	}
	conflictErrors = []error{
		service.ErrAlreadyClaimed,
		service.ErrDailyLimitReached,
		service.ErrPromoCodeAlreadyUsed,
		service.ErrPromoCodeLimitReached,
		service.ErrSlotLimitReached,
		service.ErrNoActiveSubscription,
		service.ErrGlobalPassActive,
		service.ErrChangeWindowClosed,
		repository.ErrPromoCodeExists,
		repository.ErrConcurrencyConflict,
	}
	unprocessableErrors = []error{
		model.ErrCurrencyNotAllowed,
		service.ErrInvalidPurchase,
	}
	badRequestErrors = []error{
		service.ErrInvalidGrant,
		service.ErrInvalidPromoCode,
		service.ErrPromoCodeInactive,
		service.ErrPromoCodeExpired,
		service.ErrUnknownSetting,
		service.ErrInvalidSettingValue,
		ledger.ErrInvalidAmount,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.StatusPaymentRequired
	case isAny(err, notFoundErrors):
		return fiber.StatusNotFound
	case isAny(err, conflictErrors):
		return fiber.StatusConflict
	case isAny(err, unprocessableErrors):
		return fiber.StatusUnprocessableEntity
	case isAny(err, badRequestErrors):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as a JSON error body. Internal errors are logged
// and hidden from the client.
func respondError(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	status := statusFor(err)
	body := fiber.Map{"error": err.Error()}

	var ib *ledger.InsufficientBalanceError
	if errors.As(err, &ib) {
		body["currency"] = ib.Currency
		body["required"] = ib.Required
		body["available"] = ib.Available
		body["shortfall"] = ib.Shortfall()
	}
	if status == fiber.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
		body["error"] = "internal error"
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
