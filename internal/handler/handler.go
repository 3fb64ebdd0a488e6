package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/repository"
	"github.com/pagemint/backend/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	store           repository.Store
	userService     *service.UserService
	balanceSvc      *service.BalanceService
	entitlementSvc  *service.EntitlementService
	unlockSvc       *service.UnlockService
	rewardSvc       *service.RewardService
	promoCodeSvc    *service.PromoCodeService
	subscriptionSvc *service.SubscriptionService
	billingSvc      *service.BillingService
	log             logrus.FieldLogger
}

// Services bundles the dependencies of Handler.
type Services struct {
	Users         *service.UserService
	Balance       *service.BalanceService
	Entitlements  *service.EntitlementService
	Unlocks       *service.UnlockService
	Rewards       *service.RewardService
	PromoCodes    *service.PromoCodeService
	Subscriptions *service.SubscriptionService
	Billing       *service.BillingService
}

func New(store repository.Store, svc Services, log logrus.FieldLogger) *Handler {
	return &Handler{
		store:           store,
		userService:     svc.Users,
		balanceSvc:      svc.Balance,
		entitlementSvc:  svc.Entitlements,
		unlockSvc:       svc.Unlocks,
		rewardSvc:       svc.Rewards,
		promoCodeSvc:    svc.PromoCodes,
		subscriptionSvc: svc.Subscriptions,
		billingSvc:      svc.Billing,
		log:             log,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.store.Ping(c.UserContext()); err != nil {
		h.log.WithError(err).Warn("health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
