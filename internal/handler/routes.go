package handler

import "github.com/gofiber/fiber/v2"

// Auth is the set of authentication middlewares routes are mounted behind.
// Required runs in order for every /api route.
type Auth struct {
	Required []fiber.Handler
	Optional fiber.Handler
	Admin    fiber.Handler
}

// Register mounts every API route on app.
func Register(app *fiber.App, h *Handler, adminHandler *AdminHandler, auth Auth) {
	// Health check
	app.Get("/health", h.Health)

	// Webhooks (signature checked by the billing service)
	app.Post("/webhook/billing", h.BillingWebhook)

	// Public API, user is optional. Registered before the /api group so the
	// required auth middleware never sees it.
	app.Get("/api/chapters/:chapter_id/access", auth.Optional, h.GetChapterAccess)

	api := app.Group("/api", auth.Required...)

	// User
	api.Get("/user/me", h.GetMe)

	// Chapters
	api.Post("/chapters/:chapter_id/unlock", h.UnlockChapter)

	// Wallet
	api.Get("/wallet", h.GetWallet)
	api.Get("/wallet/transactions", h.GetTransactions)

	// Rewards
	api.Post("/rewards/check-in", h.DailyCheckIn)
	api.Post("/rewards/ad", h.ClaimAdReward)

	// Promo codes
	api.Get("/promo/validate", h.ValidatePromoCode)
	api.Post("/promo/redeem", h.RedeemPromoCode)

	// Subscription
	api.Get("/subscription", h.GetSubscriptionStatus)
	api.Post("/subscription/slots", h.AssignSlot)
	api.Delete("/subscription/slots/:work_id", h.ReleaseSlot)

	// Admin panel routes, behind the /api auth plus the admin check
	admin := api.Group("/admin", auth.Admin)

	admin.Get("/promo", adminHandler.ListPromoCodes)
	admin.Post("/promo", adminHandler.CreatePromoCode)
	admin.Post("/promo/bulk", adminHandler.CreateBulkPromoCodes)
	admin.Post("/promo/deactivate", adminHandler.DeactivatePromoCode)

	admin.Post("/users/:user_id/batches", adminHandler.GrantBatch)
	admin.Get("/users/:user_id/audit", adminHandler.Audit)

	admin.Get("/settings", adminHandler.GetSettings)
	admin.Post("/settings", adminHandler.SetSetting)
}
