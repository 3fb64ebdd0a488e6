package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/handler"
	"github.com/pagemint/backend/internal/logger"
	"github.com/pagemint/backend/internal/middleware"
	"github.com/pagemint/backend/internal/repository"
	"github.com/pagemint/backend/internal/service"
	"github.com/pagemint/backend/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").WithError(err).Fatal("failed to load config")
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	// Connect to database
	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer repo.Close()

	// Create services
	plans := cfg.Billing.Plans()
	userService := service.NewUserService(repo, log)
	balanceSvc := service.NewBalanceService(repo, log)
	entitlementSvc := service.NewEntitlementService(repo, plans, log)
	unlockSvc := service.NewUnlockService(repo, cfg.Wallet.RentalDuration, log)
	rewardSvc := service.NewRewardService(repo, cfg.Wallet, log)
	promoCodeSvc := service.NewPromoCodeService(repo, cfg.Wallet, log)
	subscriptionSvc := service.NewSubscriptionService(repo, plans, log)
	billingSvc := service.NewBillingService(repo, cfg.Billing, log)
	adminSvc := service.NewAdminService(repo, cfg.Wallet, log)
	walletWorker := service.NewWalletWorker(repo, log)

	// Create Telegram bot
	var bot *telegram.Bot
	if cfg.Telegram.BotToken != "" {
		bot, err = telegram.NewBot(cfg, log, userService, balanceSvc, rewardSvc)
		if err != nil {
			log.WithError(err).Warn("failed to create telegram bot")
		} else {
			if cfg.Telegram.Notifications {
				billingSvc.SetNotifier(bot)
				walletWorker.SetNotifier(bot)
			}
			log.WithField("username", bot.GetBotUsername()).Info("telegram bot initialized")
		}
	}

	// Create handlers
	h := handler.New(repo, handler.Services{
		Users:         userService,
		Balance:       balanceSvc,
		Entitlements:  entitlementSvc,
		Unlocks:       unlockSvc,
		Rewards:       rewardSvc,
		PromoCodes:    promoCodeSvc,
		Subscriptions: subscriptionSvc,
		Billing:       billingSvc,
	}, log)
	adminHandler := handler.NewAdminHandler(adminSvc, promoCodeSvc, log)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Telegram-Init-Data",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handler.Register(app, h, adminHandler, handler.Auth{
		Required: []fiber.Handler{
			middleware.TelegramAuth(cfg),
			middleware.EnsureUser(userService, log),
		},
		Optional: middleware.OptionalTelegramAuth(cfg),
		Admin:    middleware.AdminAuth(adminSvc),
	})

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bot != nil {
		go bot.StartPolling(ctx)
		log.Info("telegram bot started with long polling")
	}

	go walletWorker.Start(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		cancel()
		_ = app.Shutdown()
	}()

	log.WithField("port", cfg.Server.Port).Info("server starting")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
