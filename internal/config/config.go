package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pagemint/backend/internal/model"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	Billing  BillingConfig
	Wallet   WalletConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins string
	LogLevel     string
	LogFormat    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type TelegramConfig struct {
	BotToken      string
	WebAppURL     string
	AuthMaxAge    time.Duration
	Notifications bool
}

type BillingConfig struct {
	WebhookSecret       string
	SignatureTolerance  time.Duration
	BasicMonthlyBonus   int64
	PremiumMonthlyBonus int64
	BasicSlots          int
	BonusTTL            time.Duration
	ChangeWindow        time.Duration
	DefaultPeriod       time.Duration
}

type WalletConfig struct {
	RentalDuration   time.Duration
	CheckInAmount    int64
	CheckInTTL       time.Duration
	AdRewardAmount   int64
	AdRewardDailyCap int
	AdRewardTTL      time.Duration
	PromoBatchTTL    time.Duration
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

// Plans builds the tier catalog from the billing settings. PREMIUM carries the
// global pass and needs no slots.
func (b BillingConfig) Plans() model.PlanCatalog {
	return model.PlanCatalog{
		model.SubscriptionTierBasic: {
			Tier:         model.SubscriptionTierBasic,
			MonthlyBonus: b.BasicMonthlyBonus,
			Slots:        b.BasicSlots,
		},
		model.SubscriptionTierPremium: {
			Tier:         model.SubscriptionTierPremium,
			MonthlyBonus: b.PremiumMonthlyBonus,
			GlobalPass:   true,
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			LogFormat:    getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "pagemint"),
			Password: getEnv("DB_PASSWORD", "pagemint"),
			Name:     getEnv("DB_NAME", "pagemint"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Telegram: TelegramConfig{
			BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
			WebAppURL:     getEnv("TELEGRAM_WEBAPP_URL", ""),
			AuthMaxAge:    getEnvDuration("TELEGRAM_AUTH_MAX_AGE", time.Hour),
			Notifications: getEnvBool("TELEGRAM_NOTIFICATIONS", true),
		},
		Billing: BillingConfig{
			WebhookSecret:       getEnv("BILLING_WEBHOOK_SECRET", ""),
			SignatureTolerance:  getEnvDuration("BILLING_SIGNATURE_TOLERANCE", 5*time.Minute),
			BasicMonthlyBonus:   getEnvInt64("BILLING_BASIC_MONTHLY_BONUS", 300),
			PremiumMonthlyBonus: getEnvInt64("BILLING_PREMIUM_MONTHLY_BONUS", 1000),
			BasicSlots:          getEnvInt("BILLING_BASIC_SLOTS", 3),
			BonusTTL:            getEnvDuration("BILLING_BONUS_TTL", 30*24*time.Hour),
			ChangeWindow:        getEnvDuration("BILLING_CHANGE_WINDOW", 72*time.Hour),
			DefaultPeriod:       getEnvDuration("BILLING_DEFAULT_PERIOD", 30*24*time.Hour),
		},
		Wallet: WalletConfig{
			RentalDuration:   getEnvDuration("WALLET_RENTAL_DURATION", 72*time.Hour),
			CheckInAmount:    getEnvInt64("WALLET_CHECKIN_AMOUNT", 10),
			CheckInTTL:       getEnvDuration("WALLET_CHECKIN_TTL", 7*24*time.Hour),
			AdRewardAmount:   getEnvInt64("WALLET_AD_REWARD_AMOUNT", 5),
			AdRewardDailyCap: getEnvInt("WALLET_AD_REWARD_DAILY_CAP", 5),
			AdRewardTTL:      getEnvDuration("WALLET_AD_REWARD_TTL", 7*24*time.Hour),
			PromoBatchTTL:    getEnvDuration("WALLET_PROMO_BATCH_TTL", 30*24*time.Hour),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt64(key string, defaultValue int64) int64 {
	v, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// Worker cadence
const (
	WalletWorkerInterval = 1 * time.Hour
	BonusExpiryNotice    = 24 * time.Hour
)
