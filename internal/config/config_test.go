package config

import (
	"testing"
	"time"

	"github.com/pagemint/backend/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WALLET_RENTAL_DURATION", "")
	t.Setenv("BILLING_BASIC_SLOTS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Wallet.RentalDuration != 72*time.Hour {
		t.Errorf("RentalDuration = %v, want 72h", cfg.Wallet.RentalDuration)
	}
	if cfg.Billing.BasicSlots != 3 {
		t.Errorf("BasicSlots = %d, want 3", cfg.Billing.BasicSlots)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WALLET_CHECKIN_AMOUNT", "25")
	t.Setenv("WALLET_AD_REWARD_DAILY_CAP", "not-a-number")
	t.Setenv("BILLING_CHANGE_WINDOW", "48h")
	t.Setenv("TELEGRAM_AUTH_MAX_AGE", "-5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Wallet.CheckInAmount != 25 {
		t.Errorf("CheckInAmount = %d, want 25", cfg.Wallet.CheckInAmount)
	}
	if cfg.Wallet.AdRewardDailyCap != 5 {
		t.Errorf("AdRewardDailyCap = %d, want default 5 on bad input", cfg.Wallet.AdRewardDailyCap)
	}
	if cfg.Billing.ChangeWindow != 48*time.Hour {
		t.Errorf("ChangeWindow = %v, want 48h", cfg.Billing.ChangeWindow)
	}
	if cfg.Telegram.AuthMaxAge != time.Hour {
		t.Errorf("AuthMaxAge = %v, want default for negative duration", cfg.Telegram.AuthMaxAge)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("SOME_FLAG", "true")
	if !getEnvBool("SOME_FLAG", false) {
		t.Error("getEnvBool(true) = false")
	}
	t.Setenv("SOME_FLAG", "maybe")
	if getEnvBool("SOME_FLAG", false) {
		t.Error("getEnvBool(maybe) should fall back to default")
	}
}

func TestBillingPlans(t *testing.T) {
	plans := BillingConfig{BasicMonthlyBonus: 100, PremiumMonthlyBonus: 500, BasicSlots: 2}.Plans()

	basic, ok := plans.Lookup(model.SubscriptionTierBasic)
	if !ok || basic.GlobalPass || basic.Slots != 2 || basic.MonthlyBonus != 100 {
		t.Errorf("basic plan = %+v", basic)
	}
	premium, ok := plans.Lookup(model.SubscriptionTierPremium)
	if !ok || !premium.GlobalPass || premium.MonthlyBonus != 500 {
		t.Errorf("premium plan = %+v", premium)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	if got, want := d.DSN(), "postgres://u:p@db:5432/n?sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
