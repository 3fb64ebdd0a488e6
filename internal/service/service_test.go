package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/logger"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository/memory"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

const reader int64 = 42

// clock is a settable time source shared by the store and the services.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) (*memory.Store, *clock) {
	t.Helper()
	clk := &clock{now: t0}
	store := memory.New()
	store.SetClock(clk.Now)
	store.PutUser(model.User{ID: reader})
	return store, clk
}

func testWallet() config.WalletConfig {
	return config.WalletConfig{
		RentalDuration:   72 * time.Hour,
		CheckInAmount:    5,
		CheckInTTL:       7 * 24 * time.Hour,
		AdRewardAmount:   2,
		AdRewardDailyCap: 3,
		AdRewardTTL:      3 * 24 * time.Hour,
		PromoBatchTTL:    14 * 24 * time.Hour,
	}
}

func testBilling() config.BillingConfig {
	return config.BillingConfig{
		WebhookSecret:       "whsec_test",
		SignatureTolerance:  5 * time.Minute,
		BasicMonthlyBonus:   100,
		PremiumMonthlyBonus: 300,
		BasicSlots:          2,
		BonusTTL:            30 * 24 * time.Hour,
		ChangeWindow:        48 * time.Hour,
		DefaultPeriod:       30 * 24 * time.Hour,
	}
}

func putChapter(store *memory.Store, workID uuid.UUID, priceExpiring, pricePermanent int64) model.Chapter {
	c := model.Chapter{
		ID:             uuid.New(),
		WorkID:         workID,
		Title:          "Chapter",
		PriceExpiring:  priceExpiring,
		PricePermanent: pricePermanent,
	}
	store.PutChapter(c)
	return c
}

func putBatch(store *memory.Store, userID, amount int64, expiresAt time.Time) {
	store.PutBatch(model.ExpiringBatch{UserID: userID, Amount: amount, ExpiresAt: expiresAt})
}

func subscribe(store *memory.Store, userID int64, tier model.SubscriptionTier, validUntil time.Time, subID string) {
	store.PutUser(model.User{
		ID:                     userID,
		SubscriptionTier:       &tier,
		SubscriptionValidUntil: &validUntil,
		BillingSubscriptionID:  &subID,
	})
}

func purchase(t *testing.T, method model.UnlockType, currency model.Currency) model.Purchase {
	t.Helper()
	p, err := model.NewPurchase(method, currency)
	if err != nil {
		t.Fatalf("NewPurchase(%s, %s) error = %v", method, currency, err)
	}
	return p
}

func sumBatches(batches []model.ExpiringBatch, asOf time.Time) int64 {
	var total int64
	for _, b := range batches {
		if b.IsLive(asOf) {
			total += b.Amount
		}
	}
	return total
}

var discard = logger.Discard()
