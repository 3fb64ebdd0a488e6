package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/billing"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/pagemint/backend/internal/repository/memory"
)

type recordingNotifier struct {
	mu       sync.Mutex
	bonuses  []int64
	renewals []time.Time
	failures []int64
	expiring map[int64]int64
}

func (n *recordingNotifier) SendBonusGranted(chatID int64, amount int64, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bonuses = append(n.bonuses, amount)
	return nil
}

func (n *recordingNotifier) SendSubscriptionRenewed(chatID int64, tier model.SubscriptionTier, validUntil time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.renewals = append(n.renewals, validUntil)
	return nil
}

func (n *recordingNotifier) SendPaymentFailed(chatID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, chatID)
	return nil
}

func (n *recordingNotifier) SendBonusExpiring(chatID int64, amount int64, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.expiring == nil {
		n.expiring = make(map[int64]int64)
	}
	n.expiring[chatID] += amount
	return nil
}

func newBillingFixture(t *testing.T) (*memory.Store, *clock, *BillingService, *recordingNotifier) {
	t.Helper()
	store, clk := newFixture(t)
	svc := NewBillingService(store, testBilling(), discard)
	svc.SetClock(clk.Now)
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	return store, clk, svc, n
}

func loadUser(t *testing.T, store *memory.Store, id int64) *model.User {
	t.Helper()
	var user *model.User
	err := store.View(context.Background(), func(q repository.Queries) error {
		var err error
		user, err = q.GetUser(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("GetUser(%d) error = %v", id, err)
	}
	return user
}

func invoicePaid(id, subID string, periodEnd time.Time) *billing.InvoicePaid {
	return &billing.InvoicePaid{
		Meta:           billing.Meta{ID: id, Type: billing.TypeInvoicePaid},
		SubscriptionID: subID,
		PeriodEnd:      periodEnd,
	}
}

func TestBilling_CheckoutStartsSubscription(t *testing.T) {
	store, clk, svc, n := newBillingFixture(t)
	periodEnd := t0.Add(30 * 24 * time.Hour)

	err := svc.HandleEvent(context.Background(), &billing.CheckoutCompleted{
		Meta:           billing.Meta{ID: "evt_checkout", Type: billing.TypeCheckoutCompleted},
		Mode:           billing.CheckoutModeSubscription,
		UserID:         reader,
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
		Tier:           model.SubscriptionTierBasic,
		PeriodEnd:      periodEnd,
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	u := loadUser(t, store, reader)
	if u.SubscriptionTier == nil || *u.SubscriptionTier != model.SubscriptionTierBasic {
		t.Errorf("tier = %v, want BASIC", u.SubscriptionTier)
	}
	if u.SubscriptionValidUntil == nil || !u.SubscriptionValidUntil.Equal(periodEnd) {
		t.Errorf("valid until = %v, want %v", u.SubscriptionValidUntil, periodEnd)
	}
	if !u.InChangeWindow(clk.Now()) {
		t.Error("change window not opened by checkout")
	}
	if u.BillingSubscriptionID == nil || *u.BillingSubscriptionID != "sub_1" {
		t.Errorf("subscription id = %v, want sub_1", u.BillingSubscriptionID)
	}
	if len(store.Batches(reader)) != 0 {
		t.Error("checkout must not grant the monthly bonus")
	}
	if len(n.renewals) != 1 {
		t.Errorf("renewal notifications = %d, want 1", len(n.renewals))
	}
}

func TestBilling_CheckoutPaymentCreditsPermanent(t *testing.T) {
	store, _, svc, _ := newBillingFixture(t)
	ev := &billing.CheckoutCompleted{
		Meta:   billing.Meta{ID: "evt_coins", Type: billing.TypeCheckoutCompleted},
		Mode:   billing.CheckoutModePayment,
		UserID: reader,
		Coins:  500,
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("HandleEvent() #%d error = %v", i+1, err)
		}
	}
	if u := loadUser(t, store, reader); u.PermanentBalance != 500 {
		t.Errorf("permanent balance = %d, want 500", u.PermanentBalance)
	}
	txs := store.Transactions(reader)
	if len(txs) != 1 || txs[0].Kind != model.TransactionKindDeposit || txs[0].Currency != model.CurrencyPermanent {
		t.Errorf("transactions = %+v, want one PERMANENT DEPOSIT", txs)
	}
}

func TestBilling_RenewalAppliedOnce(t *testing.T) {
	store, clk, svc, n := newBillingFixture(t)
	subscribe(store, reader, model.SubscriptionTierBasic, t0.Add(time.Hour), "sub_1")
	store.PutSlot(model.SubscriptionSlot{UserID: reader, WorkID: putChapter(store, uuid.New(), 8, 20).WorkID, ExpiresAt: t0.Add(time.Hour)})
	ctx := context.Background()
	periodEnd := t0.Add(30 * 24 * time.Hour)

	if err := svc.HandleEvent(ctx, invoicePaid("evt_r1", "sub_1", periodEnd)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	// Same event redelivered, then a second event for the same period.
	if err := svc.HandleEvent(ctx, invoicePaid("evt_r1", "sub_1", periodEnd)); err != nil {
		t.Fatalf("redelivered HandleEvent() error = %v", err)
	}
	if err := svc.HandleEvent(ctx, invoicePaid("evt_r2", "sub_1", periodEnd)); err != nil {
		t.Fatalf("same-period HandleEvent() error = %v", err)
	}

	batches := store.Batches(reader)
	if len(batches) != 1 || batches[0].Amount != 100 || !batches[0].ExpiresAt.Equal(t0.Add(30*24*time.Hour)) {
		t.Fatalf("batches = %+v, want a single 100 bonus", batches)
	}
	if len(n.bonuses) != 1 || len(n.renewals) != 1 {
		t.Errorf("notifications bonus=%d renewal=%d, want 1/1", len(n.bonuses), len(n.renewals))
	}

	u := loadUser(t, store, reader)
	if !u.SubscriptionValidUntil.Equal(periodEnd) {
		t.Errorf("valid until = %v, want %v", u.SubscriptionValidUntil, periodEnd)
	}
	if !u.InChangeWindow(clk.Now()) {
		t.Error("renewal did not open the change window")
	}

	err := store.View(ctx, func(q repository.Queries) error {
		slots, err := q.ListSlots(ctx, reader, t0)
		if err != nil {
			return err
		}
		if len(slots) != 1 || !slots[0].ExpiresAt.Equal(periodEnd) {
			t.Errorf("slots = %+v, want one extended to %v", slots, periodEnd)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBilling_ValidityNeverMovesBackwards(t *testing.T) {
	store, _, svc, _ := newBillingFixture(t)
	later := t0.Add(60 * 24 * time.Hour)
	subscribe(store, reader, model.SubscriptionTierPremium, later, "sub_1")

	if err := svc.HandleEvent(context.Background(), invoicePaid("evt_old", "sub_1", t0.Add(30*24*time.Hour))); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if u := loadUser(t, store, reader); !u.SubscriptionValidUntil.Equal(later) {
		t.Errorf("valid until = %v, want %v", u.SubscriptionValidUntil, later)
	}
}

func TestBilling_UncorrelatedInvoiceIsRetryable(t *testing.T) {
	store, _, svc, _ := newBillingFixture(t)
	ctx := context.Background()
	ev := invoicePaid("evt_early", "sub_new", t0.Add(30*24*time.Hour))

	if err := svc.HandleEvent(ctx, ev); !errors.Is(err, ErrSubscriptionNotCorrelated) {
		t.Fatalf("HandleEvent() error = %v, want ErrSubscriptionNotCorrelated", err)
	}

	subscribe(store, reader, model.SubscriptionTierBasic, t0, "sub_new")
	if err := svc.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("redelivered HandleEvent() error = %v", err)
	}
	if n := len(store.Batches(reader)); n != 1 {
		t.Errorf("batches = %d, want 1 after redelivery", n)
	}
}

func TestBilling_SubscriptionLifecycle(t *testing.T) {
	store, _, svc, n := newBillingFixture(t)
	subscribe(store, reader, model.SubscriptionTierBasic, t0.Add(time.Hour), "sub_1")
	ctx := context.Background()

	err := svc.HandleEvent(ctx, &billing.SubscriptionUpdated{
		Meta:           billing.Meta{ID: "evt_u1", Type: billing.TypeSubscriptionUpdated},
		SubscriptionID: "sub_1",
		Status:         "active",
		Tier:           model.SubscriptionTierPremium,
	})
	if err != nil {
		t.Fatalf("update HandleEvent() error = %v", err)
	}
	if u := loadUser(t, store, reader); *u.SubscriptionTier != model.SubscriptionTierPremium {
		t.Errorf("tier = %s, want PREMIUM", *u.SubscriptionTier)
	}

	err = svc.HandleEvent(ctx, &billing.SubscriptionUpdated{
		Meta:           billing.Meta{ID: "evt_u2", Type: billing.TypeSubscriptionUpdated},
		SubscriptionID: "sub_1",
		Status:         "past_due",
		Tier:           model.SubscriptionTierBasic,
	})
	if err != nil {
		t.Fatalf("inactive update HandleEvent() error = %v", err)
	}
	if u := loadUser(t, store, reader); *u.SubscriptionTier != model.SubscriptionTierPremium {
		t.Errorf("inactive update changed tier to %s", *u.SubscriptionTier)
	}

	err = svc.HandleEvent(ctx, &billing.InvoicePaymentFailed{
		Meta:           billing.Meta{ID: "evt_f1", Type: billing.TypeInvoicePaymentFailed},
		SubscriptionID: "sub_1",
		AttemptCount:   1,
	})
	if err != nil {
		t.Fatalf("payment failed HandleEvent() error = %v", err)
	}
	if len(n.failures) != 1 {
		t.Errorf("failure notifications = %d, want 1", len(n.failures))
	}

	err = svc.HandleEvent(ctx, &billing.SubscriptionDeleted{
		Meta:           billing.Meta{ID: "evt_d1", Type: billing.TypeSubscriptionDeleted},
		SubscriptionID: "sub_1",
	})
	if err != nil {
		t.Fatalf("delete HandleEvent() error = %v", err)
	}
	u := loadUser(t, store, reader)
	if u.SubscriptionTier != nil || u.SubscriptionValidUntil != nil {
		t.Errorf("user after deletion = %+v, want subscription cleared", u)
	}
}

func TestBilling_HandleWebhook(t *testing.T) {
	store, clk, svc, _ := newBillingFixture(t)
	subscribe(store, reader, model.SubscriptionTierBasic, t0, "sub_1")
	ctx := context.Background()
	secret := testBilling().WebhookSecret

	periodEnd := t0.Add(30 * 24 * time.Hour).Unix()
	payload := []byte(fmt.Sprintf(`{"id":"evt_w1","type":"invoice.paid","data":{"object":{"subscription":"sub_1","period_end":%d}}}`, periodEnd))

	if err := svc.HandleWebhook(ctx, payload, billing.Sign(payload, "wrong", clk.Now())); !errors.Is(err, billing.ErrInvalidSignature) {
		t.Errorf("HandleWebhook(bad secret) error = %v, want ErrInvalidSignature", err)
	}
	if err := svc.HandleWebhook(ctx, payload, ""); !errors.Is(err, billing.ErrMissingSignature) {
		t.Errorf("HandleWebhook(no signature) error = %v, want ErrMissingSignature", err)
	}
	if err := svc.HandleWebhook(ctx, payload, billing.Sign(payload, secret, clk.Now().Add(-time.Hour))); !errors.Is(err, billing.ErrStaleSignature) {
		t.Errorf("HandleWebhook(stale) error = %v, want ErrStaleSignature", err)
	}
	if n := len(store.Batches(reader)); n != 0 {
		t.Fatalf("batches = %d after rejected deliveries, want 0", n)
	}

	if err := svc.HandleWebhook(ctx, payload, billing.Sign(payload, secret, clk.Now())); err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}
	if n := len(store.Batches(reader)); n != 1 {
		t.Errorf("batches = %d, want 1", n)
	}

	unknown := []byte(`{"id":"evt_x","type":"customer.created","data":{"object":{}}}`)
	if err := svc.HandleWebhook(ctx, unknown, billing.Sign(unknown, secret, clk.Now())); err != nil {
		t.Errorf("HandleWebhook(unrecognized) error = %v, want nil", err)
	}
	malformed := []byte(`{"id":"evt_y","type":"invoice.paid","data":{"object":{}}}`)
	if err := svc.HandleWebhook(ctx, malformed, billing.Sign(malformed, secret, clk.Now())); err != nil {
		t.Errorf("HandleWebhook(malformed) error = %v, want nil", err)
	}
}
