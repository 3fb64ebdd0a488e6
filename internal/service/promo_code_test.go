package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
)

func intPtr(v int) *int { return &v }

func TestRedeemPromoCode(t *testing.T) {
	past := t0.Add(-time.Hour)
	tests := []struct {
		name    string
		promo   model.PromoCode
		code    string
		wantErr error
	}{
		{
			name:  "expiring promo grants a batch",
			promo: model.PromoCode{Code: "SPRING", Amount: 30, Currency: model.CurrencyExpiring, IsActive: true},
			code:  " spring ",
		},
		{
			name:  "permanent promo credits balance",
			promo: model.PromoCode{Code: "GIFT", Amount: 15, Currency: model.CurrencyPermanent, IsActive: true},
			code:  "GIFT",
		},
		{
			name:    "exhausted",
			promo:   model.PromoCode{Code: "ONCE", Amount: 10, Currency: model.CurrencyExpiring, IsActive: true, MaxUses: intPtr(1), UsedCount: 1},
			code:    "ONCE",
			wantErr: ErrPromoCodeLimitReached,
		},
		{
			name:    "inactive",
			promo:   model.PromoCode{Code: "OFF", Amount: 10, Currency: model.CurrencyExpiring},
			code:    "OFF",
			wantErr: ErrPromoCodeInactive,
		},
		{
			name:    "expired",
			promo:   model.PromoCode{Code: "OLD", Amount: 10, Currency: model.CurrencyExpiring, IsActive: true, ExpiresAt: &past},
			code:    "OLD",
			wantErr: ErrPromoCodeExpired,
		},
		{
			name:    "unknown",
			promo:   model.PromoCode{Code: "REAL", Amount: 10, Currency: model.CurrencyExpiring, IsActive: true},
			code:    "FAKE",
			wantErr: ErrPromoCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, clk := newFixture(t)
			store.PutPromoCode(tt.promo)
			svc := NewPromoCodeService(store, testWallet(), discard)
			svc.SetClock(clk.Now)

			res, err := svc.RedeemPromoCode(context.Background(), tt.code, reader)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RedeemPromoCode() error = %v, want %v", err, tt.wantErr)
				}
				if n := len(store.Transactions(reader)); n != 0 {
					t.Errorf("transactions = %d, want 0", n)
				}
				return
			}
			if err != nil {
				t.Fatalf("RedeemPromoCode() error = %v", err)
			}
			if res.Amount != tt.promo.Amount || res.Currency != tt.promo.Currency {
				t.Errorf("RedeemPromoCode() = %+v", res)
			}
			switch tt.promo.Currency {
			case model.CurrencyExpiring:
				if res.Batch == nil || !res.Batch.ExpiresAt.Equal(t0.Add(14*24*time.Hour)) {
					t.Errorf("batch = %+v, want one expiring in 14 days", res.Batch)
				}
			case model.CurrencyPermanent:
				if res.PermanentBalance == nil || *res.PermanentBalance != tt.promo.Amount {
					t.Errorf("permanent balance = %v, want %d", res.PermanentBalance, tt.promo.Amount)
				}
			}
			txs := store.Transactions(reader)
			if len(txs) != 1 || txs[0].Kind != model.TransactionKindBonus {
				t.Errorf("transactions = %+v, want one BONUS entry", txs)
			}
		})
	}
}

func TestRedeemPromoCode_OncePerUserAndLimit(t *testing.T) {
	store, clk := newFixture(t)
	store.PutUser(model.User{ID: 43})
	store.PutUser(model.User{ID: 44})
	store.PutPromoCode(model.PromoCode{Code: "TWICE", Amount: 10, Currency: model.CurrencyExpiring, IsActive: true, MaxUses: intPtr(2)})
	svc := NewPromoCodeService(store, testWallet(), discard)
	svc.SetClock(clk.Now)
	ctx := context.Background()

	if _, err := svc.RedeemPromoCode(ctx, "TWICE", reader); err != nil {
		t.Fatalf("first redeem error = %v", err)
	}
	if _, err := svc.ValidatePromoCode(ctx, "twice", reader); !errors.Is(err, ErrPromoCodeAlreadyUsed) {
		t.Errorf("ValidatePromoCode() after use error = %v, want ErrPromoCodeAlreadyUsed", err)
	}
	if _, err := svc.RedeemPromoCode(ctx, "TWICE", reader); !errors.Is(err, ErrPromoCodeAlreadyUsed) {
		t.Errorf("repeat redeem error = %v, want ErrPromoCodeAlreadyUsed", err)
	}
	if _, err := svc.RedeemPromoCode(ctx, "TWICE", 43); err != nil {
		t.Fatalf("second user redeem error = %v", err)
	}
	if _, err := svc.RedeemPromoCode(ctx, "TWICE", 44); !errors.Is(err, ErrPromoCodeLimitReached) {
		t.Errorf("third user redeem error = %v, want ErrPromoCodeLimitReached", err)
	}

	err := store.View(ctx, func(q repository.Queries) error {
		p, err := q.GetPromoCode(ctx, "TWICE")
		if err != nil {
			return err
		}
		if p.UsedCount != 2 {
			t.Errorf("UsedCount = %d, want 2", p.UsedCount)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreatePromoCode(t *testing.T) {
	store, clk := newFixture(t)
	svc := NewPromoCodeService(store, testWallet(), discard)
	svc.SetClock(clk.Now)
	ctx := context.Background()

	promo, err := svc.CreatePromoCode(ctx, CreatePromoRequest{Code: "launch", Amount: 50, Currency: "expiring"})
	if err != nil {
		t.Fatalf("CreatePromoCode() error = %v", err)
	}
	if promo.Code != "LAUNCH" || promo.Currency != model.CurrencyExpiring || !promo.IsActive {
		t.Errorf("CreatePromoCode() = %+v", promo)
	}
	if _, err := svc.CreatePromoCode(ctx, CreatePromoRequest{Code: "LAUNCH", Amount: 5, Currency: model.CurrencyPermanent}); !errors.Is(err, repository.ErrPromoCodeExists) {
		t.Errorf("duplicate CreatePromoCode() error = %v, want ErrPromoCodeExists", err)
	}

	invalid := []CreatePromoRequest{
		{Code: "A", Amount: 0, Currency: model.CurrencyExpiring},
		{Code: "B", Amount: 5, Currency: "GEMS"},
		{Code: "C", Amount: 5, Currency: model.CurrencyExpiring, MaxUses: intPtr(0)},
		{Code: " ", Amount: 5, Currency: model.CurrencyExpiring},
	}
	for _, req := range invalid {
		if _, err := svc.CreatePromoCode(ctx, req); !errors.Is(err, ErrInvalidPromoCode) {
			t.Errorf("CreatePromoCode(%+v) error = %v, want ErrInvalidPromoCode", req, err)
		}
	}

	if err := svc.DeactivatePromoCode(ctx, "launch"); err != nil {
		t.Fatalf("DeactivatePromoCode() error = %v", err)
	}
	if _, err := svc.RedeemPromoCode(ctx, "LAUNCH", reader); !errors.Is(err, ErrPromoCodeInactive) {
		t.Errorf("redeem after deactivate error = %v, want ErrPromoCodeInactive", err)
	}
}

func TestBulkCreatePromoCodes(t *testing.T) {
	store, clk := newFixture(t)
	svc := NewPromoCodeService(store, testWallet(), discard)
	svc.SetClock(clk.Now)
	ctx := context.Background()

	codes, err := svc.BulkCreatePromoCodes(ctx, CreatePromoRequest{Amount: 10, Currency: model.CurrencyExpiring, MaxUses: intPtr(1)}, "fest-", 20)
	if err != nil {
		t.Fatalf("BulkCreatePromoCodes() error = %v", err)
	}
	if len(codes) != 20 {
		t.Fatalf("len(codes) = %d, want 20", len(codes))
	}
	seen := make(map[string]bool)
	for _, c := range codes {
		if !strings.HasPrefix(c.Code, "FEST-") {
			t.Errorf("code %q lacks prefix", c.Code)
		}
		if seen[c.Code] {
			t.Errorf("duplicate code %q", c.Code)
		}
		seen[c.Code] = true
	}

	listed, err := svc.ListPromoCodes(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListPromoCodes() error = %v", err)
	}
	if len(listed) != 20 {
		t.Errorf("ListPromoCodes() = %d codes, want 20", len(listed))
	}

	if _, err := svc.BulkCreatePromoCodes(ctx, CreatePromoRequest{Amount: 10, Currency: model.CurrencyExpiring}, "X", maxBulkPromoCodes+1); !errors.Is(err, ErrInvalidPromoCode) {
		t.Errorf("oversized bulk error = %v, want ErrInvalidPromoCode", err)
	}
}
