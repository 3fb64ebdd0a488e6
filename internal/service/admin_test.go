package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
)

const operator int64 = 7

func TestAdmin_GrantBatchAndAudit(t *testing.T) {
	store, clk := newFixture(t)
	store.PutUser(model.User{ID: operator})
	store.PutAdmin(operator)
	ctx := context.Background()

	admin := NewAdminService(store, testWallet(), discard)
	admin.SetClock(clk.Now)

	ok, err := admin.IsAdmin(ctx, operator)
	if err != nil || !ok {
		t.Fatalf("IsAdmin(operator) = %v, %v", ok, err)
	}
	if ok, _ := admin.IsAdmin(ctx, reader); ok {
		t.Error("IsAdmin(reader) = true")
	}

	batch, err := admin.GrantBatch(ctx, operator, reader, 40, 48*time.Hour)
	if err != nil {
		t.Fatalf("GrantBatch() error = %v", err)
	}
	if batch.Amount != 40 || !batch.ExpiresAt.Equal(t0.Add(48*time.Hour)) {
		t.Errorf("GrantBatch() = %+v", batch)
	}
	if _, err := admin.GrantBatch(ctx, operator, reader, 0, time.Hour); !errors.Is(err, ErrInvalidGrant) {
		t.Errorf("GrantBatch(0) error = %v, want ErrInvalidGrant", err)
	}
	if _, err := admin.GrantBatch(ctx, operator, 999, 10, time.Hour); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("GrantBatch(unknown user) error = %v, want ErrUserNotFound", err)
	}

	logs := store.AdminLogs()
	if len(logs) != 1 || logs[0].Action != "grant_batch" || logs[0].TargetUserID == nil || *logs[0].TargetUserID != reader {
		t.Errorf("admin logs = %+v, want one grant_batch for reader", logs)
	}

	ch := putChapter(store, uuid.New(), 15, 20)
	unlocks := NewUnlockService(store, 72*time.Hour, discard)
	unlocks.SetClock(clk.Now)
	if _, err := unlocks.Unlock(ctx, reader, ch.ID, purchase(t, model.UnlockTypeRental, model.CurrencyExpiring)); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	clk.Advance(49 * time.Hour)
	report, err := admin.Audit(ctx, reader)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	want := model.AuditReport{
		UserID:               reader,
		PermanentConsistent:  true,
		ExpiringSpendable:    0,
		ExpiringLedgerSum:    25,
		ExpiredOrUnaccounted: 25,
	}
	if *report != want {
		t.Errorf("Audit() = %+v, want %+v", *report, want)
	}
}

func TestAdmin_Settings(t *testing.T) {
	store, _ := newFixture(t)
	admin := NewAdminService(store, testWallet(), discard)
	ctx := context.Background()

	settings, err := admin.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings[model.SettingCheckInAmount] != "5" || settings[model.SettingAdRewardDailyCap] != "3" {
		t.Errorf("default settings = %v", settings)
	}

	tests := []struct {
		key, value string
		wantErr    error
	}{
		{model.SettingCheckInAmount, "12", nil},
		{model.SettingCheckInAmount, "-1", ErrInvalidSettingValue},
		{model.SettingAdRewardDailyCap, "many", ErrInvalidSettingValue},
		{"rental_hours", "24", ErrUnknownSetting},
	}
	for _, tt := range tests {
		if err := admin.SetSetting(ctx, operator, tt.key, tt.value); !errors.Is(err, tt.wantErr) {
			t.Errorf("SetSetting(%s=%s) error = %v, want %v", tt.key, tt.value, err, tt.wantErr)
		}
	}

	settings, err = admin.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings[model.SettingCheckInAmount] != "12" {
		t.Errorf("checkin amount = %s, want 12", settings[model.SettingCheckInAmount])
	}
	if n := len(store.AdminLogs()); n != 1 {
		t.Errorf("admin logs = %d, want 1", n)
	}
}
