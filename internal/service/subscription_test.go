package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/model"
)

func TestSlots(t *testing.T) {
	store, clk := newFixture(t)
	validUntil := t0.Add(30 * 24 * time.Hour)
	subscribe(store, reader, model.SubscriptionTierBasic, validUntil, "sub_1")
	works := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, w := range works {
		putChapter(store, w, 8, 20)
	}

	svc := NewSubscriptionService(store, testBilling().Plans(), discard)
	svc.SetClock(clk.Now)
	ctx := context.Background()

	slot, err := svc.AssignSlot(ctx, reader, works[0])
	if err != nil {
		t.Fatalf("AssignSlot() error = %v", err)
	}
	if !slot.ExpiresAt.Equal(validUntil) {
		t.Errorf("slot expires at %v, want %v", slot.ExpiresAt, validUntil)
	}
	again, err := svc.AssignSlot(ctx, reader, works[0])
	if err != nil || again.ID != slot.ID {
		t.Errorf("repeat AssignSlot() = %v, %v; want the same slot", again, err)
	}
	if _, err := svc.AssignSlot(ctx, reader, works[1]); err != nil {
		t.Fatalf("second AssignSlot() error = %v", err)
	}
	if _, err := svc.AssignSlot(ctx, reader, works[2]); !errors.Is(err, ErrSlotLimitReached) {
		t.Errorf("third AssignSlot() error = %v, want ErrSlotLimitReached", err)
	}
	if _, err := svc.AssignSlot(ctx, reader, uuid.New()); !errors.Is(err, ErrWorkNotFound) {
		t.Errorf("AssignSlot(unknown work) error = %v, want ErrWorkNotFound", err)
	}

	if err := svc.ReleaseSlot(ctx, reader, works[0]); !errors.Is(err, ErrChangeWindowClosed) {
		t.Errorf("ReleaseSlot() outside window error = %v, want ErrChangeWindowClosed", err)
	}

	window := t0.Add(48 * time.Hour)
	tier := model.SubscriptionTierBasic
	subID := "sub_1"
	store.PutUser(model.User{
		ID:                           reader,
		SubscriptionTier:             &tier,
		SubscriptionValidUntil:       &validUntil,
		EntitlementChangeWindowUntil: &window,
		BillingSubscriptionID:        &subID,
	})
	if err := svc.ReleaseSlot(ctx, reader, works[0]); err != nil {
		t.Fatalf("ReleaseSlot() error = %v", err)
	}
	if err := svc.ReleaseSlot(ctx, reader, works[0]); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("repeat ReleaseSlot() error = %v, want ErrSlotNotFound", err)
	}
	if _, err := svc.AssignSlot(ctx, reader, works[2]); err != nil {
		t.Errorf("AssignSlot() after release error = %v", err)
	}

	status, err := svc.GetStatus(ctx, reader)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if !status.Active || !status.InChangeWindow || status.SlotLimit != 2 || len(status.Slots) != 2 || status.GlobalPass {
		t.Errorf("GetStatus() = %+v", status)
	}
}

func TestAssignSlot_Rejections(t *testing.T) {
	workID := uuid.New()
	tests := []struct {
		name    string
		setup   func(store interface{ PutUser(model.User) })
		wantErr error
	}{
		{
			name:    "no subscription",
			setup:   func(s interface{ PutUser(model.User) }) {},
			wantErr: ErrNoActiveSubscription,
		},
		{
			name: "lapsed subscription",
			setup: func(s interface{ PutUser(model.User) }) {
				tier, until := model.SubscriptionTierBasic, t0.Add(-time.Minute)
				s.PutUser(model.User{ID: reader, SubscriptionTier: &tier, SubscriptionValidUntil: &until})
			},
			wantErr: ErrNoActiveSubscription,
		},
		{
			name: "global pass",
			setup: func(s interface{ PutUser(model.User) }) {
				tier, until := model.SubscriptionTierPremium, t0.Add(time.Hour)
				s.PutUser(model.User{ID: reader, SubscriptionTier: &tier, SubscriptionValidUntil: &until})
			},
			wantErr: ErrGlobalPassActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, clk := newFixture(t)
			putChapter(store, workID, 8, 20)
			tt.setup(store)
			svc := NewSubscriptionService(store, testBilling().Plans(), discard)
			svc.SetClock(clk.Now)

			if _, err := svc.AssignSlot(context.Background(), reader, workID); !errors.Is(err, tt.wantErr) {
				t.Errorf("AssignSlot() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
