package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// SubscriptionService manages work-level slots held through a subscription.
// Tier and validity themselves are only written by billing reconciliation.
type SubscriptionService struct {
	base
	plans model.PlanCatalog
}

func NewSubscriptionService(store repository.Store, plans model.PlanCatalog, log logrus.FieldLogger) *SubscriptionService {
	return &SubscriptionService{base: newBase(store, log), plans: plans}
}

func (s *SubscriptionService) GetStatus(ctx context.Context, userID int64) (*model.SubscriptionStatus, error) {
	now := s.now()
	var status *model.SubscriptionStatus
	err := s.view(ctx, func(q repository.Queries) error {
		user, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		status = &model.SubscriptionStatus{
			Tier:              user.SubscriptionTier,
			Active:            user.HasActiveSubscription(now),
			ValidUntil:        user.SubscriptionValidUntil,
			ChangeWindowUntil: user.EntitlementChangeWindowUntil,
			InChangeWindow:    user.InChangeWindow(now),
			Slots:             []model.SubscriptionSlot{},
		}
		if !status.Active {
			return nil
		}
		if plan, ok := s.plans.Lookup(*user.SubscriptionTier); ok {
			status.GlobalPass = plan.GlobalPass
			status.SlotLimit = plan.Slots
		}
		slots, err := q.ListSlots(ctx, userID, now)
		if err != nil {
			return err
		}
		if slots != nil {
			status.Slots = slots
		}
		return nil
	})
	return status, err
}

// AssignSlot puts a work into one of the subscriber's slots until the end of
// the paid period. Assigning a work that already has a slot returns it.
func (s *SubscriptionService) AssignSlot(ctx context.Context, userID int64, workID uuid.UUID) (*model.SubscriptionSlot, error) {
	var slot *model.SubscriptionSlot
	err := s.inTx(ctx, "assign_slot", func(q repository.Queries) error {
		slot = nil
		now := s.now()
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if !user.HasActiveSubscription(now) {
			return ErrNoActiveSubscription
		}
		plan, ok := s.plans.Lookup(*user.SubscriptionTier)
		if !ok {
			return ErrUnknownTier
		}
		if plan.GlobalPass {
			return ErrGlobalPassActive
		}

		exists, err := q.WorkExists(ctx, workID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrWorkNotFound
		}

		slots, err := q.ListSlots(ctx, userID, now)
		if err != nil {
			return err
		}
		for i := range slots {
			if slots[i].WorkID == workID {
				slot = &slots[i]
				return nil
			}
		}
		if len(slots) >= plan.Slots {
			return ErrSlotLimitReached
		}

		slot = &model.SubscriptionSlot{
			UserID:    userID,
			WorkID:    workID,
			ExpiresAt: *user.SubscriptionValidUntil,
		}
		return q.CreateSlot(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "work_id": workID}).Info("subscription slot assigned")
	return slot, nil
}

// ReleaseSlot frees a slot. Only allowed while the change window that opens
// on each renewal is still open.
func (s *SubscriptionService) ReleaseSlot(ctx context.Context, userID int64, workID uuid.UUID) error {
	err := s.inTx(ctx, "release_slot", func(q repository.Queries) error {
		now := s.now()
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if !user.InChangeWindow(now) {
			return ErrChangeWindowClosed
		}
		found, err := q.ExpireSlot(ctx, userID, workID, now)
		if err != nil {
			return err
		}
		if !found {
			return ErrSlotNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "work_id": workID}).Info("subscription slot released")
	return nil
}
