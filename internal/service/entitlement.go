package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// EntitlementService answers "may this user read this chapter". It never
// writes.
type EntitlementService struct {
	base
	plans model.PlanCatalog
}

func NewEntitlementService(store repository.Store, plans model.PlanCatalog, log logrus.FieldLogger) *EntitlementService {
	return &EntitlementService{base: newBase(store, log), plans: plans}
}

// ResolveAccess applies the access rules in order, first match wins:
// free chapter, anonymous, admin, subscription (global pass or a slot for the
// chapter's work), permanent unlock, live rental. A locked decision carries
// both prices for the paywall. userID is nil for anonymous readers.
func (s *EntitlementService) ResolveAccess(ctx context.Context, userID *int64, chapterID uuid.UUID) (*model.AccessDecision, error) {
	now := s.now()
	var decision *model.AccessDecision
	err := s.view(ctx, func(q repository.Queries) error {
		chapter, err := q.GetChapter(ctx, chapterID)
		if err != nil {
			return err
		}

		unlocked := func(reason model.AccessReason) {
			decision = &model.AccessDecision{Access: model.AccessUnlocked, Reason: reason}
		}
		decision = &model.AccessDecision{
			Access:         model.AccessLocked,
			Reason:         model.AccessReasonNone,
			PriceExpiring:  chapter.PriceExpiring,
			PricePermanent: chapter.PricePermanent,
		}

		if chapter.IsFree {
			unlocked(model.AccessReasonFree)
			return nil
		}
		if userID == nil {
			return nil
		}

		isAdmin, err := q.IsAdmin(ctx, *userID)
		if err != nil {
			return err
		}
		if isAdmin {
			unlocked(model.AccessReasonAdmin)
			return nil
		}

		user, err := q.GetUser(ctx, *userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil
			}
			return err
		}

		if user.HasActiveSubscription(now) {
			if plan, ok := s.plans.Lookup(*user.SubscriptionTier); ok && plan.GlobalPass {
				unlocked(model.AccessReasonSubscription)
				decision.ExpiresAt = user.SubscriptionValidUntil
				return nil
			}
			hasSlot, err := q.HasActiveSlot(ctx, user.ID, chapter.WorkID, now)
			if err != nil {
				return err
			}
			if hasSlot {
				unlocked(model.AccessReasonSlot)
				decision.ExpiresAt = user.SubscriptionValidUntil
				return nil
			}
		}

		unlock, err := q.GetUnlock(ctx, user.ID, chapter.ID)
		if err != nil {
			if errors.Is(err, repository.ErrUnlockNotFound) {
				return nil
			}
			return err
		}
		switch {
		case unlock.Type == model.UnlockTypePermanent:
			unlocked(model.AccessReasonPermanent)
		case unlock.GrantsAccess(now):
			unlocked(model.AccessReasonRental)
			decision.ExpiresAt = unlock.ExpiresAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}
