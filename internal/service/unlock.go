package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/ledger"
	"github.com/pagemint/backend/internal/metrics"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// UnlockService is the only writer of chapter entitlements. Each unlock is a
// single transaction: check entitlement, spend, log, upsert.
type UnlockService struct {
	base
	rentalDuration time.Duration
}

func NewUnlockService(store repository.Store, rentalDuration time.Duration, log logrus.FieldLogger) *UnlockService {
	return &UnlockService{base: newBase(store, log), rentalDuration: rentalDuration}
}

// Unlock buys access to a chapter. Repeating a purchase the user already
// holds returns ALREADY_OWNED without charging. A live rental bought again as
// PERMANENT is upgraded at the full permanent price.
func (s *UnlockService) Unlock(ctx context.Context, userID int64, chapterID uuid.UUID, purchase model.Purchase) (*model.UnlockResult, error) {
	if !purchase.Valid() {
		return nil, ErrInvalidPurchase
	}
	method, currency := purchase.Method(), purchase.Currency()

	var result *model.UnlockResult
	err := s.inTx(ctx, "unlock", func(q repository.Queries) error {
		result = nil
		now := s.now()

		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		chapter, err := q.GetChapter(ctx, chapterID)
		if err != nil {
			return err
		}
		if chapter.IsFree {
			result = &model.UnlockResult{Status: model.UnlockStatusAlreadyOwned}
			return nil
		}

		existing, err := q.GetUnlock(ctx, userID, chapterID)
		if err != nil && !errors.Is(err, repository.ErrUnlockNotFound) {
			return err
		}
		if existing != nil && alreadyOwned(existing, method, now) {
			result = &model.UnlockResult{Status: model.UnlockStatusAlreadyOwned, Unlock: existing}
			return nil
		}

		cost := chapter.Price(method)
		if cost > 0 {
			if err := s.charge(ctx, q, user, chapter, method, currency, cost, now); err != nil {
				return err
			}
		} else if cost < 0 {
			return fmt.Errorf("%w: chapter %s priced %d", ledger.ErrLedgerCorrupted, chapter.ID, cost)
		}

		unlock := &model.Unlock{
			UserID:    userID,
			ChapterID: chapterID,
			Type:      method,
		}
		if method == model.UnlockTypeRental {
			expiresAt := now.Add(s.rentalDuration)
			unlock.ExpiresAt = &expiresAt
		}
		if err := q.UpsertUnlock(ctx, unlock); err != nil {
			return fmt.Errorf("failed to save unlock: %w", err)
		}

		result = &model.UnlockResult{
			Status:   model.UnlockStatusGranted,
			Unlock:   unlock,
			Charged:  cost,
			Currency: currency,
		}
		return nil
	})

	fields := logrus.Fields{
		"user_id":    userID,
		"chapter_id": chapterID,
		"method":     method,
		"currency":   currency,
	}
	if err != nil {
		metrics.UnlocksTotal.WithLabelValues(string(method), string(currency), unlockOutcome(err)).Inc()
		if errors.Is(err, ledger.ErrLedgerCorrupted) {
			s.log.WithFields(fields).WithError(err).Error("ledger invariant violated during unlock")
		}
		return nil, err
	}

	metrics.UnlocksTotal.WithLabelValues(string(method), string(currency), string(result.Status)).Inc()
	if result.Status == model.UnlockStatusGranted {
		if result.Charged > 0 {
			metrics.CurrencySpent.WithLabelValues(string(currency)).Add(float64(result.Charged))
		}
		s.log.WithFields(fields).WithField("charged", result.Charged).Info("chapter unlocked")
	}
	return result, nil
}

func (s *UnlockService) charge(ctx context.Context, q repository.Queries, user *model.User, chapter *model.Chapter, method model.UnlockType, currency model.Currency, cost int64, now time.Time) error {
	meta := map[string]interface{}{
		"chapter_id": chapter.ID.String(),
		"method":     string(method),
	}

	switch currency {
	case model.CurrencyExpiring:
		plan, err := spendExpiring(ctx, q, user.ID, cost, now)
		if err != nil {
			return err
		}
		meta["batches"] = len(plan.Mutations)
	case model.CurrencyPermanent:
		if _, err := spendPermanent(ctx, q, user, cost); err != nil {
			return err
		}
	default:
		return ErrInvalidPurchase
	}

	err := q.AppendTransaction(ctx, &model.Transaction{
		UserID:      user.ID,
		Amount:      -cost,
		Currency:    currency,
		Kind:        model.TransactionKindSpend,
		Description: fmt.Sprintf("%s unlock: %s", method, chapter.Title),
		Metadata:    metadata(meta),
	})
	if err != nil {
		return fmt.Errorf("failed to create transaction record: %w", err)
	}
	return nil
}

func alreadyOwned(existing *model.Unlock, method model.UnlockType, now time.Time) bool {
	if existing.Type == model.UnlockTypePermanent {
		return true
	}
	return method == model.UnlockTypeRental && existing.GrantsAccess(now)
}

func unlockOutcome(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, repository.ErrChapterNotFound), errors.Is(err, repository.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrConcurrencyConflict):
		return "conflict"
	}
	return "error"
}
