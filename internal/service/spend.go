package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pagemint/backend/internal/ledger"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
)

// spendExpiring consumes amount from the user's live batches, soonest expiry
// first. The caller must hold the user row lock. On error nothing has been
// written.
func spendExpiring(ctx context.Context, q repository.Queries, userID, amount int64, now time.Time) (*ledger.SpendPlan, error) {
	batches, err := q.ListLiveBatches(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	plan, err := ledger.PlanSpend(batches, amount, now)
	if err != nil {
		return nil, err
	}
	for _, m := range plan.Mutations {
		if m.Delete {
			err = q.DeleteBatch(ctx, m.BatchID)
		} else {
			err = q.UpdateBatchAmount(ctx, m.BatchID, m.Remaining)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to apply spend to batch %s: %w", m.BatchID, err)
		}
	}
	return plan, nil
}

// spendPermanent debits the scalar balance of a locked user row.
func spendPermanent(ctx context.Context, q repository.Queries, user *model.User, amount int64) (int64, error) {
	balance, err := ledger.DebitPermanent(user.PermanentBalance, amount)
	if err != nil {
		return user.PermanentBalance, err
	}
	if err := q.SetPermanentBalance(ctx, user.ID, balance); err != nil {
		return user.PermanentBalance, fmt.Errorf("failed to update balance: %w", err)
	}
	user.PermanentBalance = balance
	return balance, nil
}

// creditPermanent adds amount to a locked user's balance and logs it.
func creditPermanent(ctx context.Context, q repository.Queries, user *model.User, amount int64, kind model.TransactionKind, description string, meta map[string]interface{}) (int64, error) {
	if amount <= 0 {
		return user.PermanentBalance, ErrInvalidGrant
	}
	balance, err := ledger.CreditPermanent(user.PermanentBalance, amount)
	if err != nil {
		return user.PermanentBalance, err
	}
	if err := q.SetPermanentBalance(ctx, user.ID, balance); err != nil {
		return user.PermanentBalance, fmt.Errorf("failed to update balance: %w", err)
	}
	err = q.AppendTransaction(ctx, &model.Transaction{
		UserID:      user.ID,
		Amount:      amount,
		Currency:    model.CurrencyPermanent,
		Kind:        kind,
		Description: description,
		Metadata:    metadata(meta),
	})
	if err != nil {
		return user.PermanentBalance, fmt.Errorf("failed to create transaction record: %w", err)
	}
	user.PermanentBalance = balance
	return balance, nil
}
