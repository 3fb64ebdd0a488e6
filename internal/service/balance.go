package service

import (
	"context"

	"github.com/pagemint/backend/internal/ledger"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	defaultTransactionsLimit = 20
	maxTransactionsLimit     = 100
)

// BalanceService is the read side of the wallet.
type BalanceService struct {
	base
}

func NewBalanceService(store repository.Store, log logrus.FieldLogger) *BalanceService {
	return &BalanceService{base: newBase(store, log)}
}

// GetWallet returns both balances. The expiring balance is summed from live
// batches at call time; it is never stored.
func (s *BalanceService) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	now := s.now()
	var wallet *model.Wallet
	err := s.view(ctx, func(q repository.Queries) error {
		user, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		batches, err := q.ListLiveBatches(ctx, userID, now)
		if err != nil {
			return err
		}
		if batches == nil {
			batches = []model.ExpiringBatch{}
		}
		wallet = &model.Wallet{
			UserID:           user.ID,
			PermanentBalance: user.PermanentBalance,
			ExpiringBalance:  ledger.SpendableBalance(batches, now),
			Batches:          batches,
		}
		if user.HasActiveSubscription(now) {
			wallet.SubscriptionTier = user.SubscriptionTier
			wallet.SubscriptionUntil = user.SubscriptionValidUntil
		}
		return nil
	})
	return wallet, err
}

// SpendableExpiring returns the live expiring balance at now.
func (s *BalanceService) SpendableExpiring(ctx context.Context, userID int64) (int64, error) {
	now := s.now()
	var total int64
	err := s.view(ctx, func(q repository.Queries) error {
		batches, err := q.ListLiveBatches(ctx, userID, now)
		if err != nil {
			return err
		}
		total = ledger.SpendableBalance(batches, now)
		return nil
	})
	return total, err
}

// GetTransactions returns transaction history for a user, newest first
func (s *BalanceService) GetTransactions(ctx context.Context, userID int64, limit, offset int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	if limit > maxTransactionsLimit {
		limit = maxTransactionsLimit
	}
	if offset < 0 {
		offset = 0
	}
	var txs []model.Transaction
	err := s.view(ctx, func(q repository.Queries) error {
		var err error
		txs, err = q.ListTransactions(ctx, userID, limit, offset)
		return err
	})
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, err
}
