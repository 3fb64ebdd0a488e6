package service

import (
	"context"
	"time"

	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// WalletWorker does periodic wallet housekeeping: it removes fully spent
// batches and warns users about bonus currency that is about to expire.
type WalletWorker struct {
	base
	notifier Notifier
}

func NewWalletWorker(store repository.Store, log logrus.FieldLogger) *WalletWorker {
	return &WalletWorker{base: newBase(store, log)}
}

// SetNotifier sets the notifier (to avoid circular deps)
func (w *WalletWorker) SetNotifier(n Notifier) {
	w.notifier = n
}

// Start begins the background worker
func (w *WalletWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(config.WalletWorkerInterval)
	defer ticker.Stop()

	w.log.WithField("interval", config.WalletWorkerInterval).Info("wallet worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("wallet worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single housekeeping pass.
func (w *WalletWorker) RunOnce(ctx context.Context) {
	w.cleanupEmptyBatches(ctx)
	w.notifyExpiringBonuses(ctx)
}

func (w *WalletWorker) cleanupEmptyBatches(ctx context.Context) {
	var removed int64
	err := w.inTx(ctx, "cleanup_batches", func(q repository.Queries) error {
		var err error
		removed, err = q.DeleteEmptyBatches(ctx)
		return err
	})
	if err != nil {
		w.log.WithError(err).Error("failed to delete empty batches")
		return
	}
	if removed > 0 {
		w.log.WithField("count", removed).Info("deleted empty batches")
	}
}

type expiringSummary struct {
	amount    int64
	expiresAt time.Time
}

// notifyExpiringBonuses warns each user once per pass about batches expiring
// in the window (now+notice-interval, now+notice], so every batch is reported
// by exactly one hourly run.
func (w *WalletWorker) notifyExpiringBonuses(ctx context.Context) {
	if w.notifier == nil {
		return
	}
	now := w.now()
	to := now.Add(config.BonusExpiryNotice)
	from := to.Add(-config.WalletWorkerInterval)

	perUser := make(map[int64]*expiringSummary)
	var order []int64
	err := w.view(ctx, func(q repository.Queries) error {
		batches, err := q.ListExpiringBatches(ctx, from, to)
		if err != nil {
			return err
		}
		for _, b := range batches {
			sum, ok := perUser[b.UserID]
			if !ok {
				sum = &expiringSummary{expiresAt: b.ExpiresAt}
				perUser[b.UserID] = sum
				order = append(order, b.UserID)
			}
			sum.amount += b.Amount
			if b.ExpiresAt.Before(sum.expiresAt) {
				sum.expiresAt = b.ExpiresAt
			}
		}
		return nil
	})
	if err != nil {
		w.log.WithError(err).Error("failed to list expiring batches")
		return
	}

	for _, userID := range order {
		sum := perUser[userID]
		if err := w.notifier.SendBonusExpiring(userID, sum.amount, sum.expiresAt); err != nil {
			w.log.WithError(err).WithField("user_id", userID).Warn("failed to send expiry notification")
		}
	}
}
