package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
)

// Grant describes one expiring-currency batch to mint.
type Grant struct {
	UserID      int64
	Amount      int64
	TTL         time.Duration
	Kind        model.TransactionKind
	Description string
	Meta        map[string]interface{}
}

// grantBatch is the batch allocator: it inserts the batch and its ledger
// entry and nothing else. Eligibility checks belong to the caller.
func grantBatch(ctx context.Context, q repository.Queries, now time.Time, g Grant) (*model.ExpiringBatch, error) {
	if g.Amount <= 0 || g.TTL <= 0 {
		return nil, ErrInvalidGrant
	}

	batch := &model.ExpiringBatch{
		UserID:    g.UserID,
		Amount:    g.Amount,
		ExpiresAt: now.Add(g.TTL),
	}
	if err := q.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	meta := map[string]interface{}{"batch_id": batch.ID.String()}
	for k, v := range g.Meta {
		meta[k] = v
	}
	err := q.AppendTransaction(ctx, &model.Transaction{
		UserID:      g.UserID,
		Amount:      g.Amount,
		Currency:    model.CurrencyExpiring,
		Kind:        g.Kind,
		Description: g.Description,
		Metadata:    metadata(meta),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction record: %w", err)
	}
	return batch, nil
}
