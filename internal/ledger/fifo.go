package ledger

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/model"
)

// BatchMutation is one step of a spend: the batch either drops to Remaining
// or, when Delete is set, is fully consumed.
type BatchMutation struct {
	BatchID   uuid.UUID `json:"batch_id"`
	Consumed  int64     `json:"consumed"`
	Remaining int64     `json:"remaining"`
	Delete    bool      `json:"delete"`
}

type SpendPlan struct {
	Required  int64           `json:"required"`
	Mutations []BatchMutation `json:"mutations"`
}

// OrderForSpending sorts batches soonest-expiring first. Ties fall back to the
// oldest created batch, then to the id so the order is total.
func OrderForSpending(batches []model.ExpiringBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.ExpiresAt.Equal(b.ExpiresAt) {
			return a.ExpiresAt.Before(b.ExpiresAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

// PlanSpend computes which batches cover required, consuming the ones that
// expire first. It does not mutate its input. When the live balance cannot
// cover required it returns an *InsufficientBalanceError and no plan, so the
// caller never applies a partial spend.
func PlanSpend(batches []model.ExpiringBatch, required int64, asOf time.Time) (*SpendPlan, error) {
	if required < 0 {
		return nil, ErrInvalidAmount
	}
	plan := &SpendPlan{Required: required}
	if required == 0 {
		return plan, nil
	}

	live := make([]model.ExpiringBatch, 0, len(batches))
	for _, b := range batches {
		if b.Amount < 0 {
			return nil, fmt.Errorf("%w: batch %s has amount %d", ErrLedgerCorrupted, b.ID, b.Amount)
		}
		if b.Amount == 0 || !b.IsLive(asOf) {
			continue
		}
		live = append(live, b)
	}
	OrderForSpending(live)

	remaining := required
	for _, b := range live {
		if remaining == 0 {
			break
		}
		if b.Amount <= remaining {
			plan.Mutations = append(plan.Mutations, BatchMutation{
				BatchID:  b.ID,
				Consumed: b.Amount,
				Delete:   true,
			})
			remaining -= b.Amount
			continue
		}
		plan.Mutations = append(plan.Mutations, BatchMutation{
			BatchID:   b.ID,
			Consumed:  remaining,
			Remaining: b.Amount - remaining,
		})
		remaining = 0
	}

	if remaining > 0 {
		return nil, &InsufficientBalanceError{
			Currency:  model.CurrencyExpiring,
			Required:  required,
			Available: required - remaining,
		}
	}
	return plan, nil
}
