package ledger

import (
	"time"

	"github.com/pagemint/backend/internal/model"
)

// SpendableBalance sums the amounts of batches that are still live at asOf.
// Expired batches are inert and never counted.
func SpendableBalance(batches []model.ExpiringBatch, asOf time.Time) int64 {
	var total int64
	for i := range batches {
		if batches[i].IsLive(asOf) && batches[i].Amount > 0 {
			total += batches[i].Amount
		}
	}
	return total
}

// DebitPermanent returns the permanent balance after spending amount.
func DebitPermanent(balance, amount int64) (int64, error) {
	if amount < 0 {
		return balance, ErrInvalidAmount
	}
	if balance < 0 {
		return balance, ErrLedgerCorrupted
	}
	if balance < amount {
		return balance, &InsufficientBalanceError{
			Currency:  model.CurrencyPermanent,
			Required:  amount,
			Available: balance,
		}
	}
	return balance - amount, nil
}

// CreditPermanent returns the permanent balance after adding amount.
func CreditPermanent(balance, amount int64) (int64, error) {
	if amount < 0 {
		return balance, ErrInvalidAmount
	}
	if balance < 0 {
		return balance, ErrLedgerCorrupted
	}
	return balance + amount, nil
}
