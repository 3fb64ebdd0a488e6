// Package ledger holds the pure wallet arithmetic: spendable-balance
// computation, FIFO batch consumption planning and permanent balance debits.
// Nothing here touches storage; callers apply the results inside a store
// transaction.
package ledger

import (
	"errors"
	"fmt"

	"github.com/pagemint/backend/internal/model"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must not be negative")
	// ErrLedgerCorrupted marks an internal consistency violation such as a
	// negative balance. It is a bug, never a user error.
	ErrLedgerCorrupted = errors.New("ledger corrupted")
)

// InsufficientBalanceError carries the shortfall for user-facing messages.
type InsufficientBalanceError struct {
	Currency  model.Currency
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Shortfall() int64 {
	return e.Required - e.Available
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: have %d, need %d", e.Currency, e.Available, e.Required)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
