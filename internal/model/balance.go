package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

type TransactionKind string

const (
	TransactionKindSpend   TransactionKind = "SPEND"
	TransactionKindEarn    TransactionKind = "EARN"
	TransactionKindBonus   TransactionKind = "BONUS"
	TransactionKindDeposit TransactionKind = "DEPOSIT"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindSpend, TransactionKindEarn, TransactionKindBonus, TransactionKindDeposit:
		return true
	}
	return false
}

func ParseTransactionKind(s string) (TransactionKind, error) {
	k := TransactionKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown transaction kind %q", s)
	}
	return k, nil
}

// ExpiringBatch is one grant of the time-limited currency. A batch is only ever
// decremented or deleted after creation; top-ups create new batches.
type ExpiringBatch struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Amount    int64     `json:"amount" db:"amount"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsLive reports whether the batch still counts towards the spendable balance.
func (b *ExpiringBatch) IsLive(asOf time.Time) bool {
	return b.ExpiresAt.After(asOf)
}

// Transaction is an append-only ledger entry. Amount is positive for credits
// and negative for debits.
type Transaction struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Amount      int64           `json:"amount" db:"amount"`
	Currency    Currency        `json:"currency" db:"currency"`
	Kind        TransactionKind `json:"kind" db:"kind"`
	Description string          `json:"description" db:"description"`
	Metadata    types.JSONText  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type ClaimKind string

const (
	ClaimKindCheckIn  ClaimKind = "CHECK_IN"
	ClaimKindAdReward ClaimKind = "AD_REWARD"
)

func (k ClaimKind) Valid() bool {
	return k == ClaimKindCheckIn || k == ClaimKindAdReward
}

func ParseClaimKind(s string) (ClaimKind, error) {
	k := ClaimKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown claim kind %q", s)
	}
	return k, nil
}

// DailyClaim is the per-day uniqueness key for reward grants: at most one row
// per (user, kind, day, seq).
type DailyClaim struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	Kind      ClaimKind `json:"kind" db:"kind"`
	Day       time.Time `json:"day" db:"day"`
	Seq       int       `json:"seq" db:"seq"`
	BatchID   uuid.UUID `json:"batch_id" db:"batch_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AuditReport cross-checks the transaction log against live balances.
type AuditReport struct {
	UserID              int64 `json:"user_id"`
	PermanentBalance    int64 `json:"permanent_balance"`
	PermanentLedgerSum  int64 `json:"permanent_ledger_sum"`
	PermanentConsistent bool  `json:"permanent_consistent"`
	ExpiringSpendable   int64 `json:"expiring_spendable"`
	ExpiringLedgerSum   int64 `json:"expiring_ledger_sum"`
	// ExpiredOrUnaccounted is ledger minus spendable; expired batches are not
	// refunded into the log, so a positive value is expected.
	ExpiredOrUnaccounted int64 `json:"expired_or_unaccounted"`
}
