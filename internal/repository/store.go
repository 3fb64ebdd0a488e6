package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrUnlockNotFound     = errors.New("unlock not found")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrPromoCodeNotFound  = errors.New("promo code not found")
	ErrPromoCodeExists    = errors.New("promo code already exists")
	ErrSettingNotFound    = errors.New("setting not found")
	ErrSubscriberNotFound = errors.New("no user for subscription")
	// ErrConcurrencyConflict is returned when the database aborted a
	// transaction because of a serialization failure or deadlock. The whole
	// transaction may be retried.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)

// Store runs units of work against the ledger. InTx commits when fn returns
// nil and rolls back otherwise; nothing fn wrote is visible after a failure.
type Store interface {
	View(ctx context.Context, fn func(Queries) error) error
	InTx(ctx context.Context, fn func(Queries) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Queries is the full set of ledger reads and writes. Lock* and the
// ListLiveBatches read take row locks when called inside InTx.
type Queries interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	LockUser(ctx context.Context, id int64) (*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) error
	SetPermanentBalance(ctx context.Context, userID, balance int64) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	LogAdminAction(ctx context.Context, adminID int64, action string, targetUserID *int64, details interface{}) error

	GetChapter(ctx context.Context, id uuid.UUID) (*model.Chapter, error)
	WorkExists(ctx context.Context, workID uuid.UUID) (bool, error)

	ListLiveBatches(ctx context.Context, userID int64, asOf time.Time) ([]model.ExpiringBatch, error)
	CreateBatch(ctx context.Context, batch *model.ExpiringBatch) error
	UpdateBatchAmount(ctx context.Context, id uuid.UUID, amount int64) error
	DeleteBatch(ctx context.Context, id uuid.UUID) error
	DeleteEmptyBatches(ctx context.Context) (int64, error)
	ListExpiringBatches(ctx context.Context, from, to time.Time) ([]model.ExpiringBatch, error)

	AppendTransaction(ctx context.Context, t *model.Transaction) error
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]model.Transaction, error)
	SumTransactions(ctx context.Context, userID int64, currency model.Currency) (int64, error)

	GetUnlock(ctx context.Context, userID int64, chapterID uuid.UUID) (*model.Unlock, error)
	UpsertUnlock(ctx context.Context, unlock *model.Unlock) error

	ListSlots(ctx context.Context, userID int64, asOf time.Time) ([]model.SubscriptionSlot, error)
	HasActiveSlot(ctx context.Context, userID int64, workID uuid.UUID, asOf time.Time) (bool, error)
	CreateSlot(ctx context.Context, slot *model.SubscriptionSlot) error
	ExpireSlot(ctx context.Context, userID int64, workID uuid.UUID, at time.Time) (bool, error)
	ExtendSlots(ctx context.Context, userID int64, until, asOf time.Time) (int64, error)

	LockUserBySubscriptionID(ctx context.Context, subscriptionID string) (*model.User, error)
	UpdateSubscription(ctx context.Context, userID int64, state model.SubscriptionState) error
	ClearSubscriptionByID(ctx context.Context, subscriptionID string) (int64, error)
	RecordBillingEvent(ctx context.Context, eventID, eventType string) (bool, error)
	RecordSubscriptionPeriod(ctx context.Context, subscriptionID string, periodEnd time.Time) (bool, error)

	GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error)
	LockPromoCode(ctx context.Context, code string) (*model.PromoCode, error)
	CreatePromoCode(ctx context.Context, promo *model.PromoCode) error
	ListPromoCodes(ctx context.Context, limit, offset int) ([]model.PromoCode, error)
	DeactivatePromoCode(ctx context.Context, id uuid.UUID) error
	HasRedeemed(ctx context.Context, promoID uuid.UUID, userID int64) (bool, error)
	RecordRedemption(ctx context.Context, promoID uuid.UUID, userID int64) error

	CountDailyClaims(ctx context.Context, userID int64, kind model.ClaimKind, day time.Time) (int, error)
	RecordDailyClaim(ctx context.Context, claim *model.DailyClaim) (bool, error)

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetAllSettings(ctx context.Context) (map[string]string, error)
}

// ClaimDay truncates t to the UTC calendar day used as the daily claim key.
func ClaimDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
