package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx/types"
	"github.com/pagemint/backend/internal/metrics"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

const maxTxAttempts = 5

// Notifier delivers wallet notifications to users. Implemented by the
// Telegram bot; a nil Notifier disables notifications.
type Notifier interface {
	SendBonusGranted(chatID int64, amount int64, expiresAt time.Time) error
	SendSubscriptionRenewed(chatID int64, tier model.SubscriptionTier, validUntil time.Time) error
	SendPaymentFailed(chatID int64) error
	SendBonusExpiring(chatID int64, amount int64, expiresAt time.Time) error
}

// base holds what every ledger service needs.
type base struct {
	store repository.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func newBase(store repository.Store, log logrus.FieldLogger) base {
	return base{store: store, log: log, now: time.Now}
}

// SetClock overrides the time source (tests).
func (b *base) SetClock(now func() time.Time) {
	b.now = now
}

// inTx runs fn in one store transaction and transparently retries it when the
// store reports a concurrency conflict. fn must not keep state across calls:
// every attempt starts from scratch.
func (b *base) inTx(ctx context.Context, op string, fn func(q repository.Queries) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := b.store.InTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if !errors.Is(err, repository.ErrConcurrencyConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		metrics.ConflictRetries.Inc()
		b.log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).WithError(err).Warn("ledger conflict, retrying")
		return struct{}{}, err
	},
		backoff.WithBackOff(conflictBackOff()),
		backoff.WithMaxTries(maxTxAttempts),
	)
	return err
}

func (b *base) view(ctx context.Context, fn func(q repository.Queries) error) error {
	return b.store.View(ctx, fn)
}

func conflictBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 200 * time.Millisecond
	return bo
}

func metadata(fields map[string]interface{}) types.JSONText {
	if len(fields) == 0 {
		return types.JSONText("{}")
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return types.JSONText("{}")
	}
	return types.JSONText(raw)
}

func laterOf(a *time.Time, b time.Time) time.Time {
	if a != nil && a.After(b) {
		return *a
	}
	return b
}
