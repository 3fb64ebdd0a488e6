package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pagemint/backend/internal/model"
)

func (q *queries) ListSlots(ctx context.Context, userID int64, asOf time.Time) ([]model.SubscriptionSlot, error) {
	var slots []model.SubscriptionSlot
	err := sqlx.SelectContext(ctx, q.q, &slots, `
		SELECT * FROM subscription_slots
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at`,
		userID, asOf)
	return slots, err
}

func (q *queries) HasActiveSlot(ctx context.Context, userID int64, workID uuid.UUID, asOf time.Time) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q.q, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM subscription_slots
			WHERE user_id = $1 AND work_id = $2 AND expires_at > $3
		)`,
		userID, workID, asOf)
	return exists, err
}

func (q *queries) CreateSlot(ctx context.Context, slot *model.SubscriptionSlot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	return q.q.QueryRowxContext(ctx, `
		INSERT INTO subscription_slots (id, user_id, work_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		slot.ID, slot.UserID, slot.WorkID, slot.ExpiresAt,
	).Scan(&slot.CreatedAt)
}

// ExpireSlot ends a live slot at the given instant. It reports whether a live
// slot for the work existed.
func (q *queries) ExpireSlot(ctx context.Context, userID int64, workID uuid.UUID, at time.Time) (bool, error) {
	res, err := q.q.ExecContext(ctx, `
		UPDATE subscription_slots SET expires_at = $3
		WHERE user_id = $1 AND work_id = $2 AND expires_at > $3`,
		userID, workID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExtendSlots moves every slot still live at asOf forward to until. Slots are
// never shortened.
func (q *queries) ExtendSlots(ctx context.Context, userID int64, until, asOf time.Time) (int64, error) {
	res, err := q.q.ExecContext(ctx, `
		UPDATE subscription_slots SET expires_at = $2
		WHERE user_id = $1 AND expires_at > $3 AND expires_at < $2`,
		userID, until, asOf)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *queries) LockUserBySubscriptionID(ctx context.Context, subscriptionID string) (*model.User, error) {
	user, err := q.getUser(ctx,
		"SELECT * FROM users WHERE billing_subscription_id = $1 ORDER BY id LIMIT 1 FOR UPDATE",
		subscriptionID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrSubscriberNotFound
	}
	return user, err
}

func (q *queries) UpdateSubscription(ctx context.Context, userID int64, state model.SubscriptionState) error {
	query := `
		UPDATE users SET
			subscription_tier = $2,
			subscription_valid_until = $3,
			entitlement_change_window_until = $4,
			billing_subscription_id = $5,
			billing_customer_id = $6,
			updated_at = NOW()
		WHERE id = $1`

	res, err := q.q.ExecContext(ctx, query,
		userID,
		state.Tier,
		state.ValidUntil,
		state.ChangeWindowUntil,
		state.BillingSubscriptionID,
		state.BillingCustomerID,
	)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrUserNotFound)
}

// ClearSubscriptionByID wipes the subscription fields of every user
// correlated to the processor subscription. Normally exactly one row matches.
func (q *queries) ClearSubscriptionByID(ctx context.Context, subscriptionID string) (int64, error) {
	res, err := q.q.ExecContext(ctx, `
		UPDATE users SET
			subscription_tier = NULL,
			subscription_valid_until = NULL,
			entitlement_change_window_until = NULL,
			updated_at = NOW()
		WHERE billing_subscription_id = $1`,
		subscriptionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordBillingEvent stores the event id and reports false when it was
// already processed.
func (q *queries) RecordBillingEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	return insertOnce(ctx, q.q, `
		INSERT INTO billing_events (event_id, type) VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType)
}

// RecordSubscriptionPeriod reports false when renewal effects for this
// (subscription, period end) were already applied.
func (q *queries) RecordSubscriptionPeriod(ctx context.Context, subscriptionID string, periodEnd time.Time) (bool, error) {
	return insertOnce(ctx, q.q, `
		INSERT INTO subscription_periods (subscription_id, period_end) VALUES ($1, $2)
		ON CONFLICT (subscription_id, period_end) DO NOTHING`,
		subscriptionID, periodEnd.UTC())
}

func insertOnce(ctx context.Context, q sqlx.ExecerContext, query string, args ...interface{}) (bool, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
