package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/pagemint/backend/internal/model"
)

func (q *queries) getUser(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	err := sqlx.GetContext(ctx, q.q, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (q *queries) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return q.getUser(ctx, "SELECT * FROM users WHERE id = $1", id)
}

// LockUser reads the user row FOR UPDATE. Every wallet mutation takes this
// lock first so concurrent spends and grants for one user serialize.
func (q *queries) LockUser(ctx context.Context, id int64) (*model.User, error) {
	return q.getUser(ctx, "SELECT * FROM users WHERE id = $1 FOR UPDATE", id)
}

func (q *queries) UpsertUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, username, first_name, last_name, language_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			language_code = EXCLUDED.language_code,
			updated_at = NOW()
		RETURNING permanent_balance, subscription_tier, subscription_valid_until,
			entitlement_change_window_until, billing_subscription_id, billing_customer_id,
			created_at, updated_at`

	return q.q.QueryRowxContext(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	).Scan(
		&user.PermanentBalance,
		&user.SubscriptionTier,
		&user.SubscriptionValidUntil,
		&user.EntitlementChangeWindowUntil,
		&user.BillingSubscriptionID,
		&user.BillingCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

// SetPermanentBalance writes the scalar balance. The column carries a
// CHECK (permanent_balance >= 0) constraint as a last line of defense.
func (q *queries) SetPermanentBalance(ctx context.Context, userID, balance int64) error {
	res, err := q.q.ExecContext(ctx,
		"UPDATE users SET permanent_balance = $2, updated_at = NOW() WHERE id = $1",
		userID, balance,
	)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrUserNotFound)
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
