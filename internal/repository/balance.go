package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pagemint/backend/internal/model"
)

// ListLiveBatches returns the user's non-expired, non-empty batches in
// spending order and locks them for the rest of the transaction.
func (q *queries) ListLiveBatches(ctx context.Context, userID int64, asOf time.Time) ([]model.ExpiringBatch, error) {
	var batches []model.ExpiringBatch
	err := sqlx.SelectContext(ctx, q.q, &batches, `
		SELECT * FROM expiring_batches
		WHERE user_id = $1 AND expires_at > $2 AND amount > 0
		ORDER BY expires_at, created_at, id
		FOR UPDATE`,
		userID, asOf)
	return batches, err
}

func (q *queries) CreateBatch(ctx context.Context, batch *model.ExpiringBatch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	return q.q.QueryRowxContext(ctx, `
		INSERT INTO expiring_batches (id, user_id, amount, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		batch.ID, batch.UserID, batch.Amount, batch.ExpiresAt,
	).Scan(&batch.CreatedAt)
}

func (q *queries) UpdateBatchAmount(ctx context.Context, id uuid.UUID, amount int64) error {
	res, err := q.q.ExecContext(ctx, "UPDATE expiring_batches SET amount = $2 WHERE id = $1", id, amount)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrBatchNotFound)
}

func (q *queries) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, "DELETE FROM expiring_batches WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrBatchNotFound)
}

// DeleteEmptyBatches removes batches that were fully spent but left behind.
func (q *queries) DeleteEmptyBatches(ctx context.Context) (int64, error) {
	res, err := q.q.ExecContext(ctx, "DELETE FROM expiring_batches WHERE amount = 0")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListExpiringBatches returns non-empty batches whose expiry falls in (from, to].
func (q *queries) ListExpiringBatches(ctx context.Context, from, to time.Time) ([]model.ExpiringBatch, error) {
	var batches []model.ExpiringBatch
	err := sqlx.SelectContext(ctx, q.q, &batches, `
		SELECT * FROM expiring_batches
		WHERE expires_at > $1 AND expires_at <= $2 AND amount > 0
		ORDER BY user_id, expires_at`,
		from, to)
	return batches, err
}

func (q *queries) AppendTransaction(ctx context.Context, t *model.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	metadata := t.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	return q.q.QueryRowxContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, currency, kind, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		t.ID, t.UserID, t.Amount, t.Currency, t.Kind, t.Description, metadata,
	).Scan(&t.CreatedAt)
}

func (q *queries) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := sqlx.SelectContext(ctx, q.q, &transactions, `
		SELECT * FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	return transactions, err
}

func (q *queries) SumTransactions(ctx context.Context, userID int64, currency model.Currency) (int64, error) {
	var sum int64
	err := sqlx.GetContext(ctx, q.q, &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND currency = $2`,
		userID, currency)
	return sum, err
}
