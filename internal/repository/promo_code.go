package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pagemint/backend/internal/model"
)

func (q *queries) getPromoCode(ctx context.Context, query, code string) (*model.PromoCode, error) {
	var promo model.PromoCode
	err := sqlx.GetContext(ctx, q.q, &promo, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromoCodeNotFound
		}
		return nil, err
	}
	return &promo, nil
}

// GetPromoCode retrieves a promo code by its code string
func (q *queries) GetPromoCode(ctx context.Context, code string) (*model.PromoCode, error) {
	return q.getPromoCode(ctx, "SELECT * FROM promo_codes WHERE code = $1", code)
}

// LockPromoCode reads the code FOR UPDATE so concurrent redemptions of a
// limited code cannot both pass the usage check.
func (q *queries) LockPromoCode(ctx context.Context, code string) (*model.PromoCode, error) {
	return q.getPromoCode(ctx, "SELECT * FROM promo_codes WHERE code = $1 FOR UPDATE", code)
}

// CreatePromoCode creates a new promo code (for admin use)
func (q *queries) CreatePromoCode(ctx context.Context, promo *model.PromoCode) error {
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	err := q.q.QueryRowxContext(ctx, `
		INSERT INTO promo_codes (id, code, amount, currency, max_uses, expires_at, is_active, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING used_count, created_at`,
		promo.ID, promo.Code, promo.Amount, promo.Currency, promo.MaxUses, promo.ExpiresAt, promo.IsActive, promo.Description,
	).Scan(&promo.UsedCount, &promo.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrPromoCodeExists, promo.Code)
	}
	return err
}

// ListPromoCodes lists all promo codes (for admin use)
func (q *queries) ListPromoCodes(ctx context.Context, limit, offset int) ([]model.PromoCode, error) {
	var promos []model.PromoCode
	err := sqlx.SelectContext(ctx, q.q, &promos, `
		SELECT * FROM promo_codes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	return promos, err
}

// DeactivatePromoCode deactivates a promo code
func (q *queries) DeactivatePromoCode(ctx context.Context, id uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE promo_codes SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrPromoCodeNotFound)
}

// HasRedeemed checks if a user has already used a specific promo code
func (q *queries) HasRedeemed(ctx context.Context, promoID uuid.UUID, userID int64) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q.q, &count, `
		SELECT COUNT(*) FROM promo_redemptions
		WHERE promo_code_id = $1 AND user_id = $2`, promoID, userID)
	return count > 0, err
}

// RecordRedemption marks a promo code as used by a user and increments the
// used count. The caller holds the promo row lock.
func (q *queries) RecordRedemption(ctx context.Context, promoID uuid.UUID, userID int64) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO promo_redemptions (promo_code_id, user_id)
		VALUES ($1, $2)`, promoID, userID)
	if err != nil {
		return fmt.Errorf("failed to record promo code use: %w", err)
	}

	_, err = q.q.ExecContext(ctx, `
		UPDATE promo_codes SET used_count = used_count + 1
		WHERE id = $1`, promoID)
	if err != nil {
		return fmt.Errorf("failed to increment used count: %w", err)
	}
	return nil
}
