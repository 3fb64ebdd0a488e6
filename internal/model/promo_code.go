package model

import (
	"time"

	"github.com/google/uuid"
)

type PromoCode struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Code        string     `json:"code" db:"code"`
	Amount      int64      `json:"amount" db:"amount"`
	Currency    Currency   `json:"currency" db:"currency"`
	MaxUses     *int       `json:"max_uses,omitempty" db:"max_uses"`
	UsedCount   int        `json:"used_count" db:"used_count"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	Description *string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type PromoRedemption struct {
	PromoCodeID uuid.UUID `json:"promo_code_id" db:"promo_code_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks the code's own expiry at now.
func (p *PromoCode) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// IsExhausted reports whether the usage limit has been reached.
func (p *PromoCode) IsExhausted() bool {
	return p.MaxUses != nil && p.UsedCount >= *p.MaxUses
}

// IsValid checks if the promo code can be used at now
func (p *PromoCode) IsValid(now time.Time) bool {
	return p.IsActive && !p.IsExpired(now) && !p.IsExhausted()
}

type PromoRedeemResult struct {
	Currency         Currency       `json:"currency"`
	Amount           int64          `json:"amount"`
	Batch            *ExpiringBatch `json:"batch,omitempty"`
	PermanentBalance *int64         `json:"permanent_balance,omitempty"`
	Message          string         `json:"message"`
}
