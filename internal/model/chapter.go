package model

import (
	"time"

	"github.com/google/uuid"
)

// Chapter is the paid content unit. Catalog management lives outside the
// ledger; this is the pricing view the ledger reads.
type Chapter struct {
	ID             uuid.UUID `json:"id" db:"id"`
	WorkID         uuid.UUID `json:"work_id" db:"work_id"`
	Order          int       `json:"order" db:"sort_order"`
	Title          string    `json:"title" db:"title"`
	IsFree         bool      `json:"is_free" db:"is_free"`
	PriceExpiring  int64     `json:"price_expiring" db:"price_expiring"`
	PricePermanent int64     `json:"price_permanent" db:"price_permanent"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Price returns the cost of unlocking the chapter with the given method.
func (c *Chapter) Price(method UnlockType) int64 {
	if method == UnlockTypePermanent {
		return c.PricePermanent
	}
	return c.PriceExpiring
}

// Unlock is the per-chapter entitlement record. PERMANENT unlocks have a nil
// ExpiresAt and never lapse; RENTAL unlocks become inert once expired.
type Unlock struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	ChapterID uuid.UUID  `json:"chapter_id" db:"chapter_id"`
	Type      UnlockType `json:"type" db:"type"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// GrantsAccess reports whether the unlock currently opens the chapter.
func (u *Unlock) GrantsAccess(now time.Time) bool {
	if u.Type == UnlockTypePermanent {
		return true
	}
	return u.ExpiresAt != nil && u.ExpiresAt.After(now)
}

type UnlockStatus string

const (
	UnlockStatusGranted      UnlockStatus = "GRANTED"
	UnlockStatusAlreadyOwned UnlockStatus = "ALREADY_OWNED"
)

type UnlockResult struct {
	Status   UnlockStatus `json:"status"`
	Unlock   *Unlock      `json:"unlock,omitempty"`
	Charged  int64        `json:"charged"`
	Currency Currency     `json:"currency,omitempty"`
}
