package model

import (
	"time"
)

type User struct {
	ID                           int64             `json:"id" db:"id"`
	Username                     *string           `json:"username,omitempty" db:"username"`
	FirstName                    *string           `json:"first_name,omitempty" db:"first_name"`
	LastName                     *string           `json:"last_name,omitempty" db:"last_name"`
	LanguageCode                 *string           `json:"language_code,omitempty" db:"language_code"`
	PermanentBalance             int64             `json:"permanent_balance" db:"permanent_balance"`
	SubscriptionTier             *SubscriptionTier `json:"subscription_tier,omitempty" db:"subscription_tier"`
	SubscriptionValidUntil       *time.Time        `json:"subscription_valid_until,omitempty" db:"subscription_valid_until"`
	EntitlementChangeWindowUntil *time.Time        `json:"entitlement_change_window_until,omitempty" db:"entitlement_change_window_until"`
	BillingSubscriptionID        *string           `json:"-" db:"billing_subscription_id"`
	BillingCustomerID            *string           `json:"-" db:"billing_customer_id"`
	CreatedAt                    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt                    time.Time         `json:"updated_at" db:"updated_at"`
}

// HasActiveSubscription reports whether the user holds a tier that is still paid up at now.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u.SubscriptionTier == nil || u.SubscriptionValidUntil == nil {
		return false
	}
	return u.SubscriptionValidUntil.After(now)
}

// InChangeWindow reports whether the user may currently swap subscription slots.
func (u *User) InChangeWindow(now time.Time) bool {
	if u.EntitlementChangeWindowUntil == nil {
		return false
	}
	return u.EntitlementChangeWindowUntil.After(now)
}

// SubscriptionState is the set of wallet fields written by billing reconciliation.
type SubscriptionState struct {
	Tier                  *SubscriptionTier
	ValidUntil            *time.Time
	ChangeWindowUntil     *time.Time
	BillingSubscriptionID *string
	BillingCustomerID     *string
}

type Wallet struct {
	UserID            int64             `json:"user_id"`
	PermanentBalance  int64             `json:"permanent_balance"`
	ExpiringBalance   int64             `json:"expiring_balance"`
	Batches           []ExpiringBatch   `json:"batches"`
	SubscriptionTier  *SubscriptionTier `json:"subscription_tier,omitempty"`
	SubscriptionUntil *time.Time        `json:"subscription_valid_until,omitempty"`
}
