package model

import "time"

type Access string

const (
	AccessUnlocked Access = "UNLOCKED"
	AccessLocked   Access = "LOCKED"
)

type AccessReason string

const (
	AccessReasonFree         AccessReason = "free"
	AccessReasonAdmin        AccessReason = "admin"
	AccessReasonSubscription AccessReason = "subscription"
	AccessReasonSlot         AccessReason = "subscription_slot"
	AccessReasonPermanent    AccessReason = "permanent_unlock"
	AccessReasonRental       AccessReason = "rental"
	AccessReasonNone         AccessReason = "none"
)

type AccessDecision struct {
	Access         Access       `json:"access"`
	Reason         AccessReason `json:"reason"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	PriceExpiring  int64        `json:"price_expiring,omitempty"`
	PricePermanent int64        `json:"price_permanent,omitempty"`
}

func (d *AccessDecision) Unlocked() bool {
	return d.Access == AccessUnlocked
}
