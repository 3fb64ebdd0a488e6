package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SubscriptionTier string

const (
	SubscriptionTierBasic   SubscriptionTier = "BASIC"
	SubscriptionTierPremium SubscriptionTier = "PREMIUM"
)

func (t SubscriptionTier) Valid() bool {
	return t == SubscriptionTierBasic || t == SubscriptionTierPremium
}

func ParseSubscriptionTier(s string) (SubscriptionTier, error) {
	t := SubscriptionTier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown subscription tier %q", s)
	}
	return t, nil
}

// Plan describes what a subscription tier grants each billing period.
type Plan struct {
	Tier         SubscriptionTier `json:"tier"`
	MonthlyBonus int64            `json:"monthly_bonus"`
	Slots        int              `json:"slots"`
	GlobalPass   bool             `json:"global_pass"`
}

type PlanCatalog map[SubscriptionTier]Plan

func (c PlanCatalog) Lookup(tier SubscriptionTier) (Plan, bool) {
	p, ok := c[tier]
	return p, ok
}

// SubscriptionSlot grants a subscriber access to a whole work until ExpiresAt,
// as long as the subscription itself stays active.
type SubscriptionSlot struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	WorkID    uuid.UUID `json:"work_id" db:"work_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (s *SubscriptionSlot) IsLive(asOf time.Time) bool {
	return s.ExpiresAt.After(asOf)
}

type SubscriptionStatus struct {
	Tier              *SubscriptionTier  `json:"tier,omitempty"`
	Active            bool               `json:"active"`
	ValidUntil        *time.Time         `json:"valid_until,omitempty"`
	ChangeWindowUntil *time.Time         `json:"change_window_until,omitempty"`
	InChangeWindow    bool               `json:"in_change_window"`
	GlobalPass        bool               `json:"global_pass"`
	SlotLimit         int                `json:"slot_limit"`
	Slots             []SubscriptionSlot `json:"slots"`
}

// ProcessedEvent records a billing event id so redelivery is a no-op.
type ProcessedEvent struct {
	EventID     string    `json:"event_id" db:"event_id"`
	Type        string    `json:"type" db:"type"`
	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
}
