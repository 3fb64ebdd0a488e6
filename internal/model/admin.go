package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "superadmin"
)

// Admin users bypass paywalls and may manage promo codes and grants.
type Admin struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Role      AdminRole `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	CreatedBy *int64    `json:"created_by,omitempty" db:"created_by"`
}

// Runtime settings keys.
const (
	SettingCheckInAmount    = "checkin_amount"
	SettingAdRewardAmount   = "ad_reward_amount"
	SettingAdRewardDailyCap = "ad_reward_daily_cap"
)

// AdminLog records an administrative action for later review.
type AdminLog struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	AdminID      int64          `json:"admin_id" db:"admin_id"`
	Action       string         `json:"action" db:"action"`
	TargetUserID *int64         `json:"target_user_id,omitempty" db:"target_user_id"`
	Details      types.JSONText `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
