package service

import "errors"

var (
	ErrInvalidPurchase           = errors.New("invalid unlock method or currency")
	ErrInvalidGrant              = errors.New("grant amount and ttl must be positive")
	ErrAlreadyClaimed            = errors.New("reward already claimed today")
	ErrDailyLimitReached         = errors.New("daily reward limit reached")
	ErrPromoCodeNotFound         = errors.New("promo code not found")
	ErrPromoCodeInactive         = errors.New("promo code is inactive")
	ErrPromoCodeExpired          = errors.New("promo code has expired")
	ErrPromoCodeLimitReached     = errors.New("promo code usage limit reached")
	ErrPromoCodeAlreadyUsed      = errors.New("promo code already used")
	ErrInvalidPromoCode          = errors.New("invalid promo code definition")
	ErrNoActiveSubscription      = errors.New("no active subscription")
	ErrUnknownTier               = errors.New("subscription tier has no plan")
	ErrGlobalPassActive          = errors.New("subscription already covers every work")
	ErrSlotLimitReached          = errors.New("all subscription slots are in use")
	ErrSlotNotFound              = errors.New("work does not occupy a subscription slot")
	ErrChangeWindowClosed        = errors.New("slots can only be changed right after renewal")
	ErrWorkNotFound              = errors.New("work not found")
	ErrSubscriptionNotCorrelated = errors.New("billing subscription is not linked to a user yet")
	ErrUnknownSetting            = errors.New("unknown setting")
	ErrInvalidSettingValue       = errors.New("setting value must be a non-negative integer")
)
