package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/metrics"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

const maxBulkPromoCodes = 500

type PromoCodeService struct {
	base
	cfg config.WalletConfig
}

func NewPromoCodeService(store repository.Store, cfg config.WalletConfig, log logrus.FieldLogger) *PromoCodeService {
	return &PromoCodeService{base: newBase(store, log), cfg: cfg}
}

// CreatePromoRequest is the admin input for new codes. Code is ignored by
// bulk creation.
type CreatePromoRequest struct {
	Code        string         `json:"code"`
	Amount      int64          `json:"amount"`
	Currency    model.Currency `json:"currency"`
	MaxUses     *int           `json:"max_uses,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	Description *string        `json:"description,omitempty"`
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// checkPromo applies the usability rules in the order users see them.
func checkPromo(promo *model.PromoCode, now time.Time) error {
	if !promo.IsActive {
		return ErrPromoCodeInactive
	}
	if promo.IsExpired(now) {
		return ErrPromoCodeExpired
	}
	if promo.IsExhausted() {
		return ErrPromoCodeLimitReached
	}
	return nil
}

func lookupPromo(ctx context.Context, q repository.Queries, code string, lock bool) (*model.PromoCode, error) {
	var promo *model.PromoCode
	var err error
	if lock {
		promo, err = q.LockPromoCode(ctx, code)
	} else {
		promo, err = q.GetPromoCode(ctx, code)
	}
	if errors.Is(err, repository.ErrPromoCodeNotFound) {
		return nil, ErrPromoCodeNotFound
	}
	return promo, err
}

// ValidatePromoCode checks if a promo code is valid for a user
func (s *PromoCodeService) ValidatePromoCode(ctx context.Context, code string, userID int64) (*model.PromoCode, error) {
	code = normalizeCode(code)
	now := s.now()
	var promo *model.PromoCode
	err := s.view(ctx, func(q repository.Queries) error {
		var err error
		promo, err = lookupPromo(ctx, q, code, false)
		if err != nil {
			return err
		}
		if err := checkPromo(promo, now); err != nil {
			return err
		}
		used, err := q.HasRedeemed(ctx, promo.ID, userID)
		if err != nil {
			return err
		}
		if used {
			return ErrPromoCodeAlreadyUsed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promo, nil
}

// RedeemPromoCode applies a promo code to a user. The promo row is locked for
// the whole transaction so a limited code cannot be over-redeemed.
func (s *PromoCodeService) RedeemPromoCode(ctx context.Context, code string, userID int64) (*model.PromoRedeemResult, error) {
	code = normalizeCode(code)

	var result *model.PromoRedeemResult
	err := s.inTx(ctx, "redeem_promo", func(q repository.Queries) error {
		now := s.now()
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		promo, err := lookupPromo(ctx, q, code, true)
		if err != nil {
			return err
		}
		if err := checkPromo(promo, now); err != nil {
			return err
		}
		used, err := q.HasRedeemed(ctx, promo.ID, userID)
		if err != nil {
			return err
		}
		if used {
			return ErrPromoCodeAlreadyUsed
		}

		result = &model.PromoRedeemResult{Currency: promo.Currency, Amount: promo.Amount}
		meta := map[string]interface{}{"promo_code": promo.Code, "promo_code_id": promo.ID.String()}
		description := "Promo code " + promo.Code

		switch promo.Currency {
		case model.CurrencyExpiring:
			batch, err := grantBatch(ctx, q, now, Grant{
				UserID:      userID,
				Amount:      promo.Amount,
				TTL:         s.cfg.PromoBatchTTL,
				Kind:        model.TransactionKindBonus,
				Description: description,
				Meta:        meta,
			})
			if err != nil {
				return fmt.Errorf("failed to grant promo batch: %w", err)
			}
			result.Batch = batch
			result.Message = fmt.Sprintf("%d bonus coins added, valid until %s", promo.Amount, batch.ExpiresAt.Format("02.01.2006"))
		case model.CurrencyPermanent:
			balance, err := creditPermanent(ctx, q, user, promo.Amount, model.TransactionKindBonus, description, meta)
			if err != nil {
				return fmt.Errorf("failed to credit balance: %w", err)
			}
			result.PermanentBalance = &balance
			result.Message = fmt.Sprintf("%d coins added to your balance", promo.Amount)
		default:
			return ErrInvalidPromoCode
		}

		if err := q.RecordRedemption(ctx, promo.ID, userID); err != nil {
			return fmt.Errorf("failed to record promo code use: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Batch != nil {
		metrics.BatchesGranted.WithLabelValues("PROMO").Inc()
	}
	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"code":     code,
		"currency": result.Currency,
		"amount":   result.Amount,
	}).Info("promo code redeemed")
	return result, nil
}

func (r CreatePromoRequest) validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPromoCode)
	}
	if !r.Currency.Valid() {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidPromoCode, r.Currency)
	}
	if r.MaxUses != nil && *r.MaxUses <= 0 {
		return fmt.Errorf("%w: max_uses must be positive", ErrInvalidPromoCode)
	}
	return nil
}

func (r CreatePromoRequest) build(code string) *model.PromoCode {
	return &model.PromoCode{
		Code:        code,
		Amount:      r.Amount,
		Currency:    r.Currency,
		MaxUses:     r.MaxUses,
		ExpiresAt:   r.ExpiresAt,
		IsActive:    true,
		Description: r.Description,
	}
}

// CreatePromoCode creates a new promo code (admin function)
func (s *PromoCodeService) CreatePromoCode(ctx context.Context, req CreatePromoRequest) (*model.PromoCode, error) {
	req.Currency = model.Currency(normalizeCode(string(req.Currency)))
	if err := req.validate(); err != nil {
		return nil, err
	}
	code := normalizeCode(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidPromoCode)
	}

	promo := req.build(code)
	err := s.inTx(ctx, "create_promo", func(q repository.Queries) error {
		return q.CreatePromoCode(ctx, promo)
	})
	if err != nil {
		return nil, err
	}
	return promo, nil
}

// BulkCreatePromoCodes generates count codes sharing one definition, each
// starting with prefix. All are created or none.
func (s *PromoCodeService) BulkCreatePromoCodes(ctx context.Context, req CreatePromoRequest, prefix string, count int) ([]model.PromoCode, error) {
	req.Currency = model.Currency(normalizeCode(string(req.Currency)))
	if err := req.validate(); err != nil {
		return nil, err
	}
	if count <= 0 || count > maxBulkPromoCodes {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidPromoCode, maxBulkPromoCodes)
	}
	prefix = normalizeCode(prefix)

	var created []model.PromoCode
	err := s.inTx(ctx, "bulk_create_promo", func(q repository.Queries) error {
		created = make([]model.PromoCode, 0, count)
		for i := 0; i < count; i++ {
			suffix, err := generateCode()
			if err != nil {
				return err
			}
			promo := req.build(prefix + suffix)
			if err := q.CreatePromoCode(ctx, promo); err != nil {
				return err
			}
			created = append(created, *promo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"count": count, "prefix": prefix}).Info("promo codes generated")
	return created, nil
}

// ListPromoCodes lists all promo codes (admin function)
func (s *PromoCodeService) ListPromoCodes(ctx context.Context, limit, offset int) ([]model.PromoCode, error) {
	if limit <= 0 {
		limit = 50
	}
	var promos []model.PromoCode
	err := s.view(ctx, func(q repository.Queries) error {
		var err error
		promos, err = q.ListPromoCodes(ctx, limit, offset)
		return err
	})
	if promos == nil {
		promos = []model.PromoCode{}
	}
	return promos, err
}

// DeactivatePromoCode deactivates a promo code (admin function)
func (s *PromoCodeService) DeactivatePromoCode(ctx context.Context, code string) error {
	code = normalizeCode(code)
	return s.inTx(ctx, "deactivate_promo", func(q repository.Queries) error {
		promo, err := lookupPromo(ctx, q, code, true)
		if err != nil {
			return err
		}
		return q.DeactivatePromoCode(ctx, promo.ID)
	})
}

func generateCode() (string, error) {
	bytes := make([]byte, 5)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	code := base32.StdEncoding.EncodeToString(bytes)
	return strings.TrimRight(code, "="), nil
}
