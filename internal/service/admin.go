package service

import (
	"context"
	"strconv"
	"time"

	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/ledger"
	"github.com/pagemint/backend/internal/metrics"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// tunableSettings lists the runtime settings admins may change.
var tunableSettings = map[string]bool{
	model.SettingCheckInAmount:    true,
	model.SettingAdRewardAmount:   true,
	model.SettingAdRewardDailyCap: true,
}

type AdminService struct {
	base
	wallet config.WalletConfig
}

func NewAdminService(store repository.Store, wallet config.WalletConfig, log logrus.FieldLogger) *AdminService {
	return &AdminService{base: newBase(store, log), wallet: wallet}
}

func (s *AdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var isAdmin bool
	err := s.view(ctx, func(q repository.Queries) error {
		var err error
		isAdmin, err = q.IsAdmin(ctx, userID)
		return err
	})
	return isAdmin, err
}

// GrantBatch mints an expiring batch for a user through the batch allocator.
func (s *AdminService) GrantBatch(ctx context.Context, adminID, targetUserID, amount int64, ttl time.Duration) (*model.ExpiringBatch, error) {
	var batch *model.ExpiringBatch
	err := s.inTx(ctx, "admin_grant", func(q repository.Queries) error {
		if _, err := q.LockUser(ctx, targetUserID); err != nil {
			return err
		}
		var err error
		batch, err = grantBatch(ctx, q, s.now(), Grant{
			UserID:      targetUserID,
			Amount:      amount,
			TTL:         ttl,
			Kind:        model.TransactionKindBonus,
			Description: "Bonus from administration",
			Meta:        map[string]interface{}{"admin_id": adminID},
		})
		if err != nil {
			return err
		}
		return q.LogAdminAction(ctx, adminID, "grant_batch", &targetUserID, map[string]interface{}{
			"batch_id":   batch.ID,
			"amount":     amount,
			"expires_at": batch.ExpiresAt,
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.BatchesGranted.WithLabelValues("ADMIN").Inc()
	s.log.WithFields(logrus.Fields{
		"admin_id": adminID,
		"user_id":  targetUserID,
		"amount":   amount,
	}).Info("admin granted batch")
	return batch, nil
}

// Audit cross-checks a user's transaction log against the live balances. The
// permanent balance must equal its ledger sum exactly. The expiring ledger sum
// exceeds the spendable balance by whatever expired unspent.
func (s *AdminService) Audit(ctx context.Context, targetUserID int64) (*model.AuditReport, error) {
	now := s.now()
	var report *model.AuditReport
	err := s.view(ctx, func(q repository.Queries) error {
		user, err := q.GetUser(ctx, targetUserID)
		if err != nil {
			return err
		}
		permanentSum, err := q.SumTransactions(ctx, targetUserID, model.CurrencyPermanent)
		if err != nil {
			return err
		}
		expiringSum, err := q.SumTransactions(ctx, targetUserID, model.CurrencyExpiring)
		if err != nil {
			return err
		}
		batches, err := q.ListLiveBatches(ctx, targetUserID, now)
		if err != nil {
			return err
		}
		spendable := ledger.SpendableBalance(batches, now)

		report = &model.AuditReport{
			UserID:               targetUserID,
			PermanentBalance:     user.PermanentBalance,
			PermanentLedgerSum:   permanentSum,
			PermanentConsistent:  permanentSum == user.PermanentBalance && user.PermanentBalance >= 0,
			ExpiringSpendable:    spendable,
			ExpiringLedgerSum:    expiringSum,
			ExpiredOrUnaccounted: expiringSum - spendable,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.PermanentConsistent {
		s.log.WithFields(logrus.Fields{
			"user_id":    targetUserID,
			"balance":    report.PermanentBalance,
			"ledger_sum": report.PermanentLedgerSum,
		}).Error("permanent balance diverges from ledger")
	}
	return report, nil
}

// GetSettings returns the effective runtime settings, defaults included.
func (s *AdminService) GetSettings(ctx context.Context) (map[string]string, error) {
	settings := map[string]string{
		model.SettingCheckInAmount:    strconv.FormatInt(s.wallet.CheckInAmount, 10),
		model.SettingAdRewardAmount:   strconv.FormatInt(s.wallet.AdRewardAmount, 10),
		model.SettingAdRewardDailyCap: strconv.Itoa(s.wallet.AdRewardDailyCap),
	}
	err := s.view(ctx, func(q repository.Queries) error {
		stored, err := q.GetAllSettings(ctx)
		if err != nil {
			return err
		}
		for k, v := range stored {
			settings[k] = v
		}
		return nil
	})
	return settings, err
}

func (s *AdminService) SetSetting(ctx context.Context, adminID int64, key, value string) error {
	if !tunableSettings[key] {
		return ErrUnknownSetting
	}
	if v, err := strconv.ParseInt(value, 10, 64); err != nil || v < 0 {
		return ErrInvalidSettingValue
	}
	return s.inTx(ctx, "set_setting", func(q repository.Queries) error {
		if err := q.SetSetting(ctx, key, value); err != nil {
			return err
		}
		return q.LogAdminAction(ctx, adminID, "set_setting", nil, map[string]string{"key": key, "value": value})
	})
}
