package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/metrics"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// RewardService mints expiring currency for daily check-ins and ad views.
// Each claim is keyed by (user, kind, UTC day, seq) so duplicates fail
// structurally instead of by matching ledger descriptions.
type RewardService struct {
	base
	cfg config.WalletConfig
}

type AdRewardResult struct {
	Batch        *model.ExpiringBatch `json:"batch"`
	ClaimedToday int                  `json:"claimed_today"`
	DailyCap     int                  `json:"daily_cap"`
}

func NewRewardService(store repository.Store, cfg config.WalletConfig, log logrus.FieldLogger) *RewardService {
	return &RewardService{base: newBase(store, log), cfg: cfg}
}

func (s *RewardService) DailyCheckIn(ctx context.Context, userID int64) (*model.ExpiringBatch, error) {
	var batch *model.ExpiringBatch
	err := s.inTx(ctx, "daily_check_in", func(q repository.Queries) error {
		now := s.now()
		if _, err := q.LockUser(ctx, userID); err != nil {
			return err
		}
		amount, err := settingInt(ctx, q, model.SettingCheckInAmount, s.cfg.CheckInAmount)
		if err != nil {
			return err
		}

		batch, err = grantBatch(ctx, q, now, Grant{
			UserID:      userID,
			Amount:      amount,
			TTL:         s.cfg.CheckInTTL,
			Kind:        model.TransactionKindEarn,
			Description: "Daily check-in",
			Meta:        map[string]interface{}{"claim": string(model.ClaimKindCheckIn)},
		})
		if err != nil {
			return err
		}

		fresh, err := q.RecordDailyClaim(ctx, &model.DailyClaim{
			UserID:  userID,
			Kind:    model.ClaimKindCheckIn,
			Day:     now,
			Seq:     1,
			BatchID: batch.ID,
		})
		if err != nil {
			return err
		}
		if !fresh {
			return ErrAlreadyClaimed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BatchesGranted.WithLabelValues(string(model.ClaimKindCheckIn)).Inc()
	s.log.WithFields(logrus.Fields{"user_id": userID, "amount": batch.Amount}).Info("daily check-in granted")
	return batch, nil
}

func (s *RewardService) ClaimAdReward(ctx context.Context, userID int64) (*AdRewardResult, error) {
	var result *AdRewardResult
	err := s.inTx(ctx, "ad_reward", func(q repository.Queries) error {
		now := s.now()
		if _, err := q.LockUser(ctx, userID); err != nil {
			return err
		}
		amount, err := settingInt(ctx, q, model.SettingAdRewardAmount, s.cfg.AdRewardAmount)
		if err != nil {
			return err
		}
		dailyCap, err := settingInt(ctx, q, model.SettingAdRewardDailyCap, int64(s.cfg.AdRewardDailyCap))
		if err != nil {
			return err
		}

		count, err := q.CountDailyClaims(ctx, userID, model.ClaimKindAdReward, now)
		if err != nil {
			return err
		}
		if int64(count) >= dailyCap {
			return ErrDailyLimitReached
		}

		batch, err := grantBatch(ctx, q, now, Grant{
			UserID:      userID,
			Amount:      amount,
			TTL:         s.cfg.AdRewardTTL,
			Kind:        model.TransactionKindEarn,
			Description: "Ad reward",
			Meta:        map[string]interface{}{"claim": string(model.ClaimKindAdReward), "seq": count + 1},
		})
		if err != nil {
			return err
		}

		fresh, err := q.RecordDailyClaim(ctx, &model.DailyClaim{
			UserID:  userID,
			Kind:    model.ClaimKindAdReward,
			Day:     now,
			Seq:     count + 1,
			BatchID: batch.ID,
		})
		if err != nil {
			return err
		}
		if !fresh {
			return ErrAlreadyClaimed
		}

		result = &AdRewardResult{Batch: batch, ClaimedToday: count + 1, DailyCap: int(dailyCap)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BatchesGranted.WithLabelValues(string(model.ClaimKindAdReward)).Inc()
	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  result.Batch.Amount,
		"seq":     result.ClaimedToday,
	}).Info("ad reward granted")
	return result, nil
}

// settingInt reads a runtime-tunable integer, falling back when unset.
func settingInt(ctx context.Context, q repository.Queries, key string, fallback int64) (int64, error) {
	raw, err := q.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return fallback, nil
		}
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return fallback, nil
	}
	return v, nil
}
