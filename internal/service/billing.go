package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pagemint/backend/internal/billing"
	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/metrics"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// BillingService reconciles the wallet with the billing processor. Every
// event is applied in one transaction together with its event id, so a
// redelivered event is a no-op. Renewal effects are additionally keyed by
// (subscription, period end) and validity only ever moves forward.
type BillingService struct {
	base
	cfg      config.BillingConfig
	plans    model.PlanCatalog
	notifier Notifier
}

func NewBillingService(store repository.Store, cfg config.BillingConfig, log logrus.FieldLogger) *BillingService {
	return &BillingService{base: newBase(store, log), cfg: cfg, plans: cfg.Plans()}
}

// SetNotifier sets the notifier (to avoid circular deps)
func (s *BillingService) SetNotifier(n Notifier) {
	s.notifier = n
}

// HandleWebhook authenticates and applies a raw webhook delivery. Signature
// failures are returned; unrecognized or malformed events are logged and
// acknowledged so the processor stops redelivering them.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := billing.Verify(payload, signature, s.cfg.WebhookSecret, s.cfg.SignatureTolerance, s.now()); err != nil {
		metrics.BillingEvents.WithLabelValues("unknown", "bad_signature").Inc()
		return err
	}

	ev, err := billing.Decode(payload)
	if err != nil {
		if errors.Is(err, billing.ErrUnrecognizedEvent) || errors.Is(err, billing.ErrMalformedEvent) {
			metrics.BillingEvents.WithLabelValues("unknown", "ignored").Inc()
			s.log.WithError(err).Warn("ignoring billing event")
			return nil
		}
		return err
	}
	return s.HandleEvent(ctx, ev)
}

// HandleEvent applies a decoded event exactly once.
func (s *BillingService) HandleEvent(ctx context.Context, ev billing.Event) error {
	log := s.log.WithFields(logrus.Fields{"event_id": ev.EventID(), "type": ev.EventType()})

	var after []func()
	var duplicate bool
	err := s.inTx(ctx, "billing_"+ev.EventType(), func(q repository.Queries) error {
		after = nil
		duplicate = false

		fresh, err := q.RecordBillingEvent(ctx, ev.EventID(), ev.EventType())
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}

		now := s.now()
		switch e := ev.(type) {
		case *billing.CheckoutCompleted:
			after, err = s.checkoutCompleted(ctx, q, e, now)
		case *billing.InvoicePaid:
			after, err = s.invoicePaid(ctx, q, e, now)
		case *billing.InvoicePaymentFailed:
			after, err = s.paymentFailed(ctx, q, e)
		case *billing.SubscriptionUpdated:
			err = s.subscriptionUpdated(ctx, q, e)
		case *billing.SubscriptionDeleted:
			err = s.subscriptionDeleted(ctx, q, e)
		default:
			err = fmt.Errorf("%w: %T", billing.ErrUnrecognizedEvent, ev)
		}
		return err
	})

	switch {
	case errors.Is(err, billing.ErrUnrecognizedEvent):
		metrics.BillingEvents.WithLabelValues(ev.EventType(), "ignored").Inc()
		log.WithError(err).Warn("ignoring billing event")
		return nil
	case err != nil:
		metrics.BillingEvents.WithLabelValues(ev.EventType(), "error").Inc()
		log.WithError(err).Error("failed to apply billing event")
		return err
	case duplicate:
		metrics.BillingEvents.WithLabelValues(ev.EventType(), "duplicate").Inc()
		log.Debug("billing event already processed")
		return nil
	}

	metrics.BillingEvents.WithLabelValues(ev.EventType(), "applied").Inc()
	log.Info("billing event applied")
	for _, fn := range after {
		fn()
	}
	return nil
}

func stateOf(u *model.User) model.SubscriptionState {
	return model.SubscriptionState{
		Tier:                  u.SubscriptionTier,
		ValidUntil:            u.SubscriptionValidUntil,
		ChangeWindowUntil:     u.EntitlementChangeWindowUntil,
		BillingSubscriptionID: u.BillingSubscriptionID,
		BillingCustomerID:     u.BillingCustomerID,
	}
}

func (s *BillingService) checkoutCompleted(ctx context.Context, q repository.Queries, e *billing.CheckoutCompleted, now time.Time) ([]func(), error) {
	user, err := q.LockUser(ctx, e.UserID)
	if err != nil {
		return nil, err
	}

	if e.Mode == billing.CheckoutModePayment {
		_, err := creditPermanent(ctx, q, user, e.Coins, model.TransactionKindDeposit, "Coin purchase", map[string]interface{}{
			"event_id": e.ID,
		})
		return nil, err
	}

	periodEnd := e.PeriodEnd
	if periodEnd.IsZero() {
		periodEnd = now.Add(s.cfg.DefaultPeriod)
	}
	validUntil := laterOf(user.SubscriptionValidUntil, periodEnd)
	window := now.Add(s.cfg.ChangeWindow)
	tier := e.Tier
	subID := e.SubscriptionID

	state := stateOf(user)
	state.Tier = &tier
	state.ValidUntil = &validUntil
	state.ChangeWindowUntil = &window
	state.BillingSubscriptionID = &subID
	if e.CustomerID != "" {
		customerID := e.CustomerID
		state.BillingCustomerID = &customerID
	}
	if err := q.UpdateSubscription(ctx, user.ID, state); err != nil {
		return nil, err
	}

	userID := user.ID
	return []func(){func() { s.notifyRenewed(userID, tier, validUntil) }}, nil
}

func (s *BillingService) invoicePaid(ctx context.Context, q repository.Queries, e *billing.InvoicePaid, now time.Time) ([]func(), error) {
	user, err := q.LockUserBySubscriptionID(ctx, e.SubscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriberNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotCorrelated, e.SubscriptionID)
		}
		return nil, err
	}

	newPeriod, err := q.RecordSubscriptionPeriod(ctx, e.SubscriptionID, e.PeriodEnd)
	if err != nil {
		return nil, err
	}

	validUntil := laterOf(user.SubscriptionValidUntil, e.PeriodEnd)
	state := stateOf(user)
	state.ValidUntil = &validUntil
	if !newPeriod {
		return nil, q.UpdateSubscription(ctx, user.ID, state)
	}

	window := now.Add(s.cfg.ChangeWindow)
	state.ChangeWindowUntil = &window
	if err := q.UpdateSubscription(ctx, user.ID, state); err != nil {
		return nil, err
	}
	if _, err := q.ExtendSlots(ctx, user.ID, validUntil, now); err != nil {
		return nil, err
	}

	var after []func()
	userID := user.ID
	if user.SubscriptionTier == nil {
		s.log.WithField("user_id", userID).Warn("invoice paid for user without tier, skipping bonus")
		return after, nil
	}
	tier := *user.SubscriptionTier
	after = append(after, func() { s.notifyRenewed(userID, tier, validUntil) })

	plan, ok := s.plans.Lookup(tier)
	if !ok || plan.MonthlyBonus <= 0 {
		return after, nil
	}
	batch, err := grantBatch(ctx, q, now, Grant{
		UserID:      user.ID,
		Amount:      plan.MonthlyBonus,
		TTL:         s.cfg.BonusTTL,
		Kind:        model.TransactionKindBonus,
		Description: "Monthly subscription bonus",
		Meta: map[string]interface{}{
			"event_id":        e.ID,
			"subscription_id": e.SubscriptionID,
			"period_end":      e.PeriodEnd.Unix(),
		},
	})
	if err != nil {
		return nil, err
	}
	amount, expiresAt := batch.Amount, batch.ExpiresAt
	after = append(after, func() {
		metrics.BatchesGranted.WithLabelValues("SUBSCRIPTION").Inc()
		if s.notifier != nil {
			if err := s.notifier.SendBonusGranted(userID, amount, expiresAt); err != nil {
				s.log.WithError(err).WithField("user_id", userID).Warn("failed to send bonus notification")
			}
		}
	})
	return after, nil
}

func (s *BillingService) paymentFailed(ctx context.Context, q repository.Queries, e *billing.InvoicePaymentFailed) ([]func(), error) {
	user, err := q.LockUserBySubscriptionID(ctx, e.SubscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriberNotFound) {
			s.log.WithField("subscription_id", e.SubscriptionID).Warn("payment failed for unknown subscription")
			return nil, nil
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":         user.ID,
		"subscription_id": e.SubscriptionID,
		"attempt":         e.AttemptCount,
	}).Warn("subscription payment failed")

	userID := user.ID
	return []func(){func() {
		if s.notifier == nil {
			return
		}
		if err := s.notifier.SendPaymentFailed(userID); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("failed to send payment failure notification")
		}
	}}, nil
}

func (s *BillingService) subscriptionUpdated(ctx context.Context, q repository.Queries, e *billing.SubscriptionUpdated) error {
	user, err := q.LockUserBySubscriptionID(ctx, e.SubscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriberNotFound) {
			s.log.WithField("subscription_id", e.SubscriptionID).Debug("update for subscription not linked yet")
			return nil
		}
		return err
	}
	if !e.Active() {
		s.log.WithFields(logrus.Fields{"user_id": user.ID, "status": e.Status}).Info("subscription no longer active, access lapses at period end")
		return nil
	}

	state := stateOf(user)
	if e.Tier != "" {
		tier := e.Tier
		state.Tier = &tier
	}
	if !e.PeriodEnd.IsZero() {
		validUntil := laterOf(user.SubscriptionValidUntil, e.PeriodEnd)
		state.ValidUntil = &validUntil
	}
	return q.UpdateSubscription(ctx, user.ID, state)
}

func (s *BillingService) subscriptionDeleted(ctx context.Context, q repository.Queries, e *billing.SubscriptionDeleted) error {
	n, err := q.ClearSubscriptionByID(ctx, e.SubscriptionID)
	if err != nil {
		return err
	}
	fields := logrus.Fields{"subscription_id": e.SubscriptionID, "users": n}
	if n != 1 {
		s.log.WithFields(fields).Warn("subscription deletion matched unexpected number of users")
	} else {
		s.log.WithFields(fields).Info("subscription cleared")
	}
	return nil
}

func (s *BillingService) notifyRenewed(userID int64, tier model.SubscriptionTier, validUntil time.Time) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendSubscriptionRenewed(userID, tier, validUntil); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to send renewal notification")
	}
}
