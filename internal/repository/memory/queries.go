package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pagemint/backend/internal/ledger"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
)

type queries struct {
	st  *state
	now func() time.Time
}

func (q *queries) GetUser(_ context.Context, id int64) (*model.User, error) {
	u, ok := q.st.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (q *queries) LockUser(ctx context.Context, id int64) (*model.User, error) {
	return q.GetUser(ctx, id)
}

func (q *queries) UpsertUser(_ context.Context, user *model.User) error {
	now := q.now()
	existing, ok := q.st.users[user.ID]
	if !ok {
		existing = model.User{ID: user.ID, CreatedAt: now}
	}
	existing.Username = user.Username
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.LanguageCode = user.LanguageCode
	existing.UpdatedAt = now
	q.st.users[user.ID] = existing
	*user = existing
	return nil
}

func (q *queries) SetPermanentBalance(_ context.Context, userID, balance int64) error {
	u, ok := q.st.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if balance < 0 {
		return fmt.Errorf("permanent_balance check violated for user %d: %d", userID, balance)
	}
	u.PermanentBalance = balance
	u.UpdatedAt = q.now()
	q.st.users[userID] = u
	return nil
}

func (q *queries) IsAdmin(_ context.Context, userID int64) (bool, error) {
	return q.st.admins[userID], nil
}

func (q *queries) LogAdminAction(_ context.Context, adminID int64, action string, targetUserID *int64, details interface{}) error {
	raw := []byte("{}")
	if details != nil {
		var err error
		if raw, err = json.Marshal(details); err != nil {
			return err
		}
	}
	q.st.adminLogs = append(q.st.adminLogs, model.AdminLog{
		ID:           uuid.New(),
		AdminID:      adminID,
		Action:       action,
		TargetUserID: targetUserID,
		Details:      types.JSONText(raw),
		CreatedAt:    q.now(),
	})
	return nil
}

func (q *queries) GetChapter(_ context.Context, id uuid.UUID) (*model.Chapter, error) {
	c, ok := q.st.chapters[id]
	if !ok {
		return nil, repository.ErrChapterNotFound
	}
	return &c, nil
}

func (q *queries) WorkExists(_ context.Context, workID uuid.UUID) (bool, error) {
	for _, c := range q.st.chapters {
		if c.WorkID == workID {
			return true, nil
		}
	}
	return false, nil
}

func (q *queries) ListLiveBatches(_ context.Context, userID int64, asOf time.Time) ([]model.ExpiringBatch, error) {
	var out []model.ExpiringBatch
	for _, b := range q.st.batches {
		if b.UserID == userID && b.Amount > 0 && b.IsLive(asOf) {
			out = append(out, b)
		}
	}
	ledger.OrderForSpending(out)
	return out, nil
}

func (q *queries) CreateBatch(_ context.Context, batch *model.ExpiringBatch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.Amount < 0 {
		return fmt.Errorf("expiring_batches amount check violated: %d", batch.Amount)
	}
	batch.CreatedAt = q.now()
	q.st.batches[batch.ID] = *batch
	return nil
}

func (q *queries) UpdateBatchAmount(_ context.Context, id uuid.UUID, amount int64) error {
	b, ok := q.st.batches[id]
	if !ok {
		return repository.ErrBatchNotFound
	}
	if amount < 0 {
		return fmt.Errorf("expiring_batches amount check violated: %d", amount)
	}
	b.Amount = amount
	q.st.batches[id] = b
	return nil
}

func (q *queries) DeleteBatch(_ context.Context, id uuid.UUID) error {
	if _, ok := q.st.batches[id]; !ok {
		return repository.ErrBatchNotFound
	}
	delete(q.st.batches, id)
	return nil
}

func (q *queries) DeleteEmptyBatches(_ context.Context) (int64, error) {
	var n int64
	for id, b := range q.st.batches {
		if b.Amount == 0 {
			delete(q.st.batches, id)
			n++
		}
	}
	return n, nil
}

func (q *queries) ListExpiringBatches(_ context.Context, from, to time.Time) ([]model.ExpiringBatch, error) {
	var out []model.ExpiringBatch
	for _, b := range q.st.batches {
		if b.Amount > 0 && b.ExpiresAt.After(from) && !b.ExpiresAt.After(to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out, nil
}

func (q *queries) AppendTransaction(_ context.Context, t *model.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = q.now()
	q.st.transactions = append(q.st.transactions, *t)
	return nil
}

func (q *queries) ListTransactions(_ context.Context, userID int64, limit, offset int) ([]model.Transaction, error) {
	var out []model.Transaction
	for i := len(q.st.transactions) - 1; i >= 0; i-- {
		if q.st.transactions[i].UserID == userID {
			out = append(out, q.st.transactions[i])
		}
	}
	return page(out, limit, offset), nil
}

func (q *queries) SumTransactions(_ context.Context, userID int64, currency model.Currency) (int64, error) {
	var sum int64
	for _, t := range q.st.transactions {
		if t.UserID == userID && t.Currency == currency {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (q *queries) GetUnlock(_ context.Context, userID int64, chapterID uuid.UUID) (*model.Unlock, error) {
	u, ok := q.st.unlocks[unlockKey{userID, chapterID}]
	if !ok {
		return nil, repository.ErrUnlockNotFound
	}
	return &u, nil
}

func (q *queries) UpsertUnlock(_ context.Context, unlock *model.Unlock) error {
	now := q.now()
	key := unlockKey{unlock.UserID, unlock.ChapterID}
	existing, ok := q.st.unlocks[key]
	if !ok {
		if unlock.ID == uuid.Nil {
			unlock.ID = uuid.New()
		}
		existing = model.Unlock{
			ID:        unlock.ID,
			UserID:    unlock.UserID,
			ChapterID: unlock.ChapterID,
			CreatedAt: now,
		}
	}
	existing.Type = unlock.Type
	existing.ExpiresAt = unlock.ExpiresAt
	existing.UpdatedAt = now
	q.st.unlocks[key] = existing
	*unlock = existing
	return nil
}

func (q *queries) ListSlots(_ context.Context, userID int64, asOf time.Time) ([]model.SubscriptionSlot, error) {
	var out []model.SubscriptionSlot
	for _, s := range q.st.slots {
		if s.UserID == userID && s.IsLive(asOf) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (q *queries) HasActiveSlot(_ context.Context, userID int64, workID uuid.UUID, asOf time.Time) (bool, error) {
	for _, s := range q.st.slots {
		if s.UserID == userID && s.WorkID == workID && s.IsLive(asOf) {
			return true, nil
		}
	}
	return false, nil
}

func (q *queries) CreateSlot(_ context.Context, slot *model.SubscriptionSlot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = q.now()
	q.st.slots[slot.ID] = *slot
	return nil
}

func (q *queries) ExpireSlot(_ context.Context, userID int64, workID uuid.UUID, at time.Time) (bool, error) {
	found := false
	for id, s := range q.st.slots {
		if s.UserID == userID && s.WorkID == workID && s.IsLive(at) {
			s.ExpiresAt = at
			q.st.slots[id] = s
			found = true
		}
	}
	return found, nil
}

func (q *queries) ExtendSlots(_ context.Context, userID int64, until, asOf time.Time) (int64, error) {
	var n int64
	for id, s := range q.st.slots {
		if s.UserID == userID && s.IsLive(asOf) && s.ExpiresAt.Before(until) {
			s.ExpiresAt = until
			q.st.slots[id] = s
			n++
		}
	}
	return n, nil
}

func (q *queries) LockUserBySubscriptionID(_ context.Context, subscriptionID string) (*model.User, error) {
	var found *model.User
	for _, u := range q.st.users {
		if u.BillingSubscriptionID == nil || *u.BillingSubscriptionID != subscriptionID {
			continue
		}
		if found == nil || u.ID < found.ID {
			u := u
			found = &u
		}
	}
	if found == nil {
		return nil, repository.ErrSubscriberNotFound
	}
	return found, nil
}

func (q *queries) UpdateSubscription(_ context.Context, userID int64, state model.SubscriptionState) error {
	u, ok := q.st.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.SubscriptionTier = state.Tier
	u.SubscriptionValidUntil = state.ValidUntil
	u.EntitlementChangeWindowUntil = state.ChangeWindowUntil
	u.BillingSubscriptionID = state.BillingSubscriptionID
	u.BillingCustomerID = state.BillingCustomerID
	u.UpdatedAt = q.now()
	q.st.users[userID] = u
	return nil
}

func (q *queries) ClearSubscriptionByID(_ context.Context, subscriptionID string) (int64, error) {
	var n int64
	for id, u := range q.st.users {
		if u.BillingSubscriptionID == nil || *u.BillingSubscriptionID != subscriptionID {
			continue
		}
		u.SubscriptionTier = nil
		u.SubscriptionValidUntil = nil
		u.EntitlementChangeWindowUntil = nil
		u.UpdatedAt = q.now()
		q.st.users[id] = u
		n++
	}
	return n, nil
}

func (q *queries) RecordBillingEvent(_ context.Context, eventID, eventType string) (bool, error) {
	if _, ok := q.st.events[eventID]; ok {
		return false, nil
	}
	q.st.events[eventID] = model.ProcessedEvent{EventID: eventID, Type: eventType, ProcessedAt: q.now()}
	return true, nil
}

func (q *queries) RecordSubscriptionPeriod(_ context.Context, subscriptionID string, periodEnd time.Time) (bool, error) {
	key := periodKey{subscriptionID, periodEnd.UTC().UnixMicro()}
	if q.st.periods[key] {
		return false, nil
	}
	q.st.periods[key] = true
	return true, nil
}

func (q *queries) findPromo(code string) (*model.PromoCode, error) {
	for _, p := range q.st.promos {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, repository.ErrPromoCodeNotFound
}

func (q *queries) GetPromoCode(_ context.Context, code string) (*model.PromoCode, error) {
	return q.findPromo(code)
}

func (q *queries) LockPromoCode(_ context.Context, code string) (*model.PromoCode, error) {
	return q.findPromo(code)
}

func (q *queries) CreatePromoCode(_ context.Context, promo *model.PromoCode) error {
	if _, err := q.findPromo(promo.Code); err == nil {
		return fmt.Errorf("%w: %s", repository.ErrPromoCodeExists, promo.Code)
	}
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	promo.UsedCount = 0
	promo.CreatedAt = q.now()
	q.st.promos[promo.ID] = *promo
	return nil
}

func (q *queries) ListPromoCodes(_ context.Context, limit, offset int) ([]model.PromoCode, error) {
	out := make([]model.PromoCode, 0, len(q.st.promos))
	for _, p := range q.st.promos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return page(out, limit, offset), nil
}

func (q *queries) DeactivatePromoCode(_ context.Context, id uuid.UUID) error {
	p, ok := q.st.promos[id]
	if !ok {
		return repository.ErrPromoCodeNotFound
	}
	p.IsActive = false
	q.st.promos[id] = p
	return nil
}

func (q *queries) HasRedeemed(_ context.Context, promoID uuid.UUID, userID int64) (bool, error) {
	_, ok := q.st.redemptions[redemptionKey{promoID, userID}]
	return ok, nil
}

func (q *queries) RecordRedemption(_ context.Context, promoID uuid.UUID, userID int64) error {
	key := redemptionKey{promoID, userID}
	if _, ok := q.st.redemptions[key]; ok {
		return fmt.Errorf("promo_redemptions unique violation: %s/%d", promoID, userID)
	}
	p, ok := q.st.promos[promoID]
	if !ok {
		return repository.ErrPromoCodeNotFound
	}
	q.st.redemptions[key] = model.PromoRedemption{PromoCodeID: promoID, UserID: userID, CreatedAt: q.now()}
	p.UsedCount++
	q.st.promos[promoID] = p
	return nil
}

func (q *queries) CountDailyClaims(_ context.Context, userID int64, kind model.ClaimKind, day time.Time) (int, error) {
	d := repository.ClaimDay(day).Unix()
	count := 0
	for k := range q.st.claims {
		if k.userID == userID && k.kind == kind && k.day == d {
			count++
		}
	}
	return count, nil
}

func (q *queries) RecordDailyClaim(_ context.Context, claim *model.DailyClaim) (bool, error) {
	claim.Day = repository.ClaimDay(claim.Day)
	key := claimKey{claim.UserID, claim.Kind, claim.Day.Unix(), claim.Seq}
	if _, ok := q.st.claims[key]; ok {
		return false, nil
	}
	claim.CreatedAt = q.now()
	q.st.claims[key] = *claim
	return true, nil
}

func (q *queries) GetSetting(_ context.Context, key string) (string, error) {
	v, ok := q.st.settings[key]
	if !ok {
		return "", repository.ErrSettingNotFound
	}
	return v, nil
}

func (q *queries) SetSetting(_ context.Context, key, value string) error {
	q.st.settings[key] = value
	return nil
}

func (q *queries) GetAllSettings(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(q.st.settings))
	for k, v := range q.st.settings {
		out[k] = v
	}
	return out, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var _ repository.Queries = (*queries)(nil)
