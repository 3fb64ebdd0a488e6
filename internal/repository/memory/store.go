// Package memory is an in-process repository.Store for tests and local runs.
// Transactions hold a single store-wide lock and restore a snapshot on error,
// which gives the same all-or-nothing behavior as the Postgres store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
)

type unlockKey struct {
	userID    int64
	chapterID uuid.UUID
}

type periodKey struct {
	subscriptionID string
	periodEnd      int64
}

type redemptionKey struct {
	promoID uuid.UUID
	userID  int64
}

type claimKey struct {
	userID int64
	kind   model.ClaimKind
	day    int64
	seq    int
}

type state struct {
	users        map[int64]model.User
	admins       map[int64]bool
	chapters     map[uuid.UUID]model.Chapter
	batches      map[uuid.UUID]model.ExpiringBatch
	transactions []model.Transaction
	unlocks      map[unlockKey]model.Unlock
	slots        map[uuid.UUID]model.SubscriptionSlot
	events       map[string]model.ProcessedEvent
	periods      map[periodKey]bool
	promos       map[uuid.UUID]model.PromoCode
	redemptions  map[redemptionKey]model.PromoRedemption
	claims       map[claimKey]model.DailyClaim
	settings     map[string]string
	adminLogs    []model.AdminLog
}

func newState() *state {
	return &state{
		users:       make(map[int64]model.User),
		admins:      make(map[int64]bool),
		chapters:    make(map[uuid.UUID]model.Chapter),
		batches:     make(map[uuid.UUID]model.ExpiringBatch),
		unlocks:     make(map[unlockKey]model.Unlock),
		slots:       make(map[uuid.UUID]model.SubscriptionSlot),
		events:      make(map[string]model.ProcessedEvent),
		periods:     make(map[periodKey]bool),
		promos:      make(map[uuid.UUID]model.PromoCode),
		redemptions: make(map[redemptionKey]model.PromoRedemption),
		claims:      make(map[claimKey]model.DailyClaim),
		settings:    make(map[string]string),
	}
}

// clone copies every table. Records are stored by value and pointer fields
// are only ever replaced, never written through, so a shallow copy per
// record is enough.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.admins {
		c.admins[k] = v
	}
	for k, v := range s.chapters {
		c.chapters[k] = v
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	c.transactions = append([]model.Transaction(nil), s.transactions...)
	for k, v := range s.unlocks {
		c.unlocks[k] = v
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.promos {
		c.promos[k] = v
	}
	for k, v := range s.redemptions {
		c.redemptions[k] = v
	}
	for k, v := range s.claims {
		c.claims[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	c.adminLogs = append([]model.AdminLog(nil), s.adminLogs...)
	return c
}

type Store struct {
	mu        sync.RWMutex
	st        *state
	conflicts int
	now       func() time.Time
}

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// SetClock replaces the clock used for created_at/updated_at stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// InjectConflicts makes the next n transactions fail with
// repository.ErrConcurrencyConflict before running.
func (s *Store) InjectConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

func (s *Store) InTx(ctx context.Context, fn func(repository.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.conflicts > 0 {
		s.conflicts--
		return repository.ErrConcurrencyConflict
	}

	snapshot := s.st.clone()
	if err := fn(&queries{st: s.st, now: s.now}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// View runs fn against a private copy, so writes made inside it are dropped.
func (s *Store) View(ctx context.Context, fn func(repository.Queries) error) error {
	s.mu.RLock()
	st := s.st.clone()
	now := s.now
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&queries{st: st, now: now})
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Seed helpers. These bypass transactions and are meant for test setup.

func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
		u.UpdatedAt = u.CreatedAt
	}
	s.st.users[u.ID] = u
}

func (s *Store) PutAdmin(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.admins[userID] = true
}

func (s *Store) PutChapter(c model.Chapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.st.chapters[c.ID] = c
}

func (s *Store) PutBatch(b model.ExpiringBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	s.st.batches[b.ID] = b
}

func (s *Store) PutUnlock(u model.Unlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.st.unlocks[unlockKey{u.UserID, u.ChapterID}] = u
}

func (s *Store) PutSlot(slot model.SubscriptionSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	s.st.slots[slot.ID] = slot
}

func (s *Store) PutPromoCode(p model.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.st.promos[p.ID] = p
}

// Batches returns every stored batch of the user, expired ones included.
func (s *Store) Batches(userID int64) []model.ExpiringBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ExpiringBatch
	for _, b := range s.st.batches {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out
}

// Transactions returns the user's ledger entries in insertion order.
func (s *Store) Transactions(userID int64) []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Transaction
	for _, t := range s.st.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// AdminLogs returns every recorded admin action in insertion order.
func (s *Store) AdminLogs() []model.AdminLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.AdminLog(nil), s.st.adminLogs...)
}

var _ repository.Store = (*Store)(nil)
