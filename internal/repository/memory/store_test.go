package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
)

var t0 = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.SetClock(func() time.Time { return t0 })
	s.PutUser(model.User{ID: 1, PermanentBalance: 10})
	return s
}

func TestInTx_RollsBackOnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(q repository.Queries) error {
		if err := q.SetPermanentBalance(ctx, 1, 3); err != nil {
			return err
		}
		if err := q.CreateBatch(ctx, &model.ExpiringBatch{UserID: 1, Amount: 5, ExpiresAt: t0.Add(time.Hour)}); err != nil {
			return err
		}
		if err := q.AppendTransaction(ctx, &model.Transaction{UserID: 1, Amount: -7, Currency: model.CurrencyPermanent}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	err = s.View(ctx, func(q repository.Queries) error {
		u, err := q.GetUser(ctx, 1)
		if err != nil {
			return err
		}
		if u.PermanentBalance != 10 {
			t.Errorf("balance = %d after rollback, want 10", u.PermanentBalance)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Batches(1); len(got) != 0 {
		t.Errorf("batches after rollback = %v", got)
	}
	if got := s.Transactions(1); len(got) != 0 {
		t.Errorf("transactions after rollback = %v", got)
	}
}

func TestInTx_InjectedConflicts(t *testing.T) {
	s := newStore(t)
	s.InjectConflicts(2)
	calls := 0
	fn := func(repository.Queries) error { calls++; return nil }

	for i := 0; i < 2; i++ {
		if err := s.InTx(context.Background(), fn); !errors.Is(err, repository.ErrConcurrencyConflict) {
			t.Fatalf("attempt %d: error = %v, want conflict", i, err)
		}
	}
	if err := s.InTx(context.Background(), fn); err != nil {
		t.Fatalf("third attempt error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fn ran %d times, want 1", calls)
	}
}

func TestView_DiscardsWrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_ = s.View(ctx, func(q repository.Queries) error {
		return q.SetPermanentBalance(ctx, 1, 0)
	})
	_ = s.View(ctx, func(q repository.Queries) error {
		u, _ := q.GetUser(ctx, 1)
		if u.PermanentBalance != 10 {
			t.Errorf("View write leaked: balance = %d", u.PermanentBalance)
		}
		return nil
	})
}

func TestListLiveBatches_Order(t *testing.T) {
	s := newStore(t)
	late := model.ExpiringBatch{ID: uuid.New(), UserID: 1, Amount: 1, ExpiresAt: t0.Add(48 * time.Hour)}
	soon := model.ExpiringBatch{ID: uuid.New(), UserID: 1, Amount: 1, ExpiresAt: t0.Add(time.Hour)}
	expired := model.ExpiringBatch{ID: uuid.New(), UserID: 1, Amount: 1, ExpiresAt: t0.Add(-time.Hour)}
	empty := model.ExpiringBatch{ID: uuid.New(), UserID: 1, Amount: 0, ExpiresAt: t0.Add(time.Hour)}
	other := model.ExpiringBatch{ID: uuid.New(), UserID: 2, Amount: 1, ExpiresAt: t0.Add(time.Hour)}
	for _, b := range []model.ExpiringBatch{late, soon, expired, empty, other} {
		s.PutBatch(b)
	}

	ctx := context.Background()
	_ = s.View(ctx, func(q repository.Queries) error {
		got, err := q.ListLiveBatches(ctx, 1, t0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].ID != soon.ID || got[1].ID != late.ID {
			t.Errorf("ListLiveBatches() = %+v, want [soon, late]", got)
		}
		return nil
	})
}

func TestDailyClaims_UniquePerDay(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	err := s.InTx(ctx, func(q repository.Queries) error {
		claim := &model.DailyClaim{UserID: 1, Kind: model.ClaimKindCheckIn, Day: t0, Seq: 1}
		if ok, err := q.RecordDailyClaim(ctx, claim); err != nil || !ok {
			t.Fatalf("first claim = %v, %v", ok, err)
		}
		again := &model.DailyClaim{UserID: 1, Kind: model.ClaimKindCheckIn, Day: t0.Add(5 * time.Hour), Seq: 1}
		if ok, _ := q.RecordDailyClaim(ctx, again); ok {
			t.Error("same-day claim accepted twice")
		}
		next := &model.DailyClaim{UserID: 1, Kind: model.ClaimKindCheckIn, Day: t0.Add(24 * time.Hour), Seq: 1}
		if ok, _ := q.RecordDailyClaim(ctx, next); !ok {
			t.Error("next-day claim rejected")
		}
		n, _ := q.CountDailyClaims(ctx, 1, model.ClaimKindCheckIn, t0)
		if n != 1 {
			t.Errorf("CountDailyClaims() = %d, want 1", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRecordBillingEvent_Once(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_ = s.InTx(ctx, func(q repository.Queries) error {
		first, _ := q.RecordBillingEvent(ctx, "evt_1", "invoice.paid")
		second, _ := q.RecordBillingEvent(ctx, "evt_1", "invoice.paid")
		if !first || second {
			t.Errorf("RecordBillingEvent() = %v, %v; want true, false", first, second)
		}
		p1, _ := q.RecordSubscriptionPeriod(ctx, "sub_1", t0)
		p2, _ := q.RecordSubscriptionPeriod(ctx, "sub_1", t0.In(time.FixedZone("x", 3600)))
		if !p1 || p2 {
			t.Errorf("RecordSubscriptionPeriod() = %v, %v; want true, false", p1, p2)
		}
		return nil
	})
}
