//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/usecase"
)

func TestBatchUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("should validate before calling the backend", func(t *testing.T) {
		b := newMockBackend()
		uc := usecase.NewBatchUseCase(b, newTestLogger())
		zero := decimal.Zero

		for name, req := range map[string]model.GenerateRequest{
			"no quantity":   {Quantity: 0, Value: &zero},
			"no plan/value": {Quantity: 5},
			"non-positive":  {Quantity: 5, Value: &zero},
		} {
			if _, err := uc.Generate(ctx, authenticatedSession("s"), req); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("%s: expected ErrInvalidArgument, got %v", name, err)
			}
		}
		if b.CallCount("GenerateVouchers") != 0 {
			t.Error("invalid requests must not reach the backend")
		}
	})

	t.Run("should require a logged in session", func(t *testing.T) {
		b := newMockBackend()
		uc := usecase.NewBatchUseCase(b, newTestLogger())
		v := decimal.NewFromInt(50)

		if _, err := uc.Generate(ctx, model.NewSession("s"), model.GenerateRequest{Quantity: 1, Value: &v}); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := uc.ListBatches(ctx, model.NewSession("s")); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("should generate and return the batch with its vouchers", func(t *testing.T) {
		// --- Arrange ---
		b := newMockBackend()
		p := b.AddPlan(model.Plan{Name: "Daily", Price: decimal.NewFromInt(50)})
		uc := usecase.NewBatchUseCase(b, newTestLogger())
		sess := authenticatedSession("admin")

		// --- Act ---
		created, err := uc.Generate(ctx, sess, model.GenerateRequest{Quantity: 3, PlanID: &p.ID, Note: "lobby"})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		got, err := uc.Batch(ctx, sess, created.ID)

		// --- Assert ---
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		if got.Note != "lobby" || got.PlanName != "Daily" || len(got.Vouchers) != 3 {
			t.Errorf("unexpected batch %+v", got)
		}
		if counts := got.CountByStatus(); counts[model.VoucherStatusActive] != 3 {
			t.Errorf("unexpected status counts %v", counts)
		}
	})

	t.Run("should report an unknown batch as not found", func(t *testing.T) {
		uc := usecase.NewBatchUseCase(newMockBackend(), newTestLogger())
		if _, err := uc.Batch(ctx, authenticatedSession("admin"), 404); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSessionUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("should hand out a fresh anonymous session for unknown ids", func(t *testing.T) {
		uc := usecase.NewSessionUseCase(newMemSessionStore(), newMockBackend(), nil, newTestLogger())

		sess, err := uc.Load(ctx, "missing")

		if err != nil {
			t.Fatal(err)
		}
		if sess.ID == "" || sess.ID == "missing" || sess.IsAuthenticated() {
			t.Errorf("unexpected session %+v", sess)
		}
	})

	t.Run("should log in and persist tokens", func(t *testing.T) {
		// --- Arrange ---
		b := newMockBackend()
		b.AddAccount("admin", "secret", true)
		store := newMemSessionStore()
		uc := usecase.NewSessionUseCase(store, b, nil, newTestLogger())
		sess := model.NewSession("s1")

		// --- Act ---
		err := uc.Login(ctx, sess, "admin", "secret")

		// --- Assert ---
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		loaded, err := uc.Load(ctx, "s1")
		if err != nil || !loaded.IsAuthenticated() || loaded.Username != "admin" {
			t.Errorf("session not persisted: %+v %v", loaded, err)
		}
	})

	t.Run("should reject bad credentials with ErrUnauthorized", func(t *testing.T) {
		b := newMockBackend()
		b.AddAccount("admin", "secret", true)
		uc := usecase.NewSessionUseCase(newMemSessionStore(), b, nil, newTestLogger())

		err := uc.Login(ctx, model.NewSession("s1"), "admin", "wrong")

		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("should clear credentials on teardown", func(t *testing.T) {
		store := newMemSessionStore()
		uc := usecase.NewSessionUseCase(store, newMockBackend(), nil, newTestLogger())
		sess := authenticatedSession("s1")
		sess.ResetPortal(model.PortalParams{MAC: "AA:BB"})

		if err := uc.Teardown(ctx, sess); err != nil {
			t.Fatal(err)
		}
		stored, _ := store.Get(ctx, "s1")
		if stored.IsAuthenticated() || stored.Portal.MAC != "AA:BB" {
			t.Errorf("unexpected session after teardown %+v", stored)
		}
	})
}

func TestActivityUseCase_Recent(t *testing.T) {
	ctx := context.Background()

	t.Run("should return an empty list without a repository", func(t *testing.T) {
		got, err := usecase.NewActivityUseCase(nil).Recent(ctx, 10)
		if err != nil || got == nil || len(got) != 0 {
			t.Errorf("expected empty list, got %v %v", got, err)
		}
	})

	t.Run("should return newest first", func(t *testing.T) {
		repo := &memActivityRepo{}
		_ = repo.Save(ctx, nil, &model.ActivationEvent{Kind: model.ActivationRedeem, Outcome: "first"})
		_ = repo.Save(ctx, nil, &model.ActivationEvent{Kind: model.ActivationRedeem, Outcome: "second"})

		got, _ := usecase.NewActivityUseCase(repo).Recent(ctx, 10)
		if len(got) != 2 || got[0].Outcome != "second" {
			t.Errorf("unexpected order %+v", got)
		}
	})
}

func TestActivityUseCase_Prune(t *testing.T) {
	ctx := context.Background()

	t.Run("should drop only events past retention", func(t *testing.T) {
		// --- Arrange ---
		repo := &memActivityRepo{}
		now := time.Now()
		_ = repo.Save(ctx, nil, &model.ActivationEvent{Kind: model.ActivationRedeem, Outcome: "old", CreatedAt: now.Add(-48 * time.Hour)})
		_ = repo.Save(ctx, nil, &model.ActivationEvent{Kind: model.ActivationRedeem, Outcome: "fresh", CreatedAt: now.Add(-time.Hour)})

		// --- Act ---
		n, err := usecase.NewActivityUseCase(repo).Prune(ctx, 24*time.Hour)

		// --- Assert ---
		if err != nil || n != 1 {
			t.Fatalf("expected 1 pruned, got %d (%v)", n, err)
		}
		if got := repo.outcomes(model.ActivationRedeem); len(got) != 1 || got[0] != "fresh" {
			t.Errorf("unexpected survivors %v", got)
		}
	})

	t.Run("should reject a non-positive retention", func(t *testing.T) {
		_, err := usecase.NewActivityUseCase(&memActivityRepo{}).Prune(ctx, 0)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should be a no-op without a repository", func(t *testing.T) {
		if n, err := usecase.NewActivityUseCase(nil).Prune(ctx, time.Hour); n != 0 || err != nil {
			t.Errorf("expected no-op, got %d %v", n, err)
		}
	})
}
