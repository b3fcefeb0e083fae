//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"hotspot-portal/internal/domain/model"
)

func TestActivationLogRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewActivationLogRepo(testPool)

	t.Run("should list newest events first", func(t *testing.T) {
		cleanup(t)
		base := time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond)
		for i, outcome := range []string{"ok", "rejected", "dispatched"} {
			ev := &model.ActivationEvent{
				Kind:      model.ActivationRedeem,
				SessionID: "s1",
				MAC:       "AA:BB",
				Subject:   "ABCD...34",
				Outcome:   outcome,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			if err := repo.Save(ctx, nil, ev); err != nil {
				t.Fatalf("save: %v", err)
			}
			if ev.ID == "" {
				t.Fatal("expected id to be assigned")
			}
		}

		got, err := repo.ListRecent(ctx, nil, 2)

		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].Outcome != "dispatched" || got[1].Outcome != "rejected" {
			t.Errorf("unexpected order: %s, %s", got[0].Outcome, got[1].Outcome)
		}
		if got[0].Kind != model.ActivationRedeem || got[0].MAC != "AA:BB" {
			t.Errorf("fields not round-tripped: %+v", got[0])
		}
	})

	t.Run("should roll back with the transaction", func(t *testing.T) {
		cleanup(t)
		tx, err := testPool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			t.Fatal(err)
		}

		if err := repo.Save(ctx, tx, &model.ActivationEvent{Kind: model.ActivationPayment, Outcome: "ok"}); err != nil {
			t.Fatalf("save in tx: %v", err)
		}
		_ = tx.Rollback(ctx)

		got, err := repo.ListRecent(ctx, nil, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("expected rollback to discard the event, got %d", len(got))
		}
	})

	t.Run("should delete events older than the cutoff", func(t *testing.T) {
		cleanup(t)
		now := time.Now().UTC()
		_ = repo.Save(ctx, nil, &model.ActivationEvent{Kind: model.ActivationRedeem, Outcome: "old", CreatedAt: now.Add(-72 * time.Hour)})
		_ = repo.Save(ctx, nil, &model.ActivationEvent{Kind: model.ActivationRedeem, Outcome: "fresh", CreatedAt: now})

		n, err := repo.DeleteBefore(ctx, nil, now.Add(-24*time.Hour))

		if err != nil || n != 1 {
			t.Fatalf("expected 1 deleted, got %d (%v)", n, err)
		}
		got, _ := repo.ListRecent(ctx, nil, 10)
		if len(got) != 1 || got[0].Outcome != "fresh" {
			t.Errorf("unexpected survivors %+v", got)
		}
	})
}
