package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/repository"
)

var _ repository.ActivationLogRepository = (*activationLogRepo)(nil)

type activationLogRepo struct {
	pool *pgxpool.Pool
}

func NewActivationLogRepo(pool *pgxpool.Pool) repository.ActivationLogRepository {
	return &activationLogRepo{pool: pool}
}

func (r *activationLogRepo) Save(ctx context.Context, tx repository.Tx, ev *model.ActivationEvent) error {
	const q = `
INSERT INTO activation_events (id, kind, session_id, mac, subject, outcome, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		ev.ID, string(ev.Kind), ev.SessionID, ev.MAC, ev.Subject, ev.Outcome, ev.Detail, ev.CreatedAt)
	return err
}

func (r *activationLogRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ActivationEvent, error) {
	const q = `
SELECT id::text, kind, session_id, mac, subject, outcome, detail, created_at
FROM activation_events
ORDER BY created_at DESC
LIMIT $1`

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActivationEvent
	for rows.Next() {
		var (
			ev   model.ActivationEvent
			kind string
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.SessionID, &ev.MAC, &ev.Subject, &ev.Outcome, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Kind = model.ActivationKind(kind)
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (r *activationLogRepo) DeleteBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM activation_events WHERE created_at < $1`

	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
