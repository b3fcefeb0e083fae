package repository

import (
	"context"
	"time"

	"hotspot-portal/internal/domain/model"
)

// -----------------------------
// Activation audit log
// -----------------------------

type ActivationLogRepository interface {
	// Save appends one event.
	Save(ctx context.Context, tx Tx, ev *model.ActivationEvent) error
	// ListRecent returns the newest events first.
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.ActivationEvent, error)
	// DeleteBefore removes events created before cutoff and reports how many.
	DeleteBefore(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
