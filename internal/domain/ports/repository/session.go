package repository

import (
	"context"

	"hotspot-portal/internal/domain/model"
)

// SessionStore is the port for the per-browser session context.
type SessionStore interface {
	// Get returns domain.ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
}

// PaymentWatchStore records the progress of tracked payment requests.
type PaymentWatchStore interface {
	// Get returns domain.ErrNotFound when the request is not tracked.
	Get(ctx context.Context, requestID int64) (*model.PaymentWatch, error)
	Save(ctx context.Context, w *model.PaymentWatch) error
	Delete(ctx context.Context, requestID int64) error
}
