package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/repository"
	"hotspot-portal/internal/infra/logging"
)

// Compile-time check
var _ ActivityUseCase = (*activityUC)(nil)

// ActivityUseCase reads the activation audit trail.
type ActivityUseCase interface {
	Recent(ctx context.Context, limit int) ([]*model.ActivationEvent, error)
	// Prune drops events older than retention.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// recorder appends activation events. A nil repo disables it; write failures
// are logged and never fail the flow being audited.
type recorder struct {
	repo repository.ActivationLogRepository
	log  *zerolog.Logger
}

func newRecorder(repo repository.ActivationLogRepository, logger *zerolog.Logger) *recorder {
	return &recorder{repo: repo, log: logger}
}

func (r *recorder) record(ctx context.Context, sess *model.Session, kind model.ActivationKind, subject, outcome, detail string) {
	if r == nil || r.repo == nil {
		return
	}
	ev := &model.ActivationEvent{
		Kind:      kind,
		Subject:   subject,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if sess != nil {
		ev.SessionID = sess.ID
		ev.MAC = sess.Portal.MAC
	}
	if err := r.repo.Save(ctx, repository.NoTX, ev); err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Str("kind", string(kind)).Msg("activation event not recorded")
	}
}

type activityUC struct {
	repo repository.ActivationLogRepository
	now  func() time.Time
}

func NewActivityUseCase(repo repository.ActivationLogRepository) *activityUC {
	return &activityUC{repo: repo, now: time.Now}
}

// Recent returns an empty list when the audit log is not configured.
func (u *activityUC) Recent(ctx context.Context, limit int) ([]*model.ActivationEvent, error) {
	if u.repo == nil {
		return []*model.ActivationEvent{}, nil
	}
	return u.repo.ListRecent(ctx, repository.NoTX, limit)
}

func (u *activityUC) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if u.repo == nil {
		return 0, nil
	}
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive: %w", domain.ErrInvalidArgument)
	}
	n, err := u.repo.DeleteBefore(ctx, repository.NoTX, u.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune activation log: %w", err)
	}
	return n, nil
}
