package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/infra/metrics"
)

// PaymentObserver receives tracking progress. Done is called exactly once per
// Await, whatever the reason tracking ended.
type PaymentObserver interface {
	Progress(attempt int, status model.PaymentStatus, err error)
	Done(outcome model.PaymentOutcome, last model.PaymentStatus)
}

// ObserverFuncs adapts plain funcs to PaymentObserver; nil fields are skipped.
type ObserverFuncs struct {
	OnProgress func(attempt int, status model.PaymentStatus, err error)
	OnDone     func(outcome model.PaymentOutcome, last model.PaymentStatus)
}

func (o ObserverFuncs) Progress(attempt int, status model.PaymentStatus, err error) {
	if o.OnProgress != nil {
		o.OnProgress(attempt, status, err)
	}
}

func (o ObserverFuncs) Done(outcome model.PaymentOutcome, last model.PaymentStatus) {
	if o.OnDone != nil {
		o.OnDone(outcome, last)
	}
}

type TrackerConfig struct {
	Interval    time.Duration
	MaxAttempts int           // 0 = unlimited
	MaxWait     time.Duration // 0 = no wall-clock cap
}

// PaymentTracker polls a payment request until it reaches a terminal status,
// the poll cap is hit, or ctx is cancelled.
type PaymentTracker struct {
	backend adapter.BillingBackend
	cfg     TrackerConfig
	log     *zerolog.Logger
}

func NewPaymentTracker(backend adapter.BillingBackend, cfg TrackerConfig, logger *zerolog.Logger) *PaymentTracker {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &PaymentTracker{backend: backend, cfg: cfg, log: logger}
}

// Await issues the first status request one interval after it is called. Once
// a terminal status is seen no further request for requestID is made.
//
// Transport errors on a single poll are logged and polling continues. An
// unauthorized response ends tracking with domain.ErrUnauthorized; the cap
// ends it with domain.ErrPollCapReached and OutcomeAbandoned.
func (t *PaymentTracker) Await(ctx context.Context, sess *model.Session, requestID int64, obs PaymentObserver) (model.PaymentOutcome, error) {
	defer logging.TraceDuration(t.log, "PaymentTracker.Await")()
	l := logging.With(ctx, t.log).With().Int64("payment_request_id", requestID).Logger()
	if obs == nil {
		obs = ObserverFuncs{}
	}
	token := sess.AccessToken()

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if t.cfg.MaxWait > 0 {
		timer := time.NewTimer(t.cfg.MaxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	var last model.PaymentStatus
	finish := func(o model.PaymentOutcome, err error) (model.PaymentOutcome, error) {
		metrics.IncPaymentOutcome(string(o))
		obs.Done(o, last)
		l.Info().Str("outcome", string(o)).Str("last_status", string(last)).Msg("payment tracking finished")
		return o, err
	}

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return finish(model.OutcomeCancelled, ctx.Err())
		case <-deadline:
			return finish(model.OutcomeAbandoned, domain.ErrPollCapReached)
		case <-ticker.C:
		}

		st, err := t.backend.PaymentStatus(ctx, token, requestID)
		switch {
		case err != nil && ctx.Err() != nil:
			return finish(model.OutcomeCancelled, ctx.Err())
		case errors.Is(err, domain.ErrUnauthorized):
			metrics.IncPaymentPoll("unauthorized")
			return finish(model.OutcomeAbandoned, err)
		case err != nil:
			metrics.IncPaymentPoll("error")
			l.Warn().Err(err).Int("attempt", attempt).Msg("payment status poll failed")
			obs.Progress(attempt, last, err)
		default:
			last = st
			metrics.IncPaymentPoll(string(st))
			if st.IsTerminal() {
				return finish(model.OutcomeFor(st), nil)
			}
			obs.Progress(attempt, st, nil)
		}

		if t.cfg.MaxAttempts > 0 && attempt >= t.cfg.MaxAttempts {
			return finish(model.OutcomeAbandoned, domain.ErrPollCapReached)
		}
	}
}
