package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/domain/ports/repository"
	"hotspot-portal/internal/infra/logging"
)

// TaskRunner executes background work; Submit must not block.
type TaskRunner interface {
	Submit(task func(ctx context.Context) error) error
}

// PaymentWatcher runs one PaymentTracker per payment request in the
// background and records progress so the payment page can be refreshed.
type PaymentWatcher struct {
	tracker *PaymentTracker
	store   repository.PaymentWatchStore
	runner  TaskRunner
	locker  adapter.Locker // optional; keeps one tracker per request across instances
	lockTTL time.Duration
	log     *zerolog.Logger
	now     func() time.Time

	mu     sync.Mutex
	active map[int64]context.CancelFunc
}

func NewPaymentWatcher(tracker *PaymentTracker, store repository.PaymentWatchStore, runner TaskRunner, locker adapter.Locker, logger *zerolog.Logger) *PaymentWatcher {
	ttl := tracker.cfg.MaxWait + tracker.cfg.Interval
	if tracker.cfg.MaxWait <= 0 {
		ttl = 10 * time.Minute
	}
	return &PaymentWatcher{
		tracker: tracker,
		store:   store,
		runner:  runner,
		locker:  locker,
		lockTTL: ttl,
		log:     logger,
		now:     time.Now,
		active:  make(map[int64]context.CancelFunc),
	}
}

func watchLockKey(requestID int64) string {
	return "lock:payment_watch:" + strconv.FormatInt(requestID, 10)
}

// Start begins tracking requestID on behalf of sess. Starting a request that
// is already tracked returns the existing watch.
func (w *PaymentWatcher) Start(ctx context.Context, sess *model.Session, requestID int64, planID int64) (*model.PaymentWatch, error) {
	l := logging.With(ctx, w.log).With().Int64("payment_request_id", requestID).Logger()

	w.mu.Lock()
	_, running := w.active[requestID]
	w.mu.Unlock()
	if running {
		return w.Get(ctx, sess, requestID)
	}

	var lockToken string
	if w.locker != nil {
		tok, err := w.locker.TryLock(ctx, watchLockKey(requestID), w.lockTTL)
		if errors.Is(err, domain.ErrAlreadyExists) {
			return w.Get(ctx, sess, requestID)
		}
		if err != nil {
			l.Warn().Err(err).Msg("payment watch lock unavailable, tracking locally")
		}
		lockToken = tok
	}

	now := w.now()
	watch := &model.PaymentWatch{
		RequestID: requestID,
		SessionID: sess.ID,
		PlanID:    planID,
		State:     model.PaymentViewPending,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := w.store.Save(ctx, watch); err != nil {
		w.unlock(ctx, requestID, lockToken)
		return nil, err
	}

	// The tracker outlives the request that started it but keeps its values
	// (trace id) for logging.
	stopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.mu.Lock()
	w.active[requestID] = cancel
	w.mu.Unlock()

	owner := *sess
	task := func(workerCtx context.Context) error {
		runCtx, cancelRun := context.WithCancel(stopCtx)
		stop := context.AfterFunc(workerCtx, cancelRun)
		defer func() {
			stop()
			cancelRun()
			w.forget(requestID)
			w.unlock(context.WithoutCancel(runCtx), requestID, lockToken)
		}()

		_, err := w.tracker.Await(runCtx, &owner, requestID, w.observer(runCtx, watch))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	// The tracker owns watch once submitted.
	cp := *watch
	if err := w.runner.Submit(task); err != nil {
		w.forget(requestID)
		w.unlock(ctx, requestID, lockToken)
		_ = w.store.Delete(ctx, requestID)
		return nil, err
	}
	l.Info().Msg("payment watch started")
	return &cp, nil
}

// observer persists progress. A cancelled run is not written back: Stop
// removes the record itself. Saves happen under w.mu and only while the
// request is still active, so nothing is written after Stop deletes it.
func (w *PaymentWatcher) observer(runCtx context.Context, watch *model.PaymentWatch) PaymentObserver {
	saveCtx := context.WithoutCancel(runCtx)
	save := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.active[watch.RequestID]; !ok {
			return
		}
		cp := *watch
		if err := w.store.Save(saveCtx, &cp); err != nil {
			logging.With(saveCtx, w.log).Warn().Err(err).Int64("payment_request_id", watch.RequestID).Msg("payment watch not saved")
		}
	}
	return ObserverFuncs{
		OnProgress: func(attempt int, status model.PaymentStatus, err error) {
			if runCtx.Err() != nil {
				return
			}
			watch.Attempts = attempt
			if status != "" {
				watch.LastStatus = status
			}
			watch.UpdatedAt = w.now()
			save()
		},
		OnDone: func(outcome model.PaymentOutcome, last model.PaymentStatus) {
			if outcome == model.OutcomeCancelled {
				return
			}
			if last != "" {
				watch.LastStatus = last
			}
			if watch.Finish(outcome, w.now()) {
				save()
			}
		},
	}
}

// Get returns the watch if it belongs to sess; anything else is
// domain.ErrNotWatched.
func (w *PaymentWatcher) Get(ctx context.Context, sess *model.Session, requestID int64) (*model.PaymentWatch, error) {
	watch, err := w.store.Get(ctx, requestID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotWatched
	}
	if err != nil {
		return nil, err
	}
	if watch.SessionID != sess.ID {
		return nil, domain.ErrNotWatched
	}
	return watch, nil
}

// Stop cancels tracking and drops the record. No status request for
// requestID is issued by this watcher afterwards.
func (w *PaymentWatcher) Stop(ctx context.Context, sess *model.Session, requestID int64) error {
	if _, err := w.Get(ctx, sess, requestID); err != nil {
		return err
	}
	w.mu.Lock()
	cancel, ok := w.active[requestID]
	delete(w.active, requestID)
	w.mu.Unlock()
	if ok {
		cancel()
	}
	logging.With(ctx, w.log).Info().Int64("payment_request_id", requestID).Msg("payment watch stopped")
	return w.store.Delete(ctx, requestID)
}

// StopAll cancels every tracker started by this watcher.
func (w *PaymentWatcher) StopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, cancel := range w.active {
		cancel()
		delete(w.active, id)
	}
}

// Active reports how many trackers are running.
func (w *PaymentWatcher) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.active)
}

func (w *PaymentWatcher) forget(requestID int64) {
	w.mu.Lock()
	cancel, ok := w.active[requestID]
	delete(w.active, requestID)
	w.mu.Unlock()
	if ok {
		cancel()
	}
}

func (w *PaymentWatcher) unlock(ctx context.Context, requestID int64, token string) {
	if w.locker == nil || token == "" {
		return
	}
	if err := w.locker.Unlock(ctx, watchLockKey(requestID), token); err != nil {
		logging.With(ctx, w.log).Warn().Err(err).Int64("payment_request_id", requestID).Msg("payment watch unlock failed")
	}
}
