package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/domain/ports/repository"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/infra/metrics"
)

// Message keys rendered by the portal templates.
const (
	MsgChecking      = "portal.checking"
	MsgNoDevice      = "portal.no_device"
	MsgActive        = "portal.active"
	MsgInactive      = "portal.inactive"
	MsgWelcome       = "portal.welcome"
	MsgDevAuthorized = "portal.dev_authorized"
	MsgPaymentSent   = "portal.payment_sent"
)

// Compile-time check
var _ PortalUseCase = (*portalUC)(nil)

// PortalUseCase drives the captive portal page: device check, guest purchase
// and the router login hand-off.
type PortalUseCase interface {
	Check(ctx context.Context, sess *model.Session) (*model.PortalView, error)
	Recheck(ctx context.Context, sess *model.Session) (*model.PortalView, error)
	Buy(ctx context.Context, sess *model.Session, planID int64, phone string) (*model.PortalView, error)
	Plans(ctx context.Context) []*model.Plan
}

type portalUC struct {
	backend  adapter.BillingBackend
	sessions repository.SessionStore
	bridge   adapter.RouterLoginBridge
	payments PaymentUseCase
	audit    *recorder
	log      *zerolog.Logger
}

func NewPortalUseCase(
	backend adapter.BillingBackend,
	sessions repository.SessionStore,
	bridge adapter.RouterLoginBridge,
	payments PaymentUseCase,
	activity repository.ActivationLogRepository,
	logger *zerolog.Logger,
) *portalUC {
	return &portalUC{
		backend:  backend,
		sessions: sessions,
		bridge:   bridge,
		payments: payments,
		audit:    newRecorder(activity, logger),
		log:      logger,
	}
}

// Check never calls the backend without a captured MAC. A failed status
// lookup is treated like an inactive device: the portal fails open to the
// purchase UI.
func (u *portalUC) Check(ctx context.Context, sess *model.Session) (*model.PortalView, error) {
	defer logging.TraceDuration(u.log, "PortalUC.Check")()
	l := logging.With(ctx, u.log)

	view := &model.PortalView{Stage: model.PortalInactive, Params: sess.Portal}
	if !sess.Portal.HasDevice() {
		metrics.IncDeviceCheck("no_device")
		view.Message = MsgNoDevice
		view.Plans = u.Plans(ctx)
		return view, nil
	}

	st, err := u.backend.HotspotStatus(ctx, sess.Portal.MAC)
	switch {
	case err != nil:
		l.Warn().Err(err).Msg("hotspot status check failed")
		metrics.IncDeviceCheck("error")
		u.audit.record(ctx, sess, model.ActivationDeviceCheck, sess.Portal.MAC, "error", err.Error())
		if err := u.toGuest(ctx, sess); err != nil {
			return nil, err
		}
		view.Message = MsgWelcome
		view.Plans = u.Plans(ctx)
		return view, nil

	case st.Active:
		metrics.IncDeviceCheck("active")
		u.audit.record(ctx, sess, model.ActivationDeviceCheck, sess.Portal.MAC, "active", st.Username)
		view.Stage = model.PortalActive
		view.Message = MsgActive
		view.Login = u.routerLogin(ctx, sess, st.Username, st.Password)
		if view.Login == nil {
			view.Message = MsgDevAuthorized
		}
		return view, nil

	default:
		metrics.IncDeviceCheck("inactive")
		u.audit.record(ctx, sess, model.ActivationDeviceCheck, sess.Portal.MAC, "inactive", "")
		if err := u.toGuest(ctx, sess); err != nil {
			return nil, err
		}
		view.Message = MsgInactive
		view.Plans = u.Plans(ctx)
		return view, nil
	}
}

func (u *portalUC) Recheck(ctx context.Context, sess *model.Session) (*model.PortalView, error) {
	return u.Check(ctx, sess)
}

// Buy starts an STK push for the captured device as a guest. The portal does
// not poll: activation shows up on the next device check.
func (u *portalUC) Buy(ctx context.Context, sess *model.Session, planID int64, phone string) (*model.PortalView, error) {
	defer logging.TraceDuration(u.log, "PortalUC.Buy")()

	if _, err := u.payments.Initiate(ctx, sess.Guest(), planID, phone, sess.Portal.MAC); err != nil {
		return nil, err
	}
	return &model.PortalView{
		Stage:   model.PortalPaymentSent,
		Message: MsgPaymentSent,
		Params:  sess.Portal,
	}, nil
}

// Plans is a guest call; any failure yields an empty list.
func (u *portalUC) Plans(ctx context.Context) []*model.Plan {
	plans, err := u.backend.ListPlans(ctx, "")
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("failed to fetch plans")
		return []*model.Plan{}
	}
	return plans
}

// toGuest clears stale credentials so later purchases go out as a guest.
func (u *portalUC) toGuest(ctx context.Context, sess *model.Session) error {
	if sess.Tokens == nil && sess.State == model.SessionAnonymous {
		return nil
	}
	sess.Clear()
	return u.sessions.Save(ctx, sess)
}

// routerLogin prepares the gateway login or returns nil when the bridge
// declined because no login URL was captured.
func (u *portalUC) routerLogin(ctx context.Context, sess *model.Session, username, password string) *model.RouterLogin {
	return prepareLogin(ctx, u.bridge, u.audit, u.log, sess, username, password)
}

func prepareLogin(ctx context.Context, bridge adapter.RouterLoginBridge, audit *recorder, logger *zerolog.Logger, sess *model.Session, username, password string) *model.RouterLogin {
	login, err := bridge.Prepare(sess.Portal, username, password)
	if err != nil {
		if !errors.Is(err, domain.ErrNoLoginURL) {
			logging.With(ctx, logger).Warn().Err(err).Msg("router login not prepared")
		}
		metrics.IncRouterLogin("declined")
		audit.record(ctx, sess, model.ActivationRouterLogin, username, "declined", err.Error())
		return nil
	}
	metrics.IncRouterLogin("dispatched")
	audit.record(ctx, sess, model.ActivationRouterLogin, username, "dispatched", login.Action)
	return login
}
