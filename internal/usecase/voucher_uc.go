package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/domain/ports/repository"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/infra/metrics"
)

// Compile-time check
var _ VoucherUseCase = (*voucherUC)(nil)

// RedeemOutcome is what the portal renders after a successful redemption.
type RedeemOutcome struct {
	Result *model.RedeemResult
	// Login is set when the device should be logged into the router now.
	Login *model.RouterLogin
	// Declined is true when tokens were issued but no router login URL was
	// captured, so no form could be produced.
	Declined bool
	// Check holds the re-run device check when the backend issued no tokens.
	Check *model.PortalView
}

// VoucherUseCase redeems prepaid codes from the captive portal.
type VoucherUseCase interface {
	Redeem(ctx context.Context, sess *model.Session, code string) (*RedeemOutcome, error)
}

// RedeemLimit bounds redemption attempts per device within Window. Limit 0
// disables the check.
type RedeemLimit struct {
	Limit  int
	Window time.Duration
}

type voucherUC struct {
	backend   adapter.BillingBackend
	sessions  repository.SessionStore
	bridge    adapter.RouterLoginBridge
	limiter   adapter.RateLimiter
	inspector adapter.TokenInspector
	portal    PortalUseCase
	limit     RedeemLimit
	audit     *recorder
	log       *zerolog.Logger
	dev       bool
}

func NewVoucherUseCase(
	backend adapter.BillingBackend,
	sessions repository.SessionStore,
	bridge adapter.RouterLoginBridge,
	limiter adapter.RateLimiter,
	inspector adapter.TokenInspector,
	portal PortalUseCase,
	limit RedeemLimit,
	activity repository.ActivationLogRepository,
	logger *zerolog.Logger,
	dev bool,
) *voucherUC {
	return &voucherUC{
		backend:   backend,
		sessions:  sessions,
		bridge:    bridge,
		limiter:   limiter,
		inspector: inspector,
		portal:    portal,
		limit:     limit,
		audit:     newRecorder(activity, logger),
		log:       logger,
		dev:       dev,
	}
}

func redeemKey(sess *model.Session) string {
	if sess.Portal.MAC != "" {
		return "rate_limit:redeem:mac:" + strings.ToUpper(sess.Portal.MAC)
	}
	return "rate_limit:redeem:sess:" + sess.ID
}

// Redeem is always a guest call. Codes are case sensitive; only surrounding
// whitespace is removed.
func (u *voucherUC) Redeem(ctx context.Context, sess *model.Session, code string) (*RedeemOutcome, error) {
	defer logging.TraceDuration(u.log, "VoucherUC.Redeem")()
	l := logging.With(ctx, u.log)

	code = strings.TrimSpace(code)
	if code == "" {
		metrics.IncRedemption("invalid")
		return nil, fmt.Errorf("voucher code is required: %w", domain.ErrInvalidArgument)
	}
	subject := logging.Redact(code, u.dev)

	if u.limiter != nil && u.limit.Limit > 0 {
		ok, err := u.limiter.Allow(ctx, redeemKey(sess), u.limit.Limit, u.limit.Window)
		if err != nil {
			l.Warn().Err(err).Msg("redeem rate limiter unavailable")
		} else if !ok {
			metrics.IncRedemption("rate_limited")
			u.audit.record(ctx, sess, model.ActivationRedeem, subject, "rate_limited", "")
			return nil, domain.ErrRateLimited
		}
	}

	res, err := u.backend.RedeemVoucher(ctx, "", code)
	if err != nil {
		outcome := "rejected"
		if errors.Is(err, domain.ErrTransport) {
			outcome = "transport"
		}
		metrics.IncRedemption(outcome)
		u.audit.record(ctx, sess, model.ActivationRedeem, subject, outcome, domain.ServerMessage(err))
		l.Info().Err(err).Str("code", subject).Msg("voucher redemption failed")
		return nil, fmt.Errorf("redeem voucher: %w", err)
	}
	metrics.IncRedemption("ok")
	u.audit.record(ctx, sess, model.ActivationRedeem, subject, "ok", res.Message)

	out := &RedeemOutcome{Result: res}
	if !res.Tokens.IsZero() {
		username := code
		if res.Customer != nil && res.Customer.Username != "" {
			username = res.Customer.Username
		}
		authenticate(sess, *res.Tokens, username, u.inspector)
		if err := u.sessions.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		// The router account's password is the voucher code itself.
		out.Login = prepareLogin(ctx, u.bridge, u.audit, u.log, sess, username, code)
		out.Declined = out.Login == nil
		return out, nil
	}

	if sess.Portal.HasDevice() {
		view, err := u.portal.Check(ctx, sess)
		if err != nil {
			return nil, err
		}
		out.Check = view
	}
	return out, nil
}
