// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/domain/ports/repository"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase starts M-Pesa STK push payments.
type PaymentUseCase interface {
	// Initiate returns the backend's payment request id. The bearer token is
	// taken from sess; pass sess.Guest() for guest purchases.
	Initiate(ctx context.Context, sess *model.Session, planID int64, phone, mac string) (int64, error)
}

type paymentUC struct {
	backend adapter.BillingBackend
	audit   *recorder
	log     *zerolog.Logger
	dev     bool
}

func NewPaymentUseCase(backend adapter.BillingBackend, activity repository.ActivationLogRepository, logger *zerolog.Logger, dev bool) *paymentUC {
	return &paymentUC{backend: backend, audit: newRecorder(activity, logger), log: logger, dev: dev}
}

func (u *paymentUC) Initiate(ctx context.Context, sess *model.Session, planID int64, phone, mac string) (int64, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Initiate")()

	if planID <= 0 {
		metrics.IncPaymentInitiation("invalid")
		return 0, fmt.Errorf("plan is required: %w", domain.ErrInvalidArgument)
	}
	// Sent as typed: the backend formats it and reuses it as guest credentials.
	if strings.TrimSpace(phone) == "" {
		metrics.IncPaymentInitiation("invalid")
		return 0, fmt.Errorf("phone number is required: %w", domain.ErrInvalidArgument)
	}

	id, err := u.backend.InitiatePayment(ctx, sess.AccessToken(), model.InitiatePayment{
		PlanID:      planID,
		PhoneNumber: phone,
		MACAddress:  mac,
	})
	if err != nil {
		result := "rejected"
		if errors.Is(err, domain.ErrTransport) {
			result = "error"
		}
		metrics.IncPaymentInitiation(result)
		u.audit.record(ctx, sess, model.ActivationPayment, logging.Redact(phone, u.dev), "initiate_"+result, domain.ServerMessage(err))
		return 0, fmt.Errorf("initiate payment: %w", err)
	}
	metrics.IncPaymentInitiation("ok")
	u.audit.record(ctx, sess, model.ActivationPayment, strconv.FormatInt(id, 10), "initiated", "plan "+strconv.FormatInt(planID, 10))
	logging.With(ctx, u.log).Info().Int64("payment_request_id", id).Int64("plan_id", planID).Msg("stk push initiated")
	return id, nil
}
