package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/infra/logging"
)

// Compile-time check
var _ BatchUseCase = (*batchUC)(nil)

// BatchUseCase is the staff side of voucher management. The backend decides
// who is staff; the portal only insists on a logged-in session.
type BatchUseCase interface {
	Generate(ctx context.Context, sess *model.Session, req model.GenerateRequest) (*model.VoucherBatch, error)
	ListBatches(ctx context.Context, sess *model.Session) ([]*model.VoucherBatch, error)
	// Batch returns the batch with its vouchers attached.
	Batch(ctx context.Context, sess *model.Session, id int64) (*model.VoucherBatch, error)
}

type batchUC struct {
	backend adapter.BillingBackend
	log     *zerolog.Logger
}

func NewBatchUseCase(backend adapter.BillingBackend, logger *zerolog.Logger) *batchUC {
	return &batchUC{backend: backend, log: logger}
}

func (u *batchUC) Generate(ctx context.Context, sess *model.Session, req model.GenerateRequest) (*model.VoucherBatch, error) {
	defer logging.TraceDuration(u.log, "BatchUC.Generate")()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("quantity and a plan or positive value are required: %w", err)
	}
	if !sess.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	b, err := u.backend.GenerateVouchers(ctx, sess.AccessToken(), req)
	if err != nil {
		return nil, fmt.Errorf("generate vouchers: %w", err)
	}
	logging.With(ctx, u.log).Info().
		Int64("batch_id", b.ID).
		Int("quantity", b.Quantity).
		Str("by", sess.Username).
		Msg("voucher batch generated")
	return b, nil
}

func (u *batchUC) ListBatches(ctx context.Context, sess *model.Session) ([]*model.VoucherBatch, error) {
	if !sess.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	return u.backend.ListBatches(ctx, sess.AccessToken())
}

func (u *batchUC) Batch(ctx context.Context, sess *model.Session, id int64) (*model.VoucherBatch, error) {
	if !sess.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	if id <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	batches, err := u.backend.ListBatches(ctx, sess.AccessToken())
	if err != nil {
		return nil, err
	}
	var batch *model.VoucherBatch
	for _, b := range batches {
		if b.ID == id {
			batch = b
			break
		}
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %d: %w", id, domain.ErrNotFound)
	}
	vouchers, err := u.backend.BatchVouchers(ctx, sess.AccessToken(), id)
	if err != nil {
		return nil, err
	}
	batch.Vouchers = vouchers
	return batch, nil
}
