package adapter

import (
	"context"

	"hotspot-portal/internal/domain/model"
)

// BillingBackend is the hex port for the ISP billing REST API.
//
// accessToken is the caller's bearer token; pass "" for guest calls. Errors
// unwrap to domain.ErrUnauthorized, domain.ErrRejected (server message
// available through errors.As on the concrete error) or domain.ErrTransport.
type BillingBackend interface {
	// RedeemVoucher consumes a voucher code. A code succeeds at most once.
	RedeemVoucher(ctx context.Context, accessToken, code string) (*model.RedeemResult, error)
	// InitiatePayment triggers an STK push and returns the payment request id.
	InitiatePayment(ctx context.Context, accessToken string, in model.InitiatePayment) (int64, error)
	PaymentStatus(ctx context.Context, accessToken string, requestID int64) (model.PaymentStatus, error)
	HotspotStatus(ctx context.Context, mac string) (*model.HotspotStatus, error)
	ListPlans(ctx context.Context, accessToken string) ([]*model.Plan, error)
	// Login exchanges customer or staff credentials for tokens.
	Login(ctx context.Context, username, password string) (*model.AuthResult, error)

	// Admin
	GenerateVouchers(ctx context.Context, accessToken string, req model.GenerateRequest) (*model.VoucherBatch, error)
	ListBatches(ctx context.Context, accessToken string) ([]*model.VoucherBatch, error)
	BatchVouchers(ctx context.Context, accessToken string, batchID int64) ([]*model.Voucher, error)
}
