package model

import (
	"time"

	"github.com/shopspring/decimal"

	"hotspot-portal/internal/domain"
)

type VoucherStatus string

const (
	VoucherStatusActive  VoucherStatus = "active"
	VoucherStatusUsed    VoucherStatus = "used"
	VoucherStatusExpired VoucherStatus = "expired"
)

// IsTerminal reports whether no further transition is possible.
func (s VoucherStatus) IsTerminal() bool {
	return s == VoucherStatusUsed || s == VoucherStatusExpired
}

// Voucher is a single-use prepaid access code. Codes are case sensitive.
type Voucher struct {
	ID         int64           `json:"id"`
	BatchID    int64           `json:"batch,omitempty"`
	PlanID     *int64          `json:"plan,omitempty"`
	Code       string          `json:"code"`
	Amount     decimal.Decimal `json:"amount"`
	Status     VoucherStatus   `json:"status"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	UsedBy     *string         `json:"used_by,omitempty"`
	UsedAt     *time.Time      `json:"used_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CanRedeem validates the active -> used transition at the given instant.
func (v *Voucher) CanRedeem(now time.Time) error {
	switch v.Status {
	case VoucherStatusUsed:
		return domain.ErrVoucherUsed
	case VoucherStatusExpired:
		return domain.ErrVoucherExpired
	}
	if v.ExpiryDate != nil && v.ExpiryDate.Before(now) {
		return domain.ErrVoucherExpired
	}
	if v.PlanID == nil {
		return domain.ErrVoucherNoPlan
	}
	return nil
}

// Redeem moves an active voucher to used. It succeeds at most once.
func (v *Voucher) Redeem(by string, now time.Time) error {
	if err := v.CanRedeem(now); err != nil {
		return err
	}
	v.Status = VoucherStatusUsed
	v.UsedBy = &by
	v.UsedAt = &now
	return nil
}

// Expire moves an active voucher past its expiry date to expired.
// It reports whether a transition happened.
func (v *Voucher) Expire(now time.Time) bool {
	if v.Status != VoucherStatusActive || v.ExpiryDate == nil || !v.ExpiryDate.Before(now) {
		return false
	}
	v.Status = VoucherStatusExpired
	return true
}

// VoucherBatch is a generated set of vouchers sharing a plan/value.
type VoucherBatch struct {
	ID          int64           `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Quantity    int             `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
	PlanID      *int64          `json:"plan,omitempty"`
	PlanName    string          `json:"plan_name,omitempty"`
	Note        string          `json:"note"`
	GeneratedBy string          `json:"generated_by,omitempty"`
	Vouchers    []*Voucher      `json:"vouchers,omitempty"`
}

// CountByStatus tallies the batch's vouchers per status.
func (b *VoucherBatch) CountByStatus() map[VoucherStatus]int {
	out := make(map[VoucherStatus]int, 3)
	for _, v := range b.Vouchers {
		out[v.Status]++
	}
	return out
}

// GenerateRequest is the admin's intent to mint a batch.
// Exactly one of PlanID or Value is expected; PlanID wins when both are set.
type GenerateRequest struct {
	Quantity int              `json:"quantity"`
	PlanID   *int64           `json:"plan_id,omitempty"`
	Value    *decimal.Decimal `json:"value,omitempty"`
	Note     string           `json:"note,omitempty"`
}

func (r GenerateRequest) Validate() error {
	if r.Quantity <= 0 {
		return domain.ErrInvalidArgument
	}
	if r.PlanID != nil {
		if *r.PlanID <= 0 {
			return domain.ErrInvalidArgument
		}
		return nil
	}
	if r.Value == nil || !r.Value.IsPositive() {
		return domain.ErrInvalidArgument
	}
	return nil
}

// Tokens is the access/refresh pair issued for auto-provisioned accounts.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (t *Tokens) IsZero() bool { return t == nil || t.Access == "" }

// Customer is the identity returned alongside a redemption.
type Customer struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
}

// RedeemResult is the backend's answer to a successful redemption.
type RedeemResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Tokens   *Tokens   `json:"tokens,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
}

// AuthResult is the backend's answer to a username/password login.
type AuthResult struct {
	Tokens   Tokens    `json:"tokens"`
	Customer *Customer `json:"customer,omitempty"`
	IsStaff  bool      `json:"is_staff,omitempty"`
}
