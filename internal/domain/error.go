package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("entity already exists")

	// Backend interaction
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("request rejected by backend")
	ErrTransport    = errors.New("backend unreachable")

	// Voucher lifecycle
	ErrVoucherNotFound = errors.New("voucher not found")
	ErrVoucherUsed     = errors.New("voucher already used")
	ErrVoucherExpired  = errors.New("voucher has expired")
	ErrVoucherNoPlan   = errors.New("voucher is not linked to a plan")

	// Portal / payment flow
	ErrNoLoginURL     = errors.New("router login url was not captured")
	ErrRateLimited    = errors.New("too many attempts")
	ErrPollCapReached = errors.New("payment status polling cap reached")
	ErrNotWatched     = errors.New("payment request is not being watched")
)

// ServerMessager is implemented by errors that carry text supplied by the
// billing backend, which is shown to users verbatim.
type ServerMessager interface {
	ServerMessage() string
}

// ServerMessage extracts backend-supplied text from err, or "".
func ServerMessage(err error) string {
	var sm ServerMessager
	if errors.As(err, &sm) {
		return sm.ServerMessage()
	}
	return ""
}
