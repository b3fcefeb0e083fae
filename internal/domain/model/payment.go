package model

import "time"

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated" // created, STK push not yet acknowledged
	PaymentStatusPending   PaymentStatus = "pending"   // STK push sent; awaiting M-Pesa callback
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusTimeout   PaymentStatus = "timeout"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsTerminal reports whether the status is final for its request.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusTimeout, PaymentStatusCancelled:
		return true
	}
	return false
}

func (s PaymentStatus) IsSuccess() bool { return s == PaymentStatusCompleted }

// PaymentRequest is the server-owned STK push request. The client only ever
// holds its id and the last status it observed.
type PaymentRequest struct {
	ID          int64         `json:"id"`
	PlanID      int64         `json:"plan"`
	PhoneNumber string        `json:"phone_number"`
	MACAddress  string        `json:"mac_address,omitempty"`
	Status      PaymentStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// InitiatePayment is the purchase intent submitted to the backend.
type InitiatePayment struct {
	PlanID      int64  `json:"plan_id"`
	PhoneNumber string `json:"phone_number"`
	MACAddress  string `json:"mac_address,omitempty"`
}

// PaymentOutcome is how a tracking run ended.
type PaymentOutcome string

const (
	OutcomeCompleted PaymentOutcome = "completed"
	OutcomeFailed    PaymentOutcome = "failed"
	OutcomeTimeout   PaymentOutcome = "timeout"
	OutcomeAbandoned PaymentOutcome = "abandoned" // client-side cap reached
	OutcomeCancelled PaymentOutcome = "cancelled" // tracker stopped by caller
)

// OutcomeFor maps a terminal backend status to a tracking outcome.
func OutcomeFor(s PaymentStatus) PaymentOutcome {
	switch s {
	case PaymentStatusCompleted:
		return OutcomeCompleted
	case PaymentStatusTimeout:
		return OutcomeTimeout
	default:
		return OutcomeFailed
	}
}

// PaymentViewState is what the customer payment page renders.
type PaymentViewState string

const (
	PaymentViewIdle    PaymentViewState = "idle"
	PaymentViewPending PaymentViewState = "pending"
	PaymentViewSuccess PaymentViewState = "success"
	PaymentViewFailed  PaymentViewState = "failed"
)

// PaymentWatch is the recorded progress of one tracked payment request.
type PaymentWatch struct {
	RequestID  int64            `json:"request_id"`
	SessionID  string           `json:"session_id"`
	PlanID     int64            `json:"plan_id"`
	State      PaymentViewState `json:"state"`
	LastStatus PaymentStatus    `json:"last_status,omitempty"`
	Outcome    PaymentOutcome   `json:"outcome,omitempty"`
	Attempts   int              `json:"attempts"`
	StartedAt  time.Time        `json:"started_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Finish records a terminal outcome and reports whether this call made the
// transition (false when the watch was already finished).
func (w *PaymentWatch) Finish(outcome PaymentOutcome, now time.Time) bool {
	if w.State == PaymentViewSuccess || w.State == PaymentViewFailed {
		return false
	}
	w.Outcome = outcome
	if outcome == OutcomeCompleted {
		w.State = PaymentViewSuccess
	} else {
		w.State = PaymentViewFailed
	}
	w.UpdatedAt = now
	return true
}
