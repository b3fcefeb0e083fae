package model

import "time"

// Default gateway values used when the redirect did not carry them.
const (
	DefaultLoginURL = "http://10.5.50.1/login"
	DefaultDst      = "http://google.com"
)

// HotspotStatus is the backend's view of a device.
type HotspotStatus struct {
	Active   bool   `json:"active"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// RouterLogin is a one-way credential submission to the gateway's login
// action. Nothing is learned about whether the router accepted it.
type RouterLogin struct {
	Action   string
	Username string
	Password string
	Dst      string
}

// PortalStage is the coarse state the captive portal page is in.
type PortalStage string

const (
	PortalChecking    PortalStage = "checking"
	PortalActive      PortalStage = "active"   // router login dispatched or already authorized
	PortalInactive    PortalStage = "inactive" // purchase / redeem UI
	PortalPaymentSent PortalStage = "payment_sent"
)

// PortalView is everything the portal page needs to render one response.
type PortalView struct {
	Stage   PortalStage
	Message string // translation key or verbatim server text
	// Verbatim marks Message as server-supplied text that must not be translated.
	Verbatim bool
	IsError  bool
	Login    *RouterLogin // set when the response must post credentials to the router
	Plans    []*Plan
	Params   PortalParams
}

type ActivationKind string

const (
	ActivationDeviceCheck ActivationKind = "device_check"
	ActivationRedeem      ActivationKind = "redeem"
	ActivationPayment     ActivationKind = "payment"
	ActivationRouterLogin ActivationKind = "router_login"
)

// ActivationEvent is one line of the portal's audit trail.
type ActivationEvent struct {
	ID        string         `json:"id"`
	Kind      ActivationKind `json:"kind"`
	SessionID string         `json:"session_id"`
	MAC       string         `json:"mac,omitempty"`
	Subject   string         `json:"subject,omitempty"` // redacted voucher code, payment request id, username
	Outcome   string         `json:"outcome"`
	Detail    string         `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
