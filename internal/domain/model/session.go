package model

import (
	"net/url"
	"time"
)

type SessionState string

const (
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

// PortalParams are the values the gateway appends when it redirects a
// device to the captive portal.
type PortalParams struct {
	MAC       string `json:"mac,omitempty"`
	LinkLogin string `json:"link_login,omitempty"` // URL-decoded
	LinkOrig  string `json:"link_orig,omitempty"`
}

// HasLoginURL reports whether the gateway told us where to post credentials.
func (p PortalParams) HasLoginURL() bool { return p.LinkLogin != "" }

// HasDevice reports whether the gateway identified the device.
func (p PortalParams) HasDevice() bool { return p.MAC != "" }

// ParsePortalParams reads mac|mac_esc, link-login|link_login and
// link-orig|link_orig, preferring the hyphenated spelling.
func ParsePortalParams(q url.Values) PortalParams {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := q.Get(k); v != "" {
				return v
			}
		}
		return ""
	}
	p := PortalParams{
		MAC:       first("mac", "mac_esc"),
		LinkLogin: first("link-login", "link_login"),
		LinkOrig:  first("link-orig", "link_orig"),
	}
	if p.LinkLogin != "" {
		if dec, err := url.QueryUnescape(p.LinkLogin); err == nil {
			p.LinkLogin = dec
		}
	}
	return p
}

// Session is the explicit per-browser context handed to use cases in place
// of ambient token storage.
type Session struct {
	ID        string       `json:"id"`
	State     SessionState `json:"state"`
	Tokens    *Tokens      `json:"tokens,omitempty"`
	Username  string       `json:"username,omitempty"`
	Portal    PortalParams `json:"portal"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"` // access token expiry, when known
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, State: SessionAnonymous, CreatedAt: now, UpdatedAt: now}
}

// IsAuthenticated is true while the session holds a usable access token.
func (s *Session) IsAuthenticated() bool {
	if s == nil || s.State != SessionAuthenticated || s.Tokens.IsZero() {
		return false
	}
	if s.ExpiresAt != nil && s.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// AccessToken returns the bearer token or "" for guests.
func (s *Session) AccessToken() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.Tokens.Access
}

func (s *Session) Authenticate(t Tokens, username string, expiresAt *time.Time) {
	s.State = SessionAuthenticated
	s.Tokens = &t
	s.Username = username
	s.ExpiresAt = expiresAt
	s.UpdatedAt = time.Now()
}

// Clear drops credentials and returns the session to guest mode.
// Captured portal parameters survive.
func (s *Session) Clear() {
	s.State = SessionAnonymous
	s.Tokens = nil
	s.Username = ""
	s.ExpiresAt = nil
	s.UpdatedAt = time.Now()
}

// ResetPortal replaces the gateway parameters with p, empty values included.
// Used on every portal load so a stale MAC is never checked.
func (s *Session) ResetPortal(p PortalParams) {
	s.Portal = p
	s.UpdatedAt = time.Now()
}

// Guest returns a copy without credentials, for calls that must never carry
// a bearer token.
func (s *Session) Guest() *Session {
	cp := *s
	cp.Tokens = nil
	cp.State = SessionAnonymous
	cp.Username = ""
	cp.ExpiresAt = nil
	return &cp
}
