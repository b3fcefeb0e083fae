package adapter

import (
	"context"
	"time"

	"hotspot-portal/internal/domain/model"
)

// RouterLoginBridge turns credentials into a one-shot gateway login.
// Prepare returns domain.ErrNoLoginURL when the portal never captured the
// gateway's login action.
type RouterLoginBridge interface {
	Prepare(params model.PortalParams, username, password string) (*model.RouterLogin, error)
}

// RateLimiter counts attempts per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// TokenInspector extracts the expiry of an access token when it can.
type TokenInspector interface {
	Expiry(accessToken string) *time.Time
}

// Locker is a best-effort distributed mutex keyed by string.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// TokenSealer encrypts credentials before they are persisted.
type TokenSealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
