package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hotspot-portal/internal/domain/ports/adapter"
)

var _ adapter.TokenInspector = JWTInspector{}

// JWTInspector reads the exp claim of backend-issued access tokens without
// verifying the signature; the portal never holds the backend's key.
type JWTInspector struct{}

func (JWTInspector) Expiry(accessToken string) *time.Time {
	if accessToken == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
