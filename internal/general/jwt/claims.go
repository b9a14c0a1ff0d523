package jwt

import (
	"time"

	"taxi-client/internal/domain/session"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims defines the session token payload.
type Claims struct {
	ActorType session.ActorType `json:"actor_type"` // RIDER | DRIVER
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewActorClaims constructs claims for a logged-in rider or driver.
func NewActorClaims(userID string, actor session.ActorType, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		ActorType: actor,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
