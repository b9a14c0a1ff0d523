package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"taxi-client/internal/domain/session"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoAuthHeader       = errors.New("authorization header missing")
	ErrBadAuthScheme      = errors.New("authorization must start with Bearer")
	ErrEmptyToken         = errors.New("bearer token missing")
	ErrInvalidSigningAlgo = errors.New("unexpected signing method")
	ErrActorForbidden     = errors.New("actor type not allowed")
)

// Manager handles JWT creation and validation.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewManager creates a token manager.
func NewManager(secret string, accessTTL time.Duration) *Manager {
	s := strings.TrimSpace(secret)
	if s == "" {
		panic("jwt: empty secret key")
	}

	return &Manager{
		secret:    []byte(s),
		accessTTL: accessTTL,
	}
}

// IssueActorToken returns a signed access token for a rider or driver.
func (m *Manager) IssueActorToken(userID string, actor session.ActorType) (string, *Claims, error) {
	if !actor.Valid() {
		return "", nil, fmt.Errorf("invalid actor type: %s", actor)
	}

	claims := NewActorClaims(userID, actor, m.accessTTL)
	tkn := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := tkn.SignedString(m.secret)

	return signed, claims, err
}

// FromAuthorization reads "Authorization: Bearer <token>".
func FromAuthorization(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if strings.TrimSpace(authHeader) == "" {
		return "", ErrNoAuthHeader
	}
	raw, ok := bearerToken(authHeader)
	if !ok {
		return "", ErrBadAuthScheme
	}
	if raw == "" {
		return "", ErrEmptyToken
	}
	return raw, nil
}

// bearerToken splits "Bearer <token>" and trims only the token, so a blank token is
// reported as such rather than as a bad scheme. ok is false for any other scheme.
func bearerToken(value string) (string, bool) {
	scheme, rest, _ := strings.Cut(strings.TrimLeft(value, " "), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// ParseAndValidate verifies signature and standard claims.
func (m *Manager) ParseAndValidate(tokenString string) (*jwtlib.Token, *Claims, error) {
	parser := jwtlib.NewParser(jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (any, error) {
		if t.Method != jwtlib.SigningMethodHS256 {
			return nil, ErrInvalidSigningAlgo
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, nil, err
	}

	if !token.Valid {
		return nil, nil, errors.New("invalid token")
	}

	return token, claims, nil
}

// Inspect decodes the claims of a token without verifying its signature.
// The client side never holds the backend secret; it only reads the expiry.
func Inspect(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expired reports whether the token carries an exp claim that is before now.
// Tokens that are not JWTs, or have no exp, are never considered expired.
func Expired(tokenString string, now time.Time) bool {
	claims, err := Inspect(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// ActorAllowed asserts the claims' actor type is one of the allowed.
func ActorAllowed(cl *Claims, allowed ...session.ActorType) error {
	if len(allowed) == 0 || slices.Contains(allowed, cl.ActorType) {
		return nil
	}
	return ErrActorForbidden
}

type ctxKey string

const claimsCtxKey ctxKey = "jwtClaims"

// InjectClaims adds JWT claims to the context.
func InjectClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

// FromContext extracts JWT claims from the context.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok
}
