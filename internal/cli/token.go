package cli

import (
	"fmt"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/jwt"
)

// GenerateActorToken mints a JWT for a stub-api account, the same shape the stub issues on login.
//
//	token, _, err := cli.GenerateActorToken(secret, 2*time.Hour,
//	    "550e8400-e29b-41d4-a716-446655440001", "RIDER")
//
// Dev only.
func GenerateActorToken(secret string, ttl time.Duration, userID string, actorStr string) (string, jwt.Claims, error) {
	actor, err := session.ParseActorType(actorStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid actor type %q: %w", actorStr, err)
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	mgr := jwt.NewManager(secret, ttl)
	token, claims, err := mgr.IssueActorToken(userID, actor)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
