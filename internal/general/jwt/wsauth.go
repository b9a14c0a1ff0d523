package jwt

import (
	"encoding/json"
	"errors"
	"strings"

	"taxi-client/internal/general/contracts"
)

var (
	ErrBadAuthMsg   = errors.New("invalid auth message")
	ErrBadTokenWrap = errors.New("token must be 'Bearer <token>'")
)

// TokenCheck accepts or rejects the raw token of an auth frame.
type TokenCheck func(raw string) (*Claims, error)

type Result struct {
	Claims *Claims
	Raw    string
}

// ValidateWSAuth parses the first websocket frame ({"type":"auth","token":"Bearer <token>"})
// and hands the raw token to check.
func ValidateWSAuth(frame []byte, check TokenCheck) (*Result, error) {
	var msg contracts.WSAuthMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, ErrBadAuthMsg
	}

	if strings.ToLower(strings.TrimSpace(msg.Type)) != "auth" {
		return nil, ErrBadAuthMsg
	}

	raw, ok := bearerToken(msg.Token)
	if !ok {
		return nil, ErrBadTokenWrap
	}
	if raw == "" {
		return nil, ErrEmptyToken
	}
	claims, err := check(raw)
	if err != nil {
		return nil, err
	}

	return &Result{Claims: claims, Raw: raw}, nil
}
