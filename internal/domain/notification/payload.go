package notification

import (
	"strconv"
	"strings"
	"time"
)

// Keys of the string map carried by a push message.
const (
	KeyNotificationType = "notificationType"
	KeyTaxiRequestID    = "taxiRequestId"
	KeySentAt           = "sentAt"
)

// TypeTaxiRequestStatusChanged is the discriminator value of the only message type this
// process turns into a domain event.
const TypeTaxiRequestStatusChanged = "taxiRequestStatusChanged"

// Payload is an opaque push message as delivered by the transport.
type Payload map[string]string

// Type returns the trimmed discriminator, or "" when absent.
func (p Payload) Type() string {
	return strings.TrimSpace(p[KeyNotificationType])
}

// TaxiRequestID returns the trimmed request id, or "" when absent.
func (p Payload) TaxiRequestID() string {
	return strings.TrimSpace(p[KeyTaxiRequestID])
}

// SentAt parses the optional send time (RFC 3339 or unix milliseconds).
// ok is false when the key is missing or unparsable.
func (p Payload) SentAt() (time.Time, bool) {
	raw := strings.TrimSpace(p[KeySentAt])
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC(), true
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}
