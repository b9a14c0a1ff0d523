package notification

import (
	"time"

	"github.com/google/uuid"
)

// TaxiRequestStatusChanged tells subscribers that the backend changed the status of a
// taxi request and the authoritative state should be fetched again.
type TaxiRequestStatusChanged struct {
	ID            uuid.UUID
	TaxiRequestID string
	SentAt        time.Time // zero when the transport did not say
	ReceivedAt    time.Time
}

// NewTaxiRequestStatusChanged builds an event for a non-empty taxi request id.
func NewTaxiRequestStatusChanged(taxiRequestID string, sentAt, receivedAt time.Time) TaxiRequestStatusChanged {
	return TaxiRequestStatusChanged{
		ID:            uuid.New(),
		TaxiRequestID: taxiRequestID,
		SentAt:        sentAt,
		ReceivedAt:    receivedAt,
	}
}
