package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxi-client/internal/domain/notification"
	"taxi-client/internal/general/logger"
)

var ErrMalformedPayload = errors.New("push payload is missing taxiRequestId")

// EventPublisher receives the events the pipeline produces. *eventbus.Bus satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event notification.TaxiRequestStatusChanged) error
}

// Disposition says what Ingest did with a message.
type Disposition int

const (
	Ignored Disposition = iota
	Stale
	Published
)

func (d Disposition) String() string {
	switch d {
	case Ignored:
		return "ignored"
	case Stale:
		return "stale"
	case Published:
		return "published"
	default:
		return fmt.Sprintf("disposition(%d)", int(d))
	}
}

// Message is one push delivery. SentAt is zero when the transport did not carry one;
// the payload's sentAt key is consulted in that case.
type Message struct {
	Payload    notification.Payload
	SentAt     time.Time
	ReceivedAt time.Time
}

// Pipeline turns push messages into TaxiRequestStatusChanged events. It keeps no state.
type Pipeline struct {
	logger    *logger.Logger
	events    EventPublisher
	maxAge    time.Duration
	clockSkew time.Duration
}

// NewPipeline builds a pipeline. maxAge <= 0 disables the staleness check.
func NewPipeline(log *logger.Logger, events EventPublisher, maxAge, clockSkew time.Duration) *Pipeline {
	return &Pipeline{logger: log, events: events, maxAge: maxAge, clockSkew: clockSkew}
}

// Ingest filters msg and publishes at most one event for it.
func (p *Pipeline) Ingest(ctx context.Context, msg Message) (Disposition, error) {
	if msg.Payload.Type() != notification.TypeTaxiRequestStatusChanged {
		return Ignored, nil
	}

	id := msg.Payload.TaxiRequestID()
	if id == "" {
		p.logger.Error(ctx, "push_malformed", "Status change push has no taxi request id", ErrMalformedPayload,
			map[string]any{"keys": payloadKeys(msg.Payload)})
		return Ignored, ErrMalformedPayload
	}
	ctx = logger.WithTaxiRequestID(ctx, id)

	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt, _ = msg.Payload.SentAt()
	}
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	if p.stale(sentAt, receivedAt) {
		p.logger.Info(ctx, "push_stale", "Dropped outdated status change push", map[string]any{
			"sent_at":     sentAt,
			"received_at": receivedAt,
			"age":         receivedAt.Sub(sentAt).String(),
		})
		return Stale, nil
	}

	event := notification.NewTaxiRequestStatusChanged(id, sentAt, receivedAt)
	if err := p.events.Publish(ctx, event); err != nil {
		p.logger.Error(ctx, "push_publish_failed", "Failed to publish status change event", err, nil)
		return Ignored, fmt.Errorf("publish status change: %w", err)
	}

	p.logger.Debug(ctx, "push_published", "Status change event published", map[string]any{"event_id": event.ID.String()})
	return Published, nil
}

func (p *Pipeline) stale(sentAt, receivedAt time.Time) bool {
	if p.maxAge <= 0 || sentAt.IsZero() {
		return false
	}
	return receivedAt.Sub(sentAt) > p.maxAge+p.clockSkew
}

func payloadKeys(p notification.Payload) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}
