package service

import (
	"context"
	"testing"
	"time"

	"taxi-client/internal/domain/notification"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/general/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource hands a fixed list of deliveries to the handler and records what it returned.
type fakeSource struct {
	deliveries []amqp.Delivery
	results    []error
	queue      string
}

func (s *fakeSource) Consume(ctx context.Context, queue, tag string, prefetch int, handler rabbitmq.DeliveryHandler) error {
	s.queue = queue
	for _, d := range s.deliveries {
		s.results = append(s.results, handler(ctx, d))
	}
	return nil
}

func TestConsumer_Run(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	src := &fakeSource{deliveries: []amqp.Delivery{
		{Body: []byte(`{"notificationType":"taxiRequestStatusChanged","taxiRequestId":"tr-1"}`)},
		{Body: []byte(`not json`)},
		{Body: []byte(`{"notificationType":"taxiRequestStatusChanged"}`)},
		{Headers: amqp.Table{"notificationType": "taxiRequestStatusChanged", "taxiRequestId": "tr-2"}},
		{Body: []byte(`{"notificationType":"taxiRequestStatusChanged","taxiRequestId":"tr-3"}`), Timestamp: now.Add(-time.Hour)},
		{Body: []byte(`{"notificationType":"taxiRequestStatusChanged","taxiRequestId":"tr-4","sentAt":1777622400000}`)},
		{Body: []byte(`{"notificationType":"somethingElse","taxiRequestId":"tr-5"}`)},
	}}
	pub := &recordingPublisher{}
	c := NewConsumer(logger.Discard(), src, NewPipeline(logger.Discard(), pub, 30*time.Second, 0), "push_notifications", 4)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, "push_notifications", src.queue)

	require.Len(t, src.results, 7)
	assert.NoError(t, src.results[0])
	assert.ErrorIs(t, src.results[1], ErrUndecodable)
	assert.ErrorIs(t, src.results[2], ErrMalformedPayload)
	assert.NoError(t, src.results[3])
	assert.NoError(t, src.results[4], "stale messages are acked and dropped")
	assert.NoError(t, src.results[5])
	assert.NoError(t, src.results[6])

	ids := make([]string, 0, len(pub.events))
	for _, e := range pub.events {
		ids = append(ids, e.TaxiRequestID)
	}
	// tr-4 was sent at 2026-05-01T08:00:00Z, exactly now
	assert.Equal(t, []string{"tr-1", "tr-2", "tr-4"}, ids)
}

func TestDecodeDelivery_StringifiesValues(t *testing.T) {
	p, err := decodeDelivery(amqp.Delivery{Body: []byte(`{"a":"x","n":12,"b":true,"z":null}`)})
	require.NoError(t, err)
	assert.Equal(t, notification.Payload{"a": "x", "n": "12", "b": "true", "z": ""}, p)
}
