package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taxi-client/internal/domain/notification"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/general/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "taxi-agent-push"

var ErrUndecodable = errors.New("push delivery is not a string map")

// DeliverySource is the part of rabbitmq.Client the consumer needs.
type DeliverySource interface {
	Consume(ctx context.Context, queue, consumerTag string, prefetch int, handler rabbitmq.DeliveryHandler) error
}

// Consumer feeds AMQP deliveries into a Pipeline.
type Consumer struct {
	logger   *logger.Logger
	source   DeliverySource
	pipeline *Pipeline
	queue    string
	prefetch int
	now      func() time.Time
}

func NewConsumer(log *logger.Logger, source DeliverySource, pipeline *Pipeline, queue string, prefetch int) *Consumer {
	return &Consumer{
		logger:   log,
		source:   source,
		pipeline: pipeline,
		queue:    queue,
		prefetch: prefetch,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes until ctx is cancelled or the channel fails.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "push_consumer_started", "Consuming push notifications", map[string]any{"queue": c.queue})
	err := c.source.Consume(ctx, c.queue, consumerTag, c.prefetch, c.handle)
	if err != nil {
		c.logger.Error(ctx, "push_consumer_stopped", "Push consumer stopped", err, map[string]any{"queue": c.queue})
	}
	return err
}

// handle returns an error only for deliveries that can never be processed; those get nacked.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) error {
	receivedAt := c.now()
	ctx = logger.WithNewRequestID(logger.WithRequestID(ctx, d.MessageId))

	payload, err := decodeDelivery(d)
	if err != nil {
		c.logger.Error(ctx, "push_undecodable", "Dropping undecodable push delivery", err,
			map[string]any{"size": len(d.Body), "content_type": d.ContentType})
		return err
	}

	msg := Message{Payload: payload, ReceivedAt: receivedAt}
	if _, ok := payload.SentAt(); !ok && !d.Timestamp.IsZero() {
		msg.SentAt = d.Timestamp.UTC()
	}

	_, err = c.pipeline.Ingest(ctx, msg)
	if errors.Is(err, ErrMalformedPayload) {
		return err
	}
	// publish failures only happen on shutdown; the message is acked so it is not redelivered to a dead bus
	return nil
}

// decodeDelivery reads the payload from a JSON object body, or from the headers when the
// body is empty. Non-string values are rendered in their JSON form.
func decodeDelivery(d amqp.Delivery) (notification.Payload, error) {
	if len(bytes.TrimSpace(d.Body)) == 0 {
		payload := make(notification.Payload, len(d.Headers))
		for k, v := range d.Headers {
			payload[k] = stringify(v)
		}
		return payload, nil
	}

	dec := json.NewDecoder(bytes.NewReader(d.Body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	payload := make(notification.Payload, len(raw))
	for k, v := range raw {
		payload[k] = stringify(v)
	}
	return payload, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		if b, err := json.Marshal(t); err == nil {
			return string(b)
		}
		return fmt.Sprint(t)
	}
}
