package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taxi-client/internal/domain/notification"
	"taxi-client/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

const confirmTimeout = 5 * time.Second

// MQPublisher publishes push messages to the push fanout exchange.
type MQPublisher struct {
	Client *Client
}

func NewMQPublisher(client *Client) *MQPublisher {
	return &MQPublisher{Client: client}
}

// PublishPush sends msg as a JSON string map, stamping sentAt when the sender left it out.
func (publisher *MQPublisher) PublishPush(ctx context.Context, msg contracts.PushMessage) error {
	now := time.Now().UTC()
	if _, ok := msg[notification.KeySentAt]; !ok {
		stamped := make(contracts.PushMessage, len(msg)+1)
		for k, v := range msg {
			stamped[k] = v
		}
		stamped[notification.KeySentAt] = now.Format(time.RFC3339Nano)
		msg = stamped
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("rabbitmq: encode push message: %w", err)
	}
	return publisher.Client.PublishMessage(ctx, publisher.Client.topology.Exchange, "", amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    now,
		Body:         body,
	})
}

// PublishMessage publishes msg and waits for the broker confirm.
func (client *Client) PublishMessage(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms
	if confirms == nil {
		return errors.New("rabbitmq: client is closed")
	}

	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, exchange, routingKey, true, false, msg); err != nil {
		return err
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return errors.New("rabbitmq: confirm stream closed")
		}
		if !c.Ack {
			return errors.New("rabbitmq: publish not acknowledged")
		}
		return nil
	case <-ctx.Done():
		// drain one confirm so the stream stays aligned with the next publish
		select {
		case <-confirms:
		case <-time.After(2 * time.Second):
		}
		return ctx.Err()
	}
}
