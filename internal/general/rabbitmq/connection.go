package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"taxi-client/internal/general/config"
	"taxi-client/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxBackoff = 30 * time.Second

// Topology names the push fanout exchange and the queue bound to it.
type Topology struct {
	Exchange string
	Queue    string
}

// Client keeps one AMQP connection alive, redeclaring the push topology after every reconnect.
type Client struct {
	url      string
	topology Topology
	logger   *logger.Logger
	logCtx   context.Context

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	closeOnce sync.Once
	closed    chan struct{}
	reconnect chan struct{}
}

// ConnectRabbitMQ dials once and starts the reconnect watcher. Later failures are retried
// in the background with exponential backoff.
func ConnectRabbitMQ(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.RabbitMQ.User, cfg.RabbitMQ.Password),
		Host:   cfg.RabbitMQ.Host + ":" + strconv.Itoa(cfg.RabbitMQ.Port),
		Path:   "/",
	}

	client := &Client{
		url:       u.String(),
		topology:  Topology{Exchange: cfg.Push.Exchange, Queue: cfg.Push.Queue},
		logger:    log,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	if err := client.connectOnce(); err != nil {
		return nil, err
	}
	go client.watch()

	return client, nil
}

// Topology returns the exchange and queue this client declared.
func (client *Client) Topology() Topology { return client.topology }

// Close stops the watcher and releases the connection. Safe to call more than once.
func (client *Client) Close() {
	client.closeOnce.Do(func() { close(client.closed) })

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()

	// the library closes confirm channels together with their channel
	client.pubMu.Lock()
	client.pubConfirms = nil
	client.pubMu.Unlock()
}

func (client *Client) connectOnce() (err error) {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_open_channel_failed", "Failed to open RabbitMQ channel", err, nil)
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err = declareTopology(ch, client.topology); err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare push topology", err,
			map[string]any{"exchange": client.topology.Exchange, "queue": client.topology.Queue})
		return fmt.Errorf("rabbitmq: declare topology: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_enable_confirms_failed", "Failed to enable publisher confirms", err, nil)
		return fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	client.pubMu.Lock()
	client.pubConfirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	client.pubMu.Unlock()

	go client.logReturns(ch.NotifyReturn(make(chan amqp.Return, 1)))

	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()

	go client.signalOnClose(conn, ch)

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established", map[string]any{
		"exchange": client.topology.Exchange,
		"queue":    client.topology.Queue,
	})
	return nil
}

// logReturns reports messages the broker could not route (published with mandatory=true).
func (client *Client) logReturns(returns <-chan amqp.Return) {
	for r := range returns {
		client.logger.Error(client.logCtx, "rabbitmq_message_returned", "Message was returned (unroutable)",
			fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
			map[string]any{"exchange": r.Exchange, "routing_key": r.RoutingKey, "size": len(r.Body)})
	}
}

func (client *Client) signalOnClose(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-client.closed:
		return
	case <-connClosed:
	case <-chClosed:
	}

	select {
	case client.reconnect <- struct{}{}:
	default:
	}
}

func (client *Client) watch() {
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
			client.reconnectWithBackoff()
		}
	}
}

func (client *Client) reconnectWithBackoff() {
	backoff := time.Second
	for {
		err := client.connectOnce()
		if err == nil {
			client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ and re-declared topology", nil)
			return
		}
		client.logger.Error(client.logCtx, "retry_attempted", "Failed to reconnect to RabbitMQ", err,
			map[string]any{"backoff": backoff.String()})

		select {
		case <-client.closed:
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// declareTopology declares the durable push fanout exchange and binds the push queue to it.
func declareTopology(ch *amqp.Channel, t Topology) error {
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", t.Queue, err)
	}
	// fanout ignores the routing key
	if err := ch.QueueBind(t.Queue, "", t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", t.Queue, t.Exchange, err)
	}
	return nil
}
