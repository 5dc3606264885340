package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// OrderUpdatesExchange is the topic exchange dashboards bind to
	OrderUpdatesExchange = "orders.updates"

	publishTimeout = 5 * time.Second
	dialTimeout    = 5 * time.Second
	redialInterval = 5 * time.Second
)

// brokerChannel is the part of *amqp.Channel the notifier uses
type brokerChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// brokerConnection is the part of *amqp.Connection the notifier uses
type brokerConnection interface {
	Channel() (brokerChannel, error)
	IsClosed() bool
	Close() error
}

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (brokerChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (brokerConnection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

// RabbitMQNotifier publishes order snapshots to a topic exchange.
// A dropped connection or channel is reopened on the next Publish.
type RabbitMQNotifier struct {
	url            string
	dial           func(url string) (brokerConnection, error)
	conn           brokerConnection
	ch             brokerChannel
	mu             sync.Mutex
	lastDial       time.Time
	redialInterval time.Duration
	logger         *zap.Logger
}

// NewRabbitMQNotifier dials the broker and declares the updates exchange
func NewRabbitMQNotifier(url string, logger *zap.Logger) (*RabbitMQNotifier, error) {
	return newRabbitMQNotifier(url, dialAMQP, logger)
}

func newRabbitMQNotifier(url string, dial func(string) (brokerConnection, error), logger *zap.Logger) (*RabbitMQNotifier, error) {
	n := &RabbitMQNotifier{
		url:            url,
		dial:           dial,
		redialInterval: redialInterval,
		logger:         logger,
	}
	if err := n.connect(); err != nil {
		n.Close()
		return nil, err
	}
	logger.Info("Connected to RabbitMQ", zap.String("exchange", OrderUpdatesExchange))
	return n, nil
}

// connect makes sure an open connection and channel exist. Callers hold n.mu
// except during construction.
func (n *RabbitMQNotifier) connect() error {
	if n.conn == nil || n.conn.IsClosed() {
		if !n.lastDial.IsZero() && time.Since(n.lastDial) < n.redialInterval {
			return fmt.Errorf("RabbitMQ is unavailable, next reconnect attempt after %s", n.lastDial.Add(n.redialInterval).Format(time.RFC3339))
		}
		n.lastDial = time.Now()
		n.ch = nil

		conn, err := n.dial(n.url)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		n.conn = conn
	}

	if n.ch == nil || n.ch.IsClosed() {
		ch, err := n.conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
		}
		err = ch.ExchangeDeclare(
			OrderUpdatesExchange, // name
			"topic",              // type
			true,                 // durable
			false,                // auto-deleted
			false,                // internal
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			ch.Close()
			return fmt.Errorf("failed to declare exchange %s: %w", OrderUpdatesExchange, err)
		}
		n.ch = ch
	}
	return nil
}

// RoutingKey is restaurant.<id>.order.<status>, so a dashboard can bind to restaurant.<id>.#
func RoutingKey(snapshot OrderSnapshot) string {
	return fmt.Sprintf("restaurant.%d.order.%s", snapshot.RestaurantID, strings.ToLower(string(snapshot.Status)))
}

// Publish sends the snapshot as a persistent JSON message. If the broker
// dropped the channel since the last call, it is reopened first and a publish
// that fails on a closed channel is retried once.
func (n *RabbitMQNotifier) Publish(ctx context.Context, snapshot OrderSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode order snapshot: %w", err)
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		MessageId:    fmt.Sprintf("%s:%s", snapshot.OrderID, snapshot.Status),
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if err := n.connect(); err != nil {
			return err
		}
		err := n.ch.PublishWithContext(ctx,
			OrderUpdatesExchange, // exchange
			RoutingKey(snapshot), // routing key
			false,                // mandatory
			false,                // immediate
			msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, amqp.ErrClosed) || attempt > 0 {
			return err
		}
		n.logger.Warn("RabbitMQ channel closed, reconnecting", zap.Error(err))
		n.ch = nil
	}
}

// Close releases the channel and connection
func (n *RabbitMQNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
}
