package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/config"
)

// Headers set on published messages
const (
	HeaderRetryCount = "x-retry-count"
	// HeaderTargets is set on retries: the comma separated targets still owed the event
	HeaderTargets = "x-targets"
	bindAll       = "#"
)

// Channel is the subset of *amqp.Channel used here
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Topology names the exchanges and queues events travel through.
// Messages rejected from Queue are dead-lettered through DLX into DLQ.
type Topology struct {
	Exchange string
	Queue    string
	DLX      string
	DLQ      string
}

// TopologyFor derives the dead-letter names from the configured exchange and queue
func TopologyFor(cfg config.RabbitMQConfig) Topology {
	return Topology{
		Exchange: cfg.Exchange,
		Queue:    cfg.Queue,
		DLX:      cfg.Exchange + ".dlx",
		DLQ:      cfg.Queue + ".dlq",
	}
}

// Declare creates the topology, dead-letter side first
func (t Topology) Declare(ch Channel) error {
	if err := ch.ExchangeDeclare(t.DLX, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", t.DLX, err)
	}
	if _, err := ch.QueueDeclare(t.DLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", t.DLQ, err)
	}
	if err := ch.QueueBind(t.DLQ, bindAll, t.DLX, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", t.DLQ, err)
	}

	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", t.Exchange, err)
	}
	args := amqp.Table{"x-dead-letter-exchange": t.DLX}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare %s: %w", t.Queue, err)
	}
	if err := ch.QueueBind(t.Queue, bindAll, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", t.Queue, err)
	}
	return nil
}

// RabbitMQ holds a broker connection and its channel
type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

// DialRabbitMQ connects to the broker and declares the topology
func DialRabbitMQ(cfg config.RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	if err := TopologyFor(cfg).Declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

// Close closes the channel and the connection
func (r *RabbitMQ) Close() error {
	if err := r.Ch.Close(); err != nil {
		r.Conn.Close()
		return err
	}
	return r.Conn.Close()
}

// RabbitPublisher publishes events to the topic exchange, keyed by event type
type RabbitPublisher struct {
	ch       Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbitPublisher creates a publisher on ch
func NewRabbitPublisher(ch Channel, exchange string, logger *zap.Logger) *RabbitPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RabbitPublisher{ch: ch, exchange: exchange, logger: logger}
}

func (p *RabbitPublisher) Publish(ctx context.Context, e Event) error {
	return p.publish(ctx, e, 0, nil)
}

func (p *RabbitPublisher) publish(ctx context.Context, e Event, retries int32, targets []string) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	headers := amqp.Table{HeaderRetryCount: retries}
	if len(targets) > 0 {
		headers[HeaderTargets] = strings.Join(targets, ",")
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		string(e.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID.String(),
			Type:         string(e.Type),
			Timestamp:    e.OccurredAt,
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to RabbitMQ: %w", err)
	}
	return nil
}
