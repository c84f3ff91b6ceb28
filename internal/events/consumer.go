package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one consumed event. targets is empty on the first
// attempt; on a retry it names the targets that failed before.
type Handler func(ctx context.Context, e Event, targets []string) error

// TargetsError reports the targets an event could not be delivered to.
// A handler returning it gets only those targets on the retry.
type TargetsError struct {
	Failed []string
	Err    error
}

func (e *TargetsError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", strings.Join(e.Failed, ", "), e.Err)
}

func (e *TargetsError) Unwrap() error {
	return e.Err
}

// Consumer reads events from the work queue and hands them to a Handler.
// A failed event is republished with an incremented retry count until
// maxRetries is reached, then rejected into the dead-letter queue.
type Consumer struct {
	ch         Channel
	queue      string
	publisher  *RabbitPublisher
	handler    Handler
	maxRetries int
	logger     *zap.Logger
}

// NewConsumer creates a consumer of topology.Queue
func NewConsumer(ch Channel, topology Topology, handler Handler, maxRetries int, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		ch:         ch,
		queue:      topology.Queue,
		publisher:  NewRabbitPublisher(ch, topology.Exchange, logger),
		handler:    handler,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Run consumes until ctx is done or the delivery channel closes
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", c.queue, err)
	}

	c.logger.Info("Event consumer started", zap.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel of %s closed", c.queue)
			}
			c.process(ctx, d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	var e Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		c.logger.Error("Malformed event, dead-lettering", zap.Error(err))
		d.Nack(false, false)
		return
	}

	targets := targetsOf(d.Headers)
	err := c.handler(ctx, e, targets)
	if err == nil {
		d.Ack(false)
		return
	}
	var failed *TargetsError
	if errors.As(err, &failed) && len(failed.Failed) > 0 {
		targets = failed.Failed
	}

	retries := retryCount(d.Headers)
	if retries >= c.maxRetries {
		c.logger.Error("Event handling failed, dead-lettering",
			zap.String("event_type", string(e.Type)),
			zap.String("event_id", e.ID.String()),
			zap.Int("retries", retries),
			zap.Error(err),
		)
		d.Nack(false, false)
		return
	}

	if perr := c.publisher.publish(ctx, e, int32(retries+1), targets); perr != nil {
		c.logger.Warn("Failed to requeue event, dead-lettering", zap.Error(perr))
		d.Nack(false, false)
		return
	}
	c.logger.Warn("Event handling failed, retrying",
		zap.String("event_type", string(e.Type)),
		zap.Int("retry", retries+1),
		zap.Strings("targets", targets),
		zap.Error(err),
	)
	d.Ack(false)
}

func retryCount(headers amqp.Table) int {
	switch v := headers[HeaderRetryCount].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func targetsOf(headers amqp.Table) []string {
	raw, _ := headers[HeaderTargets].(string)
	if raw == "" {
		return nil
	}
	var targets []string
	for _, t := range strings.Split(raw, ",") {
		if t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}
