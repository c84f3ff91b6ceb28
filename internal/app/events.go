package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"crm-pipeline-api/internal/config"
	"crm-pipeline-api/internal/events"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/realtime"
	"crm-pipeline-api/internal/webhook"
)

// Events routes committed pipeline changes to the websocket hub and the
// webhook subscriptions. With RabbitMQ configured, webhooks are delivered
// by the queue consumer; otherwise the dispatcher is called directly.
type Events struct {
	// Publisher is handed to the services. It never blocks the caller.
	Publisher  events.Publisher
	Hub        *realtime.Hub
	Dispatcher *webhook.Dispatcher
	// Rabbit is nil unless rabbitmq.url is set
	Rabbit *events.RabbitMQ

	async    *events.Async
	consumer *events.Consumer
	logger   *zap.Logger
}

// NewEvents builds the event sinks described by cfg
func NewEvents(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*Events, error) {
	e := &Events{
		Hub:        realtime.NewHub(cfg.CORS.AllowedOrigins, logger.Named("realtime")),
		Dispatcher: webhook.NewDispatcher(cfg.Webhooks, m, logger.Named("webhook")),
		logger:     logger,
	}

	sinks := []events.Sink{{Name: "realtime", Publisher: e.Hub}}

	if cfg.RabbitMQ.Enabled() {
		rabbit, err := events.DialRabbitMQ(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		e.Rabbit = rabbit
		sinks = append(sinks, events.Sink{
			Name:      "rabbitmq",
			Publisher: events.NewRabbitPublisher(rabbit.Ch, cfg.RabbitMQ.Exchange, logger),
		})
		if e.Dispatcher.Enabled() {
			e.consumer = events.NewConsumer(rabbit.Ch, events.TopologyFor(cfg.RabbitMQ),
				e.Dispatcher.Deliver, cfg.RabbitMQ.MaxRetries, logger.Named("consumer"))
		}
		logger.Info("RabbitMQ event publishing enabled", zap.String("exchange", cfg.RabbitMQ.Exchange))
	} else if e.Dispatcher.Enabled() {
		sinks = append(sinks, events.Sink{Name: "webhook", Publisher: e.Dispatcher})
	}

	e.async = events.NewAsync(events.NewFanout(m, logger, sinks...), 0, logger)
	e.Publisher = e.async
	return e, nil
}

// Run delivers events until ctx is done or the queue consumer fails.
// The websocket hub and the async publisher run under a child context that
// is cancelled on either, so Run always returns the consumer error.
func (e *Events) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go e.Hub.Run(runCtx)
	go e.async.Run(runCtx)

	var err error
	if e.consumer != nil {
		if err = e.consumer.Run(runCtx); err != nil {
			e.logger.Error("Event consumer stopped", zap.Error(err))
		}
	} else {
		<-runCtx.Done()
	}

	cancel()
	<-e.async.Done()
	return err
}

// Flush delivers the queued events and stops the publisher.
// It is used by one-shot commands that never call Run.
func (e *Events) Flush() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.async.Run(ctx)
}

// Close closes the broker connection
func (e *Events) Close() error {
	if e.Rabbit == nil {
		return nil
	}
	err := e.Rabbit.Close()
	e.Rabbit = nil
	if err != nil {
		return fmt.Errorf("close RabbitMQ: %w", err)
	}
	return nil
}
