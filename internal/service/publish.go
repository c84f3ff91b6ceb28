package service

import (
	"context"

	"go.uber.org/zap"

	"crm-pipeline-api/internal/events"
)

// eventPublisher emits events after a change was committed.
// Publishing failures are logged and never fail the operation.
type eventPublisher struct {
	publisher events.Publisher
	logger    *zap.Logger
}

func newEventPublisher(p events.Publisher, logger *zap.Logger) eventPublisher {
	if p == nil {
		p = events.Nop{}
	}
	return eventPublisher{publisher: p, logger: logger}
}

func (p eventPublisher) emit(ctx context.Context, t events.Type, data interface{}) {
	e, err := events.New(t, data)
	if err != nil {
		p.logger.Error("Failed to build event", zap.String("event_type", string(t)), zap.Error(err))
		return
	}
	// Detached from the request: the change is already committed
	if err := p.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		p.logger.Warn("Failed to publish event", zap.String("event_type", string(t)), zap.Error(err))
	}
}
