package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"crm-pipeline-api/internal/metrics"
)

// Sink is a named publisher
type Sink struct {
	Name      string
	Publisher Publisher
}

// Fanout publishes every event to each sink in order.
// A failing sink does not stop delivery to the others.
type Fanout struct {
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewFanout creates a publisher over sinks
func NewFanout(m *metrics.Metrics, logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, metrics: m, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, sink := range f.sinks {
		err := sink.Publisher.Publish(ctx, e)
		f.metrics.RecordEventPublished(sink.Name, err)
		if err != nil {
			f.logger.Warn("Failed to publish event",
				zap.String("sink", sink.Name),
				zap.String("event_type", string(e.Type)),
				zap.String("event_id", e.ID.String()),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async hands events to a background worker so publishing never blocks the caller.
// Events are dropped when the buffer is full.
type Async struct {
	next   Publisher
	queue  chan Event
	logger *zap.Logger

	once sync.Once
	done chan struct{}
}

// NewAsync creates an asynchronous publisher in front of next
func NewAsync(next Publisher, buffer int, logger *zap.Logger) *Async {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Async{
		next:   next,
		queue:  make(chan Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (a *Async) Publish(_ context.Context, e Event) error {
	select {
	case a.queue <- e:
		return nil
	default:
		a.logger.Warn("Event buffer full, dropping event",
			zap.String("event_type", string(e.Type)),
			zap.String("event_id", e.ID.String()),
		)
		return errors.New("event buffer full")
	}
}

// Run delivers queued events until ctx is done, then drains what is left
func (a *Async) Run(ctx context.Context) {
	defer a.once.Do(func() { close(a.done) })
	for {
		select {
		case e := <-a.queue:
			a.deliver(ctx, e)
		case <-ctx.Done():
			for {
				select {
				case e := <-a.queue:
					a.deliver(context.Background(), e)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run returned
func (a *Async) Done() <-chan struct{} {
	return a.done
}

func (a *Async) deliver(ctx context.Context, e Event) {
	if err := a.next.Publish(ctx, e); err != nil {
		a.logger.Debug("Async delivery failed", zap.String("event_type", string(e.Type)), zap.Error(err))
	}
}
