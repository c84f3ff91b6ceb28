package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names a pipeline change
type Type string

const (
	StageCreated         Type = "stage.created"
	StageUpdated         Type = "stage.updated"
	StageDeleted         Type = "stage.deleted"
	StagesReordered      Type = "stages.reordered"
	CustomerCreated      Type = "customer.created"
	CustomerUpdated      Type = "customer.updated"
	CustomerDeleted      Type = "customer.deleted"
	CustomerStageChanged Type = "customer.stage_changed"
	PipelineReloaded     Type = "pipeline.reloaded"
)

// Event is a committed pipeline change.
// Events are only emitted after the record store confirmed the change.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// New builds an event carrying data as its JSON payload
func New(t Type, data interface{}) (Event, error) {
	e := Event{ID: uuid.New(), Type: t, OccurredAt: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		e.Data = raw
	}
	return e, nil
}

// Publisher delivers events to a sink
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
