package app

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/events"
	"crm-pipeline-api/internal/realtime"
)

// brokenChannel fails Consume, or hands out an already closed delivery channel
type brokenChannel struct {
	consumeErr error
}

func (c *brokenChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp.Table) error {
	return nil
}

func (c *brokenChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (c *brokenChannel) QueueBind(string, string, string, bool, amqp.Table) error { return nil }

func (c *brokenChannel) PublishWithContext(context.Context, string, string, bool, bool, amqp.Publishing) error {
	return nil
}

func (c *brokenChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	if c.consumeErr != nil {
		return nil, c.consumeErr
	}
	ch := make(chan amqp.Delivery)
	close(ch)
	return ch, nil
}

func (c *brokenChannel) Close() error { return nil }

func newFailingEvents(ch events.Channel) *Events {
	handler := func(context.Context, events.Event, []string) error { return nil }
	return &Events{
		Hub:      realtime.NewHub(nil, zap.NewNop()),
		async:    events.NewAsync(events.Nop{}, 1, nil),
		consumer: events.NewConsumer(ch, events.Topology{Exchange: "crm", Queue: "crm.webhooks"}, handler, 3, nil),
		logger:   zap.NewNop(),
	}
}

func runWithDeadline(t *testing.T, run func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- run() }()

	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the consumer failed")
		return nil
	}
}

func TestEvents_RunReturnsConsumeError(t *testing.T) {
	consumeErr := errors.New("channel not open")
	e := newFailingEvents(&brokenChannel{consumeErr: consumeErr})

	err := runWithDeadline(t, func() error { return e.Run(context.Background()) })

	require.Error(t, err)
	assert.ErrorIs(t, err, consumeErr)
}

func TestEvents_RunReturnsWhenDeliveriesClose(t *testing.T) {
	e := newFailingEvents(&brokenChannel{})

	err := runWithDeadline(t, func() error { return e.Run(context.Background()) })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestApp_RunStopsWhenConsumerFails(t *testing.T) {
	a, _ := newMemoryApp(t, true)
	a.Events = newFailingEvents(&brokenChannel{consumeErr: errors.New("connection reset")})

	err := runWithDeadline(t, func() error { return a.Run(context.Background()) })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
