package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	OrderCreated = "created"
	OrderUpdated = "updated"
	OrderDeleted = "deleted"
	TableBilled  = "billed"
)

// Event is an order lifecycle notification.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

func New(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type noopPublisher struct{}

// NewNoopPublisher discards every event.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, Event) error { return nil }

// Fanout delivers each event to every publisher. Delivery failures are
// logged and never reach the caller.
type Fanout struct {
	publishers []Publisher
}

func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

func (f *Fanout) Publish(ctx context.Context, event Event) error {
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			logrus.WithError(err).WithField("event", event.Type).Warn("event delivery failed")
		}
	}
	return nil
}
