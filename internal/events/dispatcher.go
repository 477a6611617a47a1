// internal/events/dispatcher.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/internal/metrics"
	"github.com/temmyjay001/agency-service/internal/relay"
)

// Dispatcher queues domain events and forwards them through the relay from
// a single background worker. Publish never blocks the request path.
type Dispatcher struct {
	relay relay.Relayer
	queue chan Event
	now   func() time.Time
}

func NewDispatcher(r relay.Relayer, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		relay: r,
		queue: make(chan Event, queueSize),
		now:   time.Now,
	}
}

// Publish enqueues an event. It reports false when the queue is full and
// the event was dropped.
func (d *Dispatcher) Publish(eventType string, data map[string]any) bool {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: d.now().UTC(),
		Data:       data,
	}

	select {
	case d.queue <- event:
		return true
	default:
		metrics.EventsDropped.Inc()
		logrus.WithField("event_type", eventType).Warn("Event queue full, dropping event")
		return false
	}
}

// Start runs the delivery worker until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	logrus.Info("Starting event dispatcher...")

	for {
		select {
		case <-ctx.Done():
			if pending := len(d.queue); pending > 0 {
				logrus.Warnf("Event dispatcher shutting down with %d undelivered events", pending)
			} else {
				logrus.Info("Event dispatcher shutting down...")
			}
			return
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	result := d.relay.Trigger(ctx, event.Type, event.payload())
	if !result.Success {
		logrus.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Warnf("Failed to deliver event: %s", result.Error)
		return
	}

	logrus.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Debug("Event delivered")
}
