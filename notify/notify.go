// Package notify publishes order events after their transaction commits.
// Dispatch never blocks the caller and never fails the originating operation.
package notify

import (
	"context"
	"sync"

	"laundry-api/logger"

	"go.uber.org/zap"
)

type EventType string

const (
	EventOrderPlaced       EventType = "order.placed"
	EventStatusChanged     EventType = "order.status_changed"
	EventEquipmentAssigned EventType = "order.equipment_assigned"
	EventOrderReady        EventType = "order.ready"
	EventPaymentReceived   EventType = "order.paid"
	EventRefundIssued      EventType = "order.refunded"
	EventTipReceived       EventType = "order.tip_received"
)

// Event is one notification. Recipient is a user ID; zero means the tenant's staff.
type Event struct {
	Type      EventType         `json:"type"`
	TenantID  uint              `json:"tenant_id"`
	OrderID   uint              `json:"order_id"`
	Recipient uint              `json:"recipient,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

type Dispatcher interface {
	Notify(e Event)
}

// Publisher delivers one event to a transport.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Async buffers events on a channel drained by Run. A full buffer drops the event.
type Async struct {
	events    chan Event
	publisher Publisher
	log       *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewAsync(publisher Publisher, buffer int) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	return &Async{
		events:    make(chan Event, buffer),
		publisher: publisher,
		log:       logger.With(zap.String("component", "notify")),
	}
}

func (a *Async) Notify(e Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.log.Warn("notifier stopped, dropping event",
			zap.String("type", string(e.Type)),
			zap.Uint("order_id", e.OrderID),
		)
		return
	}
	select {
	case a.events <- e:
	default:
		a.log.Warn("notification buffer full, dropping event",
			zap.String("type", string(e.Type)),
			zap.Uint("order_id", e.OrderID),
		)
	}
}

// Run publishes queued events until ctx is done, then drains what is left.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case e := <-a.events:
			a.publish(ctx, e)
		case <-ctx.Done():
			a.close()
			for e := range a.events {
				a.publish(context.Background(), e)
			}
			return nil
		}
	}
}

func (a *Async) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
}

func (a *Async) publish(ctx context.Context, e Event) {
	if err := a.publisher.Publish(ctx, e); err != nil {
		a.log.Error("failed to publish notification",
			zap.String("type", string(e.Type)),
			zap.Uint("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

// LogPublisher writes events to the application log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	logger.Info("notification",
		zap.String("type", string(e.Type)),
		zap.Uint("tenant_id", e.TenantID),
		zap.Uint("order_id", e.OrderID),
		zap.Uint("recipient", e.Recipient),
		zap.Any("variables", e.Variables),
	)
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(Event) {}
