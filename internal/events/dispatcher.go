package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoEventType is returned when an event is published without a type.
var ErrNoEventType = errors.New("events: event type required")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// HandlerError reports a subscriber that failed for one ticket event.
type HandlerError struct {
	Type     EventType
	TicketID int64
	EventID  string
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler for ticket %d: %v", e.Type, e.TicketID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher invokes subscribers synchronously on the publishing goroutine, so
// a ticket's events reach handlers in the order its writes happened.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	now       func() time.Time
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		now:       time.Now,
	}
}

// Publish stamps a missing id and timestamp, then invokes every handler for the event
// type. Handler failures are joined as *HandlerError values.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	if event.Type == "" {
		return ErrNoEventType
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, &HandlerError{Type: event.Type, TicketID: event.TicketID, EventID: event.ID, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
