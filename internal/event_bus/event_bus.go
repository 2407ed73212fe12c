package event_bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ChangeName identifies the kind of state change being announced.
type ChangeName string

// Change is the envelope published after every state change of a scheduled
// event: vote recorded, blocks saved, phase changed, final date set. EventID
// is the id of the scheduled event the change belongs to, so realtime
// consumers can fan out per event. Consumers must treat storage as ground
// truth; delivery is fire-and-forget and may be missed or duplicated.
type Change struct {
	ctx       context.Context
	Name      ChangeName
	EventID   string
	Timestamp time.Time
	Payload   any
}

// NewChange creates a Change stamped with the current time.
func NewChange(ctx context.Context, name ChangeName, eventID string, payload any) Change {
	return Change{
		ctx:       ctx,
		Name:      name,
		EventID:   eventID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Context returns the context the change was published under.
func (c Change) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

type handler func(Change) error

// EventBus is a concurrency-safe synchronous dispatcher of Change
// notifications. Handlers run sequentially during Publish.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[ChangeName]map[uint64]handler
	nextID      uint64
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[ChangeName]map[uint64]handler),
	}
}

// Subscribe registers a handler for the given change name. The returned
// function unsubscribes the handler.
func (eb *EventBus) Subscribe(name ChangeName, h func(Change) error) (unsubscribe func()) {
	eb.mu.Lock()
	eb.nextID++
	id := eb.nextID

	if eb.subscribers[name] == nil {
		eb.subscribers[name] = make(map[uint64]handler)
	}
	eb.subscribers[name][id] = handler(h)
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		if handlers := eb.subscribers[name]; handlers != nil {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(eb.subscribers, name)
			}
		}
	}
}

// Publish delivers the change to every handler registered for its name.
// Handler errors and panics are collected and returned but never stop the
// remaining handlers; publishers treat the result as advisory and log it.
func (eb *EventBus) Publish(c Change) error {
	if err := c.Context().Err(); err != nil {
		return fmt.Errorf("change %s: context cancelled before publish: %w", c.Name, err)
	}

	eb.mu.RLock()
	handlers := make([]handler, 0, len(eb.subscribers[c.Name]))
	for _, h := range eb.subscribers[c.Name] {
		handlers = append(handlers, h)
	}
	eb.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler panic for change %s: %v", c.Name, r)
					log.Error(err)
				}
			}()
			return h(c)
		}()
		if err != nil {
			log.Errorf("EventBus: handler error for change %s on event %s: %v", c.Name, c.EventID, err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("change %s: %d handler(s) failed: %v", c.Name, len(errs), errs)
	}
	return nil
}

// Notify publishes and downgrades any handler failure to a log line. Core
// services use this form: a broken realtime consumer must never fail a vote.
func (eb *EventBus) Notify(ctx context.Context, name ChangeName, eventID string, payload any) {
	if err := eb.Publish(NewChange(ctx, name, eventID, payload)); err != nil {
		log.Warnf("notification %s for event %s not fully delivered: %v", name, eventID, err)
	}
}
