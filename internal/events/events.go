// Package events defines the lifecycle event stream emitted by the health
// monitor and fanned out to subscribers such as the event journal, the
// websocket stream and the log.
package events

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"flotilla/internal/logger"
)

// Type identifies a lifecycle event
type Type string

const (
	// ServiceHealthy marks an unhealthy-to-healthy transition
	ServiceHealthy Type = "service-healthy"
	// ServiceUnhealthy marks a healthy-to-unhealthy transition
	ServiceUnhealthy Type = "service-unhealthy"
	// ServiceRestarted marks a successful automatic restart
	ServiceRestarted Type = "service-restarted"
	// ServiceRestartFailed marks an exhausted restart budget
	ServiceRestartFailed Type = "service-restart-failed"
	// DependencyCascade marks a cascade stop of dependent services
	DependencyCascade Type = "dependency-cascade"
)

// Event is one entry in the lifecycle stream
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	ServiceID string    `json:"service_id"`
	Timestamp time.Time `json:"timestamp"`
	// Incident groups the events of one unhealthy episode, from the
	// unhealthy edge until recovery
	Incident string `json:"incident,omitempty"`
	// Attempt is set on restart events, counting from 1
	Attempt int `json:"attempt,omitempty"`
	// Affected lists stopped dependents on cascade events
	Affected []string `json:"affected,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// New creates an event with a fresh id and timestamp
func New(eventType Type, serviceID string) Event {
	return Event{
		ID:        xid.New().String(),
		Type:      eventType,
		ServiceID: serviceID,
		Timestamp: time.Now().UTC(),
	}
}

// Handler consumes events delivered by the bus. Handlers must not block;
// slow consumers should buffer internally.
type Handler func(Event)

// Bus fans events out to subscribers. Publishing never blocks on consumers
// and is safe from multiple goroutines.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler for all subsequent events and returns a
// function that removes it again
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Publish delivers the event to every subscriber in registration order.
// A panicking handler is logged and does not take down the publisher.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, id := range b.order {
		if handler, ok := b.handlers[id]; ok {
			handlers = append(handlers, handler)
		}
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.deliver(handler, event)
	}
}

func (b *Bus) deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logger.Fields{
				"event_type": string(event.Type),
				"service":    event.ServiceID,
				"panic":      r,
			}).Errorf("Event handler panicked")
		}
	}()
	handler(event)
}
