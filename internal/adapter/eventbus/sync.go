// Package eventbus provides implementations of the EventBus interface.
// This package contains the synchronous event bus that connects the state
// store, the synchronizer, the services and the shell.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// SyncEventBus is a synchronous implementation of the EventBus interface.
// Events are delivered on the publisher's goroutine, to type-specific
// handlers first and then to wildcard handlers, each group in subscription order.
//
// Thread-safety: This implementation is thread-safe. Multiple goroutines can
// publish events and subscribe/unsubscribe handlers concurrently.
//
// Handlers must not block: the state store publishes from inside intents, so a
// slow handler delays the caller. Long work belongs on the subscriber's own goroutine.
type SyncEventBus struct {
	logger *slog.Logger

	// subscribers map event types to their subscriptions
	subscribers map[domain.EventType][]subscription

	// allSubscribers receive every event
	allSubscribers []subscription

	mu        sync.RWMutex
	idCounter atomic.Uint64
	closed    bool
}

type subscription struct {
	id      domain.SubscriptionID
	filter  ports.EventFilter
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{
		logger:      slog.New(slog.DiscardHandler),
		subscribers: make(map[domain.EventType][]subscription),
	}
}

// SetLogger sets the logger for this event bus.
func (bus *SyncEventBus) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.logger = logger.With(slog.String("component", "eventbus"))
}

// Publish delivers an event to its subscribers.
// Publishing on a closed bus or publishing nil does nothing.
//
// Panics in handlers are recovered and logged; the remaining handlers still run.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := make([]subscription, 0, len(bus.subscribers[event.Type()])+len(bus.allSubscribers))
	targets = append(targets, bus.subscribers[event.Type()]...)
	targets = append(targets, bus.allSubscribers...)
	logger := bus.logger
	bus.mu.RUnlock()

	logger.Debug("event published",
		slog.String("event_type", string(event.Type())),
		slog.Int("handlers", len(targets)))

	for _, sub := range targets {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		bus.callHandler(logger, sub, event)
	}
}

// callHandler calls an event handler and recovers from panics.
func (bus *SyncEventBus) callHandler(logger *slog.Logger, sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("subscription", string(sub.id)),
				slog.String("event_type", string(event.Type())))
		}
	}()
	sub.handler(event)
}

// Subscribe registers a handler for events of the specified type.
// Returns an empty ID when the bus is closed.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.SubscribeFiltered(eventType, nil, handler)
}

// SubscribeFiltered registers a handler that only sees events passing filter.
// A nil filter accepts every event of the type.
func (bus *SyncEventBus) SubscribeFiltered(eventType domain.EventType, filter ports.EventFilter, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		bus.logger.Warn("subscribe on closed event bus", slog.String("event_type", string(eventType)))
		return ""
	}

	id := domain.SubscriptionID(fmt.Sprintf("sub-%d", bus.idCounter.Add(1)))
	bus.subscribers[eventType] = append(bus.subscribers[eventType], subscription{
		id:      id,
		filter:  filter,
		handler: handler,
	})
	return id
}

// SubscribeAll registers a handler that receives all events regardless of type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		bus.logger.Warn("subscribe on closed event bus", slog.String("event_type", "*"))
		return ""
	}

	id := domain.SubscriptionID(fmt.Sprintf("sub-all-%d", bus.idCounter.Add(1)))
	bus.allSubscribers = append(bus.allSubscribers, subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a previously registered handler.
// Unknown or already removed IDs are ignored. Order of the remaining
// handlers is preserved.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	if id == "" {
		return
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	for eventType, subs := range bus.subscribers {
		if i := indexOf(subs, id); i >= 0 {
			bus.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
	if i := indexOf(bus.allSubscribers, id); i >= 0 {
		bus.allSubscribers = append(bus.allSubscribers[:i:i], bus.allSubscribers[i+1:]...)
	}
}

func indexOf(subs []subscription, id domain.SubscriptionID) int {
	for i, sub := range subs {
		if sub.id == id {
			return i
		}
	}
	return -1
}

// HasSubscribers returns true if any handler would receive events of the given type.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subscribers[eventType]) > 0 || len(bus.allSubscribers) > 0
}

// Close shuts down the event bus and drops all subscriptions.
//
// Returns an error if already closed.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return fmt.Errorf("event bus already closed")
	}
	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = nil
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.allSubscribers)
	for _, subs := range bus.subscribers {
		count += len(subs)
	}
	return count
}

var _ ports.FilteringEventBus = (*SyncEventBus)(nil)
