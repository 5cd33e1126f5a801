// Package events provides the in-process pub/sub bus the engine uses to fan
// out cycle results to the API websocket hub and the notifiers.
package events

import (
	"sync"
	"time"
)

// EventType represents the engine's event kinds
type EventType string

const (
	EventCycleStarted    EventType = "CYCLE_STARTED"
	EventCycleCompleted  EventType = "CYCLE_COMPLETED"
	EventRegimeChange    EventType = "REGIME_CHANGE"
	EventSetupGenerated  EventType = "SETUP_GENERATED"
	EventTradeExecuted   EventType = "TRADE_EXECUTED"
	EventTradeRejected   EventType = "TRADE_REJECTED"
	EventPositionUpdated EventType = "POSITION_UPDATED"
	EventPositionClosed  EventType = "POSITION_CLOSED"
	EventSnapshotTaken   EventType = "SNAPSHOT_TAKEN"
	EventBreakerTripped  EventType = "BREAKER_TRIPPED"
	EventBreakerReset    EventType = "BREAKER_RESET"
	EventError           EventType = "ERROR"
)

// Event represents a single engine event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish delivers an event to matching subscribers. Delivery is synchronous
// and in registration order; subscribers must not block.
func (eb *EventBus) Publish(eventType EventType, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	eb.mu.RLock()
	subs := make([]Subscriber, 0, len(eb.subscribers[eventType])+len(eb.allSubs))
	subs = append(subs, eb.subscribers[eventType]...)
	subs = append(subs, eb.allSubs...)
	eb.mu.RUnlock()

	for _, sub := range subs {
		sub(event)
	}
}
