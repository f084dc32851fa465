package bridge

import (
	"log/slog"
	"sync"
)

// Event types
const (
	EventStateChange   = "state_change"
	EventDeviceAdded   = "device_added"
	EventDeviceRemoved = "device_removed"
	EventDeviceRenamed = "device_renamed"
)

// Event represents a bridge event.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// StateChange is the data of an EventStateChange event.
type StateChange struct {
	IEEEAddress  string         `json:"ieee_address"`
	FriendlyName string         `json:"friendly_name"`
	// State is the full cached state after the change.
	State map[string]any `json:"state"`
	// Delta holds only the properties the change touched.
	Delta map[string]any `json:"delta"`
}

// DeviceEvent is the data of device lifecycle events.
type DeviceEvent struct {
	IEEEAddress  string `json:"ieee_address"`
	FriendlyName string `json:"friendly_name"`
	// OldName is set for EventDeviceRenamed.
	OldName string `json:"old_name,omitempty"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus provides pub/sub for bridge events.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[string]map[uint64]EventHandler
	allHandlers map[uint64]EventHandler
	nextID      uint64
	logger      *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers:    make(map[string]map[uint64]EventHandler),
		allHandlers: make(map[uint64]EventHandler),
		logger:      logger,
	}
}

// On registers a handler for a specific event type.
// Returns an unsubscribe function.
func (eb *EventBus) On(eventType string, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	if eb.handlers[eventType] == nil {
		eb.handlers[eventType] = make(map[uint64]EventHandler)
	}
	eb.handlers[eventType][id] = handler
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.handlers[eventType], id)
	}
}

// OnAll registers a handler that receives all events.
// Returns an unsubscribe function.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	eb.allHandlers[id] = handler
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.allHandlers, id)
	}
}

// Emit sends an event to all matching handlers.
// Handlers are called synchronously; a panicking handler is recovered.
func (eb *EventBus) Emit(event Event) {
	eb.mu.RLock()
	handlers := make([]EventHandler, 0, len(eb.handlers[event.Type])+len(eb.allHandlers))
	for _, h := range eb.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	for _, h := range eb.allHandlers {
		handlers = append(handlers, h)
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
				}
			}()
			h(event)
		}()
	}
}

// Subscribe delivers events of the given types (all types when none are
// given) on a buffered channel. Events are dropped while the channel is
// full so a slow consumer never blocks Emit. The returned function
// unsubscribes and closes the channel.
func (eb *EventBus) Subscribe(buffer int, types ...string) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	var mu sync.Mutex
	closed := false
	deliver := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			eb.logger.Debug("subscriber full, event dropped", "type", e.Type)
		}
	}

	var unsubs []func()
	if len(types) == 0 {
		unsubs = append(unsubs, eb.OnAll(deliver))
	}
	for _, t := range types {
		unsubs = append(unsubs, eb.On(t, deliver))
	}
	return ch, func() {
		for _, u := range unsubs {
			u()
		}
		mu.Lock()
		if !closed {
			closed = true
			close(ch)
		}
		mu.Unlock()
	}
}
