package webhook

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/marcelsud/payment-webhooks/webhook/payload"
)

/* Handler turns the object of one event type into a bus message
 * Adding an event type means registering a new Handler, the router itself does not change
 */
type Handler interface {
	// Subject is the bus subject the normalized message is published to
	Subject() string
	// Normalize extracts the stable fields from the processor specific object
	Normalize(object json.RawMessage) (Message, error)
}

// Router maps event types to handlers
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter creates an empty router, every event type is ignored until registered
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to an event type
func (r *Router) Register(eventType string, h Handler) error {
	if err := payload.ValidateEventType(eventType); err != nil {
		return fmt.Errorf("registering handler: %w", err)
	}
	if h == nil {
		return fmt.Errorf("registering handler: handler for %s is nil", eventType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[eventType]; exists {
		return fmt.Errorf("registering handler: %s already has a handler", eventType)
	}
	r.handlers[eventType] = h
	return nil
}

// Route returns the handler for the event and Handled, or nil and Ignored
func (r *Router) Route(event payload.Event) (Handler, Outcome) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[event.Type]
	if !ok {
		return nil, Ignored
	}
	return h, Handled
}

// EventTypes lists the registered event types in lexical order
func (r *Router) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for eventType := range r.handlers {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}
