package queue

import (
	"fmt"
	"sync"
)

// Handler receives the raw payload of one push message.  Handlers run on
// the transport's goroutine and must not block for long.
type Handler func(payload []byte)

// Registry maps event names to handlers.  Transports embed it, which makes
// every transport satisfy the subscribe/unsubscribe capability the view
// model depends on.  It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Subscribe registers fn for event, replacing any previous handler.
func (r *Registry) Subscribe(event string, fn Handler) error {
	if event == "" || fn == nil {
		return fmt.Errorf("subscribe: event and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[string]Handler)
	}
	r.handlers[event] = fn
	return nil
}

// Unsubscribe removes the handler for event.  Unknown events are ignored.
func (r *Registry) Unsubscribe(event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
	return nil
}

// Dispatch delivers payload to the handler registered for event and
// reports whether one was found.
func (r *Registry) Dispatch(event string, payload []byte) bool {
	r.mu.RLock()
	fn, ok := r.handlers[event]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	fn(payload)
	return true
}
