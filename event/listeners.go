package event

import (
	"fmt"
	"sync"
)

// FixedListener resolves every event to the single handler supplied at
// construction. Resolution cannot fail, which lets an acceptor stay
// ignorant of which behavior is active behind it.
type FixedListener struct {
	handler Handler
}

// NewFixedListener creates a listener bound to one handler.
//
// Parameters:
//   - h: The handler every event resolves to
//
// Returns:
//   - A FixedListener ready for use
func NewFixedListener(h Handler) *FixedListener {
	return &FixedListener{handler: h}
}

// OnEvent implements Listener. The handler's error, if any, propagates
// unchanged.
func (l *FixedListener) OnEvent(e Event) error {
	return l.handler.Handle(e)
}

// Registry is a Listener that resolves handlers by the event's service
// name. Registration normally happens at composition time; it is safe to
// register while serving.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a service name to a handler, replacing any previous
// binding for that name.
//
// Parameters:
//   - service: The service name events will carry
//   - h: The handler for that service
func (r *Registry) Register(service string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[service] = h
}

// Services returns the names with a registered handler, in no particular
// order.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}

	return names
}

// OnEvent implements Listener: resolve by e.Service, then invoke. An
// unknown service yields an error wrapping ErrNoHandler.
func (r *Registry) OnEvent(e Event) error {
	h, err := r.resolve(e)
	if err != nil {
		return err
	}

	return h.Handle(e)
}

func (r *Registry) resolve(e Event) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[e.Service]
	if !ok {
		return nil, fmt.Errorf("service %q: %w", e.Service, ErrNoHandler)
	}

	return h, nil
}
