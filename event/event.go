// Package event defines the dispatch abstraction between connection
// acceptance and connection handling: an Event carries one accepted
// connection, a Handler processes one event, and a Listener resolves which
// handler an event belongs to and invokes it.
package event

import (
	"errors"
	"net"
	"time"
)

// ErrNoHandler is returned by listeners that cannot resolve a handler for
// an event. It signals a composition problem, distinct from a failure
// inside a handler, and must never be silently ignored.
var ErrNoHandler = errors.New("no handler available")

// Event represents "a connection has arrived". It is constructed by the
// acceptor, consumed synchronously by a Listener, and not retained
// afterward. Ownership of Conn passes to the handler that processes the
// event; the handler must close it on every exit path.
type Event struct {
	// ID is the acceptor-assigned session identifier.
	ID uint64
	// Service names the configured service the connection arrived on.
	// Registry listeners resolve handlers by this name.
	Service string
	// Conn is the accepted connection.
	Conn net.Conn
	// Received is when the connection was accepted.
	Received time.Time
}

// Handler is the capability of processing one connection-bearing event.
// A handler is invoked once per event, runs its protocol loop to
// completion, and closes the event's connection before returning. Any
// failure it raises propagates unchanged through the listener to the
// acceptor.
type Handler interface {
	// Handle processes one event to completion.
	//
	// Parameters:
	//   - e: The event carrying the connection to serve
	//
	// Returns:
	//   - An error if the session failed; nil for a clean session
	Handle(e Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(e Event) error

// Handle implements Handler by calling f.
func (f HandlerFunc) Handle(e Event) error {
	return f(e)
}

// Listener reacts to a raised event by resolving the Handler responsible
// for it and invoking Handle. The dispatch sequence is fixed across
// implementations; they differ only in how the handler is resolved.
type Listener interface {
	// OnEvent dispatches one event to its handler.
	//
	// Returns:
	//   - ErrNoHandler (wrapped) if resolution fails, otherwise whatever
	//     the handler returned
	OnEvent(e Event) error
}
