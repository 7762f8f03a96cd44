package handler

import (
	"errors"
	"io"

	"github.com/cyberinferno/lineserv/event"
	"github.com/cyberinferno/lineserv/lineproto"
	"github.com/cyberinferno/lineserv/logger"
)

// Default greeting and farewell lines of the echo service. The wire
// protocol pins neither; they only have to identify the service.
const (
	EchoGreeting = "Welcome to the echo server. Send 'stop' to end the session."
	EchoFarewell = "Bye."
)

// Echo is the event handler that sends every client line back unchanged.
// The zero value is usable; Logger and Greeting are optional. Echo holds
// no per-call mutable state, so one instance may serve any number of
// concurrent sessions.
type Echo struct {
	// Logger receives session-scoped debug entries. Optional.
	Logger logger.Logger
	// Greeting overrides the greeting line source. Optional; defaults to
	// the static EchoGreeting text.
	Greeting GreetingSource
}

// Handle implements event.Handler. It runs the echo protocol loop to
// completion and closes the connection on every exit path before any
// failure propagates.
func (h *Echo) Handle(e event.Event) error {
	defer func() {
		_ = e.Conn.Close()
	}()

	log := sessionLogger(h.Logger, e.ID, e.Conn.RemoteAddr().String())
	lio := lineproto.NewLineIO(e.Conn)

	if err := lio.WriteLine(greetingText(h.Greeting, EchoGreeting)); err != nil {
		return transportErr("write greeting", err)
	}

	for {
		line, err := lio.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("client disconnected")
				return nil
			}

			return transportErr("read line", err)
		}

		if line == StopLine {
			if err := lio.WriteLine(EchoFarewell); err != nil {
				return transportErr("write farewell", err)
			}

			log.Debug("session ended by sentinel")
			return nil
		}

		if err := lio.WriteLine(line); err != nil {
			return transportErr("echo line", err)
		}
	}
}
