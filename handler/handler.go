// Package handler implements the lineserv event handlers: Echo, which
// sends every client line back unchanged, and FileServe, which interprets
// client lines as paths under a document root and answers with directory
// listings, file contents, or a not-found line.
//
// Both handlers share the same session framing: one greeting line on
// connect, a line-by-line request loop ended by the sentinel line or by
// client disconnect, one farewell line on sentinel, and a guaranteed
// best-effort close of the connection on every exit path.
package handler

import (
	"errors"
	"fmt"

	"github.com/cyberinferno/lineserv/logger"
)

// StopLine is the sentinel client input that ends a session.
const StopLine = "stop"

// ErrTransport is the single handler-level failure kind: any I/O error
// raised while a session is reading or writing. It wraps the underlying
// error and is returned only after the connection has been closed.
var ErrTransport = errors.New("transport failure")

// transportErr wraps an I/O error into the handler-level failure kind,
// keeping both ErrTransport and the cause in the error chain.
func transportErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

// sessionLogger derives a per-session logger, falling back to a no-op
// logger when the handler was built without one.
func sessionLogger(base logger.Logger, id uint64, remote string) logger.Logger {
	if base == nil {
		base = logger.Nop()
	}

	return base.With(
		logger.Field{Key: "session", Value: id},
		logger.Field{Key: "remote", Value: remote},
	)
}
