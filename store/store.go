// Package store persists session records so operators can inspect who
// connected, to which service, and how each session ended. Backends share
// the Recorder interface; the server works the same with recording
// disabled, held in memory, or pushed to redis.
package store

import (
	"context"
	"time"
)

// Session is one completed session as seen by the server.
type Session struct {
	// ID is the server-assigned session identifier.
	ID uint64 `json:"id"`
	// Service names the listening service the session connected to.
	Service string `json:"service"`
	// RemoteAddr is the peer address of the session's connection.
	RemoteAddr string `json:"remote_addr"`
	// StartedAt is when the connection was accepted.
	StartedAt time.Time `json:"started_at"`
	// Duration is how long the session lasted end to end.
	Duration time.Duration `json:"duration"`
	// Err holds the handler's error text when the session failed, empty
	// for sessions that ended cleanly.
	Err string `json:"err,omitempty"`
}

// Recorder is an interface that defines methods for persisting completed
// sessions and reading them back. Implementations must be safe for
// concurrent use; the server records from every session goroutine.
type Recorder interface {
	// Record persists one completed session.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - s: The completed session to persist
	//
	// Returns:
	//   - An error if the session could not be persisted
	Record(ctx context.Context, s Session) error

	// Recent returns the most recently started sessions, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - limit: Maximum number of sessions to return (0 for no limit)
	//
	// Returns:
	//   - The retained sessions, newest first
	//   - An error if the sessions could not be read
	Recent(ctx context.Context, limit int) ([]Session, error)

	// Count returns the total number of sessions recorded, including
	// sessions that have since aged out of retention.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//
	// Returns:
	//   - The lifetime session count
	//   - An error if the count could not be read
	Count(ctx context.Context) (int64, error)

	// Close releases any resources held by the recorder.
	//
	// Returns:
	//   - An error if the recorder could not be closed
	Close() error
}

// nopRecorder discards every record. It backs servers that run with
// session recording disabled.
type nopRecorder struct{}

// NewNopRecorder creates a Recorder that keeps nothing.
//
// Returns:
//   - A Recorder whose methods all succeed without doing anything
func NewNopRecorder() Recorder {
	return nopRecorder{}
}

// Record implements Recorder.
func (nopRecorder) Record(ctx context.Context, s Session) error {
	return nil
}

// Recent implements Recorder.
func (nopRecorder) Recent(ctx context.Context, limit int) ([]Session, error) {
	return nil, nil
}

// Count implements Recorder.
func (nopRecorder) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

// Close implements Recorder.
func (nopRecorder) Close() error {
	return nil
}
