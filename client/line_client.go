// Package client provides a small client for line-protocol services: dial,
// read lines, send lines, close. Integration tests drive servers with it,
// and it doubles as a programmatic alternative to netcat for consumers.
package client

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/lineserv/lineproto"
)

// Config holds configuration for the line client.
type Config struct {
	// Address is the "host:port" to connect to (e.g. "localhost:7007").
	Address string
	// ConnectTimeout is the max duration for establishing the connection.
	ConnectTimeout time.Duration
	// ReadTimeout is the max duration to wait for a line; 0 means no timeout.
	ReadTimeout time.Duration
	// WriteTimeout is the max duration for sending a line; 0 means no timeout.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with default timeouts for the given address.
//
// Parameters:
//   - address: The "host:port" to connect to
//
// Returns:
//   - A Config with defaults: ConnectTimeout 10s, ReadTimeout 10s,
//     WriteTimeout 10s.
func DefaultConfig(address string) Config {
	return Config{
		Address:        address,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// LineClient is a connected line-protocol session. It is safe for use by one
// goroutine at a time per direction; Close may be called from any goroutine
// and is idempotent.
type LineClient struct {
	config Config
	conn   net.Conn
	lio    *lineproto.LineIO

	mu     sync.Mutex
	closed bool
}

// Dial connects to the configured address and wraps the connection for line
// I/O. The greeting line the server sends on connect is not consumed; read
// it with ReadLine.
//
// Parameters:
//   - config: Connection settings (e.g. from DefaultConfig)
//
// Returns:
//   - A connected *LineClient; call Close when done
//   - An error if the dial fails
func Dial(config Config) (*LineClient, error) {
	conn, err := net.DialTimeout("tcp", config.Address, config.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Address, err)
	}

	return &LineClient{
		config: config,
		conn:   conn,
		lio:    lineproto.NewLineIO(conn),
	}, nil
}

// ReadLine reads the next line from the server, terminator stripped. When
// ReadTimeout is set, the read is limited to that duration.
//
// Returns:
//   - The line without its terminator
//   - io.EOF when the server has closed the connection, or another error
//     if the read fails
func (c *LineClient) ReadLine() (string, error) {
	if c.config.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout)); err != nil {
			return "", err
		}

		defer func() {
			_ = c.conn.SetReadDeadline(time.Time{}) // Best effort to clear deadline
		}()
	}

	return c.lio.ReadLine()
}

// SendLine sends one line to the server, terminator appended. When
// WriteTimeout is set, the write is limited to that duration.
//
// Parameters:
//   - text: The line to send, without terminator
//
// Returns:
//   - An error if the write fails
func (c *LineClient) SendLine(text string) error {
	if c.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = c.conn.SetWriteDeadline(time.Time{}) // Best effort to clear deadline
		}()
	}

	return c.lio.WriteLine(text)
}

// LocalAddr returns the local address of the underlying connection.
func (c *LineClient) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close closes the connection. Idempotent; calling Close multiple times is
// safe and returns nil after the first call.
//
// Returns:
//   - The error from closing the connection, if any
func (c *LineClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.conn.Close()
}
