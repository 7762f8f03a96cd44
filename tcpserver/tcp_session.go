package tcpserver

import (
	"net"
	"sync"
)

// sessionConn wraps an accepted connection so Close is idempotent. The
// handler closes the connection on every exit path, the server enforces
// closure after dispatch, and a graceful stop closes live sessions to
// unblock stalled reads; only the first close reaches the underlying
// connection.
type sessionConn struct {
	net.Conn
	once     sync.Once
	closeErr error
}

// newSessionConn wraps conn for use as one session's connection.
func newSessionConn(conn net.Conn) *sessionConn {
	return &sessionConn{Conn: conn}
}

// Close closes the underlying connection exactly once. Later calls return
// the first close's result.
func (c *sessionConn) Close() error {
	c.once.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// sessionRegistry tracks live sessions by ID. It is safe for concurrent
// use: the accept loop adds, session dispatch removes, and Stop iterates
// to close whatever is still live.
type sessionRegistry struct {
	m sync.Map
}

// add stores a session under the given id.
func (r *sessionRegistry) add(id uint64, conn *sessionConn) {
	r.m.Store(id, conn)
}

// remove deletes the session with the given id. It is a no-op for an id
// that is not registered.
func (r *sessionRegistry) remove(id uint64) {
	r.m.Delete(id)
}

// each calls f for every live session. If f returns false, iteration stops.
func (r *sessionRegistry) each(f func(id uint64, conn *sessionConn) bool) {
	r.m.Range(func(k, v interface{}) bool {
		return f(k.(uint64), v.(*sessionConn))
	})
}

// len returns the number of live sessions. It iterates over all entries to
// compute the count.
func (r *sessionRegistry) len() int {
	length := 0
	r.each(func(id uint64, conn *sessionConn) bool {
		length++
		return true
	})

	return length
}
