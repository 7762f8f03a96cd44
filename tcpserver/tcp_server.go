package tcpserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cyberinferno/lineserv/event"
	"github.com/cyberinferno/lineserv/logger"
	"github.com/cyberinferno/lineserv/store"
)

// Mode selects how the server dispatches accepted connections.
type Mode string

const (
	// ModeSerial handles each connection to completion before the next
	// accept. A second client waits until the first session ends.
	ModeSerial Mode = "serial"
	// ModeConcurrent handles each connection in its own goroutine,
	// bounded by MaxSessions when set.
	ModeConcurrent Mode = "concurrent"
)

// recordTimeout bounds how long a session outcome may take to persist.
const recordTimeout = 5 * time.Second

// Server is a TCP server that accepts connections and raises each one as an
// event on EventListener, which resolves and invokes the handler that owns
// the connection. Live sessions are tracked by ID so a graceful stop can
// close them. The server runs its accept loop in a goroutine and supports
// graceful stop.
type Server struct {
	Logger        logger.Logger
	Name          string
	Addr          string
	Listener      net.Listener
	EventListener event.Listener
	Mode          Mode
	MaxSessions   int64
	Recorder      store.Recorder
	Running       atomic.Bool

	sessions sessionRegistry
	nextID   atomic.Uint64
	sem      *semaphore.Weighted
	wg       sync.WaitGroup

	// testHookAccepted, when non-nil, runs after Accept returns and
	// before the session is registered.
	testHookAccepted func()
}

// Start starts the TCP server by binding to Addr and beginning the accept loop
// in a goroutine. It is safe to call only when the server is not already running.
//
// Returns:
//   - An error if the server is already running, has no event listener, or
//     if listening on Addr fails
func (s *Server) Start() error {
	if s.Logger == nil {
		s.Logger = logger.Nop()
	}
	if s.Recorder == nil {
		s.Recorder = store.NewNopRecorder()
	}
	if s.Mode == "" {
		s.Mode = ModeSerial
	}

	if s.Running.Load() {
		s.Logger.Error("server already running")
		return fmt.Errorf("server %s already running", s.Name)
	}

	if s.EventListener == nil {
		s.Logger.Error("server has no event listener")
		return fmt.Errorf("server %s has no event listener", s.Name)
	}

	if s.Mode == ModeConcurrent && s.MaxSessions > 0 {
		s.sem = semaphore.NewWeighted(s.MaxSessions)
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.Logger.Error("server failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("server %s failed to start: %w", s.Name, err)
	}

	s.Listener = ln
	s.Running.Store(true)

	s.Logger.Info(fmt.Sprintf("%s server started", s.Name),
		logger.Field{Key: "addr", Value: ln.Addr().String()},
		logger.Field{Key: "mode", Value: string(s.Mode)})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.AcceptLoop()
	}()

	return nil
}

// Stop stops the TCP server: it sets Running to false, closes the listener,
// closes all live sessions, and waits for in-flight sessions to finish.
// Safe to call when the server is not running.
func (s *Server) Stop() {
	if !s.Running.Load() {
		if s.Logger != nil {
			s.Logger.Info(fmt.Sprintf("%s server not running", s.Name))
		}
		return
	}

	s.Running.Store(false)
	if s.Listener != nil {
		_ = s.Listener.Close()
	}

	s.sessions.each(func(id uint64, conn *sessionConn) bool {
		_ = conn.Close()
		return true
	})

	s.wg.Wait()
	s.Logger.Info(fmt.Sprintf("%s server stopped", s.Name))
}

// ActiveSessions returns the number of sessions currently being handled.
//
// Returns:
//   - The live session count
func (s *Server) ActiveSessions() int {
	return s.sessions.len()
}

// AcceptLoop runs in a goroutine and accepts incoming connections. For each
// connection it assigns an ID, registers the session, and raises an event to
// EventListener. In serial mode the event is handled to completion before
// the next accept; in concurrent mode it is handled in a new goroutine,
// gated by a weighted semaphore when MaxSessions is set. It exits when the
// server is stopped (Running is false).
func (s *Server) AcceptLoop() {
	for s.Running.Load() {
		if s.sem != nil {
			if err := s.sem.Acquire(context.Background(), 1); err != nil {
				return
			}
		}

		conn, err := s.Listener.Accept()
		if err != nil {
			if s.sem != nil {
				s.sem.Release(1)
			}
			if !s.Running.Load() {
				return
			}

			s.Logger.Error(fmt.Sprintf("%s server accept error", s.Name), logger.Field{Key: "error", Value: err})
			continue
		}

		if s.testHookAccepted != nil {
			s.testHookAccepted()
		}

		id := s.nextID.Add(1)
		session := newSessionConn(conn)
		s.sessions.add(id, session)

		// Stop's close sweep can run between Accept and add and miss this
		// session. Stop stores Running false before it sweeps, so that
		// interleaving is visible here.
		if !s.Running.Load() {
			_ = session.Close()
		}

		if s.Mode == ModeConcurrent {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if s.sem != nil {
					defer s.sem.Release(1)
				}
				s.serve(id, session)
			}()
			continue
		}

		s.serve(id, session)
	}
}

// serve raises one session's event, then deregisters it, enforces closure,
// and records the outcome. Handler failures are logged and recorded; they
// never stop the server.
func (s *Server) serve(id uint64, conn *sessionConn) {
	started := time.Now()
	remote := conn.RemoteAddr().String()

	err := s.EventListener.OnEvent(event.Event{
		ID:       id,
		Service:  s.Name,
		Conn:     conn,
		Received: started,
	})

	s.sessions.remove(id)
	_ = conn.Close()

	rec := store.Session{
		ID:         id,
		Service:    s.Name,
		RemoteAddr: remote,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	if err != nil {
		rec.Err = err.Error()
		s.Logger.Error(fmt.Sprintf("%s server session failed", s.Name),
			logger.Field{Key: "session", Value: id},
			logger.Field{Key: "remote", Value: remote},
			logger.Field{Key: "error", Value: err})
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if recordErr := s.Recorder.Record(ctx, rec); recordErr != nil {
		s.Logger.Warn(fmt.Sprintf("%s server failed to record session", s.Name),
			logger.Field{Key: "session", Value: id},
			logger.Field{Key: "error", Value: recordErr})
	}
}
