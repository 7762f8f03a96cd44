package handler

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/lineserv/event"
)

// startSession runs h.Handle over one end of an in-memory pipe and returns
// the client end, a buffered reader over it, and the channel carrying the
// handler's result.
func startSession(t *testing.T, h event.Handler) (net.Conn, *bufio.Reader, <-chan error) {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		_ = serverConn.Close()
		_ = clientConn.Close()
	})

	done := make(chan error, 1)
	go func() {
		done <- h.Handle(event.Event{ID: 1, Service: "test", Conn: serverConn, Received: time.Now()})
	}()

	return clientConn, bufio.NewReader(clientConn), done
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.NotEmpty(t, line)
	return line[:len(line)-1]
}

func sendLine(t *testing.T, conn net.Conn, text string) {
	t.Helper()

	_, err := conn.Write([]byte(text + "\n"))
	require.NoError(t, err)
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not finish")
		return nil
	}
}

func TestEcho_Handle_EchoesLinesUntilStop(t *testing.T) {
	client, r, done := startSession(t, &Echo{})

	assert.Equal(t, EchoGreeting, readLine(t, r))

	for _, line := range []string{"hello", "world!", "", "  spaced  "} {
		sendLine(t, client, line)
		assert.Equal(t, line, readLine(t, r))
	}

	sendLine(t, client, "stop")
	assert.Equal(t, EchoFarewell, readLine(t, r))

	require.NoError(t, waitDone(t, done))

	// Connection is closed after the farewell.
	_, err := r.ReadString('\n')
	assert.Error(t, err)
}

func TestEcho_Handle_StopAsFirstLine(t *testing.T) {
	client, r, done := startSession(t, &Echo{})

	assert.Equal(t, EchoGreeting, readLine(t, r))

	// The sentinel itself is never echoed; the farewell comes straight back.
	sendLine(t, client, "stop")
	assert.Equal(t, EchoFarewell, readLine(t, r))

	require.NoError(t, waitDone(t, done))
}

func TestEcho_Handle_ClientDisconnectEndsSessionCleanly(t *testing.T) {
	client, r, done := startSession(t, &Echo{})

	assert.Equal(t, EchoGreeting, readLine(t, r))

	sendLine(t, client, "one")
	assert.Equal(t, "one", readLine(t, r))

	// Disconnect without the sentinel: no farewell, clean handler exit.
	require.NoError(t, client.Close())
	require.NoError(t, waitDone(t, done))
}

func TestEcho_Handle_WriteFailureIsTransportFailure(t *testing.T) {
	client, r, done := startSession(t, &Echo{})

	assert.Equal(t, EchoGreeting, readLine(t, r))

	// Deliver a line, then close before reading the echo so the handler's
	// write fails.
	sendLine(t, client, "boom")
	require.NoError(t, client.Close())

	err := waitDone(t, done)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestEcho_Handle_CustomGreeting(t *testing.T) {
	client, r, done := startSession(t, &Echo{Greeting: StaticGreeting("echo here")})

	assert.Equal(t, "echo here", readLine(t, r))

	sendLine(t, client, "stop")
	assert.Equal(t, EchoFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}
