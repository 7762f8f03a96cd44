package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedListener_OnEvent(t *testing.T) {
	t.Run("invokes the configured handler with the event", func(t *testing.T) {
		var got Event
		l := NewFixedListener(HandlerFunc(func(e Event) error {
			got = e
			return nil
		}))

		err := l.OnEvent(Event{ID: 7, Service: "echo"})
		require.NoError(t, err)
		assert.Equal(t, uint64(7), got.ID)
		assert.Equal(t, "echo", got.Service)
	})

	t.Run("handler failure propagates unchanged", func(t *testing.T) {
		l := NewFixedListener(HandlerFunc(func(e Event) error {
			return assert.AnError
		}))

		err := l.OnEvent(Event{})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestRegistry_OnEvent(t *testing.T) {
	t.Run("resolves by service name", func(t *testing.T) {
		r := NewRegistry()
		var handled string
		r.Register("echo", HandlerFunc(func(e Event) error {
			handled = "echo"
			return nil
		}))
		r.Register("file", HandlerFunc(func(e Event) error {
			handled = "file"
			return nil
		}))

		require.NoError(t, r.OnEvent(Event{Service: "file"}))
		assert.Equal(t, "file", handled)

		require.NoError(t, r.OnEvent(Event{Service: "echo"}))
		assert.Equal(t, "echo", handled)
	})

	t.Run("unknown service yields ErrNoHandler", func(t *testing.T) {
		r := NewRegistry()
		r.Register("echo", HandlerFunc(func(e Event) error { return nil }))

		err := r.OnEvent(Event{Service: "ftp"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoHandler)
		assert.Contains(t, err.Error(), "ftp")
	})

	t.Run("resolution failure is distinct from handler failure", func(t *testing.T) {
		r := NewRegistry()
		r.Register("echo", HandlerFunc(func(e Event) error {
			return assert.AnError
		}))

		err := r.OnEvent(Event{Service: "echo"})
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, errors.Is(err, ErrNoHandler))
	})

	t.Run("register replaces a previous binding", func(t *testing.T) {
		r := NewRegistry()
		r.Register("echo", HandlerFunc(func(e Event) error { return assert.AnError }))
		r.Register("echo", HandlerFunc(func(e Event) error { return nil }))

		assert.NoError(t, r.OnEvent(Event{Service: "echo"}))
	})
}

func TestRegistry_Services(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Services())

	r.Register("echo", HandlerFunc(func(e Event) error { return nil }))
	r.Register("file", HandlerFunc(func(e Event) error { return nil }))

	assert.ElementsMatch(t, []string{"echo", "file"}, r.Services())
}
