package directory

import (
	"sync"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerClose(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		m := &SessionManager{pool: make(chan *ldap.Conn, 2)}
		require.NoError(t, m.Close())
		require.NoError(t, m.Close())
	})

	t.Run("pool channel survives close", func(t *testing.T) {
		m := &SessionManager{pool: make(chan *ldap.Conn, 2)}
		require.NoError(t, m.Close())

		// An in-flight put sends on this channel; it must still be open
		// after Close or that send would panic.
		require.NotPanics(t, func() {
			select {
			case m.pool <- nil:
			default:
			}
		})
	})

	t.Run("concurrent close and put", func(t *testing.T) {
		m := &SessionManager{pool: make(chan *ldap.Conn, 2)}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.put(nil)
			}()
		}
		require.NoError(t, m.Close())
		wg.Wait()
	})

	t.Run("get after close fails", func(t *testing.T) {
		m := &SessionManager{pool: make(chan *ldap.Conn, 2)}
		require.NoError(t, m.Close())

		_, err := m.get()
		require.Error(t, err)
	})
}
