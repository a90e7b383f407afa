package sio

import (
	"testing"

	"github.com/karagenc/sio-client-go/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLookupConfig() (*Config, *utils.TestDialer) {
	dialer := utils.NewTestDialer(nil)
	config := &Config{
		Manager: ManagerConfig{
			Dialer:        dialer.Dial,
			NoAutoConnect: true,
		},
	}
	return config, dialer
}

func TestLookup(t *testing.T) {
	t.Run("should share the manager of the same host", func(t *testing.T) {
		r := NewRegistry()
		config, _ := newLookupConfig()

		root, err := r.Lookup("http://localhost:3000", config)
		require.NoError(t, err)
		chat, err := r.Lookup("http://localhost:3000/chat", config)
		require.NoError(t, err)
		admin, err := r.Lookup("localhost:3000/admin", &Config{Manager: config.Manager})
		require.NoError(t, err)

		assert.Equal(t, "/", root.Namespace())
		assert.Equal(t, "/chat", chat.Namespace())
		assert.Same(t, root.Manager(), chat.Manager())
		assert.NotSame(t, root.Manager(), admin.Manager(), "different scheme")

		m, ok := r.Manager("http://localhost:3000/other")
		require.True(t, ok)
		assert.Same(t, root.Manager(), m)
		assert.Len(t, m.Sockets(), 2)
	})

	t.Run("should create a new manager when asked to", func(t *testing.T) {
		r := NewRegistry()
		config, _ := newLookupConfig()

		first, err := r.Lookup("http://localhost:3000/chat", config)
		require.NoError(t, err)

		config.ForceNew = true
		second, err := r.Lookup("http://localhost:3000/news", config)
		require.NoError(t, err)
		assert.NotSame(t, first.Manager(), second.Manager())

		config.ForceNew = false
		config.NoMultiplex = true
		third, err := r.Lookup("http://localhost:3000/news", config)
		require.NoError(t, err)
		assert.NotSame(t, first.Manager(), third.Manager())
		assert.NotSame(t, second.Manager(), third.Manager())

		// Only the multiplexed manager is cached.
		m, ok := r.Manager("http://localhost:3000")
		require.True(t, ok)
		assert.Same(t, first.Manager(), m)
	})

	t.Run("should create a new manager for a namespace already in use", func(t *testing.T) {
		r := NewRegistry()
		config, _ := newLookupConfig()

		first, err := r.Lookup("http://localhost:3000/chat", config)
		require.NoError(t, err)
		second, err := r.Lookup("http://localhost:3000/chat", config)
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.NotSame(t, first.Manager(), second.Manager())
	})

	t.Run("should send the query of the URL to the namespace", func(t *testing.T) {
		r := NewRegistry()
		config, dialer := newLookupConfig()
		config.Manager.NoAutoConnect = false

		socket, err := r.Lookup("http://localhost:3000/chat?token=abc", config)
		require.NoError(t, err)
		assert.Equal(t, "token=abc", socket.query)

		tr, err := dialer.Next(testWait)
		require.NoError(t, err)
		tr.SimulateOpen()
		assert.Equal(t, []string{"0/chat?token=abc,"}, nextTexts(t, tr, 1))

		config.ForceNew = true
		config.Socket.Query = map[string]string{"token": "xyz"}
		socket, err = r.Lookup("http://localhost:3000/chat?token=abc", config)
		require.NoError(t, err)
		assert.Equal(t, "token=xyz", socket.query)
	})

	t.Run("should reject an invalid URL", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Lookup("http://[::1", nil)
		assert.Error(t, err)
	})

	t.Run("should forget managers on reset", func(t *testing.T) {
		r := NewRegistry()
		config, _ := newLookupConfig()

		first, err := r.Lookup("http://localhost:3000", config)
		require.NoError(t, err)
		r.Reset()
		_, ok := r.Manager("http://localhost:3000")
		assert.False(t, ok)

		second, err := r.Lookup("http://localhost:3000", config)
		require.NoError(t, err)
		assert.NotSame(t, first.Manager(), second.Manager())
	})
}

func TestPackageLookup(t *testing.T) {
	t.Cleanup(ResetManagers)
	config, _ := newLookupConfig()

	first, err := Lookup("http://localhost:3001/a", config)
	require.NoError(t, err)
	second, err := Connect("http://localhost:3001/b", config)
	require.NoError(t, err)
	assert.Same(t, first.Manager(), second.Manager())
}
