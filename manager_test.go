package sio

import (
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/karagenc/sio-client-go/internal/utils"
	"github.com/karagenc/sio-client-go/parser"
	jsonparser "github.com/karagenc/sio-client-go/parser/json"
	"github.com/karagenc/sio-client-go/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWait     = utils.DefaultTestWaitTimeout
	testNoEvents = 200 * time.Millisecond
)

func openImmediately(t *utils.TestTransport) { t.SimulateOpen() }

func failImmediately(t *utils.TestTransport) { t.SimulateError(errors.New("connection refused")) }

func durationPtr(d time.Duration) *time.Duration { return &d }

func float32Ptr(f float32) *float32 { return &f }

func newTestManager(config *ManagerConfig, onOpen func(t *utils.TestTransport)) (*Manager, *utils.TestDialer) {
	dialer := utils.NewTestDialer(onOpen)
	if config == nil {
		config = new(ManagerConfig)
	}
	config.Dialer = dialer.Dial
	return NewManager("http://localhost:3000", config), dialer
}

// connectSocket connects a socket and completes the namespace handshake.
func connectSocket(t *testing.T, m *Manager, dialer *utils.TestDialer, namespace string) (*Socket, *utils.TestTransport) {
	t.Helper()
	socket := m.Socket(namespace, nil)
	socket.Connect()

	tr, err := dialer.Next(testWait)
	require.NoError(t, err)

	if namespace == "/" {
		require.Eventually(t, func() bool { return m.ReadyState() == ReadyStateOpen }, testWait, time.Millisecond)
		tr.SimulateText("0")
	} else {
		connect, err := tr.NextText(testWait)
		require.NoError(t, err)
		require.Equal(t, "0"+namespace+",", connect)
		tr.SimulateText("0" + namespace + ",")
	}
	require.True(t, socket.Connected())
	return socket, tr
}

func TestManagerOpen(t *testing.T) {
	t.Run("should call the callback once open", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect: true,
			Path:          "/custom",
			Query:         map[string]string{"token": "abc"},
		}, openImmediately)

		tw := utils.NewTestWaiterString()
		tw.Add("open event")
		tw.Add("callback")
		m.OnOpen(func() { tw.Done("open event") })
		m.Open(func(err error) {
			assert.NoError(t, err)
			tw.Done("callback")
		})
		tw.WaitTimeout(t, testWait)

		assert.Equal(t, ReadyStateOpen, m.ReadyState())
		configs := dialer.Configs()
		require.Len(t, configs, 1)
		assert.Equal(t, "http://localhost:3000", configs[0].URL)
		assert.Equal(t, "/custom", configs[0].Path)
		assert.Equal(t, url.Values{"token": {"abc"}}, configs[0].Query)

		// Already open.
		m.Open(nil)
		assert.Len(t, dialer.Transports(), 1)
	})

	t.Run("should open automatically", func(t *testing.T) {
		m, dialer := newTestManager(nil, openImmediately)
		_, err := dialer.Next(testWait)
		require.NoError(t, err)
		require.Eventually(t, func() bool { return m.ReadyState() == ReadyStateOpen }, testWait, time.Millisecond)
		m.Close()
	})

	t.Run("should pass the error to the callback without reconnecting", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect:     true,
			ReconnectionDelay: durationPtr(time.Millisecond),
		}, failImmediately)

		tw := utils.NewTestWaiterString()
		tw.Add("connect_error")
		tw.Add("callback")
		m.OnConnectError(func(err error) {
			assert.EqualError(t, err, "connection refused")
			tw.Done("connect_error")
		})
		m.OnReconnectAttempt(func(uint32) { t.Error("reconnect_attempt must not be emitted") })
		m.Open(func(err error) {
			var connectErr *ConnectError
			if assert.ErrorAs(t, err, &connectErr) {
				assert.EqualError(t, connectErr.Err, "connection refused")
			}
			tw.Done("callback")
		})
		tw.WaitTimeout(t, testWait)

		time.Sleep(testNoEvents)
		assert.Equal(t, ReadyStateClosed, m.ReadyState())
		assert.Len(t, dialer.Transports(), 1)
	})

	t.Run("should time out", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect:  true,
			NoReconnection: true,
			Timeout:        durationPtr(50 * time.Millisecond),
		}, nil)

		tw := utils.NewTestWaiterString()
		tw.Add("connect_error")
		tw.Add("connect_timeout")
		tw.Add("callback")
		m.OnConnectError(func(err error) {
			assert.ErrorIs(t, err, ErrTimeout)
			tw.Done("connect_error")
		})
		m.OnConnectTimeout(func(timeout time.Duration) {
			assert.Equal(t, 50*time.Millisecond, timeout)
			tw.Done("connect_timeout")
		})
		m.Open(func(err error) {
			assert.ErrorIs(t, err, ErrTimeout)
			tw.Done("callback")
		})
		tw.WaitTimeout(t, testWait)

		transports := dialer.Transports()
		require.Len(t, transports, 1)
		assert.True(t, transports[0].IsClosed())
		assert.Equal(t, ReadyStateClosed, m.ReadyState())
	})

	t.Run("should ignore a late open after timing out", func(t *testing.T) {
		release := make(chan struct{})
		m, _ := newTestManager(&ManagerConfig{
			NoAutoConnect:  true,
			NoReconnection: true,
			Timeout:        durationPtr(20 * time.Millisecond),
		}, func(t *utils.TestTransport) {
			<-release
			t.SimulateOpen()
		})

		tw := utils.NewTestWaiter(1)
		m.Open(func(err error) {
			assert.ErrorIs(t, err, ErrTimeout)
			tw.Done()
		})
		tw.WaitTimeout(t, testWait)

		close(release)
		time.Sleep(testNoEvents)
		assert.Equal(t, ReadyStateClosed, m.ReadyState())
	})

	t.Run("NoTimeout disables the timeout", func(t *testing.T) {
		m, _ := newTestManager(&ManagerConfig{NoAutoConnect: true, NoTimeout: true}, nil)
		assert.Equal(t, time.Duration(0), m.Timeout())
		m.OnConnectTimeout(func(time.Duration) { t.Error("connect_timeout must not be emitted") })
		m.Open(nil)
		time.Sleep(testNoEvents)
		assert.Equal(t, ReadyStateOpening, m.ReadyState())
		m.Close()
		assert.Equal(t, ReadyStateClosed, m.ReadyState())
	})
}

func TestManagerConfig(t *testing.T) {
	m, _ := newTestManager(&ManagerConfig{NoAutoConnect: true}, nil)
	assert.True(t, m.Reconnection())
	assert.Equal(t, uint32(0), m.ReconnectionAttempts())
	assert.Equal(t, DefaultReconnectionDelay, m.ReconnectionDelay())
	assert.Equal(t, DefaultReconnectionDelayMax, m.ReconnectionDelayMax())
	assert.Equal(t, DefaultRandomizationFactor, m.RandomizationFactor())
	assert.Equal(t, DefaultTimeout, m.Timeout())

	m.SetReconnection(false)
	m.SetReconnectionAttempts(3)
	m.SetReconnectionDelay(2 * time.Second)
	m.SetReconnectionDelayMax(10 * time.Second)
	m.SetRandomizationFactor(0)
	m.SetTimeout(time.Second)

	assert.False(t, m.Reconnection())
	assert.Equal(t, uint32(3), m.ReconnectionAttempts())
	assert.Equal(t, 2*time.Second, m.ReconnectionDelay())
	assert.Equal(t, 10*time.Second, m.ReconnectionDelayMax())
	assert.Equal(t, float32(0), m.RandomizationFactor())
	assert.Equal(t, time.Second, m.Timeout())
	assert.Equal(t, 2*time.Second, m.backoff.duration())
}

type countingParser struct {
	parser.Parser
	block       chan struct{}
	blocked     atomic.Bool
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (p *countingParser) Encode(packet *parser.Packet) ([][]byte, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		seen := p.maxInFlight.Load()
		if n <= seen || p.maxInFlight.CompareAndSwap(seen, n) {
			break
		}
	}
	if p.blocked.CompareAndSwap(false, true) {
		<-p.block
	}
	return p.Parser.Encode(packet)
}

func TestManagerPacket(t *testing.T) {
	t.Run("should encode one packet at a time and keep order", func(t *testing.T) {
		p := &countingParser{
			Parser: jsonparser.NewCreator(0, nil)(),
			block:  make(chan struct{}),
		}
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect: true,
			ParserCreator: func() parser.Parser { return p },
		}, openImmediately)

		tw := utils.NewTestWaiter(1)
		m.Open(func(err error) {
			assert.NoError(t, err)
			tw.Done()
		})
		tw.WaitTimeout(t, testWait)
		tr := dialer.Transports()[0]

		event := func(name string) *parser.Packet {
			return &parser.Packet{
				Type:      parser.PacketTypeEvent,
				Namespace: "/",
				Data:      []any{name},
			}
		}

		go m.packet(event("1"))
		require.Eventually(t, func() bool { return p.inFlight.Load() == 1 }, testWait, time.Millisecond)

		m.packet(event("2"))
		m.packet(&parser.Packet{
			Type:      parser.PacketTypeBinaryEvent,
			Namespace: "/",
			Data:      []any{"3", []byte{3}},
		})
		m.packet(event("4"))
		close(p.block)

		expected := []string{`2["1"]`, `2["2"]`, `51-["3",{"_placeholder":true,"num":0}]`, "\x03", `2["4"]`}
		for _, e := range expected {
			frame, err := tr.NextFrame(testWait)
			require.NoError(t, err)
			assert.Equal(t, e, string(frame.Data))
		}
		assert.Equal(t, int32(1), p.maxInFlight.Load())

		frames := tr.Frames()
		require.Len(t, frames, 5)
		assert.True(t, frames[3].IsBinary)
		assert.False(t, frames[2].IsBinary)
	})

	t.Run("should report encode errors", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{NoAutoConnect: true}, openImmediately)
		socket, _ := connectSocket(t, m, dialer, "/")

		tw := utils.NewTestWaiter(1)
		socket.OnError(func(err error) {
			assert.Error(t, err)
			tw.Done()
		})
		socket.Emit("fn", []any{func() {}})
		tw.WaitTimeout(t, testWait)
		m.Close()
	})
}

func TestManagerDecodeError(t *testing.T) {
	m, dialer := newTestManager(&ManagerConfig{NoAutoConnect: true, NoReconnection: true}, openImmediately)
	_, tr := connectSocket(t, m, dialer, "/")

	tw := utils.NewTestWaiterString()
	tw.Add("error")
	tw.Add("close")
	m.OnError(func(err error) { tw.Done("error") })
	m.OnClose(func(reason Reason, err error) {
		assert.Equal(t, ReasonForcedClose, reason)
		tw.Done("close")
	})
	tr.SimulateText("9invalid")
	tw.WaitTimeout(t, testWait)

	assert.True(t, tr.IsClosed())
	assert.Equal(t, ReadyStateClosed, m.ReadyState())
}

func TestManagerPingPong(t *testing.T) {
	m, dialer := newTestManager(&ManagerConfig{NoAutoConnect: true}, openImmediately)
	socket, tr := connectSocket(t, m, dialer, "/")

	tw := utils.NewTestWaiterString()
	tw.Add("manager ping")
	tw.Add("socket ping")
	tw.Add("pong")
	m.OnPing(func() { tw.Done("manager ping") })
	socket.OnPing(func() { tw.Done("socket ping") })
	socket.OnPong(func(latency time.Duration) {
		assert.GreaterOrEqual(t, latency, 10*time.Millisecond)
		tw.Done("pong")
	})

	tr.SimulatePing()
	time.Sleep(10 * time.Millisecond)
	tr.SimulatePong()
	tw.WaitTimeout(t, testWait)
	m.Close()
}

func TestManagerReconnect(t *testing.T) {
	t.Run("should reconnect after the transport closes", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect:       true,
			ReconnectionDelay:   durationPtr(10 * time.Millisecond),
			RandomizationFactor: float32Ptr(0),
		}, openImmediately)
		socket, tr := connectSocket(t, m, dialer, "/chat")
		firstID := socket.ID()
		assert.Equal(t, "/chat#eio1", firstID)

		tw := utils.NewTestWaiterString()
		tw.Add("disconnect")
		tw.Add("reconnect_attempt")
		tw.Add("reconnect")
		socket.OnDisconnect(func(reason Reason) {
			assert.Equal(t, ReasonTransportClose, reason)
			tw.Done("disconnect")
		})
		socket.OnReconnectAttempt(func(attempt uint32) {
			assert.Equal(t, uint32(1), attempt)
			tw.Done("reconnect_attempt")
		})
		m.OnReconnect(func(attempts uint32) {
			assert.Equal(t, uint32(1), attempts)
			tw.Done("reconnect")
		})

		tr.SimulateClose(ReasonTransportClose, nil)
		tw.WaitTimeout(t, testWait)

		tr2, err := dialer.Next(testWait)
		require.NoError(t, err)
		connect, err := tr2.NextText(testWait)
		require.NoError(t, err)
		assert.Equal(t, "0/chat,", connect)

		tr2.SimulateText("0/chat,")
		assert.True(t, socket.Connected())
		assert.Equal(t, "/chat#eio2", socket.ID())
		assert.Equal(t, uint32(0), m.backoff.attempts())
		m.Close()
	})

	t.Run("should give up after the maximum number of attempts", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect:        true,
			ReconnectionAttempts: 2,
			ReconnectionDelay:    durationPtr(10 * time.Millisecond),
			RandomizationFactor:  float32Ptr(0),
		}, failImmediately)

		var (
			attempts        atomic.Int32
			reconnectErrors atomic.Int32
		)
		tw := utils.NewTestWaiter(1)
		socket := m.Socket("/", nil)
		socket.OnReconnectAttempt(func(uint32) { attempts.Add(1) })
		socket.OnReconnectError(func(err error) {
			assert.EqualError(t, err, "connection refused")
			reconnectErrors.Add(1)
		})
		socket.OnReconnectFailed(func() { tw.Done() })
		socket.Connect()
		tw.WaitTimeout(t, testWait)

		time.Sleep(testNoEvents)
		assert.Equal(t, int32(2), attempts.Load())
		assert.Equal(t, int32(2), reconnectErrors.Load())
		// The first attempt and two reconnection attempts.
		assert.Len(t, dialer.Transports(), 3)

		// Connecting again starts over.
		tw.Add(1)
		socket.Connect()
		tw.WaitTimeout(t, testWait)
		assert.Equal(t, int32(4), attempts.Load())
		assert.Len(t, dialer.Transports(), 6)
		m.Close()
	})

	t.Run("should not reconnect after Close during the reconnection delay", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect:       true,
			ReconnectionDelay:   durationPtr(100 * time.Millisecond),
			RandomizationFactor: float32Ptr(0),
		}, openImmediately)
		socket, tr := connectSocket(t, m, dialer, "/")

		m.OnReconnectAttempt(func(uint32) { t.Error("reconnect_attempt must not be emitted") })
		socket.OnReconnecting(func(uint32) { t.Error("reconnecting must not be emitted") })

		tr.SimulateClose(ReasonTransportClose, nil)
		require.True(t, m.isReconnecting())
		socket.Disconnect()

		time.Sleep(300 * time.Millisecond)
		assert.False(t, m.isReconnecting())
		assert.Len(t, dialer.Transports(), 1)
	})

	t.Run("should not dial after Close from a reconnect_attempt listener", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect:       true,
			ReconnectionDelay:   durationPtr(10 * time.Millisecond),
			RandomizationFactor: float32Ptr(0),
		}, openImmediately)
		_, tr := connectSocket(t, m, dialer, "/")

		tw := utils.NewTestWaiter(1)
		m.OnReconnectAttempt(func(uint32) {
			m.Close()
			tw.Done()
		})
		m.OnReconnect(func(uint32) { t.Error("reconnect must not be emitted") })

		tr.SimulateClose(ReasonTransportClose, nil)
		tw.WaitTimeout(t, testWait)

		time.Sleep(testNoEvents)
		assert.Len(t, dialer.Transports(), 1)
		assert.Equal(t, ReadyStateClosed, m.ReadyState())
		assert.False(t, m.isReconnecting())
	})

	t.Run("should not schedule another attempt after Close from a reconnect_error listener", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{
			NoAutoConnect:       true,
			ReconnectionDelay:   durationPtr(10 * time.Millisecond),
			RandomizationFactor: float32Ptr(0),
		}, failImmediately)

		var attempts atomic.Int32
		tw := utils.NewTestWaiter(1)
		m.OnReconnectAttempt(func(uint32) { attempts.Add(1) })
		m.OnReconnectError(func(error) {
			m.Close()
			tw.Done()
		})
		m.Socket("/", nil).Connect()
		tw.WaitTimeout(t, testWait)

		time.Sleep(testNoEvents)
		assert.Equal(t, int32(1), attempts.Load())
		// The first attempt and one reconnection attempt.
		assert.Len(t, dialer.Transports(), 2)
		assert.False(t, m.isReconnecting())
	})

	t.Run("should stay closed when Close races a reconnection attempt", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			m, dialer := newTestManager(&ManagerConfig{
				NoAutoConnect:       true,
				ReconnectionDelay:   durationPtr(time.Millisecond),
				RandomizationFactor: float32Ptr(0),
			}, openImmediately)
			_, tr := connectSocket(t, m, dialer, "/")

			var closing atomic.Bool
			closed := make(chan struct{})
			m.OnReconnecting(func(uint32) {
				if closing.CompareAndSwap(false, true) {
					go func() {
						m.Close()
						close(closed)
					}()
				}
			})

			tr.SimulateClose(ReasonTransportClose, nil)
			select {
			case <-closed:
			case <-time.After(testWait):
				t.Fatal("Close wasn't called")
			}

			time.Sleep(20 * time.Millisecond)
			require.Equal(t, ReadyStateClosed, m.ReadyState(), "iteration %d", i)
			require.False(t, m.isReconnecting(), "iteration %d", i)
			n := len(dialer.Transports())
			time.Sleep(20 * time.Millisecond)
			require.Len(t, dialer.Transports(), n, "iteration %d", i)
		}
	})

	t.Run("should not reconnect when disabled", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{NoAutoConnect: true, NoReconnection: true}, openImmediately)
		_, tr := connectSocket(t, m, dialer, "/")

		tr.SimulateClose(ReasonPingTimeout, nil)
		time.Sleep(testNoEvents)
		assert.Equal(t, ReadyStateClosed, m.ReadyState())
		assert.Len(t, dialer.Transports(), 1)
	})
}

func TestManagerClose(t *testing.T) {
	t.Run("should emit close with forced close reason", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{NoAutoConnect: true}, openImmediately)
		socket, tr := connectSocket(t, m, dialer, "/")

		tw := utils.NewTestWaiterString()
		tw.Add("close")
		tw.Add("disconnect")
		m.OnClose(func(reason Reason, err error) {
			assert.Equal(t, ReasonForcedClose, reason)
			assert.NoError(t, err)
			tw.Done("close")
		})
		socket.OnDisconnect(func(reason Reason) {
			assert.Equal(t, ReasonForcedClose, reason)
			tw.Done("disconnect")
		})
		m.Disconnect()
		tw.WaitTimeout(t, testWait)

		assert.True(t, tr.IsClosed())
		assert.False(t, socket.Connected())
		time.Sleep(testNoEvents)
		assert.Len(t, dialer.Transports(), 1)
	})

	t.Run("should not close the connection under a socket that is connecting", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			m, dialer := newTestManager(&ManagerConfig{NoAutoConnect: true}, openImmediately)
			chat, _ := connectSocket(t, m, dialer, "/chat")
			news := m.Socket("/news", nil)

			done := make(chan struct{}, 2)
			go func() {
				chat.Disconnect()
				done <- struct{}{}
			}()
			go func() {
				news.Connect()
				done <- struct{}{}
			}()
			<-done
			<-done

			// Either the connection was kept, or news opened a new one.
			require.Eventually(t, func() bool { return m.ReadyState() == ReadyStateOpen }, testWait, time.Millisecond, "iteration %d", i)
			m.Close()
		}
	})

	t.Run("should clean up while opening", func(t *testing.T) {
		m, dialer := newTestManager(&ManagerConfig{NoAutoConnect: true}, nil)
		m.OnOpen(func() { t.Error("open must not be emitted") })
		m.Open(nil)
		tr, err := dialer.Next(testWait)
		require.NoError(t, err)

		m.Close()
		assert.Equal(t, ReadyStateClosed, m.ReadyState())
		assert.False(t, tr.HasListeners(transport.EventOpen))
		assert.False(t, tr.HasListeners(transport.EventError))

		// A late open of the old transport is ignored.
		tr.SimulateOpen()
		assert.Equal(t, ReadyStateClosed, m.ReadyState())
	})
}
