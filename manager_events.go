package sio

import (
	"time"

	"github.com/karagenc/sio-client-go/emitter"
	"github.com/karagenc/sio-client-go/parser"
)

const (
	EventOpen             = "open"
	EventClose            = "close"
	EventPacket           = "packet"
	EventConnect          = "connect"
	EventConnecting       = "connecting"
	EventConnectError     = "connect_error"
	EventConnectTimeout   = "connect_timeout"
	EventDisconnect       = "disconnect"
	EventError            = "error"
	EventReconnect        = "reconnect"
	EventReconnectAttempt = "reconnect_attempt"
	EventReconnecting     = "reconnecting"
	EventReconnectError   = "reconnect_error"
	EventReconnectFailed  = "reconnect_failed"
	EventPing             = "ping"
	EventPong             = "pong"
)

// emit notifies the sockets subscribed to the manager first, then the
// manager's own listeners.
func (m *Manager) emit(eventName string, args ...any) {
	m.socketEvents.Emit(eventName, args...)
	m.emitter.Emit(eventName, args...)
}

// emitAll emits on the manager and on every registered socket.
func (m *Manager) emitAll(eventName string, args ...any) {
	m.emitter.Emit(eventName, args...)
	for _, socket := range m.Sockets() {
		socket.emitter.Emit(eventName, args...)
	}
}

func (m *Manager) On(eventName string, listener emitter.Listener) *emitter.Subscription {
	return m.emitter.On(eventName, listener)
}

func (m *Manager) Once(eventName string, listener emitter.Listener) *emitter.Subscription {
	return m.emitter.Once(eventName, listener)
}

// Removes every listener of eventName.
func (m *Manager) Off(eventName string) {
	m.emitter.Off(eventName)
}

// Removes every listener added with On, Once or the typed On* methods.
func (m *Manager) OffAll() {
	m.emitter.OffAll()
}

func (m *Manager) OnOpen(f func()) *emitter.Subscription {
	return m.On(EventOpen, func(...any) { f() })
}

func (m *Manager) OnClose(f func(reason Reason, err error)) *emitter.Subscription {
	return m.On(EventClose, func(args ...any) {
		reason, err := closeArgs(args)
		f(reason, err)
	})
}

func (m *Manager) OnPacket(f func(packet *parser.Packet)) *emitter.Subscription {
	return m.On(EventPacket, func(args ...any) {
		if len(args) > 0 {
			if packet, ok := args[0].(*parser.Packet); ok {
				f(packet)
			}
		}
	})
}

func (m *Manager) OnError(f func(err error)) *emitter.Subscription {
	return m.On(EventError, func(args ...any) { f(errorArg(args)) })
}

func (m *Manager) OnConnectError(f func(err error)) *emitter.Subscription {
	return m.On(EventConnectError, func(args ...any) { f(errorArg(args)) })
}

func (m *Manager) OnConnectTimeout(f func(timeout time.Duration)) *emitter.Subscription {
	return m.On(EventConnectTimeout, func(args ...any) { f(durationArg(args)) })
}

func (m *Manager) OnPing(f func()) *emitter.Subscription {
	return m.On(EventPing, func(...any) { f() })
}

func (m *Manager) OnPong(f func(latency time.Duration)) *emitter.Subscription {
	return m.On(EventPong, func(args ...any) { f(durationArg(args)) })
}

func (m *Manager) OnReconnect(f func(attempts uint32)) *emitter.Subscription {
	return m.On(EventReconnect, func(args ...any) { f(attemptsArg(args)) })
}

func (m *Manager) OnReconnectAttempt(f func(attempt uint32)) *emitter.Subscription {
	return m.On(EventReconnectAttempt, func(args ...any) { f(attemptsArg(args)) })
}

func (m *Manager) OnReconnecting(f func(attempt uint32)) *emitter.Subscription {
	return m.On(EventReconnecting, func(args ...any) { f(attemptsArg(args)) })
}

func (m *Manager) OnReconnectError(f func(err error)) *emitter.Subscription {
	return m.On(EventReconnectError, func(args ...any) { f(errorArg(args)) })
}

func (m *Manager) OnReconnectFailed(f func()) *emitter.Subscription {
	return m.On(EventReconnectFailed, func(...any) { f() })
}

func durationArg(args []any) time.Duration {
	if len(args) > 0 {
		d, _ := args[0].(time.Duration)
		return d
	}
	return 0
}

func attemptsArg(args []any) uint32 {
	if len(args) > 0 {
		n, _ := args[0].(uint32)
		return n
	}
	return 0
}
