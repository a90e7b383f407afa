package sio

import (
	"time"

	"github.com/karagenc/sio-client-go/emitter"
)

func (s *Socket) On(eventName string, listener emitter.Listener) *emitter.Subscription {
	return s.emitter.On(eventName, listener)
}

func (s *Socket) Once(eventName string, listener emitter.Listener) *emitter.Subscription {
	return s.emitter.Once(eventName, listener)
}

// Removes every listener of eventName.
func (s *Socket) Off(eventName string) {
	s.emitter.Off(eventName)
}

// Removes every listener, including the ones of reserved events.
func (s *Socket) OffAll() {
	s.emitter.OffAll()
}

// OnEvent listens for an event sent by the server.
// If the server asked for an acknowledgement, the last argument is an AckFunc.
func (s *Socket) OnEvent(eventName string, listener func(args ...any)) *emitter.Subscription {
	return s.On(eventName, listener)
}

func (s *Socket) OnceEvent(eventName string, listener func(args ...any)) *emitter.Subscription {
	return s.Once(eventName, listener)
}

// OnMessage listens for events sent with Send on the server side.
func (s *Socket) OnMessage(listener func(args ...any)) *emitter.Subscription {
	return s.On("message", listener)
}

func (s *Socket) OnConnect(f func()) *emitter.Subscription {
	return s.On(EventConnect, func(...any) { f() })
}

func (s *Socket) OnConnecting(f func()) *emitter.Subscription {
	return s.On(EventConnecting, func(...any) { f() })
}

func (s *Socket) OnDisconnect(f func(reason Reason)) *emitter.Subscription {
	return s.On(EventDisconnect, func(args ...any) {
		reason, _ := closeArgs(args)
		f(reason)
	})
}

func (s *Socket) OnConnectError(f func(err error)) *emitter.Subscription {
	return s.On(EventConnectError, func(args ...any) { f(errorArg(args)) })
}

func (s *Socket) OnConnectTimeout(f func(timeout time.Duration)) *emitter.Subscription {
	return s.On(EventConnectTimeout, func(args ...any) { f(durationArg(args)) })
}

// Errors of the connection and ERROR packets of the server (as *ServerError).
func (s *Socket) OnError(f func(err error)) *emitter.Subscription {
	return s.On(EventError, func(args ...any) { f(errorArg(args)) })
}

func (s *Socket) OnPing(f func()) *emitter.Subscription {
	return s.On(EventPing, func(...any) { f() })
}

func (s *Socket) OnPong(f func(latency time.Duration)) *emitter.Subscription {
	return s.On(EventPong, func(args ...any) { f(durationArg(args)) })
}

func (s *Socket) OnReconnect(f func(attempts uint32)) *emitter.Subscription {
	return s.On(EventReconnect, func(args ...any) { f(attemptsArg(args)) })
}

func (s *Socket) OnReconnectAttempt(f func(attempt uint32)) *emitter.Subscription {
	return s.On(EventReconnectAttempt, func(args ...any) { f(attemptsArg(args)) })
}

func (s *Socket) OnReconnecting(f func(attempt uint32)) *emitter.Subscription {
	return s.On(EventReconnecting, func(args ...any) { f(attemptsArg(args)) })
}

func (s *Socket) OnReconnectError(f func(err error)) *emitter.Subscription {
	return s.On(EventReconnectError, func(args ...any) { f(errorArg(args)) })
}

func (s *Socket) OnReconnectFailed(f func()) *emitter.Subscription {
	return s.On(EventReconnectFailed, func(...any) { f() })
}
