package sio

import mapset "github.com/deckarep/golang-set/v2"

// Events that Socket.Emit delivers locally instead of sending.
var reservedEvents = mapset.NewThreadUnsafeSet(
	EventConnect,
	EventConnectError,
	EventConnectTimeout,
	EventConnecting,
	EventDisconnect,
	EventError,
	EventReconnect,
	EventReconnectAttempt,
	EventReconnectFailed,
	EventReconnectError,
	EventReconnecting,
	EventPing,
	EventPong,
)

func IsEventReserved(eventName string) bool {
	return reservedEvents.Contains(eventName)
}
