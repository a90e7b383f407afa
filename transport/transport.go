// Package transport defines the contract between the connection manager and
// the byte-level connection it drives.
package transport

import (
	"net/http"
	"net/url"

	"github.com/karagenc/sio-client-go/emitter"
)

// Events emitted by a Transport.
//
//	open                          the connection is ready for writes
//	data   (Frame)                a frame was received
//	ping                          a heartbeat was sent
//	pong                          a heartbeat reply was received
//	error  (error)                an error occurred
//	close  (reason string, error) the connection is gone
const (
	EventOpen  = "open"
	EventData  = "data"
	EventPing  = "ping"
	EventPong  = "pong"
	EventError = "error"
	EventClose = "close"
)

// Close reasons.
const (
	ReasonForcedClose    = "forced close"
	ReasonPingTimeout    = "ping timeout"
	ReasonTransportClose = "transport close"
	ReasonTransportError = "transport error"
)

type Frame struct {
	Data     []byte
	IsBinary bool
}

type WriteOptions struct {
	Compress bool
}

type Transport interface {
	emitter.Notifier

	// Session ID assigned by the server. Empty until the transport is open.
	ID() string

	// Open starts connecting in the background.
	// Completion is reported through the open or error events.
	Open()

	// Write queues a frame. It never emits events on the calling goroutine.
	Write(frame Frame, options WriteOptions)

	// Close tears the connection down. Closing a transport that
	// never opened emits nothing.
	Close()
}

type Config struct {
	// Base URL of the server, e.g. http://localhost:3000
	URL string

	// Request path. The transport decides the default when this is empty.
	Path string

	Query  url.Values
	Header http.Header
}

// Dialer creates an unopened transport.
type Dialer func(config *Config) Transport
