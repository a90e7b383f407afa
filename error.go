package sio

import (
	"errors"
	"fmt"
)

// ErrTimeout is reported when the transport doesn't open within ManagerConfig.Timeout.
var ErrTimeout = errors.New("sio: timeout")

// ConnectError is passed to the callback of Manager.Open when the connection fails.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return "sio: connect error: " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ServerError carries the payload of an ERROR packet sent by the server.
type ServerError struct {
	Data any
}

func (e *ServerError) Error() string {
	if m, ok := e.Data.(map[string]any); ok {
		if message, ok := m["message"].(string); ok {
			return "sio: server error: " + message
		}
	}
	if s, ok := e.Data.(string); ok {
		return "sio: server error: " + s
	}
	return fmt.Sprintf("sio: server error: %v", e.Data)
}

// This is a wrapper for the errors internal to sio-client-go.
//
// If you see this error, this means that the problem is
// neither a network error, nor an error caused by you, but
// the source of the error is sio-client-go. Open an issue on GitHub.
type InternalError struct {
	err error
}

func (e InternalError) Error() string {
	return "sio: internal error: " + e.err.Error()
}

func (e InternalError) Unwrap() error {
	return e.err
}

func wrapInternalError(err error) *InternalError {
	return &InternalError{err: err}
}
