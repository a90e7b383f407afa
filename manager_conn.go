package sio

import (
	"errors"
	"fmt"
	"time"

	"github.com/karagenc/sio-client-go/emitter"
	"github.com/karagenc/sio-client-go/parser"
	"github.com/karagenc/sio-client-go/transport"
)

// Manager methods that are directly related to
// connection, reconnection, and disconnection functionalities.

// Open starts connecting unless the manager is already open or opening.
// It doesn't block.
//
// If callback is not nil, it is called with nil once the transport opens,
// or with a *ConnectError if the attempt fails. In the latter case no
// reconnection is scheduled; retrying is up to the caller.
func (m *Manager) Open(callback func(err error)) {
	m.open(callback, false)
}

// Alias of Open.
func (m *Manager) Connect(callback func(err error)) {
	m.open(callback, false)
}

// A reconnection attempt doesn't dial once Close was called,
// checked under the same lock that starts the attempt.
func (m *Manager) open(callback func(err error), reconnecting bool) (started bool) {
	m.mu.Lock()
	if m.readyState == ReadyStateOpen || m.readyState == ReadyStateOpening {
		m.mu.Unlock()
		return false
	}
	if reconnecting && m.skipReconnect {
		m.debug.Log("Skipping reconnect")
		m.mu.Unlock()
		return false
	}
	m.debug.Log("Opening")

	engine := m.dialer(&transport.Config{
		URL:    m.url,
		Path:   m.path,
		Query:  m.query,
		Header: m.header,
	})
	m.engine = engine
	m.readyState = ReadyStateOpening
	m.skipReconnect = false

	openSub := engine.Once(transport.EventOpen, func(...any) {
		if m.onOpen(engine) && callback != nil {
			callback(nil)
		}
	})

	errorSub := engine.Once(transport.EventError, func(args ...any) {
		err := errorArg(args)
		m.mu.Lock()
		if m.engine != engine || m.readyState != ReadyStateOpening {
			m.mu.Unlock()
			return
		}
		m.debug.Log("Connect error", err)
		m.cleanup()
		m.readyState = ReadyStateClosed
		m.mu.Unlock()

		m.emitAll(EventConnectError, err)
		m.onOpenFailed(err, callback)
	})
	m.subs.Add(openSub, errorSub)

	if m.timeout > 0 {
		timeout := m.timeout
		m.debug.Log("Connect attempt will timeout after", timeout)
		timer := time.AfterFunc(timeout, func() {
			m.onOpenTimeout(engine, timeout, callback)
		})
		m.subs.Add(emitter.NewSubscription(func() { timer.Stop() }))
	}
	m.mu.Unlock()

	engine.Open()
	return true
}

func (m *Manager) onOpenTimeout(engine transport.Transport, timeout time.Duration, callback func(err error)) {
	m.mu.Lock()
	if m.engine != engine || m.readyState != ReadyStateOpening {
		m.mu.Unlock()
		return
	}
	m.debug.Log("Connect attempt timed out after", timeout)
	m.cleanup()
	m.readyState = ReadyStateClosed
	m.mu.Unlock()

	engine.Close()
	m.emitAll(EventConnectError, ErrTimeout)
	m.emitAll(EventConnectTimeout, timeout)
	m.onOpenFailed(ErrTimeout, callback)
}

func (m *Manager) onOpenFailed(err error, callback func(err error)) {
	if callback != nil {
		callback(&ConnectError{Err: err})
	} else {
		// Only do this if there is no callback.
		m.maybeReconnectOnOpen()
	}
}

func (m *Manager) onOpen(engine transport.Transport) bool {
	m.mu.Lock()
	if m.engine != engine || m.readyState != ReadyStateOpening {
		m.mu.Unlock()
		return false
	}
	m.debug.Log("Open")

	m.cleanup()
	m.readyState = ReadyStateOpen
	m.subs.Add(
		engine.On(transport.EventData, func(args ...any) { m.onData(engine, args) }),
		engine.On(transport.EventPing, func(...any) { m.onPing() }),
		engine.On(transport.EventPong, func(...any) { m.onPong() }),
		engine.On(transport.EventError, func(args ...any) { m.onError(errorArg(args)) }),
		engine.On(transport.EventClose, func(args ...any) {
			reason, err := closeArgs(args)
			m.onClose(engine, reason, err)
		}),
	)
	m.mu.Unlock()

	m.emit(EventOpen)
	return true
}

func (m *Manager) onData(engine transport.Transport, args []any) {
	var (
		frame transport.Frame
		ok    bool
	)
	if len(args) > 0 {
		frame, ok = args[0].(transport.Frame)
	}
	if !ok {
		m.onError(wrapInternalError(fmt.Errorf("data event without a frame")))
		return
	}

	var packets []*parser.Packet
	m.decoderMu.Lock()
	err := m.decoder.Add(frame.Data, func(packet *parser.Packet) {
		packets = append(packets, packet)
	})
	m.decoderMu.Unlock()

	for _, packet := range packets {
		m.emit(EventPacket, packet)
	}

	if err != nil {
		m.debug.Log("Decode error", err)
		m.emitAll(EventError, err)
		engine.Close()
	}
}

func (m *Manager) onPing() {
	m.mu.Lock()
	m.lastPing = time.Now()
	m.mu.Unlock()
	m.emitAll(EventPing)
}

func (m *Manager) onPong() {
	m.mu.Lock()
	var latency time.Duration
	if !m.lastPing.IsZero() {
		latency = time.Since(m.lastPing)
	}
	m.mu.Unlock()
	m.emitAll(EventPong, latency)
}

func (m *Manager) onError(err error) {
	m.debug.Log("Error", err)
	m.emitAll(EventError, err)
}

// packet encodes and writes a packet. Only one packet is encoded at a time.
// Packets submitted meanwhile are queued and written in order by the
// goroutine that owns the encode.
func (m *Manager) packet(packet *parser.Packet) {
	m.mu.Lock()
	if m.encoding {
		m.packetBuffer = append(m.packetBuffer, packet)
		m.mu.Unlock()
		return
	}
	m.encoding = true
	gen := m.encodingGen
	engine := m.engine
	m.mu.Unlock()

	for {
		m.writePacket(engine, packet)

		m.mu.Lock()
		if gen != m.encodingGen {
			// Cleaned up while we were encoding.
			m.mu.Unlock()
			return
		}
		if len(m.packetBuffer) == 0 {
			m.encoding = false
			m.mu.Unlock()
			return
		}
		packet = m.packetBuffer[0]
		m.packetBuffer = m.packetBuffer[1:]
		engine = m.engine
		m.mu.Unlock()
	}
}

func (m *Manager) writePacket(engine transport.Transport, packet *parser.Packet) {
	m.debug.Log("Writing packet", packet.Type, packet.Namespace)

	buffers, err := m.encoder.Encode(packet)
	if err != nil {
		m.onError(err)
		return
	}
	if engine == nil {
		return
	}

	options := transport.WriteOptions{Compress: packet.Options.Compress}
	for i, buf := range buffers {
		engine.Write(transport.Frame{Data: buf, IsBinary: i > 0}, options)
	}
}

// Must be called with m.mu held.
func (m *Manager) cleanup() {
	m.debug.Log("Cleanup")
	m.subs.DestroyAll()

	m.packetBuffer = nil
	m.encoding = false
	m.encodingGen++
	m.lastPing = time.Time{}

	m.decoderMu.Lock()
	m.decoder.Reset()
	m.decoderMu.Unlock()
}

// Called when a socket is disconnected. The connection is closed
// once no socket is left.
func (m *Manager) destroy(socket *Socket) {
	m.mu.Lock()
	m.connecting.Remove(socket)
	if s, ok := m.sockets.get(socket.namespace); ok && s == socket {
		m.sockets.remove(socket.namespace)
	}
	if m.connecting.Cardinality() > 0 {
		m.mu.Unlock()
		return
	}
	engine := m.closeLocked()
	m.mu.Unlock()

	if engine != nil {
		engine.Close()
	}
}

// Close closes the connection and stops reconnecting.
// Use Open to connect again.
func (m *Manager) Close() {
	m.mu.Lock()
	engine := m.closeLocked()
	m.mu.Unlock()

	if engine != nil {
		engine.Close()
	}
}

// Must be called with m.mu held.
// The caller closes the returned engine after unlocking.
func (m *Manager) closeLocked() transport.Transport {
	m.debug.Log("Disconnecting")
	m.skipReconnect = true
	m.reconnecting = false
	if m.readyState != ReadyStateOpen {
		// There is no open transport to deliver a close event.
		// Pending open and reconnect timers are stopped here.
		m.cleanup()
	}
	m.backoff.reset()
	m.readyState = ReadyStateClosed
	return m.engine
}

// Alias of Close.
func (m *Manager) Disconnect() {
	m.Close()
}

func (m *Manager) onClose(engine transport.Transport, reason Reason, err error) {
	m.mu.Lock()
	if m.engine != engine {
		m.mu.Unlock()
		return
	}
	m.debug.Log("Closed. Reason", reason)

	m.cleanup()
	m.backoff.reset()
	m.readyState = ReadyStateClosed
	reconnect := m.reconnection && !m.skipReconnect
	m.mu.Unlock()

	m.emit(EventClose, reason, err)

	if reconnect {
		m.reconnect()
	}
}

func (m *Manager) maybeReconnectOnOpen() {
	m.mu.Lock()
	// Only try to reconnect if it's the first time we're connecting.
	ok := !m.reconnecting && m.reconnection && m.backoff.attempts() == 0
	m.mu.Unlock()
	if ok {
		m.reconnect()
	}
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.reconnecting || m.skipReconnect {
		m.mu.Unlock()
		return
	}

	attempts := m.backoff.attempts()
	if m.reconnectionAttempts > 0 && attempts >= m.reconnectionAttempts {
		m.debug.Log("Maximum attempts reached. Attempts made so far", attempts)
		m.backoff.reset()
		m.reconnecting = false
		m.mu.Unlock()
		m.emitAll(EventReconnectFailed)
		return
	}

	delay := m.backoff.duration()
	m.debug.Log("Delay before reconnect attempt", delay)
	m.reconnecting = true
	timer := time.AfterFunc(delay, m.attemptReconnect)
	m.subs.Add(emitter.NewSubscription(func() { timer.Stop() }))
	m.mu.Unlock()
}

func (m *Manager) attemptReconnect() {
	if m.shouldSkipReconnect() {
		return
	}

	attempts := m.backoff.attempts()
	m.debug.Log("Attempting to reconnect", attempts)
	m.emitAll(EventReconnectAttempt, attempts)
	m.emitAll(EventReconnecting, attempts)

	// Check again because a listener might have called Close.
	if m.shouldSkipReconnect() {
		return
	}

	started := m.open(func(err error) {
		if err != nil {
			m.debug.Log("Reconnect attempt error", err)
			m.mu.Lock()
			m.reconnecting = false
			m.mu.Unlock()

			var connectErr *ConnectError
			if errors.As(err, &connectErr) {
				err = connectErr.Err
			}
			m.emitAll(EventReconnectError, err)
			m.reconnect()
			return
		}
		m.debug.Log("Reconnected")
		m.onReconnect()
	}, true)

	if !started {
		// Closed, or opened through another path in the meantime.
		m.mu.Lock()
		m.reconnecting = false
		m.mu.Unlock()
	}
}

func (m *Manager) shouldSkipReconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipReconnect {
		m.debug.Log("Skipping reconnect")
		return true
	}
	return false
}

func (m *Manager) onReconnect() {
	m.mu.Lock()
	attempts := m.backoff.attempts()
	m.reconnecting = false
	m.backoff.reset()
	engineID := m.engine.ID()
	sockets := m.sockets.getAll()
	m.mu.Unlock()

	for _, socket := range sockets {
		socket.setID(generateID(socket.namespace, engineID))
	}
	m.emitAll(EventReconnect, attempts)
}

func generateID(namespace, engineID string) string {
	if namespace == "/" {
		return engineID
	}
	return namespace + "#" + engineID
}

func errorArg(args []any) error {
	if len(args) > 0 {
		switch v := args[0].(type) {
		case error:
			return v
		case nil:
		default:
			return fmt.Errorf("sio: %v", v)
		}
	}
	return errors.New("sio: unknown transport error")
}

func closeArgs(args []any) (reason Reason, err error) {
	if len(args) > 0 {
		reason, _ = args[0].(string)
	}
	if len(args) > 1 {
		err, _ = args[1].(error)
	}
	if reason == "" {
		reason = ReasonTransportClose
	}
	return
}
