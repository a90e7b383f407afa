package sio

import (
	"reflect"
	"sync/atomic"

	"github.com/karagenc/sio-client-go/emitter"
	"github.com/karagenc/sio-client-go/internal/sync"
	"github.com/karagenc/sio-client-go/parser"
	"github.com/karagenc/sio-client-go/transport"
)

type SocketConfig struct {
	// Query sent with the CONNECT packet of the namespace.
	//
	// Accepts a string, url.Values, map[string]string, map[string]any,
	// or a struct whose fields are named by their `json` tags.
	Query any
}

// AckFunc is the acknowledgement callback. When passed as the last argument
// of Emit, it is called with the arguments of the server's reply.
type AckFunc = func(args ...any)

type socketFlags struct {
	compress *bool
	binary   *bool
}

type Socket struct {
	manager   *Manager
	namespace string
	query     string
	debug     Debugger
	emitter   *emitter.Emitter

	mu sync.Mutex

	id        string
	connected bool
	// Set while buffered packets are being sent after CONNECT.
	flushing bool

	subs *emitter.Subscriptions
	// The transport our CONNECT packet was sent on.
	connectSentOn transport.Transport

	receiveBuffer [][]any
	sendBuffer    []*parser.Packet

	acks  map[uint64]AckFunc
	ids   uint64
	flags socketFlags
}

func newSocket(manager *Manager, namespace string, config *SocketConfig) *Socket {
	s := &Socket{
		manager:   manager,
		namespace: namespace,
		debug:     manager.debug.WithContext("[sio] Socket with namespace: " + namespace),
		emitter:   emitter.New(),
		subs:      emitter.NewSubscriptions(),
		acks:      make(map[uint64]AckFunc),
	}

	query, err := encodeQuery(config.Query)
	if err != nil {
		s.debug.Log("Ignoring invalid query", err)
	}
	s.query = query
	return s
}

// ID is empty until the socket connects.
func (s *Socket) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Socket) setID(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *Socket) Namespace() string { return s.namespace }

func (s *Socket) Manager() *Manager { return s.manager }

func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Socket) Disconnected() bool { return !s.Connected() }

// Connect opens the manager if needed and connects to the namespace.
// Calling it on a connected socket does nothing.
func (s *Socket) Connect() {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return
	}
	s.subEvents()
	s.mu.Unlock()

	s.manager.addConnecting(s)
	if !s.manager.isReconnecting() {
		s.manager.open(nil, false)
	}
	if s.manager.ReadyState() == ReadyStateOpen {
		s.onOpen()
	}
	s.emitter.Emit(EventConnecting)
}

// Alias of Connect.
func (s *Socket) Open() { s.Connect() }

// Must be called with s.mu held.
func (s *Socket) subEvents() {
	if s.subs.Len() > 0 {
		return
	}
	events := s.manager.socketEvents
	s.subs.Add(
		events.On(EventOpen, func(...any) { s.onOpen() }),
		events.On(EventPacket, func(args ...any) {
			if len(args) > 0 {
				if packet, ok := args[0].(*parser.Packet); ok {
					s.onPacket(packet)
				}
			}
		}),
		events.On(EventClose, func(args ...any) {
			reason, _ := closeArgs(args)
			s.onClose(reason)
		}),
	)
}

func (s *Socket) onOpen() {
	s.debug.Log("Transport is open")
	engine := s.manager.currentEngine()

	s.mu.Lock()
	// The server connects the root namespace on its own.
	if s.namespace == "/" || engine == nil || s.connectSentOn == engine {
		s.mu.Unlock()
		return
	}
	s.connectSentOn = engine
	s.mu.Unlock()

	s.manager.packet(&parser.Packet{
		Type:      parser.PacketTypeConnect,
		Namespace: s.namespace,
		Query:     s.query,
	})
}

func (s *Socket) onPacket(packet *parser.Packet) {
	sameNamespace := packet.Namespace == s.namespace
	rootNamespaceError := packet.Type == parser.PacketTypeError && packet.Namespace == "/"
	if !sameNamespace && !rootNamespaceError {
		return
	}

	switch packet.Type {
	case parser.PacketTypeConnect:
		s.onConnect()

	case parser.PacketTypeEvent, parser.PacketTypeBinaryEvent:
		s.onEvent(packet)

	case parser.PacketTypeAck, parser.PacketTypeBinaryAck:
		s.onAck(packet)

	case parser.PacketTypeDisconnect:
		s.onDisconnect()

	case parser.PacketTypeError:
		s.emitter.Emit(EventError, &ServerError{Data: packet.Data})
	}
}

func (s *Socket) onConnect() {
	engineID := s.manager.engineID()

	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = true
	s.flushing = true
	s.id = generateID(s.namespace, engineID)
	received := s.receiveBuffer
	s.receiveBuffer = nil
	s.mu.Unlock()

	s.debug.Log("Connected")
	s.emitter.Emit(EventConnect)
	s.emitBuffered(received)
}

// Received events are delivered first, then the packets emitted while
// disconnected are sent in order. Packets emitted meanwhile are sent last.
func (s *Socket) emitBuffered(received [][]any) {
	for _, args := range received {
		s.emitEvent(args)
	}

	for {
		s.mu.Lock()
		packets := s.sendBuffer
		s.sendBuffer = nil
		if len(packets) == 0 || !s.connected {
			s.sendBuffer = append(packets, s.sendBuffer...)
			s.flushing = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		for _, packet := range packets {
			s.manager.packet(packet)
		}
	}
}

func (s *Socket) emitEvent(args []any) {
	if len(args) == 0 {
		return
	}
	eventName, ok := args[0].(string)
	if !ok {
		return
	}
	s.emitter.Emit(eventName, args[1:]...)
}

func (s *Socket) onEvent(packet *parser.Packet) {
	data, _ := packet.Data.([]any)
	if len(data) == 0 {
		return
	}
	args := make([]any, len(data), len(data)+1)
	copy(args, data)

	if packet.ID != nil {
		s.debug.Log("Attaching ack callback to event", *packet.ID)
		args = append(args, s.ack(*packet.ID))
	}

	s.mu.Lock()
	if !s.connected {
		s.receiveBuffer = append(s.receiveBuffer, args)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.emitEvent(args)
}

// ack returns a callback that sends an acknowledgement at most once.
func (s *Socket) ack(id uint64) AckFunc {
	var sent atomic.Bool
	return func(args ...any) {
		if !sent.CompareAndSwap(false, true) {
			s.debug.Log("Ack already sent", id)
			return
		}
		if args == nil {
			args = []any{}
		}

		typ := parser.PacketTypeAck
		if hasBinary(args) {
			typ = parser.PacketTypeBinaryAck
		}
		s.debug.Log("Sending ack", id)
		s.manager.packet(&parser.Packet{
			Type:      typ,
			Namespace: s.namespace,
			ID:        &id,
			Data:      args,
		})
	}
}

func (s *Socket) onAck(packet *parser.Packet) {
	if packet.ID == nil {
		return
	}
	id := *packet.ID

	s.mu.Lock()
	ack, ok := s.acks[id]
	if ok {
		delete(s.acks, id)
	}
	s.mu.Unlock()

	if !ok {
		// Late or duplicate acks are expected after reconnections.
		s.debug.Log("Ignoring ack with unknown ID", id)
		return
	}

	s.debug.Log("Calling ack", id)
	args, _ := packet.Data.([]any)
	ack(args...)
}

func (s *Socket) onDisconnect() {
	s.debug.Log("Server disconnect")
	s.destroy()
	s.onClose(ReasonIOServerDisconnect)
}

// destroy stops listening to the manager and deregisters the socket.
// The manager closes the connection if this was its last socket.
func (s *Socket) destroy() {
	s.mu.Lock()
	s.subs.DestroyAll()
	s.connectSentOn = nil
	s.mu.Unlock()
	s.manager.destroy(s)
}

func (s *Socket) onClose(reason Reason) {
	s.mu.Lock()
	s.connected = false
	s.flushing = false
	s.id = ""
	s.connectSentOn = nil
	s.mu.Unlock()

	s.debug.Log("Closed. Reason", reason)
	s.emitter.Emit(EventDisconnect, reason)
}

// Disconnect leaves the namespace. If no other socket of the manager
// is in use, the connection is closed too.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()

	if connected {
		s.debug.Log("Performing disconnect")
		s.manager.packet(&parser.Packet{
			Type:      parser.PacketTypeDisconnect,
			Namespace: s.namespace,
		})
	}

	s.destroy()

	if connected {
		s.onClose(ReasonIOClientDisconnect)
	}
}

// Alias of Disconnect.
func (s *Socket) Close() { s.Disconnect() }

// Emit sends an event to the server. If the last argument is a function,
// it is called when the server acknowledges the event. An AckFunc receives
// the reply as it is. Other functions get the reply decoded into their
// parameter types with DecodeArg; if decoding fails they are not called.
// Variadic functions other than AckFunc are sent as data and fail to encode.
//
// Reserved event names (see IsEventReserved) are not sent;
// they are delivered to the socket's own listeners.
//
// While the socket is not connected, events are buffered and
// sent in order once the namespace is connected.
func (s *Socket) Emit(eventName string, args ...any) {
	if IsEventReserved(eventName) {
		s.emitter.Emit(eventName, args...)
		return
	}

	var ack AckFunc
	if n := len(args); n > 0 {
		if f, ok := s.toAckFunc(args[n-1]); ok {
			ack = f
			args = args[:n-1]
		}
	}

	data := make([]any, 0, len(args)+1)
	data = append(data, eventName)
	data = append(data, args...)

	s.mu.Lock()
	flags := s.flags
	s.flags = socketFlags{}

	var isBinary bool
	if flags.binary != nil {
		isBinary = *flags.binary
	} else {
		isBinary = hasBinary(data)
	}

	packet := &parser.Packet{
		Type:      parser.PacketTypeEvent,
		Namespace: s.namespace,
		Data:      data,
		Options: parser.PacketOptions{
			Compress: flags.compress == nil || *flags.compress,
		},
	}
	if isBinary {
		packet.Type = parser.PacketTypeBinaryEvent
	}

	if ack != nil {
		id := s.ids
		s.ids++
		s.acks[id] = ack
		packet.ID = &id
		s.debug.Log("Emitting packet with ack ID", id)
	}

	if !s.connected || s.flushing {
		s.sendBuffer = append(s.sendBuffer, packet)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.manager.packet(packet)
}

func (s *Socket) toAckFunc(v any) (AckFunc, bool) {
	if f, ok := v.(func(...any)); ok {
		return f, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.IsNil() || rv.Type().IsVariadic() {
		return nil, false
	}

	rt := rv.Type()
	return func(args ...any) {
		in := make([]reflect.Value, rt.NumIn())
		for i := range in {
			ptr := reflect.New(rt.In(i))
			if i < len(args) {
				if err := DecodeArg(args[i], ptr.Interface()); err != nil {
					s.debug.Log("Ack argument couldn't be decoded", err)
					return
				}
			}
			in[i] = ptr.Elem()
		}
		rv.Call(in)
	}, true
}

// Send emits a "message" event.
func (s *Socket) Send(args ...any) {
	s.Emit("message", args...)
}

// Compress sets whether the next emitted packet should be compressed.
// Packets are compressed by default.
func (s *Socket) Compress(compress bool) *Socket {
	s.mu.Lock()
	s.flags.compress = &compress
	s.mu.Unlock()
	return s
}

// Binary overrides the binary detection for the next emitted packet.
func (s *Socket) Binary(binary bool) *Socket {
	s.mu.Lock()
	s.flags.binary = &binary
	s.mu.Unlock()
	return s
}
