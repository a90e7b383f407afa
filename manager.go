package sio

import (
	"net/http"
	"net/url"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/karagenc/sio-client-go/emitter"
	"github.com/karagenc/sio-client-go/internal/sync"
	"github.com/karagenc/sio-client-go/parser"
	jsonparser "github.com/karagenc/sio-client-go/parser/json"
	"github.com/karagenc/sio-client-go/parser/json/serializer/stdjson"
	"github.com/karagenc/sio-client-go/transport"
	"github.com/karagenc/sio-client-go/transport/websocket"
)

type (
	ManagerConfig struct {
		// Path of the server endpoint.
		// Default: /socket.io
		Path string

		// Query parameters sent with the transport handshake.
		// Accepts the same types as SocketConfig.Query.
		Query any

		// HTTP headers sent with the transport handshake.
		Header http.Header

		// A creator function for the Socket.IO parser.
		// This function is used for creating a parser.Parser object.
		// You can use a custom parser by changing this variable.
		//
		// By default this function is nil and default JSON parser is used.
		ParserCreator parser.Creator

		// Creates the underlying transport.
		// By default, Engine.IO v3 over WebSocket is used.
		Dialer transport.Dialer

		// Should we disallow reconnections?
		// Default: false (allow reconnections)
		NoReconnection bool

		// How many reconnection attempts should we try?
		// Default: 0 (Infinite)
		ReconnectionAttempts uint32

		// The time delay between reconnection attempts.
		// Default: 1 second
		ReconnectionDelay *time.Duration

		// The max time delay between reconnection attempts.
		// Default: 5 seconds
		ReconnectionDelayMax *time.Duration

		// Used in the exponential backoff jitter when reconnecting.
		// This value is required to be between 0 and 1
		//
		// Default: 0.5
		RandomizationFactor *float32

		// How long to wait for the transport to open.
		// Default: 20 seconds
		Timeout *time.Duration

		// Wait for the transport to open without a deadline.
		NoTimeout bool

		// Don't open the connection in NewManager, and don't
		// connect sockets in Manager.Socket.
		NoAutoConnect bool

		// For debugging purposes. Leave it nil if it is of no use.
		Debugger Debugger
	}

	Manager struct {
		url     string
		path    string
		query   url.Values
		header  http.Header
		dialer  transport.Dialer
		debug   Debugger
		emitter *emitter.Emitter

		// Sockets listen for open, packet and close here.
		socketEvents *emitter.Emitter

		autoConnect bool

		// Outgoing packets are encoded one at a time on the goroutine that owns
		// the encode, so the encoder is never called concurrently.
		encoder parser.Parser

		// Frames arrive on transport goroutines.
		decoderMu sync.Mutex
		decoder   parser.Parser

		mu sync.Mutex

		readyState ReadyState
		engine     transport.Transport
		subs       *emitter.Subscriptions
		sockets    *socketStore
		connecting mapset.Set[*Socket]

		packetBuffer []*parser.Packet
		encoding     bool
		encodingGen  uint64

		backoff              *backoff
		reconnection         bool
		reconnectionAttempts uint32
		reconnectionDelay    time.Duration
		reconnectionDelayMax time.Duration
		randomizationFactor  float32
		timeout              time.Duration

		reconnecting  bool
		skipReconnect bool
		lastPing      time.Time
	}
)

type ReadyState int

const (
	ReadyStateClosed ReadyState = iota
	ReadyStateOpening
	ReadyStateOpen
)

func (s ReadyState) String() string {
	switch s {
	case ReadyStateClosed:
		return "closed"
	case ReadyStateOpening:
		return "opening"
	case ReadyStateOpen:
		return "open"
	}
	return "<invalid>"
}

const (
	DefaultPath                         = "/socket.io"
	DefaultReconnectionDelay            = 1 * time.Second
	DefaultReconnectionDelayMax         = 5 * time.Second
	DefaultRandomizationFactor  float32 = 0.5
	DefaultTimeout                      = 20 * time.Second
)

// This function creates a new Manager for client sockets.
//
// Unless config.NoAutoConnect is set, the connection is opened right away.
// Use the Socket method of the returned Manager to create namespace sockets.
func NewManager(uri string, config *ManagerConfig) *Manager {
	if config == nil {
		config = new(ManagerConfig)
	} else {
		// User can modify the config. We copy the config here in order to avoid problems.
		c := *config
		config = &c
	}

	m := &Manager{
		url:     uri,
		path:    config.Path,
		header:  config.Header,
		dialer:  config.Dialer,
		emitter: emitter.New(),

		socketEvents: emitter.New(),

		autoConnect: !config.NoAutoConnect,

		subs:       emitter.NewSubscriptions(),
		sockets:    newSocketStore(),
		connecting: mapset.NewThreadUnsafeSet[*Socket](),

		reconnection:         !config.NoReconnection,
		reconnectionAttempts: config.ReconnectionAttempts,
	}

	if config.Debugger != nil {
		m.debug = config.Debugger
	} else {
		m.debug = NewNoopDebugger()
	}
	m.debug = m.debug.WithContext("[sio] Manager with URL: " + truncateURL(uri))

	if m.path == "" {
		m.path = DefaultPath
	}

	if m.dialer == nil {
		m.dialer = websocket.NewDialer(nil)
	}

	query, err := encodeQuery(config.Query)
	if err == nil {
		m.query, err = url.ParseQuery(query)
	}
	if err != nil {
		m.debug.Log("Ignoring invalid query", err)
		m.query = nil
	}

	if config.ReconnectionDelay != nil {
		m.reconnectionDelay = *config.ReconnectionDelay
	} else {
		m.reconnectionDelay = DefaultReconnectionDelay
	}

	if config.ReconnectionDelayMax != nil {
		m.reconnectionDelayMax = *config.ReconnectionDelayMax
	} else {
		m.reconnectionDelayMax = DefaultReconnectionDelayMax
	}

	if config.RandomizationFactor != nil {
		m.randomizationFactor = *config.RandomizationFactor
	} else {
		m.randomizationFactor = DefaultRandomizationFactor
	}

	if config.NoTimeout {
		m.timeout = 0
	} else if config.Timeout != nil {
		m.timeout = *config.Timeout
	} else {
		m.timeout = DefaultTimeout
	}

	m.backoff = newBackoff(m.reconnectionDelay, m.reconnectionDelayMax, m.randomizationFactor)

	parserCreator := config.ParserCreator
	if parserCreator == nil {
		json := stdjson.New()
		parserCreator = jsonparser.NewCreator(0, json)
	}
	m.encoder = parserCreator()
	m.decoder = parserCreator()

	if m.autoConnect {
		m.Open(nil)
	}
	return m
}

func (m *Manager) URL() string { return m.url }

func (m *Manager) ReadyState() ReadyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyState
}

// Socket returns the socket of the namespace, creating it if necessary.
// An empty namespace means the root namespace.
func (m *Manager) Socket(namespace string, config *SocketConfig) *Socket {
	if namespace == "" {
		namespace = "/"
	}
	if config == nil {
		config = new(SocketConfig)
	} else {
		// User can modify the config. We copy the config here in order to avoid problems.
		c := *config
		config = &c
	}

	m.mu.Lock()
	socket, ok := m.sockets.get(namespace)
	if ok {
		m.mu.Unlock()
		return socket
	}
	socket = newSocket(m, namespace, config)
	m.sockets.set(socket)
	m.mu.Unlock()

	if m.autoConnect {
		socket.Connect()
	}
	return socket
}

// Sockets returns the sockets currently registered on the manager.
func (m *Manager) Sockets() []*Socket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sockets.getAll()
}

// addConnecting registers a socket that called Connect.
func (m *Manager) addConnecting(socket *Socket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connecting.Add(socket)
	if _, ok := m.sockets.get(socket.namespace); !ok {
		m.sockets.set(socket)
	}
}

func (m *Manager) isReconnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnecting
}

func (m *Manager) currentEngine() transport.Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine
}

func (m *Manager) engineID() string {
	engine := m.currentEngine()
	if engine == nil {
		return ""
	}
	return engine.ID()
}

func (m *Manager) hasNamespace(namespace string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sockets.get(namespace)
	return ok
}

func (m *Manager) Reconnection() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnection
}

func (m *Manager) SetReconnection(reconnection bool) {
	m.mu.Lock()
	m.reconnection = reconnection
	m.mu.Unlock()
}

func (m *Manager) ReconnectionAttempts() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectionAttempts
}

// 0 means unlimited.
func (m *Manager) SetReconnectionAttempts(attempts uint32) {
	m.mu.Lock()
	m.reconnectionAttempts = attempts
	m.mu.Unlock()
}

func (m *Manager) ReconnectionDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectionDelay
}

func (m *Manager) SetReconnectionDelay(delay time.Duration) {
	m.mu.Lock()
	m.reconnectionDelay = delay
	m.mu.Unlock()
	m.backoff.setMin(delay)
}

func (m *Manager) ReconnectionDelayMax() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectionDelayMax
}

func (m *Manager) SetReconnectionDelayMax(delay time.Duration) {
	m.mu.Lock()
	m.reconnectionDelayMax = delay
	m.mu.Unlock()
	m.backoff.setMax(delay)
}

func (m *Manager) RandomizationFactor() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.randomizationFactor
}

func (m *Manager) SetRandomizationFactor(factor float32) {
	m.mu.Lock()
	m.randomizationFactor = factor
	m.mu.Unlock()
	m.backoff.setJitter(factor)
}

func (m *Manager) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// 0 disables the timeout.
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
}

func truncateURL(url string) string {
	if len(url) > 50 {
		return url[:50] + "..."
	}
	return url
}
