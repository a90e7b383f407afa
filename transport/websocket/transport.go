// Package websocket implements transport.Transport with Engine.IO v3 framing
// over a single WebSocket connection.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/karagenc/sio-client-go/emitter"
	"github.com/karagenc/sio-client-go/internal/sync"
	"github.com/karagenc/sio-client-go/transport"
	"github.com/tomruk/yeast"
	"nhooyr.io/websocket"
)

const (
	ProtocolVersion = 3
	DefaultPath     = "/engine.io/"
)

var yeaster = yeast.New()

type Transport struct {
	*emitter.Emitter

	config      transport.Config
	dialOptions websocket.DialOptions

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	id      string
	conn    *websocket.Conn
	started bool
	opened  bool
	closed  bool

	queue  *writeQueue
	pongCh chan struct{}
}

var _ transport.Transport = (*Transport)(nil)

// NewDialer returns a transport.Dialer creating websocket transports.
// dialOptions can be nil.
func NewDialer(dialOptions *websocket.DialOptions) transport.Dialer {
	return func(config *transport.Config) transport.Transport {
		return New(config, dialOptions)
	}
}

func New(config *transport.Config, dialOptions *websocket.DialOptions) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		Emitter: emitter.New(),
		ctx:     ctx,
		cancel:  cancel,
		queue:   newWriteQueue(),
		pongCh:  make(chan struct{}, 1),
	}
	if config != nil {
		t.config = *config
	}
	if dialOptions != nil {
		t.dialOptions = *dialOptions
	}
	return t
}

func (t *Transport) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *Transport) Open() {
	t.mu.Lock()
	if t.started || t.closed {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go t.run()
}

func (t *Transport) Write(frame transport.Frame, options transport.WriteOptions) {
	mt := websocket.MessageText
	if frame.IsBinary {
		mt = websocket.MessageBinary
	}
	t.queue.add(wireFrame{
		messageType: mt,
		data:        encodeMessage(frame.Data, frame.IsBinary),
	})
}

func (t *Transport) Close() {
	t.mu.Lock()
	if !t.opened {
		// Dial in progress or never started. Nobody waits for events.
		t.closed = true
		t.mu.Unlock()
		t.cancel()
		return
	}
	t.mu.Unlock()
	t.close(transport.ReasonForcedClose, nil)
}

func (t *Transport) url() (string, error) {
	u, err := url.Parse(t.config.URL)
	if err != nil {
		return "", fmt.Errorf("websocket: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("websocket: unsupported URL scheme: %s", u.Scheme)
	}

	path := t.config.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path

	q := u.Query()
	for k, values := range t.config.Query {
		for _, v := range values {
			q.Add(k, v)
		}
	}
	q.Set("EIO", strconv.Itoa(ProtocolVersion))
	q.Set("transport", "websocket")
	q.Set("t", yeaster.Yeast())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (t *Transport) dial() (conn *websocket.Conn, hr *handshakeResponse, err error) {
	u, err := t.url()
	if err != nil {
		return
	}

	opts := t.dialOptions
	if len(t.config.Header) > 0 {
		header := make(http.Header)
		for k, v := range opts.HTTPHeader {
			header[k] = v
		}
		for k, v := range t.config.Header {
			header[k] = v
		}
		opts.HTTPHeader = header
	}

	conn, _, err = websocket.Dial(t.ctx, u, &opts)
	if err != nil {
		return nil, nil, fmt.Errorf("websocket: %w", err)
	}

	_, data, err := conn.Read(t.ctx)
	if err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		return nil, nil, fmt.Errorf("websocket: %w", err)
	}

	hr, err = parseHandshakeResponse(data)
	if err != nil {
		conn.Close(websocket.StatusProtocolError, "")
		return nil, nil, err
	}
	return conn, hr, nil
}

func (t *Transport) run() {
	conn, hr, err := t.dial()
	if err != nil {
		if t.ctx.Err() == nil {
			t.Emit(transport.EventError, err)
		}
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	t.conn = conn
	t.id = hr.SID
	t.opened = true
	t.mu.Unlock()

	go t.writeLoop(conn)
	if hr.PingInterval > 0 {
		go t.pingLoop(hr.pingInterval(), hr.pingTimeout())
	}

	t.Emit(transport.EventOpen)
	t.readLoop(conn)
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.Read(t.ctx)
		if err != nil {
			t.onReadError(err)
			return
		}

		if mt == websocket.MessageBinary {
			if len(data) == 0 || data[0] != binaryMessage {
				continue
			}
			t.Emit(transport.EventData, transport.Frame{Data: data[1:], IsBinary: true})
			continue
		}

		if len(data) == 0 {
			continue
		}

		switch data[0] {
		case packetMessage:
			t.Emit(transport.EventData, transport.Frame{Data: data[1:]})
		case packetPong:
			select {
			case t.pongCh <- struct{}{}:
			default:
			}
			t.Emit(transport.EventPong)
		case packetPing:
			t.queue.add(wireFrame{
				messageType: websocket.MessageText,
				data:        append([]byte{packetPong}, data[1:]...),
			})
		case packetClose:
			t.close(transport.ReasonTransportClose, nil)
			return
		case packetNoop:
		}
	}
}

func (t *Transport) onReadError(err error) {
	if t.ctx.Err() != nil {
		// We closed the connection ourselves.
		return
	}
	if isExpectedClose(err) || errors.Is(err, context.Canceled) {
		t.close(transport.ReasonTransportClose, nil)
		return
	}
	err = fmt.Errorf("websocket: %w", err)
	t.Emit(transport.EventError, err)
	t.close(transport.ReasonTransportError, err)
}

func (t *Transport) writeLoop(conn *websocket.Conn) {
	for {
		frames, ok := t.queue.poll(t.ctx)
		if !ok {
			return
		}
		for _, f := range frames {
			err := conn.Write(t.ctx, f.messageType, f.data)
			if err != nil {
				if t.ctx.Err() != nil {
					return
				}
				err = fmt.Errorf("websocket: %w", err)
				t.Emit(transport.EventError, err)
				t.close(transport.ReasonTransportError, err)
				return
			}
		}
	}
}

func (t *Transport) pingLoop(interval, timeout time.Duration) {
	for {
		select {
		case <-time.After(interval):
		case <-t.ctx.Done():
			return
		}

		t.queue.add(wireFrame{
			messageType: websocket.MessageText,
			data:        []byte{packetPing},
		})
		t.Emit(transport.EventPing)

		select {
		case <-t.pongCh:
		case <-time.After(timeout):
			t.close(transport.ReasonPingTimeout, nil)
			return
		case <-t.ctx.Done():
			return
		}
	}
}

func (t *Transport) close(reason string, err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	t.cancel()
	t.queue.reset()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	t.Emit(transport.EventClose, reason, err)
}
