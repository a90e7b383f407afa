package utils

import (
	"fmt"
	"time"

	"github.com/karagenc/sio-client-go/emitter"
	"github.com/karagenc/sio-client-go/internal/sync"
	"github.com/karagenc/sio-client-go/transport"
)

// TestTransport is a transport driven by the test.
// Nothing happens on its own: call the Simulate methods to emit events.
type TestTransport struct {
	*emitter.Emitter

	id     string
	onOpen func(t *TestTransport)

	mu        sync.Mutex
	openCount int
	opened    bool
	closed    bool
	frames    []transport.Frame
	options   []transport.WriteOptions

	written chan transport.Frame
}

var _ transport.Transport = (*TestTransport)(nil)

func NewTestTransport(id string, onOpen func(t *TestTransport)) *TestTransport {
	return &TestTransport{
		Emitter: emitter.New(),
		id:      id,
		onOpen:  onOpen,
		written: make(chan transport.Frame, 1024),
	}
}

func (t *TestTransport) ID() string { return t.id }

// Open runs the onOpen script on a new goroutine.
func (t *TestTransport) Open() {
	t.mu.Lock()
	t.openCount++
	onOpen := t.onOpen
	t.mu.Unlock()
	if onOpen != nil {
		go onOpen(t)
	}
}

func (t *TestTransport) Write(frame transport.Frame, options transport.WriteOptions) {
	t.mu.Lock()
	t.frames = append(t.frames, frame)
	t.options = append(t.options, options)
	t.mu.Unlock()
	t.written <- frame
}

// Close emits close with the reason "forced close" if the transport was open.
func (t *TestTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	opened := t.opened
	t.mu.Unlock()
	if opened {
		t.Emit(transport.EventClose, transport.ReasonForcedClose, nil)
	}
}

func (t *TestTransport) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openCount
}

func (t *TestTransport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Frames returns every frame written so far.
func (t *TestTransport) Frames() []transport.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	frames := make([]transport.Frame, len(t.frames))
	copy(frames, t.frames)
	return frames
}

func (t *TestTransport) WriteOptions() []transport.WriteOptions {
	t.mu.Lock()
	defer t.mu.Unlock()
	options := make([]transport.WriteOptions, len(t.options))
	copy(options, t.options)
	return options
}

// NextFrame waits for the next written frame.
func (t *TestTransport) NextFrame(timeout time.Duration) (transport.Frame, error) {
	select {
	case frame := <-t.written:
		return frame, nil
	case <-time.After(timeout):
		return transport.Frame{}, fmt.Errorf("TestTransport: no frame was written in %s", timeout)
	}
}

// NextText waits for the next written frame and returns it as a string.
func (t *TestTransport) NextText(timeout time.Duration) (string, error) {
	frame, err := t.NextFrame(timeout)
	if err != nil {
		return "", err
	}
	return string(frame.Data), nil
}

func (t *TestTransport) SimulateOpen() {
	t.mu.Lock()
	t.opened = true
	t.mu.Unlock()
	t.Emit(transport.EventOpen)
}

func (t *TestTransport) SimulateText(data string) {
	t.Emit(transport.EventData, transport.Frame{Data: []byte(data)})
}

func (t *TestTransport) SimulateBinary(data []byte) {
	t.Emit(transport.EventData, transport.Frame{Data: data, IsBinary: true})
}

func (t *TestTransport) SimulatePing() { t.Emit(transport.EventPing) }

func (t *TestTransport) SimulatePong() { t.Emit(transport.EventPong) }

func (t *TestTransport) SimulateError(err error) { t.Emit(transport.EventError, err) }

func (t *TestTransport) SimulateClose(reason string, err error) {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.Emit(transport.EventClose, reason, err)
}

// TestDialer creates a TestTransport per dial, each running the same onOpen script.
type TestDialer struct {
	onOpen func(t *TestTransport)

	mu         sync.Mutex
	transports []*TestTransport
	configs    []*transport.Config

	created chan *TestTransport
}

func NewTestDialer(onOpen func(t *TestTransport)) *TestDialer {
	return &TestDialer{
		onOpen:  onOpen,
		created: make(chan *TestTransport, 1024),
	}
}

func (d *TestDialer) Dial(config *transport.Config) transport.Transport {
	d.mu.Lock()
	t := NewTestTransport(fmt.Sprintf("eio%d", len(d.transports)+1), d.onOpen)
	d.transports = append(d.transports, t)
	d.configs = append(d.configs, config)
	d.mu.Unlock()
	d.created <- t
	return t
}

func (d *TestDialer) Transports() []*TestTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	transports := make([]*TestTransport, len(d.transports))
	copy(transports, d.transports)
	return transports
}

func (d *TestDialer) Configs() []*transport.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	configs := make([]*transport.Config, len(d.configs))
	copy(configs, d.configs)
	return configs
}

// Next waits for the next transport to be dialed.
func (d *TestDialer) Next(timeout time.Duration) (*TestTransport, error) {
	select {
	case t := <-d.created:
		return t, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("TestDialer: nothing was dialed in %s", timeout)
	}
}
