package websocket

import (
	"context"

	"github.com/karagenc/sio-client-go/internal/sync"
	"nhooyr.io/websocket"
)

type wireFrame struct {
	messageType websocket.MessageType
	data        []byte
}

type writeQueue struct {
	frames []wireFrame
	mu     sync.Mutex

	ready chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{
		ready: make(chan struct{}, 1),
	}
}

// poll blocks until there is something to write or ctx is done.
func (q *writeQueue) poll(ctx context.Context) (frames []wireFrame, ok bool) {
	for {
		frames = q.get()
		if len(frames) != 0 {
			return frames, true
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (q *writeQueue) get() (frames []wireFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	frames = q.frames
	q.frames = nil
	return
}

func (q *writeQueue) add(frames ...wireFrame) {
	q.mu.Lock()
	q.frames = append(q.frames, frames...)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *writeQueue) reset() {
	q.mu.Lock()
	q.frames = nil
	q.mu.Unlock()
}
