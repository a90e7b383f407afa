// Package emitter provides the event notification capability shared by the
// manager, the namespace sockets and the transports.
package emitter

import (
	"github.com/karagenc/sio-client-go/internal/sync"
)

type Listener func(args ...any)

// Notifier is implemented by everything that emits named events.
type Notifier interface {
	On(eventName string, listener Listener) *Subscription
	Once(eventName string, listener Listener) *Subscription
	// Removes every listener of eventName.
	Off(eventName string)
	Emit(eventName string, args ...any)
}

type entry struct {
	listener Listener
	once     bool
	sub      *Subscription
}

type Emitter struct {
	mu      sync.Mutex
	entries map[string][]*entry
}

var _ Notifier = (*Emitter)(nil)

func New() *Emitter {
	return &Emitter{
		entries: make(map[string][]*entry),
	}
}

func (e *Emitter) On(eventName string, listener Listener) *Subscription {
	return e.add(eventName, listener, false)
}

func (e *Emitter) Once(eventName string, listener Listener) *Subscription {
	return e.add(eventName, listener, true)
}

func (e *Emitter) add(eventName string, listener Listener, once bool) *Subscription {
	en := &entry{
		listener: listener,
		once:     once,
	}
	en.sub = newSubscription(func() { e.remove(eventName, en) })

	if listener == nil {
		en.sub.Destroy()
		return en.sub
	}

	e.mu.Lock()
	e.entries[eventName] = append(e.entries[eventName], en)
	e.mu.Unlock()
	return en.sub
}

func (e *Emitter) remove(eventName string, en *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.entries[eventName]
	for i, _en := range entries {
		if _en == en {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(e.entries, eventName)
	} else {
		e.entries[eventName] = entries
	}
}

func (e *Emitter) Off(eventName string) {
	e.mu.Lock()
	entries := e.entries[eventName]
	delete(e.entries, eventName)
	e.mu.Unlock()

	for _, en := range entries {
		en.sub.deactivate()
	}
}

func (e *Emitter) OffAll() {
	e.mu.Lock()
	all := e.entries
	e.entries = make(map[string][]*entry)
	e.mu.Unlock()

	for _, entries := range all {
		for _, en := range entries {
			en.sub.deactivate()
		}
	}
}

// Emit calls the listeners of eventName synchronously, in the order they were added.
// Listeners run without any lock held, so they may add or remove listeners.
func (e *Emitter) Emit(eventName string, args ...any) {
	e.mu.Lock()
	entries := e.entries[eventName]
	if len(entries) == 0 {
		e.mu.Unlock()
		return
	}
	snapshot := make([]*entry, len(entries))
	copy(snapshot, entries)
	e.mu.Unlock()

	for _, en := range snapshot {
		if en.once {
			// Only the first emission that wins the destroy gets to call a once listener.
			if !en.sub.destroy() {
				continue
			}
		} else if !en.sub.Active() {
			continue
		}
		en.listener(args...)
	}
}

func (e *Emitter) HasListeners(eventName string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries[eventName]) > 0
}

func (e *Emitter) ListenerCount(eventName string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries[eventName])
}
