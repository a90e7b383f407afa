package emitter

import (
	"sync/atomic"

	"github.com/karagenc/sio-client-go/internal/sync"
)

// Subscription binds a listener (or any other resource, such as a timer)
// to its owner. Destroy can be called any number of times; the cleanup runs once.
type Subscription struct {
	active  atomic.Bool
	once    sync.Once
	cleanup func()
}

func newSubscription(cleanup func()) *Subscription {
	s := &Subscription{cleanup: cleanup}
	s.active.Store(true)
	return s
}

// NewSubscription wraps cleanup into a Subscription.
// Use it to track resources that aren't listeners, such as timers.
func NewSubscription(cleanup func()) *Subscription {
	return newSubscription(cleanup)
}

func (s *Subscription) Active() bool { return s.active.Load() }

func (s *Subscription) Destroy() { s.destroy() }

// Returns true only for the call that actually destroyed the subscription.
func (s *Subscription) destroy() (destroyed bool) {
	s.once.Do(func() {
		destroyed = true
		s.active.Store(false)
		if s.cleanup != nil {
			s.cleanup()
		}
	})
	return
}

// The listener was already removed from the emitter. Only mark inactive.
func (s *Subscription) deactivate() {
	s.once.Do(func() {
		s.active.Store(false)
	})
}

// Subscriptions is an ordered list of subscriptions that are torn down together.
type Subscriptions struct {
	mu   sync.Mutex
	subs []*Subscription
}

func NewSubscriptions() *Subscriptions {
	return new(Subscriptions)
}

func (s *Subscriptions) Add(subs ...*Subscription) {
	s.mu.Lock()
	s.subs = append(s.subs, subs...)
	s.mu.Unlock()
}

func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// DestroyAll drains the list in insertion order.
// Subscriptions added by a cleanup function are kept for the next call.
func (s *Subscriptions) DestroyAll() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Destroy()
	}
}
