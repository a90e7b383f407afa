package sio

import "github.com/karagenc/sio-client-go/internal/sync"

// Sockets by namespace, in the order they were added.
type socketStore struct {
	sockets    map[string]*Socket
	namespaces []string
	mu         sync.Mutex
}

func newSocketStore() *socketStore {
	return &socketStore{
		sockets: make(map[string]*Socket),
	}
}

func (s *socketStore) get(namespace string) (ss *Socket, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok = s.sockets[namespace]
	return
}

func (s *socketStore) getAll() (sockets []*Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sockets = make([]*Socket, 0, len(s.namespaces))
	for _, namespace := range s.namespaces {
		sockets = append(sockets, s.sockets[namespace])
	}
	return
}

func (s *socketStore) set(ss *Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sockets[ss.namespace]; !ok {
		s.namespaces = append(s.namespaces, ss.namespace)
	}
	s.sockets[ss.namespace] = ss
}

func (s *socketStore) remove(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sockets[namespace]; !ok {
		return
	}
	delete(s.sockets, namespace)
	for i, n := range s.namespaces {
		if n == namespace {
			s.namespaces = append(s.namespaces[:i], s.namespaces[i+1:]...)
			break
		}
	}
}
