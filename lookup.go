package sio

import "github.com/karagenc/sio-client-go/internal/sync"

type Config struct {
	Manager ManagerConfig
	Socket  SocketConfig

	// Always create a new Manager.
	ForceNew bool

	// Don't share Managers between lookups. Same as ForceNew.
	NoMultiplex bool
}

// Registry caches Managers by the identity (scheme://host:port) of their URL.
// Entries are only removed by Reset.
type Registry struct {
	mu       sync.Mutex
	managers map[string]*Manager
}

func NewRegistry() *Registry {
	return &Registry{
		managers: make(map[string]*Manager),
	}
}

var defaultRegistry = NewRegistry()

// Lookup returns a socket for the namespace given by the path of uri.
//
// Sockets of the same scheme, host and port share one Manager (and
// connection), unless config.ForceNew or config.NoMultiplex is set, or the
// cached Manager already has a socket of that namespace. The query of uri
// is sent to the namespace unless config.Socket.Query is set.
func (r *Registry) Lookup(uri string, config *Config) (*Socket, error) {
	if config == nil {
		config = new(Config)
	} else {
		c := *config
		config = &c
	}

	parsed, err := parseURL(uri)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	cached, ok := r.managers[parsed.id]
	sameNamespace := ok && cached.hasNamespace(parsed.path)
	newConnection := config.ForceNew || config.NoMultiplex || sameNamespace

	var manager *Manager
	if newConnection {
		r.mu.Unlock()
		manager = NewManager(parsed.source, &config.Manager)
	} else {
		if !ok {
			cached = NewManager(parsed.source, &config.Manager)
			r.managers[parsed.id] = cached
		}
		manager = cached
		r.mu.Unlock()
	}

	if parsed.query != "" && config.Socket.Query == nil {
		config.Socket.Query = parsed.query
	}
	return manager.Socket(parsed.path, &config.Socket), nil
}

// Reset forgets every cached Manager. The Managers are not closed.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()
}

// Manager returns the cached Manager of uri's identity.
func (r *Registry) Manager(uri string) (*Manager, bool) {
	parsed, err := parseURL(uri)
	if err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.managers[parsed.id]
	return m, ok
}

// Lookup uses the package-level registry. See Registry.Lookup.
func Lookup(uri string, config *Config) (*Socket, error) {
	return defaultRegistry.Lookup(uri, config)
}

// Alias of Lookup.
func Connect(uri string, config *Config) (*Socket, error) {
	return defaultRegistry.Lookup(uri, config)
}

// ResetManagers clears the package-level registry.
func ResetManagers() {
	defaultRegistry.Reset()
}
