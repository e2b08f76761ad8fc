package parsers

import (
	"fmt"
	"sync"

	"github.com/username/warroom/backend/src/models"
)

type registryKey struct {
	broker string
	format models.DocumentFormat
}

// Registry dispatches documents to the adapter registered for their
// (broker, declared format) pair. Adding a broker means registering a new
// adapter, never editing a dispatcher.
type Registry struct {
	mu       sync.RWMutex
	adapters map[registryKey]Parser
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[registryKey]Parser)}
}

// Register installs an adapter for a (broker, format) pair, replacing any
// previous registration.
func (r *Registry) Register(broker string, format models.DocumentFormat, p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[registryKey{broker: broker, format: format}] = p
}

// Get returns the adapter for a (broker, format) pair.
func (r *Registry) Get(broker string, format models.DocumentFormat) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.adapters[registryKey{broker: broker, format: format}]
	if !ok {
		return nil, fmt.Errorf("no parser registered for broker %q format %q", broker, format)
	}
	return p, nil
}
