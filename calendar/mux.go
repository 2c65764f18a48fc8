package calendar

import (
	"fmt"
	"sort"
	"sync"

	"github.com/guilherme-santos/calmanager/internal"
)

type Mux struct {
	mu      sync.Mutex
	sources map[string]internal.Source
}

func NewMux() *Mux {
	return &Mux{
		sources: make(map[string]internal.Source),
	}
}

func (m *Mux) Get(platform string) (internal.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.sources[platform]
	if !ok {
		return nil, fmt.Errorf("calendar %q is not implemented", platform)
	}
	return source, nil
}

func (m *Mux) Register(platform string, source internal.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources[platform] = source
}

// Platforms returns the registered platform names, sorted.
func (m *Mux) Platforms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Gate returns the permission gate of the source registered for platform.
// Sources that do not ask for access are always granted.
func (m *Mux) Gate(platform string) (internal.Gate, error) {
	source, err := m.Get(platform)
	if err != nil {
		return nil, err
	}
	if gate, ok := source.(internal.Gate); ok {
		return gate, nil
	}
	return internal.GrantedSource{Source: source}, nil
}
