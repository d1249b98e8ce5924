package algorithms

import (
	"fmt"
	"sort"
	"sync"

	"kernelscope/internal/convolve"
)

// Manager holds the correlation backends available to the pipeline.
// The native backend is always registered.
type Manager struct {
	correlators map[string]convolve.Correlator
	current     string
	mu          sync.RWMutex
}

func NewManager() *Manager {
	manager := &Manager{
		correlators: make(map[string]convolve.Correlator),
	}

	native := convolve.Native{}
	manager.correlators[native.Name()] = native
	manager.current = native.Name()

	return manager
}

func (m *Manager) Register(c convolve.Correlator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := c.Name()
	if _, exists := m.correlators[name]; exists {
		return fmt.Errorf("correlator already registered: %s", name)
	}
	m.correlators[name] = c
	return nil
}

func (m *Manager) SetCurrent(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.correlators[name]; !exists {
		return fmt.Errorf("unknown correlator: %s", name)
	}
	m.current = name
	return nil
}

func (m *Manager) Current() convolve.Correlator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.correlators[m.current]
}

func (m *Manager) Get(name string) (convolve.Correlator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, exists := m.correlators[name]; exists {
		return c, nil
	}
	return nil, fmt.Errorf("unknown correlator: %s", name)
}

// Available lists registered names in sorted order.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.correlators))
	for name := range m.correlators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
