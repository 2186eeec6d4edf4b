// Package lock provides named mutexes shared across components.
package lock

import (
	"sync"
)

// Manager handles named locks
type Manager struct {
	locks sync.Map
}

// NewManager creates a new Manager
func NewManager() *Manager {
	return &Manager{}
}

// Get returns the mutex for the given key, creating it on first use.
func (m *Manager) Get(key string) *sync.Mutex {
	l, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// With runs fn while holding the lock for key.
func (m *Manager) With(key string, fn func() error) error {
	mu := m.Get(key)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}
