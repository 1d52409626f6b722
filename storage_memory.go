package toggled

import (
	"context"
	"sync"
)

// InMemoryStorageProvider keeps values for the lifetime of the process only
type InMemoryStorageProvider struct {
	store map[string]string
	mu    sync.RWMutex
}

func NewInMemoryStorageProvider() *InMemoryStorageProvider {
	return &InMemoryStorageProvider{store: make(map[string]string)}
}

func (s *InMemoryStorageProvider) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store[key], nil
}

func (s *InMemoryStorageProvider) Save(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = value
	return nil
}
