package blob

import (
	"context"
	"sync"
	"time"
)

type memoryObject struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and single-binary dev runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
}

// Make sure we conform to Store interface
var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = memoryObject{data: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	object, found := s.objects[key]
	if !found {
		return nil, ErrNotFound
	}
	if time.Now().After(object.expiresAt) {
		delete(s.objects, key)
		return nil, ErrNotFound
	}
	return object.data, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Len reports the number of live objects. Used by tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
