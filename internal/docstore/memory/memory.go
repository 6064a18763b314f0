// Package memory is an in-process docstore.Store used by the memory backend
// and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

type Store struct {
	mu     sync.Mutex
	docs   map[string][]byte
	writes int
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

// Put seeds a document without counting it as a write.
func (s *Store) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = append([]byte(nil), data...)
}

func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[path]
	return ok, nil
}

func (s *Store) Read(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("memory: %s does not exist", path)
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Write(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = append([]byte(nil), data...)
	s.writes++
	return nil
}

// Get returns a copy of the document at path.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[path]
	return append([]byte(nil), data...), ok
}

// Writes counts Write calls since creation.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
