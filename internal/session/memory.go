package session

import (
	"sync"

	"github.com/civiceye/civiceye/internal/model"
)

// MemoryStore is a non-durable Store used in tests and anywhere a
// throwaway session is acceptable.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Set applies a partial update; empty fields are left untouched.
func (s *MemoryStore) Set(f Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.AccessToken != "" {
		s.values[keyAccess] = f.AccessToken
	}
	if f.RefreshToken != "" {
		s.values[keyRefresh] = f.RefreshToken
	}
	if f.Role != "" {
		s.values[keyRole] = string(model.ParseRole(f.Role))
	}
	if f.Username != "" {
		s.values[keyUsername] = f.Username
	}
	if f.FullName != "" {
		s.values[keyFullName] = f.FullName
	}
	return nil
}

// Get returns the current session.
func (s *MemoryStore) Get() (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.Session{
		AccessToken:  s.values[keyAccess],
		RefreshToken: s.values[keyRefresh],
		Role:         model.ParseRole(s.values[keyRole]),
		Username:     s.values[keyUsername],
		FullName:     s.values[keyFullName],
	}, nil
}

// Clear removes everything atomically.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	return nil
}

// IsAuthenticated reports whether an access token is stored.
func (s *MemoryStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[keyAccess] != ""
}
