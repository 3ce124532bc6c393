package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"

	"github.com/civiceye/civiceye/internal/model"
)

const serviceName = "civiceye"

// KeyringStore persists the session in the system keyring, falling
// back to an encrypted file when no native backend is available.
type KeyringStore struct {
	mu   sync.Mutex
	ring keyring.Keyring
}

// OpenKeyringStore opens the civiceye keyring and returns a store
// backed by it.
func OpenKeyringStore() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/civiceye/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("civiceye-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

// NewKeyringStore wraps an already-open keyring. Used by tests with an
// in-memory array keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// Set applies a partial update to the stored session.
func (s *KeyringStore) Set(f Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates := map[string]string{}
	if f.AccessToken != "" {
		updates[keyAccess] = f.AccessToken
	}
	if f.RefreshToken != "" {
		updates[keyRefresh] = f.RefreshToken
	}
	if f.Role != "" {
		updates[keyRole] = string(model.ParseRole(f.Role))
	}
	if f.Username != "" {
		updates[keyUsername] = f.Username
	}
	if f.FullName != "" {
		updates[keyFullName] = f.FullName
	}

	for key, value := range updates {
		err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
		if err != nil {
			return fmt.Errorf("storing session field %q: %w", key, err)
		}
	}
	return nil
}

// Get returns the current session, with absent fields as zero values.
func (s *KeyringStore) Get() (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := model.Session{
		AccessToken:  s.get(keyAccess),
		RefreshToken: s.get(keyRefresh),
		Role:         model.ParseRole(s.get(keyRole)),
		Username:     s.get(keyUsername),
		FullName:     s.get(keyFullName),
	}
	return sess, nil
}

// Clear removes all session fields. The mutex makes the wipe atomic
// with respect to Get and IsAuthenticated callers.
func (s *KeyringStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range allKeys {
		err := s.ring.Remove(key)
		if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("removing session field %q: %w", key, err)
		}
	}
	return nil
}

// IsAuthenticated reports whether an access token is stored.
func (s *KeyringStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(keyAccess) != ""
}

// get reads one key, treating a missing entry as empty.
func (s *KeyringStore) get(key string) string {
	item, err := s.ring.Get(key)
	if err != nil {
		return ""
	}
	return string(item.Data)
}
