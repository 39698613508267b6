// Package secret keeps connection passwords out of the profile records.
package secret

import "sync"

// SecretStore stores sensitive values such as database passwords.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns an empty slice and nil error if the key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key. Missing keys are not an error.
	Delete(key string) error
}

// ConnectionKey is the key a connection's password is stored under.
func ConnectionKey(connectionID string) string {
	return "db:" + connectionID
}

// MemoryStore keeps secrets in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string][]byte)}
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.secrets[key]...), nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, key)
	return nil
}
