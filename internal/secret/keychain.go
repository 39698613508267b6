package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const keychainService = "datalink"

// keychainItemNotFound is the exit status of `security` for a missing item.
const keychainItemNotFound = 44

// KeychainStore implements SecretStore using the macOS Keychain
// via the `security` CLI tool.
type KeychainStore struct {
	service string
	run     func(name string, args ...string) ([]byte, error)
}

// NewKeychainStore creates a KeychainStore.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: keychainService, run: runCommand}
}

func runCommand(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Set stores a secret in the Keychain, replacing any existing value.
func (k *KeychainStore) Set(key string, value []byte) error {
	out, err := k.run("security", "add-generic-password",
		"-a", key,
		"-s", k.service,
		"-w", string(value),
		"-U",
	)
	if err != nil {
		return fmt.Errorf("keychain set: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Get retrieves a secret from the Keychain. A missing item yields nil, nil.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run("security", "find-generic-password",
		"-a", key,
		"-s", k.service,
		"-w",
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == keychainItemNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

// Delete removes a secret from the Keychain.
func (k *KeychainStore) Delete(key string) error {
	_, err := k.run("security", "delete-generic-password",
		"-a", key,
		"-s", k.service,
	)
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == keychainItemNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}
