package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const serviceName = "scansync"

// TokenKey is the keyring key under which the tracker bearer token is
// stored.
const TokenKey = "tracker_token"

// tokenEnvVar overrides the keyring when set, which is the usual path
// in CI where no system keyring is available.
const tokenEnvVar = "SCANSYNC_TOKEN"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/scansync/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("scansync-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Token resolves the tracker bearer token: the SCANSYNC_TOKEN
// environment variable wins, otherwise the system keyring is consulted.
func Token() (string, error) {
	if tok := os.Getenv(tokenEnvVar); tok != "" {
		return tok, nil
	}
	tok, err := Get(TokenKey)
	if err != nil {
		return "", fmt.Errorf(
			"no tracker token: set %s or run \"scansync auth set\": %w",
			tokenEnvVar, err,
		)
	}
	return tok, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring. Deleting
// a key that was never stored is not an error.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
