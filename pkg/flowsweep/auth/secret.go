package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name under which client secrets are stored in
// the OS keychain.
const KeyringService = "flowsweep"

// ResolveClientSecret resolves a client secret from the first configured
// source: a literal value, an environment variable, a file, or the OS
// keychain. An empty result is valid for public clients.
func ResolveClientSecret(secret, secretEnv, secretFile, keyringKey string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	if secretEnv != "" {
		value := strings.TrimSpace(os.Getenv(secretEnv))
		if value == "" {
			return "", fmt.Errorf("client secret env var not set: %s", secretEnv)
		}
		return value, nil
	}
	if secretFile != "" {
		bytes, err := os.ReadFile(secretFile)
		if err != nil {
			return "", fmt.Errorf("failed to read client secret file: %w", err)
		}
		return strings.TrimSpace(string(bytes)), nil
	}
	if keyringKey != "" {
		value, err := keyring.Get(KeyringService, keyringKey)
		if err != nil {
			return "", fmt.Errorf("failed to read client secret from keyring: %w", err)
		}
		return strings.TrimSpace(value), nil
	}
	return "", nil
}

// StoreClientSecret saves a client secret in the OS keychain under the given
// key.
func StoreClientSecret(keyringKey, secret string) error {
	if keyringKey == "" {
		return fmt.Errorf("keyring key is required")
	}
	return keyring.Set(KeyringService, keyringKey, secret)
}
