package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "subtake"

// EnvVar is the environment variable holding provider's API key.
func EnvVar(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		return "GEMINI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "API_KEY"
	}
}

// APIKey returns the key for provider from the environment, then the OS
// keyring. An empty string means none is configured.
func APIKey(provider string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvVar(provider))); v != "" {
		return v, nil
	}
	key, err := keyring.Get(keyringService, strings.ToLower(provider))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s key from keyring: %w", provider, err)
	}
	return key, nil
}

// StoreAPIKey saves key for provider in the OS keyring.
func StoreAPIKey(provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty API key")
	}
	if err := keyring.Set(keyringService, strings.ToLower(provider), key); err != nil {
		return fmt.Errorf("save %s key to keyring: %w", provider, err)
	}
	return nil
}

// DeleteAPIKey removes provider's key from the OS keyring. Removing a key
// that is not there is not an error.
func DeleteAPIKey(provider string) error {
	err := keyring.Delete(keyringService, strings.ToLower(provider))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete %s key from keyring: %w", provider, err)
	}
	return nil
}
