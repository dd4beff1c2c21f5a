package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigurationError reports that no usable Gemini credential was found.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

// ResolveAPIKey looks the key up in the TOML secrets file first and falls
// back to the environment. The returned source is "secrets" or "env".
func ResolveAPIKey(secretsPath, key string) (string, string, error) {
	if secretsPath != "" {
		val, err := readSecret(secretsPath, key)
		if err != nil {
			return "", "", &ConfigurationError{Key: key, Reason: err.Error()}
		}
		if val != "" {
			return val, "secrets", nil
		}
	}

	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val, "env", nil
	}

	return "", "", &ConfigurationError{
		Key:    key,
		Reason: fmt.Sprintf("not found in %s or the environment", displayPath(secretsPath)),
	}
}

func readSecret(path, key string) (string, error) {
	secrets := map[string]interface{}{}
	if _, err := toml.DecodeFile(path, &secrets); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to parse secrets file %s: %w", path, err)
	}

	raw, ok := secrets[key]
	if !ok {
		return "", nil
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("secret %s in %s is not a string", key, path)
	}
	return strings.TrimSpace(val), nil
}

func displayPath(path string) string {
	if path == "" {
		return "secrets file"
	}
	return path
}
