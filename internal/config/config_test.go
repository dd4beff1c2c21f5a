package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	t.Setenv("TEST_DUR_1", "90s")
	if got := getEnvAsDurationOrDefault("TEST_DUR_1", time.Minute); got != 90*time.Second {
		t.Errorf("Expected 90s, got %s", got)
	}

	t.Setenv("TEST_DUR_2", "soon")
	if got := getEnvAsDurationOrDefault("TEST_DUR_2", time.Minute); got != time.Minute {
		t.Errorf("Expected default for invalid duration, got %s", got)
	}
}

func TestGetEnvAsFloatOrDefault(t *testing.T) {
	t.Setenv("TEST_FLOAT_1", "0.25")
	if got := getEnvAsFloatOrDefault("TEST_FLOAT_1", 1); got != 0.25 {
		t.Errorf("Expected 0.25, got %v", got)
	}
	if got := getEnvAsFloatOrDefault("TEST_FLOAT_UNSET", 0.7); got != 0.7 {
		t.Errorf("Expected default 0.7, got %v", got)
	}
}

func writeSecrets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write secrets file: %v", err)
	}
	return path
}

func TestResolveAPIKey_PrefersSecretsFile(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "from-env")
	path := writeSecrets(t, `TEST_GEMINI_KEY = "from-file"`)

	key, source, err := ResolveAPIKey(path, "TEST_GEMINI_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "from-file" || source != "secrets" {
		t.Errorf("Expected from-file/secrets, got %q/%q", key, source)
	}
}

func TestResolveAPIKey_FallsBackToEnv(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "from-env")
	path := filepath.Join(t.TempDir(), "missing.toml")

	key, source, err := ResolveAPIKey(path, "TEST_GEMINI_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "from-env" || source != "env" {
		t.Errorf("Expected from-env/env, got %q/%q", key, source)
	}
}

func TestResolveAPIKey_FileWithoutKeyFallsBack(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "from-env")
	path := writeSecrets(t, `OTHER = "x"`)

	key, _, err := ResolveAPIKey(path, "TEST_GEMINI_KEY")
	if err != nil || key != "from-env" {
		t.Errorf("Expected env fallback, got %q (err=%v)", key, err)
	}
}

func TestResolveAPIKey_Missing(t *testing.T) {
	os.Unsetenv("TEST_GEMINI_KEY_MISSING")

	_, _, err := ResolveAPIKey("", "TEST_GEMINI_KEY_MISSING")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if cfgErr.Key != "TEST_GEMINI_KEY_MISSING" {
		t.Errorf("Expected key in error, got %q", cfgErr.Key)
	}
}

func TestResolveAPIKey_MalformedFile(t *testing.T) {
	path := writeSecrets(t, `TEST_GEMINI_KEY = `)

	_, _, err := ResolveAPIKey(path, "TEST_GEMINI_KEY")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError for malformed file, got %v", err)
	}
}

func TestResolveAPIKey_NonStringValue(t *testing.T) {
	path := writeSecrets(t, `TEST_GEMINI_KEY = 42`)

	_, _, err := ResolveAPIKey(path, "TEST_GEMINI_KEY")
	if err == nil {
		t.Fatal("Expected error for non-string secret")
	}
}

func TestLoad_WithoutKeyIsUnusable(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "none.toml"))

	cfg, err := Load()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if cfg == nil || cfg.Usable() {
		t.Fatal("Expected non-nil, unusable config")
	}
	if cfg.WelcomeMessage == "" {
		t.Error("Expected default welcome message")
	}
}

func TestLoad_WithKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "abc")
	t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "none.toml"))
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Usable() || cfg.GeminiKeySource != "env" {
		t.Errorf("Expected usable config from env, got source %q", cfg.GeminiKeySource)
	}
	if cfg.SessionIdleTimeout != 5*time.Minute {
		t.Errorf("Expected 5m idle timeout, got %s", cfg.SessionIdleTimeout)
	}
}

func TestLoad_DefaultSecretsFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "abc")
	t.Setenv("SECRETS_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SecretsFile != ".streamlit/secrets.toml" {
		t.Errorf("Expected .streamlit/secrets.toml, got %q", cfg.SecretsFile)
	}
}
