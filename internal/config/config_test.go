package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadWithEnv("", map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, "myclientid", cfg.ClientID)
	assert.Equal(t, "myclientsecret", cfg.ClientSecret)
	assert.Equal(t, "home", cfg.Store)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, string(OutputPretty), cfg.Output)
	assert.NoError(t, cfg.Validate())
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend_url: https://api.example.com
client_id: fromfile
client_secret: filesecret
timeout: 30s
`), 0600))

	cfg, err := LoadWithEnv(path, map[string]string{
		"BKCTL_CLIENT_ID":     "fromenv",
		"BKCTL_SESSION_STORE": "project",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
	assert.Equal(t, "fromenv", cfg.ClientID)
	assert.Equal(t, "filesecret", cfg.ClientSecret)
	assert.Equal(t, "project", cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), map[string]string{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectedErr string
	}{
		{name: "Defaults are valid", mutate: func(c *Config) {}},
		{name: "Relative backend", mutate: func(c *Config) { c.BackendURL = "localhost:8080" }, expectedErr: "scheme must be http or https"},
		{name: "Missing host", mutate: func(c *Config) { c.BackendURL = "http://" }, expectedErr: "missing host"},
		{name: "Unknown output", mutate: func(c *Config) { c.Output = "xml" }, expectedErr: "unsupported output format"},
		{name: "Unknown log level", mutate: func(c *Config) { c.LogLevel = "trace" }, expectedErr: "unsupported log level"},
		{name: "Unknown log format", mutate: func(c *Config) { c.LogFormat = "logfmt" }, expectedErr: "unsupported log format"},
		{name: "Negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, expectedErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			}
		})
	}
}

func TestValidateOutput(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		expected    OutputFormat
		expectedErr string
	}{
		{name: "Empty defaults to pretty", output: "", expected: OutputPretty},
		{name: "JSON", output: "json", expected: OutputJSON},
		{name: "Raw", output: "raw", expected: OutputRaw},
		{name: "Invalid", output: "table", expectedErr: "unsupported output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := ValidateOutput(tt.output)
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, output)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			}
		})
	}
}
