package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultBackendURL is used when no backend address is configured
const DefaultBackendURL = "http://localhost:8080"

// Client identity defaults. Override at build time with
//
//	-ldflags "-X github.com/vulnetix/bkctl/internal/config.DefaultClientID=... -X ...DefaultClientSecret=..."
var (
	DefaultClientID     = "myclientid"
	DefaultClientSecret = "myclientsecret"
)

// OutputFormat selects how response bodies are printed
type OutputFormat string

const (
	OutputPretty OutputFormat = "pretty"
	OutputJSON   OutputFormat = "json"
	OutputRaw    OutputFormat = "raw"
)

// Config holds the client configuration. Values are layered: defaults, then
// the YAML config file, then BKCTL_* environment variables, then flags.
type Config struct {
	BackendURL   string        `yaml:"backend_url" env:"BKCTL_BACKEND_URL"`
	ClientID     string        `yaml:"client_id" env:"BKCTL_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"BKCTL_CLIENT_SECRET"`
	Store        string        `yaml:"store" env:"BKCTL_SESSION_STORE"`
	Timeout      time.Duration `yaml:"timeout" env:"BKCTL_TIMEOUT"`
	LogLevel     string        `yaml:"log_level" env:"BKCTL_LOG_LEVEL"`
	LogFormat    string        `yaml:"log_format" env:"BKCTL_LOG_FORMAT"`
	Output       string        `yaml:"output" env:"BKCTL_OUTPUT"`
}

// DefaultPath returns ~/.bkctl/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".bkctl", "config.yaml"), nil
}

// Load reads the configuration from the process environment. An empty path
// means the default location, which is allowed to be missing.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment; nil uses the process environment
func LoadWithEnv(path string, environment map[string]string) (*Config, error) {
	cfg := &Config{}

	optional := path == ""
	if optional {
		defaultPath, err := DefaultPath()
		if err == nil {
			path = defaultPath
		}
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if !(optional && errors.Is(err, os.ErrNotExist)) {
				return nil, err
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyDefaults fills every unset field
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.BackendURL) == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.ClientSecret == "" {
		c.ClientSecret = DefaultClientSecret
	}
	if c.Store == "" {
		c.Store = "home"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Output == "" {
		c.Output = string(OutputPretty)
	}
}

// Validate checks the values that cannot be checked by type alone
func (c *Config) Validate() error {
	if err := ValidateBackendURL(c.BackendURL); err != nil {
		return err
	}
	if _, err := ValidateOutput(c.Output); err != nil {
		return err
	}
	if err := ValidateLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q: must be 'text' or 'json'", c.LogFormat)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// ValidateBackendURL requires an absolute http(s) address
func ValidateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid backend url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid backend url %q: missing host", raw)
	}
	return nil
}

// ValidateOutput checks if the given string is a valid OutputFormat
func ValidateOutput(output string) (OutputFormat, error) {
	switch OutputFormat(output) {
	case "", OutputPretty:
		return OutputPretty, nil
	case OutputJSON:
		return OutputJSON, nil
	case OutputRaw:
		return OutputRaw, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", output)
	}
}

// ValidateLogLevel accepts debug, info, warn and error
func ValidateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unsupported log level %q: must be debug, info, warn or error", level)
	}
}

// PrintConfiguration writes the effective configuration with the secret masked
func (c *Config) PrintConfiguration(w io.Writer) {
	secret := "(unset)"
	if c.ClientSecret != "" {
		secret = strings.Repeat("*", 8)
	}
	timeout := "none"
	if c.Timeout > 0 {
		timeout = c.Timeout.String()
	}
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Backend:       %s\n", c.BackendURL)
	fmt.Fprintf(w, "  Client ID:     %s\n", c.ClientID)
	fmt.Fprintf(w, "  Client secret: %s\n", secret)
	fmt.Fprintf(w, "  Session store: %s\n", c.Store)
	fmt.Fprintf(w, "  Timeout:       %s\n", timeout)
}
