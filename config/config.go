// Package config loads the vox YAML configuration file.
//
// Every value is optional. Missing keys keep the defaults from Default,
// and command-line flags override whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the contents of a vox config file.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Transcripts TranscriptsConfig `yaml:"transcripts"`
}

// ServerConfig locates the voice-robot backend.
type ServerConfig struct {
	BaseURL     string   `yaml:"base_url"`
	Timeout     Duration `yaml:"timeout"`      // per CRUD request
	ReadTimeout Duration `yaml:"read_timeout"` // max silence on a stream
}

// LogConfig controls diagnostic logging to stderr.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TranscriptsConfig controls where exported histories are written.
type TranscriptsConfig struct {
	Dir string `yaml:"dir"`
}

// Duration wraps time.Duration for YAML strings like "10s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:     "http://localhost:8080",
			Timeout:     Duration{60 * time.Second},
			ReadTimeout: Duration{30 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Transcripts: TranscriptsConfig{
			Dir: "~/.vox/transcripts",
		},
	}
}

// DefaultPath is where the CLI looks for a config file when none is given.
func DefaultPath() string {
	return "~/.vox/config.yaml"
}

// Load reads the YAML file at path, expands environment variables and
// applies it over Default. The returned error wraps fs.ErrNotExist when
// the file is missing.
func Load(path string) (*Config, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("config: invalid YAML in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would only fail later, at request time.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url %q: scheme must be http or https", c.Server.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("server.base_url %q: missing host", c.Server.BaseURL)
	}
	if c.Server.Timeout.Duration < 0 {
		return errors.New("server.timeout must not be negative")
	}
	if c.Server.ReadTimeout.Duration < 0 {
		return errors.New("server.read_timeout must not be negative")
	}
	return nil
}

// ExpandHome replaces a leading "~" in path with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
