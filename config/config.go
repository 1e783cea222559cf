// Package config provides CLI configuration management for the meetctl
// command-line tool. It supports loading configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/lthibault/jitterbug/v2"
	"gopkg.in/yaml.v3"

	"github.com/DavidC001/meetingAssistant-sub001/pkg/jobsync"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultServerURL    = "http://localhost:8080"
	DefaultTimeout      = 30 * time.Second
	DefaultOutputFormat = OutputFormatText
	DefaultConfigDir    = ".meetctl"
	DefaultConfigFile   = "config.yaml"
)

// Duration is a time.Duration that reads human values ("3s", "500ms") from
// YAML and environment variables.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for envconfig.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// PollingConfig holds the synchronization engine tuning knobs. Zero values
// fall through to the engine's own defaults.
type PollingConfig struct {
	// QueuedInterval is the poll interval while the job waits in the queue.
	QueuedInterval Duration `yaml:"queued_interval,omitempty" envconfig:"MEETCTL_POLL_QUEUED_INTERVAL"`

	// DefaultInterval is the poll interval for running jobs at low progress.
	DefaultInterval Duration `yaml:"default_interval,omitempty" envconfig:"MEETCTL_POLL_DEFAULT_INTERVAL"`

	// MediumInterval is the poll interval past 50% overall progress.
	MediumInterval Duration `yaml:"medium_interval,omitempty" envconfig:"MEETCTL_POLL_MEDIUM_INTERVAL"`

	// ShortInterval is the poll interval past 80% overall progress.
	ShortInterval Duration `yaml:"short_interval,omitempty" envconfig:"MEETCTL_POLL_SHORT_INTERVAL"`

	// Floor is the minimum delay between polls.
	Floor Duration `yaml:"floor,omitempty" envconfig:"MEETCTL_POLL_FLOOR"`

	// FetchTimeout caps each individual status fetch.
	FetchTimeout Duration `yaml:"fetch_timeout,omitempty" envconfig:"MEETCTL_POLL_FETCH_TIMEOUT"`

	// JitterStdev randomizes poll delays with a normal distribution so many
	// dashboards don't hit the server in lockstep. Zero disables jitter.
	JitterStdev Duration `yaml:"jitter_stdev,omitempty" envconfig:"MEETCTL_POLL_JITTER_STDEV"`

	// ReconcileDelays is the bounded tail of follow-up polls after a terminal
	// status while the summary audio is still being generated.
	ReconcileDelays []Duration `yaml:"reconcile_delays,omitempty" envconfig:"MEETCTL_POLL_RECONCILE_DELAYS"`
}

// PolicyConfig converts the file representation to engine configuration.
func (p PollingConfig) PolicyConfig() jobsync.PolicyConfig {
	return jobsync.PolicyConfig{
		QueuedInterval:  p.QueuedInterval.Std(),
		DefaultInterval: p.DefaultInterval.Std(),
		MediumInterval:  p.MediumInterval.Std(),
		ShortInterval:   p.ShortInterval.Std(),
		Floor:           p.Floor.Std(),
	}
}

// ReconcileConfig converts the file representation to engine configuration.
func (p PollingConfig) ReconcileConfig() jobsync.ReconcileConfig {
	if len(p.ReconcileDelays) == 0 {
		return jobsync.ReconcileConfig{}
	}
	delays := make([]time.Duration, len(p.ReconcileDelays))
	for i, d := range p.ReconcileDelays {
		delays[i] = d.Std()
	}
	return jobsync.ReconcileConfig{Delays: delays}
}

// Jitter returns the configured delay jitter, or nil when disabled.
func (p PollingConfig) Jitter() jitterbug.Jitter {
	if p.JitterStdev <= 0 {
		return nil
	}
	return &jitterbug.Norm{Stdev: p.JitterStdev.Std()}
}

// CLIConfig holds all configuration for the meetctl CLI tool.
type CLIConfig struct {
	// ServerURL is the base URL of the meeting service API.
	ServerURL string `yaml:"server_url" envconfig:"MEETCTL_SERVER_URL"`

	// Timeout is the overall timeout for one-shot commands.
	Timeout Duration `yaml:"timeout,omitempty" envconfig:"MEETCTL_TIMEOUT"`

	// OutputFormat is the default output format (text, json, yaml).
	OutputFormat OutputFormat `yaml:"output_format,omitempty" envconfig:"MEETCTL_OUTPUT_FORMAT"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty" envconfig:"MEETCTL_DEBUG"`

	// Polling holds the synchronization engine tuning knobs.
	Polling PollingConfig `yaml:"polling,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		ServerURL:    DefaultServerURL,
		Timeout:      Duration(DefaultTimeout),
		OutputFormat: DefaultOutputFormat,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $MEETCTL_CONFIG_DIR if set, otherwise ~/.meetctl
func ConfigDir() (string, error) {
	if dir := os.Getenv("MEETCTL_CONFIG_DIR"); dir != "" {
		return expandPath(dir), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration. Sources are applied in order,
// later overriding earlier:
// 1. Default values
// 2. Config file (~/.meetctl/config.yaml or $MEETCTL_CONFIG_DIR/config.yaml)
// 3. Environment variables (MEETCTL_SERVER_URL, MEETCTL_OUTPUT_FORMAT, ...)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the config file, creating the directory
// if needed.
func (c *CLIConfig) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c *CLIConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url must not be empty")
	}
	switch c.OutputFormat {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
	default:
		return fmt.Errorf("invalid output format %q (valid: text, json, yaml)", c.OutputFormat)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
