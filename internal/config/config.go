// Package config handles towerd configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/towerd/config.yaml, /config/config.yaml,
// /etc/towerd/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "towerd", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/towerd/config.yaml")
	return paths
}

// searchPathsFunc is a seam for tests; production code always uses
// DefaultSearchPaths.
var searchPathsFunc = DefaultSearchPaths

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all towerd configuration. Trackside topology (which
// turnouts/signals/routes exist and how they interconnect) is deliberately
// not part of this file — that is the external topology-description
// collaborator's job (see spec.md §1 Non-goals); this file only configures
// the ambient concerns: which station this process is, how to reach the
// broker, and where to keep local state.
type Config struct {
	Station  string        `yaml:"station"`
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	Delays   DelaysConfig  `yaml:"delays"`
	Audit    AuditConfig   `yaml:"audit"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// MQTTConfig defines the broker connection used by the dispatcher.
type MQTTConfig struct {
	Broker         string `yaml:"broker"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	ClientIDPrefix string `yaml:"client_id_prefix"`
}

// Configured reports whether a broker URL has been set.
func (c MQTTConfig) Configured() bool {
	return c.Broker != ""
}

// DelaysConfig overrides the element default timings from spec.md §3
// (Turnout.moving_delay=6s, Signal.alt_delay=15s, Route.step_delay=0.2s).
// Zero values mean "use the element default."
type DelaysConfig struct {
	MovingDelaySec float64 `yaml:"moving_delay_sec"`
	AltDelaySec    float64 `yaml:"alt_delay_sec"`
	StepDelaySec   float64 `yaml:"step_delay_sec"`
}

// MovingDelay returns the configured turnout moving delay, or the spec
// default of 6 seconds.
func (d DelaysConfig) MovingDelay() time.Duration {
	if d.MovingDelaySec <= 0 {
		return 6 * time.Second
	}
	return time.Duration(d.MovingDelaySec * float64(time.Second))
}

// AltDelay returns the configured signal substitute-aspect delay, or the
// spec default of 15 seconds.
func (d DelaysConfig) AltDelay() time.Duration {
	if d.AltDelaySec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(d.AltDelaySec * float64(time.Second))
}

// StepDelay returns the configured route staging delay, or the spec
// default of 0.2 seconds.
func (d DelaysConfig) StepDelay() time.Duration {
	if d.StepDelaySec <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(d.StepDelaySec * float64(time.Second))
}

// AuditConfig controls the optional SQLite black-box recorder.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig controls the optional Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Load reads and parses the config file at path, applying defaults and
// validating the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${MQTT_PASSWORD}). A convenience
	// for container deployments; the recommended approach is to put values
	// directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults. Called
// automatically by Load. After this, callers can read any field without
// checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MQTT.ClientIDPrefix == "" {
		c.MQTT.ClientIDPrefix = "towerd"
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(c.DataDir, "audit.db")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
}

// Validate checks required fields are present after defaulting.
func (c *Config) Validate() error {
	if c.Station == "" {
		return fmt.Errorf("station name is required")
	}
	if !c.MQTT.Configured() {
		return fmt.Errorf("mqtt.broker is required")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
