// Package config handles the camrig provisioning configuration file.
//
// Config lives at /etc/camrig/config.yaml by default. A missing file is not
// an error — the defaults reproduce the unattended boot-time setup: wait for
// network, then relaunch the relay stack from scratch. Every field can be
// overridden per deployment target.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where camrig looks for its configuration.
const DefaultPath = "/etc/camrig/config.yaml"

// Duration wraps time.Duration so YAML accepts "5s", "500ms" and friends.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// NetworkWait configures the network readiness gate.
type NetworkWait struct {
	Enabled  bool     `yaml:"enabled"`
	Address  string   `yaml:"address"`
	Interval Duration `yaml:"interval"`
}

// ClockSync configures the NTP clock-sync gate. A Raspberry Pi has no RTC;
// until the clock settles, TLS downloads (including the engine install
// script) fail with certificate errors.
type ClockSync struct {
	Enabled   bool     `yaml:"enabled"`
	Pool      string   `yaml:"pool"`
	Threshold Duration `yaml:"threshold"`
	Interval  Duration `yaml:"interval"`
}

// Config holds all provisioning settings.
type Config struct {
	Manifest    string      `yaml:"manifest"`
	Policy      string      `yaml:"policy"`
	ServiceUnit string      `yaml:"service_unit"`
	NetworkWait NetworkWait `yaml:"network_wait"`
	ClockSync   ClockSync   `yaml:"clock_sync"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Manifest:    "/opt/camrig/docker-compose.yml",
		Policy:      "clean-restart",
		ServiceUnit: "docker.service",
		NetworkWait: NetworkWait{
			Enabled:  true,
			Address:  "8.8.8.8",
			Interval: Duration(5 * time.Second),
		},
		ClockSync: ClockSync{
			Enabled:   false,
			Pool:      "pool.ntp.org",
			Threshold: Duration(500 * time.Millisecond),
			Interval:  Duration(5 * time.Second),
		},
	}
}

// Load reads the config at path, layering it over the defaults. If the file
// does not exist, the defaults are returned (not an error).
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks the config for values the provisioner cannot work with.
func (c Config) Validate() error {
	if c.Manifest == "" {
		return fmt.Errorf("manifest path is required")
	}
	if !filepath.IsAbs(c.Manifest) {
		return fmt.Errorf("manifest path %q must be absolute", c.Manifest)
	}
	switch c.Policy {
	case "clean-restart", "lightweight":
	default:
		return fmt.Errorf("policy %q must be clean-restart or lightweight", c.Policy)
	}
	if c.ServiceUnit == "" {
		return fmt.Errorf("service_unit is required")
	}
	if c.NetworkWait.Enabled {
		if c.NetworkWait.Address == "" {
			return fmt.Errorf("network_wait.address is required when enabled")
		}
		if c.NetworkWait.Interval <= 0 {
			return fmt.Errorf("network_wait.interval must be positive")
		}
	}
	if c.ClockSync.Enabled {
		if c.ClockSync.Pool == "" {
			return fmt.Errorf("clock_sync.pool is required when enabled")
		}
		if c.ClockSync.Threshold <= 0 {
			return fmt.Errorf("clock_sync.threshold must be positive")
		}
		if c.ClockSync.Interval <= 0 {
			return fmt.Errorf("clock_sync.interval must be positive")
		}
	}
	return nil
}
