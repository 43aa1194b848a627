// Package config provides configuration management for ipnetlab.
//
// The config file holds the address plan inputs (pool bases, prefix caps,
// family toggles) and the service settings. Topologies are not part of it;
// they are loaded from their own files.
//
// Config file locations (priority order):
//  1. $IPNETLAB_CONFIG
//  2. ./ipnetlab.yaml
//  3. $XDG_CONFIG_HOME/ipnetlab/config.yaml
//  4. ~/.config/ipnetlab/config.yaml
//  5. /etc/ipnetlab/config.yaml
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ipnetlab/internal/ipam"
)

// Defaults for a new installation
const (
	DefaultDatabasePath = "./ipnetlab.db"
	DefaultServerAddr   = ":3000"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	opts := ipam.DefaultOptions()

	if c.Version == 0 {
		c.Version = 1
	}
	if c.Allocation.IPv4.Base == "" {
		c.Allocation.IPv4.Base = opts.V4.Base
	}
	if c.Allocation.IPv4.MaxPrefixLen == 0 {
		c.Allocation.IPv4.MaxPrefixLen = opts.V4.MaxPrefixLen
	}
	if c.Allocation.IPv6.Base == "" {
		c.Allocation.IPv6.Base = opts.V6.Base
	}
	if c.Allocation.IPv6.MaxPrefixLen == 0 {
		c.Allocation.IPv6.MaxPrefixLen = opts.V6.MaxPrefixLen
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Verify.Timeout == 0 {
		c.Verify.Timeout = Duration(5 * time.Second)
	}
	if c.Verify.Concurrency <= 0 {
		c.Verify.Concurrency = 8
	}
}

// Validate checks the pools and the logger settings
func (c *Config) Validate() error {
	if err := c.EngineOptions().Validate(); err != nil {
		return fmt.Errorf("allocation: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// EngineOptions converts the allocation section to engine options
func (c *Config) EngineOptions() ipam.Options {
	a := c.Allocation
	return ipam.Options{
		V4: ipam.FamilyOptions{
			Enabled:      boolOr(a.IPv4.Enabled, true),
			Base:         a.IPv4.Base,
			MaxPrefixLen: a.IPv4.MaxPrefixLen,
		},
		V6: ipam.FamilyOptions{
			Enabled:      boolOr(a.IPv6.Enabled, true),
			Base:         a.IPv6.Base,
			MaxPrefixLen: a.IPv6.MaxPrefixLen,
		},
		AllocateIPs: boolOr(a.AllocateIPs, true),
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	opts := c.EngineOptions()

	summary := fmt.Sprintf("Allocate IPs: %v\n", opts.AllocateIPs)
	summary += fmt.Sprintf("IPv4: %s (max /%d, enabled %v)\n", opts.V4.Base, opts.V4.MaxPrefixLen, opts.V4.Enabled)
	summary += fmt.Sprintf("IPv6: %s (max /%d, enabled %v)\n", opts.V6.Base, opts.V6.MaxPrefixLen, opts.V6.Enabled)
	summary += fmt.Sprintf("Database: %s, Server: %s, Log: %s/%s\n", c.Database.Path, c.Server.Addr, c.Log.Level, c.Log.Format)
	summary += fmt.Sprintf("Verify: timeout %s, concurrency %d", c.Verify.Timeout.Duration(), c.Verify.Concurrency)

	return summary
}
