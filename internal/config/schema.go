package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Allocation AllocationConfig `yaml:"allocation"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Verify     VerifyConfig     `yaml:"verify"`
}

// AllocationConfig holds the address pools and allocation toggles
type AllocationConfig struct {
	AllocateIPs *bool        `yaml:"allocate_ips,omitempty"` // nil = true
	IPv4        FamilyConfig `yaml:"ipv4"`
	IPv6        FamilyConfig `yaml:"ipv6"`
}

// FamilyConfig holds the pool of one address family
type FamilyConfig struct {
	Enabled      *bool  `yaml:"enabled,omitempty"` // nil = true
	Base         string `yaml:"base"`
	MaxPrefixLen int    `yaml:"max_prefix_len"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // logrus level name
	Format string `yaml:"format"` // text or json
}

// VerifyConfig holds reachability sweep settings
type VerifyConfig struct {
	Timeout     Duration `yaml:"timeout"`
	Concurrency int      `yaml:"concurrency"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
