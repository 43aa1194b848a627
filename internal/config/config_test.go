package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Database.Path != DefaultDatabasePath {
		t.Errorf("Database.Path = %s, want %s", cfg.Database.Path, DefaultDatabasePath)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %s, want %s", cfg.Server.Addr, DefaultServerAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestEngineOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := DefaultConfig().EngineOptions()

		if !opts.AllocateIPs {
			t.Error("AllocateIPs should default to true")
		}
		if !opts.V4.Enabled || !opts.V6.Enabled {
			t.Error("both families should default to enabled")
		}
		if opts.V4.Base != "192.168.0.0/16" || opts.V4.MaxPrefixLen != 24 {
			t.Errorf("V4 = %s max /%d, want 192.168.0.0/16 max /24", opts.V4.Base, opts.V4.MaxPrefixLen)
		}
		if opts.V6.Base != "fc00::/7" || opts.V6.MaxPrefixLen != 48 {
			t.Errorf("V6 = %s max /%d, want fc00::/7 max /48", opts.V6.Base, opts.V6.MaxPrefixLen)
		}
	})

	t.Run("explicit false wins", func(t *testing.T) {
		cfg := DefaultConfig()
		off := false
		cfg.Allocation.AllocateIPs = &off
		cfg.Allocation.IPv6.Enabled = &off

		opts := cfg.EngineOptions()
		if opts.AllocateIPs {
			t.Error("AllocateIPs should be false")
		}
		if opts.V6.Enabled {
			t.Error("IPv6 should be disabled")
		}
		if !opts.V4.Enabled {
			t.Error("IPv4 should stay enabled")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad ipv4 base", func(c *Config) { c.Allocation.IPv4.Base = "192.168.0.0" }},
		{"ipv6 base of the wrong family", func(c *Config) { c.Allocation.IPv6.Base = "10.0.0.0/8" }},
		{"cap wider than base", func(c *Config) { c.Allocation.IPv4.MaxPrefixLen = 12 }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Allocation.IPv4.Base = "10.0.0.0/8"
	cfg.Allocation.IPv4.MaxPrefixLen = 28
	cfg.Server.Addr = ":8080"
	cfg.Verify.Timeout = Duration(2 * time.Second)

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}
	if loaded.Allocation.IPv4.Base != "10.0.0.0/8" || loaded.Allocation.IPv4.MaxPrefixLen != 28 {
		t.Errorf("IPv4 = %+v, want 10.0.0.0/8 max /28", loaded.Allocation.IPv4)
	}
	if loaded.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %s, want :8080", loaded.Server.Addr)
	}
	if loaded.Verify.Timeout.Duration() != 2*time.Second {
		t.Errorf("Verify.Timeout = %s, want 2s", loaded.Verify.Timeout.Duration())
	}
}

func TestLoadPartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	data := "allocation:\n  ipv6:\n    enabled: false\n  ipv4:\n    base: 172.16.0.0/12\n"
	if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	opts := cfg.EngineOptions()
	if opts.V6.Enabled {
		t.Error("IPv6 should be disabled")
	}
	if opts.V4.Base != "172.16.0.0/12" || opts.V4.MaxPrefixLen != 24 {
		t.Errorf("V4 = %s max /%d, want 172.16.0.0/12 max /24", opts.V4.Base, opts.V4.MaxPrefixLen)
	}
	if cfg.Database.Path != DefaultDatabasePath {
		t.Errorf("Database.Path = %s, want default", cfg.Database.Path)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.yaml")
		os.WriteFile(path, []byte("allocation: [\n"), 0644)
		if _, _, err := LoadFromPath(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid pool", func(t *testing.T) {
		path := filepath.Join(tmpDir, "pool.yaml")
		os.WriteFile(path, []byte("allocation:\n  ipv4:\n    base: nope\n"), 0644)
		_, _, err := LoadFromPath(path)
		if err == nil || !strings.Contains(err.Error(), "allocation") {
			t.Errorf("expected allocation error, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, _, err := LoadFromPath(filepath.Join(tmpDir, "missing.yaml")); err == nil {
			t.Error("expected read error")
		}
	})
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	if found = FindConfigPath(); found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	explicit := filepath.Join(tmpDir, "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found = FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func TestSearchPaths(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/x.yaml")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	paths := SearchPaths()
	if paths[0] != "/tmp/x.yaml" {
		t.Errorf("first path = %s, want env path", paths[0])
	}
	if paths[1] != ConfigFileName {
		t.Errorf("second path = %s, want %s", paths[1], ConfigFileName)
	}
	if paths[2] != "/xdg/ipnetlab/config.yaml" {
		t.Errorf("third path = %s, want XDG path", paths[2])
	}
	if last := paths[len(paths)-1]; last != "/etc/ipnetlab/config.yaml" {
		t.Errorf("last path = %s, want system path", last)
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
