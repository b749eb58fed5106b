// Package config loads and saves the small YAML document describing the
// PLC endpoints a caller of this library wants to talk to.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Family identifies which driver an Endpoint should be opened with.
type Family string

const (
	FamilyLogix Family = "logix" // ControlLogix/CompactLogix/Micro800 CIP tag access
	FamilySLC   Family = "slc"   // SLC 500/PLC-5/MicroLogix PCCC-over-CIP
)

// String returns the family name, defaulting to "logix" when unset.
func (f Family) String() string {
	if f == "" {
		return string(FamilyLogix)
	}
	return string(f)
}

// Endpoint describes a single PLC connection.
type Endpoint struct {
	Name      string        `yaml:"name"`
	Address   string        `yaml:"address"`
	Port      int           `yaml:"port,omitempty"`       // 0 defaults to 44818
	Family    Family        `yaml:"family,omitempty"`
	Slot      byte          `yaml:"slot,omitempty"`       // Backplane slot for Logix CPUs
	RoutePath []byte        `yaml:"route_path,omitempty"` // Explicit CIP route, overrides Slot
	Timeout   time.Duration `yaml:"timeout,omitempty"`    // 0 uses the driver default
}

// GetFamily returns the endpoint family, defaulting to Logix if unset.
func (e *Endpoint) GetFamily() Family {
	if e.Family == "" {
		return FamilyLogix
	}
	return e.Family
}

// Config holds the set of configured PLC endpoints.
type Config struct {
	Endpoints []Endpoint `yaml:"endpoints"`

	dataMu sync.Mutex `yaml:"-"`
}

// DefaultConfig returns an empty configuration.
func DefaultConfig() *Config {
	return &Config{Endpoints: []Endpoint{}}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "upycomm.yaml"
	}
	return filepath.Join(home, ".upycomm", "config.yaml")
}

// Load reads configuration from a YAML file. A missing file yields the
// default (empty) configuration rather than an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Save marshals and writes the configuration to path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	c.dataMu.Lock()
	data, err := yaml.Marshal(c)
	c.dataMu.Unlock()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Find returns the endpoint with the given name, or nil if not found.
func (c *Config) Find(name string) *Endpoint {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	for i := range c.Endpoints {
		if c.Endpoints[i].Name == name {
			return &c.Endpoints[i]
		}
	}
	return nil
}

// Add appends a new endpoint configuration.
func (c *Config) Add(ep Endpoint) {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	c.Endpoints = append(c.Endpoints, ep)
}

// Remove deletes an endpoint by name, returning true if one was removed.
func (c *Config) Remove(name string) bool {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	for i, ep := range c.Endpoints {
		if ep.Name == name {
			c.Endpoints = append(c.Endpoints[:i], c.Endpoints[i+1:]...)
			return true
		}
	}
	return false
}
