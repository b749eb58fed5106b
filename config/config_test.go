package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFamily(t *testing.T) {
	tests := []struct {
		family   Family
		expected string
	}{
		{FamilyLogix, "logix"},
		{FamilySLC, "slc"},
		{"", "logix"}, // Empty defaults to logix
	}

	for _, tc := range tests {
		if result := tc.family.String(); result != tc.expected {
			t.Errorf("String(%q) = %q, want %q", tc.family, result, tc.expected)
		}
	}
}

func TestEndpoint_GetFamily(t *testing.T) {
	t.Run("returns set family", func(t *testing.T) {
		ep := Endpoint{Family: FamilySLC}
		if ep.GetFamily() != FamilySLC {
			t.Error("expected FamilySLC")
		}
	})

	t.Run("defaults to logix", func(t *testing.T) {
		ep := Endpoint{}
		if ep.GetFamily() != FamilyLogix {
			t.Error("expected FamilyLogix as default")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if len(cfg.Endpoints) != 0 {
		t.Error("expected empty Endpoints slice")
	}
}

func TestLoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("returns default for nonexistent file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(tmpDir, "nonexistent.yaml"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(cfg.Endpoints) != 0 {
			t.Error("expected default (empty) config")
		}
	})

	t.Run("save and load roundtrip", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test.yaml")

		cfg := &Config{
			Endpoints: []Endpoint{
				{Name: "Press1", Address: "192.168.1.100", Family: FamilyLogix, Slot: 0, Timeout: 5 * time.Second},
				{Name: "Press2", Address: "192.168.1.101", Family: FamilySLC, Port: 44818},
			},
		}

		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if len(loaded.Endpoints) != 2 {
			t.Fatalf("expected 2 endpoints, got %d", len(loaded.Endpoints))
		}
		if loaded.Endpoints[0].Name != "Press1" || loaded.Endpoints[0].Timeout != 5*time.Second {
			t.Error("first endpoint not preserved")
		}
		if loaded.Endpoints[1].Family != FamilySLC {
			t.Error("second endpoint family not preserved")
		}
	})

	t.Run("creates directory if needed", func(t *testing.T) {
		path := filepath.Join(tmpDir, "subdir", "nested", "config.yaml")
		cfg := DefaultConfig()

		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Error("config file was not created")
		}
	})

	t.Run("returns error for invalid yaml", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.yaml")
		os.WriteFile(path, []byte("invalid: yaml: content: ["), 0644)

		_, err := Load(path)
		if err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

func TestEndpointOperations(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("Add and Find", func(t *testing.T) {
		cfg.Add(Endpoint{Name: "PLC1", Address: "192.168.1.1"})

		found := cfg.Find("PLC1")
		if found == nil {
			t.Fatal("Find returned nil")
		}
		if found.Address != "192.168.1.1" {
			t.Errorf("expected address '192.168.1.1', got %s", found.Address)
		}
	})

	t.Run("Find returns nil for nonexistent", func(t *testing.T) {
		if cfg.Find("nonexistent") != nil {
			t.Error("expected nil for nonexistent endpoint")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if !cfg.Remove("PLC1") {
			t.Error("Remove returned false")
		}
		if cfg.Find("PLC1") != nil {
			t.Error("endpoint not removed")
		}
	})

	t.Run("Remove returns false for nonexistent", func(t *testing.T) {
		if cfg.Remove("nonexistent") {
			t.Error("expected false for nonexistent endpoint")
		}
	})
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	if path == "" {
		t.Error("DefaultPath returned empty string")
	}
	if !filepath.IsAbs(path) && path != "upycomm.yaml" {
		t.Error("expected absolute path or 'upycomm.yaml'")
	}
}
