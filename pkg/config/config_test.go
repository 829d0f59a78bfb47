package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the built-in defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Study.Prefix != "OAS2" {
		t.Errorf("Expected study prefix OAS2, got %s", cfg.Study.Prefix)
	}
	if cfg.Study.ImageExt != ".img" || cfg.Study.HeaderExt != ".hdr" {
		t.Errorf("Expected .img/.hdr extensions, got %s/%s",
			cfg.Study.ImageExt, cfg.Study.HeaderExt)
	}
	if cfg.Batch.CheckpointInterval != 50 {
		t.Errorf("Expected checkpoint interval 50, got %d", cfg.Batch.CheckpointInterval)
	}
	if !cfg.Batch.Resume {
		t.Error("Expected resume enabled by default")
	}
	if !cfg.Output.SaveArtifacts {
		t.Error("Expected artifact saving enabled by default")
	}
}

// TestLoadConfigMissingFile verifies that a missing file yields defaults
// without an error.
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Expected defaults for missing config, got error: %v", err)
	}
	if cfg.Study.Prefix != "OAS2" {
		t.Errorf("Expected default prefix, got %s", cfg.Study.Prefix)
	}
}

// TestLoadConfigOverrides verifies that a partial YAML file overrides only
// the keys it names.
func TestLoadConfigOverrides(t *testing.T) {
	dir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	content := "batch:\n  checkpointInterval: 10\nsegmentation:\n  brainTool: /opt/tools/bet\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Batch.CheckpointInterval != 10 {
		t.Errorf("Expected overridden interval 10, got %d", cfg.Batch.CheckpointInterval)
	}
	if cfg.Segmentation.BrainTool != "/opt/tools/bet" {
		t.Errorf("Expected overridden brain tool, got %s", cfg.Segmentation.BrainTool)
	}
	if cfg.Study.Prefix != "OAS2" {
		t.Errorf("Expected untouched default prefix, got %s", cfg.Study.Prefix)
	}
}

// TestSaveAndReloadConfig verifies the YAML round trip.
func TestSaveAndReloadConfig(t *testing.T) {
	dir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)

	cfg := DefaultConfig()
	cfg.Study.Prefix = "OAS1"
	cfg.Batch.Resume = false

	path := filepath.Join(dir, "nested", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Study.Prefix != "OAS1" {
		t.Errorf("Expected reloaded prefix OAS1, got %s", loaded.Study.Prefix)
	}
	if loaded.Batch.Resume {
		t.Error("Expected resume disabled after reload")
	}
}

// TestCreateDefaultConfigFile verifies the convenience writer.
func TestCreateDefaultConfigFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected config file to exist: %v", err)
	}
}
