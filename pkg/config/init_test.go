package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// useConfigHome points the default config location at a fresh directory.
func useConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(content)
}

func TestInitConfig_DefaultLocation(t *testing.T) {
	home := useConfigHome(t)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if want := filepath.Join(home, "blobfs", "config.yaml"); configPath != want {
		t.Errorf("InitConfig wrote %s, want %s", configPath, want)
	}
	if !ConfigExists() {
		t.Error("ConfigExists should report the generated file")
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(readFile(t, configPath)), &cfg); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory', got %q", cfg.Store.Type)
	}
}

func TestInitConfig_Force(t *testing.T) {
	useConfigHome(t)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err = InitConfig(false)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Expected 'already exists' error, got: %v", err)
	}

	if err := os.WriteFile(configPath, []byte("# Modified"), 0644); err != nil {
		t.Fatalf("Failed to modify config: %v", err)
	}
	newPath, err := InitConfig(true)
	if err != nil {
		t.Fatalf("Force InitConfig failed: %v", err)
	}
	if newPath != configPath {
		t.Errorf("Expected same path, got %s vs %s", configPath, newPath)
	}
	if !strings.HasPrefix(readFile(t, configPath), "# BlobFS Configuration File") {
		t.Error("Config file was not overwritten")
	}
}

func TestInitConfigToPath_CreatesParents(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "custom", "nested", "blobfs.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
}

func TestInitConfigToPath_Existing(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to create existing file: %v", err)
	}

	err := InitConfigToPath(configPath, false)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("Expected an error suggesting --force, got: %v", err)
	}
	if readFile(t, configPath) != "existing" {
		t.Error("File was modified without force")
	}

	if err := InitConfigToPath(configPath, true); err != nil {
		t.Fatalf("Force InitConfigToPath failed: %v", err)
	}
	if readFile(t, configPath) == "existing" {
		t.Error("File was not overwritten")
	}
}

func TestGenerateYAML_StoreSection(t *testing.T) {
	out, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		t.Fatalf("generateYAMLWithComments failed: %v", err)
	}

	// The remote backends are documented, not emitted.
	for _, want := range []string{
		"# Object store backing the filesystem",
		"#   type: memory, badger, azure, s3",
		"#   rate_limit: backend calls per second and burst (0 = unlimited)",
		"#     connection_string:",
		"#     bucket: my-bucket",
		"#     key_prefix: blobfs/",
		"#     endpoint: http://localhost:4566",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Generated YAML missing %q", want)
		}
	}

	var doc struct {
		Store map[string]any `yaml:"store"`
	}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}
	for _, key := range []string{"azure", "s3"} {
		if _, ok := doc.Store[key]; ok {
			t.Errorf("Store section should not carry an empty %s block", key)
		}
	}
	for _, key := range []string{"type", "memory", "badger", "rate_limit"} {
		if _, ok := doc.Store[key]; !ok {
			t.Errorf("Store section missing %s", key)
		}
	}
}

func TestGenerateYAML_FilesystemSection(t *testing.T) {
	out, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		t.Fatalf("generateYAMLWithComments failed: %v", err)
	}

	for _, want := range []string{
		"# Filesystem emulation",
		"delimiter: /",
		"rename_check_interval: 500ms",
		"rename_timeout: 0s",
		"db_path: /tmp/blobfs-store",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Generated YAML missing %q", want)
		}
	}
}

func TestGeneratedConfig_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("Failed to generate config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Generated config failed validation: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected INFO log level, got %q", cfg.Logging.Level)
	}
	if cfg.Filesystem.Delimiter != "/" {
		t.Errorf("Expected delimiter '/', got %q", cfg.Filesystem.Delimiter)
	}
	if cfg.Filesystem.RenameCheckInterval != 500*time.Millisecond {
		t.Errorf("Expected rename_check_interval 500ms, got %v", cfg.Filesystem.RenameCheckInterval)
	}
	if cfg.Filesystem.RenameTimeout != 0 {
		t.Errorf("Expected no rename timeout, got %v", cfg.Filesystem.RenameTimeout)
	}
	if cfg.Store.RateLimit.RequestsPerSecond != 0 {
		t.Errorf("Expected an unlimited store, got %d req/s", cfg.Store.RateLimit.RequestsPerSecond)
	}
	if got := cfg.Store.Memory["container"]; got != "blobfs" {
		t.Errorf("Expected memory container 'blobfs', got %v", got)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestGeneratedConfig_EnvOverridesDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("Failed to generate config: %v", err)
	}
	t.Setenv("BLOBFS_FILESYSTEM_RENAME_TIMEOUT", "2m")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}
	if cfg.Filesystem.RenameTimeout != 2*time.Minute {
		t.Errorf("Expected rename_timeout 2m from the environment, got %v", cfg.Filesystem.RenameTimeout)
	}
}
