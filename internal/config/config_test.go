package config

import (
	"os"
	"path/filepath"
	"testing"
)

func withEnv(t *testing.T, endpoint, password string) {
	t.Helper()
	t.Setenv("WEB3_ENDPOINT", endpoint)
	t.Setenv("ARBRITO_EXEC_PASSWORD", password)
}

func TestLoadMissingEndpointFails(t *testing.T) {
	t.Setenv("WEB3_ENDPOINT", "")
	t.Setenv("ARBRITO_EXEC_PASSWORD", "pw")

	if _, err := Load(""); err == nil {
		t.Error("expected an error when WEB3_ENDPOINT is unset")
	}
}

func TestLoadMissingPasswordFails(t *testing.T) {
	t.Setenv("WEB3_ENDPOINT", "ws://localhost:8546")
	t.Setenv("ARBRITO_EXEC_PASSWORD", "")

	if _, err := Load(""); err == nil {
		t.Error("expected an error when ARBRITO_EXEC_PASSWORD is unset")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	withEnv(t, "ws://localhost:8546", "pw")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RegistryPath != "registry.toml" {
		t.Errorf("RegistryPath = %q, want default", cfg.RegistryPath)
	}
	if cfg.Evaluate.MaxGasUsage != 400_000 {
		t.Errorf("MaxGasUsage = %d, want spec default 400000", cfg.Evaluate.MaxGasUsage)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	withEnv(t, "ws://localhost:8546", "pw")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
registry_path = "custom-registry.toml"
log_level = "debug"
executor_account = "0x00000000000000000000000000000000000000aa"

[evaluate]
max_gas_usage = 500000
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RegistryPath != "custom-registry.toml" {
		t.Errorf("RegistryPath = %q, want override", cfg.RegistryPath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Evaluate.MaxGasUsage != 500_000 {
		t.Errorf("MaxGasUsage = %d, want 500000 override", cfg.Evaluate.MaxGasUsage)
	}
	if cfg.Evaluate.MinGasScale != 2 {
		t.Errorf("MinGasScale = %d, want untouched default 2", cfg.Evaluate.MinGasScale)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	withEnv(t, "ws://localhost:8546", "pw")

	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml")); err != nil {
		t.Errorf("Load with missing config file: %v, want nil (defaults should stand)", err)
	}
}
