package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveEnv(t *testing.T) {
	os.Setenv("SENTINEL_TEST_KEY", "secret-value")
	defer os.Unsetenv("SENTINEL_TEST_KEY")

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"exact match expands", "${SENTINEL_TEST_KEY}", "secret-value"},
		{"unset var expands to empty", "${SENTINEL_TEST_UNSET}", ""},
		{"literal passthrough", "plain-value", "plain-value"},
		{"substring is not interpolated", "prefix-${SENTINEL_TEST_KEY}", "prefix-${SENTINEL_TEST_KEY}"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveEnv(tt.value); got != tt.want {
				t.Errorf("resolveEnv(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestLoadDefaultsAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yamlContent := `
system:
  check_interval_seconds: 15
notification:
  email:
    enabled: false
watchlist:
  containers:
    - name: web
      enabled: true
    - name: db
      enabled: false
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.System.CheckIntervalSeconds != 15 {
		t.Errorf("check_interval_seconds = %d, want 15", cfg.System.CheckIntervalSeconds)
	}
	if cfg.System.ResourceCheckIntervalSeconds != 120 {
		t.Errorf("resource_check_interval_seconds default = %d, want 120", cfg.System.ResourceCheckIntervalSeconds)
	}
	if cfg.CircuitBreaker.CooldownSeconds != 1800 {
		t.Errorf("cooldown_seconds default = %d, want 1800", cfg.CircuitBreaker.CooldownSeconds)
	}
	if !cfg.IsActionAllowed("RESTART") {
		t.Error("RESTART should be allowed by default whitelist")
	}

	names := cfg.EnabledContainerNames()
	if !names["web"] || names["db"] {
		t.Errorf("EnabledContainerNames() = %v, want only web enabled", names)
	}
}

func TestLoadRejectsDuplicateContainerNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yamlContent := `
watchlist:
  containers:
    - name: web
    - name: web
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for duplicate container names, got nil")
	}
}

func TestContainerThresholdFallback(t *testing.T) {
	cfg := &Config{
		Thresholds: ThresholdConfig{CPUCritical: 90, MemoryCritical: 85},
	}
	override := &ContainerConfig{Thresholds: ContainerThresholds{CPUPercentCritical: 50}}

	if got := cfg.ContainerCPUCritical(override); got != 50 {
		t.Errorf("ContainerCPUCritical() = %v, want override 50", got)
	}
	if got := cfg.ContainerMemoryCritical(override); got != 85 {
		t.Errorf("ContainerMemoryCritical() = %v, want global default 85", got)
	}
	if got := cfg.ContainerCPUCritical(nil); got != 90 {
		t.Errorf("ContainerCPUCritical(nil) = %v, want global default 90", got)
	}
}
