package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BreakerSnapshot is a persisted circuit-breaker state, keyed by container
// name. Nothing outside this package loads or saves one: the monitor's
// ReportState keeps its breaker state in memory only.
type BreakerSnapshot struct {
	OpenUntil      map[string]time.Time   `json:"open_until"`
	LastReportTime map[string]time.Time   `json:"last_report_time"`
	ReportHistory  map[string][]time.Time `json:"report_history"`
}

// LoadBreakerState reads a breaker state file, returning an empty
// snapshot (not an error) if the file does not yet exist.
func LoadBreakerState(path string) (*BreakerSnapshot, error) {
	snap := &BreakerSnapshot{
		OpenUntil:      map[string]time.Time{},
		LastReportTime: map[string]time.Time{},
		ReportHistory:  map[string][]time.Time{},
	}
	if path == "" {
		return snap, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("breaker state: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("breaker state: parse %s: %w", path, err)
	}
	return snap, nil
}

// SaveBreakerState persists the current breaker snapshot atomically via a
// temp-file-then-rename, so a crash mid-write never leaves a truncated
// state file behind.
func SaveBreakerState(path string, snap *BreakerSnapshot) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("breaker state: create dir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("breaker state: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("breaker state: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("breaker state: rename: %w", err)
	}
	return nil
}
