package security

import (
	"reflect"
	"testing"
)

func TestCheckLogsDefaultPatterns(t *testing.T) {
	r := Rules{LogPatterns: defaultLogPatterns, ProcessBlacklist: defaultProcessBlacklist}

	logs := "request failed: UNION SELECT * FROM users; then ran whoami"
	matched := r.CheckLogs(logs)
	if len(matched) != 2 {
		t.Fatalf("CheckLogs() = %v, want 2 matches", matched)
	}
}

func TestCheckLogsNoMatch(t *testing.T) {
	r := Rules{LogPatterns: defaultLogPatterns}
	if matched := r.CheckLogs("all good here"); matched != nil {
		t.Errorf("CheckLogs() = %v, want nil", matched)
	}
}

func TestCheckProcesses(t *testing.T) {
	r := Rules{ProcessBlacklist: defaultProcessBlacklist}
	lines := []string{
		"root  1234  0.0  0.1  /usr/bin/xmrig --url pool.example.com",
		"root  1     0.0  0.0  /bin/sh",
	}
	matched := r.CheckProcesses(lines)
	if !reflect.DeepEqual(matched, []string{"xmrig"}) {
		t.Errorf("CheckProcesses() = %v, want [xmrig]", matched)
	}
}

func TestLoadFallsBackToDefaultsOnMissingFile(t *testing.T) {
	rules := Load("/nonexistent/security_rules.yml")
	if len(rules.LogPatterns) != len(defaultLogPatterns) {
		t.Errorf("Load() with missing file should fall back to defaults")
	}
}
