package runtime

import "testing"

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.34%", 12.34},
		{"  5.0% ", 5.0},
		{"0%", 0},
		{"not-a-number", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParsePercent(tt.in); got != tt.want {
			t.Errorf("ParsePercent(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseMemoryMB(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"100MiB / 512MiB", 100},
		{"1GiB / 2GiB", 1024},
		{"512KiB / 1GiB", 0.5},
		{"100MB / 512MB", 100},
		{"1GB / 2GB", 1000},
		{"bogus / 512MiB", 0},
	}
	for _, tt := range tests {
		if got := ParseMemoryMB(tt.in); got != tt.want {
			t.Errorf("ParseMemoryMB(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCalcCPUPercentGuardsCounterReset(t *testing.T) {
	// Counter reset: current < previous must yield 0, not a bogus large value.
	if got := calcCPUPercent(10, 100, 1000, 500, 4); got != 0 {
		t.Errorf("calcCPUPercent with reset container counter = %v, want 0", got)
	}
	if got := calcCPUPercent(100, 10, 10, 1000, 4); got != 0 {
		t.Errorf("calcCPUPercent with reset system counter = %v, want 0", got)
	}
}

func TestCalcCPUPercentNormal(t *testing.T) {
	// containerDelta=50, systemDelta=1000, cpus=4 -> (50/1000)*4*100 = 20
	got := calcCPUPercent(150, 100, 2000, 1000, 4)
	if got != 20 {
		t.Errorf("calcCPUPercent = %v, want 20", got)
	}
}
